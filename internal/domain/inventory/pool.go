package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Transferer runs a single transfer request.
type Transferer interface {
	Transfer(ctx context.Context, req TransferRequest) (TransferRecord, error)
}

type transferResult struct {
	rec TransferRecord
	err error
}

type transferJob struct {
	ctx  context.Context
	req  TransferRequest
	done chan transferResult
}

// Pool bounds the number of transfers running at once. Requests queue up
// behind a fixed set of workers; each caller waits for its own result.
type Pool struct {
	next Transferer
	jobs chan transferJob
	log  *slog.Logger
	wg   sync.WaitGroup
	quit chan struct{}

	// mu guards closed; senders hold it shared so Close cannot slip in
	// between the closed check and the enqueue.
	mu     sync.RWMutex
	closed bool
}

func NewPool(next Transferer, workers, queueSize int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		next: next,
		jobs: make(chan transferJob, queueSize),
		log:  log,
		quit: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.workerLoop(id)
		}(i)
	}
	log.Info("transfer pool started", "workers", workers, "queue", queueSize)
	return p
}

var errPoolClosed = newError(KindLockTimeout, "transfer pool is shutting down")

// Transfer queues req and waits for a worker to run it. If ctx expires
// before the job is queued or picked up, the transfer does not run.
func (p *Pool) Transfer(ctx context.Context, req TransferRequest) (TransferRecord, error) {
	job := transferJob{ctx: ctx, req: req, done: make(chan transferResult, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return TransferRecord{}, errPoolClosed
	}
	select {
	case p.jobs <- job:
	case <-ctx.Done():
		p.mu.RUnlock()
		return TransferRecord{}, classify(ctx.Err())
	}
	p.mu.RUnlock()

	// Once queued the job always gets an answer: an expired ctx is reported
	// by the worker, so a committed transfer is never reported as failed.
	res := <-job.done
	return res.rec, res.err
}

// Close stops accepting requests, lets queued jobs finish and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info("transfer pool stopped")
}

func (p *Pool) workerLoop(id int) {
	for {
		select {
		case job := <-p.jobs:
			p.run(id, job)
		case <-p.quit:
			// Drain what was queued before shutdown.
			for {
				select {
				case job := <-p.jobs:
					p.run(id, job)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(id int, job transferJob) {
	if err := job.ctx.Err(); err != nil {
		p.log.Debug("transfer expired in queue", "worker", id, "item", job.req.ItemCode)
		job.done <- transferResult{err: classify(err)}
		return
	}
	defer func() {
		if v := recover(); v != nil {
			p.log.Error("transfer panicked", "worker", id, "item", job.req.ItemCode, "panic", v)
			job.done <- transferResult{err: &Error{
				Kind:    KindPersistenceFailure,
				Message: "transfer failed unexpectedly",
				Err:     fmt.Errorf("panic: %v", v),
			}}
		}
	}()
	rec, err := p.next.Transfer(job.ctx, job.req)
	job.done <- transferResult{rec: rec, err: err}
}
