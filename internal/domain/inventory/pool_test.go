package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatedTransferer struct {
	calls   atomic.Int32
	started chan struct{}
	gate    chan struct{}
}

func (g *gatedTransferer) Transfer(_ context.Context, req TransferRequest) (TransferRecord, error) {
	g.calls.Add(1)
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.gate != nil {
		<-g.gate
	}
	return TransferRecord{ID: req.Initiator, Quantity: req.Quantity}, nil
}

func TestPool_RunsTransfers(t *testing.T) {
	f := newFixture(t, 1000)
	p := NewPool(f.coord, 4, 16, discardLogger())
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Transfer(context.Background(), transfer(3))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 700, f.quantity(t, "SKU-1", "WH-A"))
	assert.EqualValues(t, 300, f.quantity(t, "SKU-1", "WH-B"))
	assert.Equal(t, 100, f.transferCount(t))
}

func TestPool_ExpiredJobDoesNotRun(t *testing.T) {
	g := &gatedTransferer{started: make(chan struct{}, 1), gate: make(chan struct{})}
	p := NewPool(g, 1, 4, discardLogger())
	defer p.Close()

	first := make(chan error, 1)
	go func() {
		_, err := p.Transfer(context.Background(), transfer(1))
		first <- err
	}()
	<-g.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	second := make(chan error, 1)
	go func() {
		_, err := p.Transfer(ctx, transfer(2))
		second <- err
	}()
	<-ctx.Done()
	close(g.gate)

	require.NoError(t, <-first)
	err := <-second
	assert.Equal(t, KindLockTimeout, KindOf(err))
	assert.EqualValues(t, 1, g.calls.Load())
}

func TestPool_CloseDrainsQueueAndRejectsNewWork(t *testing.T) {
	g := &gatedTransferer{started: make(chan struct{}, 8), gate: make(chan struct{})}
	p := NewPool(g, 1, 4, discardLogger())

	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := p.Transfer(context.Background(), transfer(1))
			results <- err
		}()
	}
	<-g.started
	require.Eventually(t, func() bool { return len(p.jobs) == 2 }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	require.Eventually(t, func() bool {
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.closed
	}, time.Second, time.Millisecond)

	_, err := p.Transfer(context.Background(), transfer(1))
	assert.Equal(t, KindLockTimeout, KindOf(err))
	assert.True(t, Retryable(err))

	close(g.gate)
	for i := 0; i < 3; i++ {
		assert.NoError(t, <-results)
	}
	<-closed
	assert.EqualValues(t, 3, g.calls.Load())
}

type panickingTransferer struct{ calls atomic.Int32 }

func (p *panickingTransferer) Transfer(_ context.Context, req TransferRequest) (TransferRecord, error) {
	if p.calls.Add(1) == 1 {
		panic("broken resolver")
	}
	return TransferRecord{ID: "ok", Quantity: req.Quantity}, nil
}

func TestPool_PanicIsReportedAndWorkerSurvives(t *testing.T) {
	next := &panickingTransferer{}
	p := NewPool(next, 1, 1, discardLogger())
	defer p.Close()

	_, err := p.Transfer(context.Background(), transfer(1))
	require.Error(t, err)
	assert.Equal(t, KindPersistenceFailure, KindOf(err))

	rec, err := p.Transfer(context.Background(), transfer(2))
	require.NoError(t, err)
	assert.Equal(t, "ok", rec.ID)
}
