package inventory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type recordingObserver struct {
	mu   sync.Mutex
	outs []Outcome
}

func (o *recordingObserver) TransferFinished(_ context.Context, out Outcome) {
	o.mu.Lock()
	o.outs = append(o.outs, out)
	o.mu.Unlock()
}

func (o *recordingObserver) all() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.outs...)
}

type fixture struct {
	store    *MemStore
	ledger   *Ledger
	history  *History
	coord    *Coordinator
	observed *recordingObserver
}

// newFixture builds a coordinator over a MemStore holding SKU-1 at WH-A.
func newFixture(t *testing.T, sourceQty int64) *fixture {
	t.Helper()
	store := NewMemStore()
	store.SetItemName("SKU-1", "Steel bolt M8")
	store.SetLocationName("WH-A", "Central warehouse")
	store.SetLocationName("WH-B", "North depot")
	store.Seed(StockRecord{ItemCode: "SKU-1", LocationCode: "WH-A", Quantity: sourceQty, SafetyThreshold: 5})
	return newFixtureWith(store, store)
}

func newFixtureWith(mem *MemStore, store Store) *fixture {
	obs := &recordingObserver{}
	ledger := NewLedger(store, time.Second)
	history := NewHistory(store, 0)
	return &fixture{
		store:    mem,
		ledger:   ledger,
		history:  history,
		coord:    NewCoordinator(ledger, history, mem, mem, discardLogger(), obs),
		observed: obs,
	}
}

func (f *fixture) quantity(t *testing.T, item, loc string) int64 {
	t.Helper()
	rec, err := f.store.GetStock(context.Background(), StockKey{ItemCode: item, LocationCode: loc})
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if rec == nil {
		return -1
	}
	return rec.Quantity
}

func (f *fixture) total(t *testing.T, item string) int64 {
	t.Helper()
	recs, err := f.store.SearchStock(context.Background(), "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var sum int64
	for _, r := range recs {
		if r.ItemCode == item {
			sum += r.Quantity
		}
	}
	return sum
}

func (f *fixture) transferCount(t *testing.T) int {
	t.Helper()
	recs, err := f.store.RecentTransfers(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	return len(recs)
}

var errInjected = errors.New("injected fault")

// faultyStore fails the chosen Tx step after the earlier steps have been
// staged, to check that nothing of the transaction survives.
type faultyStore struct {
	Store
	failCreate bool
	failUpdate StockKey
	failAppend bool
}

func (s *faultyStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, s: s})
	})
}

type faultyTx struct {
	Tx
	s *faultyStore
}

func (t *faultyTx) UpdateQuantity(ctx context.Context, key StockKey, qty int64) error {
	if key == t.s.failUpdate {
		return errInjected
	}
	return t.Tx.UpdateQuantity(ctx, key, qty)
}

func (t *faultyTx) CreateStock(ctx context.Context, rec StockRecord) (StockRecord, error) {
	if t.s.failCreate {
		return StockRecord{}, errInjected
	}
	return t.Tx.CreateStock(ctx, rec)
}

func (t *faultyTx) AppendTransfer(ctx context.Context, rec TransferRecord) error {
	if t.s.failAppend {
		return errInjected
	}
	return t.Tx.AppendTransfer(ctx, rec)
}
