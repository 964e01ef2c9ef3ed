package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-process Store. Each stock key has its own lock, so
// transactions over disjoint keys never wait on each other. Writes are staged
// in the transaction and become visible together on commit.
//
// It also resolves item and location names, which makes it a complete
// backend for tests and for running without a database.
//
// Key locks are created on first use and never removed, so memory grows with
// the number of distinct keys ever locked, including keys of rejected
// destinations that never got a record. Repeated transfers over the same
// keys reuse their locks.
type MemStore struct {
	mu        sync.RWMutex
	stock     map[StockKey]StockRecord
	transfers []TransferRecord
	items     map[string]string
	locations map[string]string
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[StockKey]chan struct{}
}

func NewMemStore() *MemStore {
	return &MemStore{
		stock:     make(map[StockKey]StockRecord),
		items:     make(map[string]string),
		locations: make(map[string]string),
		locks:     make(map[StockKey]chan struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Seed stores recs as they are, replacing records with the same key.
func (s *MemStore) Seed(recs ...StockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = s.now()
		}
		s.stock[r.Key()] = r
	}
}

func (s *MemStore) SetItemName(code, name string) {
	s.mu.Lock()
	s.items[code] = name
	s.mu.Unlock()
}

func (s *MemStore) SetLocationName(code, name string) {
	s.mu.Lock()
	s.locations[code] = name
	s.mu.Unlock()
}

func (s *MemStore) ItemName(_ context.Context, code string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.items[code]
	return name, ok, nil
}

func (s *MemStore) LocationName(_ context.Context, code string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.locations[code]
	return name, ok, nil
}

func (s *MemStore) GetStock(_ context.Context, key StockKey) (*StockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.stock[key]
	if !ok {
		return nil, nil
	}
	rec = s.withNames(rec)
	return &rec, nil
}

func (s *MemStore) SearchStock(_ context.Context, keyword string) ([]StockRecord, error) {
	kw := strings.ToLower(keyword)

	s.mu.RLock()
	out := make([]StockRecord, 0, len(s.stock))
	for _, rec := range s.stock {
		rec = s.withNames(rec)
		if kw == "" ||
			strings.Contains(strings.ToLower(rec.ItemCode), kw) ||
			strings.Contains(strings.ToLower(rec.LocationCode), kw) ||
			strings.Contains(strings.ToLower(rec.ItemName), kw) ||
			strings.Contains(strings.ToLower(rec.LocationName), kw) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out, nil
}

func (s *MemStore) RecentTransfers(_ context.Context, limit int) ([]TransferRecord, error) {
	s.mu.RLock()
	out := make([]TransferRecord, 0, len(s.transfers))
	for i := len(s.transfers) - 1; i >= 0; i-- {
		out = append(out, s.transfers[i])
	}
	s.mu.RUnlock()

	// Reverse insertion order breaks timestamp ties.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// withNames fills display names. Caller holds s.mu.
func (s *MemStore) withNames(rec StockRecord) StockRecord {
	rec.ItemName = s.items[rec.ItemCode]
	rec.LocationName = s.locations[rec.LocationCode]
	return rec
}

func (s *MemStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{
		s:      s,
		held:   make(map[StockKey]struct{}),
		writes: make(map[StockKey]StockRecord),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemStore) keyLock(key StockKey) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	return ch
}

type memTx struct {
	s         *MemStore
	held      map[StockKey]struct{}
	order     []StockKey
	writes    map[StockKey]StockRecord
	transfers []TransferRecord
}

func (t *memTx) LockStock(ctx context.Context, keys []StockKey) (map[StockKey]StockRecord, error) {
	for _, key := range keys {
		if _, ok := t.held[key]; ok {
			continue
		}
		select {
		case t.s.keyLock(key) <- struct{}{}:
			t.held[key] = struct{}{}
			t.order = append(t.order, key)
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		}
	}

	out := make(map[StockKey]StockRecord, len(keys))
	for _, key := range keys {
		if rec, ok := t.current(key); ok {
			out[key] = rec
		}
	}
	return out, nil
}

func (t *memTx) UpdateQuantity(_ context.Context, key StockKey, quantity int64) error {
	if err := t.mustHold(key); err != nil {
		return err
	}
	rec, ok := t.current(key)
	if !ok {
		return fmt.Errorf("update %s: no such stock record", key)
	}
	if quantity < 0 {
		return fmt.Errorf("update %s: negative quantity %d", key, quantity)
	}
	rec.Quantity = quantity
	rec.UpdatedAt = t.s.now()
	t.writes[key] = rec
	return nil
}

func (t *memTx) CreateStock(_ context.Context, rec StockRecord) (StockRecord, error) {
	key := rec.Key()
	if err := t.mustHold(key); err != nil {
		return StockRecord{}, err
	}
	if rec.Quantity < 0 {
		return StockRecord{}, fmt.Errorf("create %s: negative quantity %d", key, rec.Quantity)
	}
	if existing, ok := t.current(key); ok {
		existing.Quantity += rec.Quantity
		rec = existing
	}
	rec.UpdatedAt = t.s.now()
	t.writes[key] = rec
	return rec, nil
}

func (t *memTx) SetThreshold(_ context.Context, key StockKey, threshold int64) error {
	if err := t.mustHold(key); err != nil {
		return err
	}
	rec, ok := t.current(key)
	if !ok {
		return fmt.Errorf("set threshold %s: no such stock record", key)
	}
	rec.SafetyThreshold = threshold
	rec.UpdatedAt = t.s.now()
	t.writes[key] = rec
	return nil
}

func (t *memTx) AppendTransfer(_ context.Context, rec TransferRecord) error {
	t.transfers = append(t.transfers, rec)
	return nil
}

func (t *memTx) mustHold(key StockKey) error {
	if _, ok := t.held[key]; !ok {
		return fmt.Errorf("stock %s is not locked by this transaction", key)
	}
	return nil
}

// current returns the staged record for key, falling back to the committed one.
func (t *memTx) current(key StockKey) (StockRecord, bool) {
	if rec, ok := t.writes[key]; ok {
		return rec, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	rec, ok := t.s.stock[key]
	return rec, ok
}

func (t *memTx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for key, rec := range t.writes {
		rec.ItemName, rec.LocationName = "", ""
		t.s.stock[key] = rec
	}
	t.s.transfers = append(t.s.transfers, t.transfers...)
}

func (t *memTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		<-t.s.keyLock(t.order[i])
	}
	t.order = nil
	t.held = nil
}
