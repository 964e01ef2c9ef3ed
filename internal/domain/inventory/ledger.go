package inventory

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

// Ledger is the authoritative per-(item, location) quantity store. Every
// stock mutation goes through it, and it is the only code that takes locks.
type Ledger struct {
	store       Store
	lockTimeout time.Duration
}

// NewLedger builds a ledger over store. lockTimeout bounds the wait for row
// locks; zero leaves only the caller's context deadline in effect.
func NewLedger(store Store, lockTimeout time.Duration) *Ledger {
	return &Ledger{store: store, lockTimeout: lockTimeout}
}

// Get returns the record for (itemCode, locationCode), or nil if there is none.
func (l *Ledger) Get(ctx context.Context, itemCode, locationCode string) (*StockRecord, error) {
	key := StockKey{ItemCode: strings.TrimSpace(itemCode), LocationCode: strings.TrimSpace(locationCode)}
	if key.ItemCode == "" || key.LocationCode == "" {
		return nil, newError(KindInvalidRequest, "item code and location code are required")
	}
	rec, err := l.store.GetStock(ctx, key)
	if err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

func (l *Ledger) Search(ctx context.Context, keyword string) ([]StockRecord, error) {
	out, err := l.store.SearchStock(ctx, strings.TrimSpace(keyword))
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Adjust changes the quantity at one location by delta in its own
// transaction and returns the new quantity.
//
// A missing record is created for a positive delta and reported as
// RecordNotFound for a negative one. The quantity never goes below zero.
func (l *Ledger) Adjust(ctx context.Context, itemCode, locationCode string, delta int64) (int64, error) {
	key := StockKey{ItemCode: strings.TrimSpace(itemCode), LocationCode: strings.TrimSpace(locationCode)}
	if key.ItemCode == "" || key.LocationCode == "" {
		return 0, newError(KindInvalidRequest, "item code and location code are required")
	}
	if delta == 0 {
		return 0, newError(KindInvalidRequest, "delta must not be zero")
	}

	var qty int64
	err := l.inTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := l.lock(ctx, tx, key)
		if err != nil {
			return err
		}
		rec, err := l.apply(ctx, tx, locked, key, delta)
		if err != nil {
			return err
		}
		qty = rec.Quantity
		return nil
	})
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// SetThreshold updates the informational safety threshold of an existing record.
func (l *Ledger) SetThreshold(ctx context.Context, itemCode, locationCode string, threshold int64) error {
	key := StockKey{ItemCode: strings.TrimSpace(itemCode), LocationCode: strings.TrimSpace(locationCode)}
	if key.ItemCode == "" || key.LocationCode == "" {
		return newError(KindInvalidRequest, "item code and location code are required")
	}
	if threshold < 0 {
		return newError(KindInvalidRequest, "safety threshold must not be negative")
	}
	return l.inTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := l.lock(ctx, tx, key)
		if err != nil {
			return err
		}
		if _, ok := locked[key]; !ok {
			return newError(KindRecordNotFound, "no stock record for %s", key)
		}
		return tx.SetThreshold(ctx, key, threshold)
	})
}

func (l *Ledger) inTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return classify(l.store.InTx(ctx, fn))
}

// lock acquires the keys in ascending key order so that two transactions
// over the same pair of records can never wait on each other in a cycle.
func (l *Ledger) lock(ctx context.Context, tx Tx, keys ...StockKey) (map[StockKey]StockRecord, error) {
	ordered := orderKeys(keys)

	lockCtx := ctx
	if l.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, l.lockTimeout)
		defer cancel()
	}

	locked, err := tx.LockStock(lockCtx, ordered)
	if err != nil {
		if lockCtx.Err() != nil || errors.Is(err, ErrLockTimeout) {
			return nil, &Error{Kind: KindLockTimeout, Message: "timed out waiting for stock lock", Err: err}
		}
		return nil, err
	}
	if locked == nil {
		locked = make(map[StockKey]StockRecord, len(ordered))
	}
	return locked, nil
}

// apply moves key by delta inside tx. locked must hold the state returned by
// lock and is updated in place so later steps see the new quantity.
func (l *Ledger) apply(ctx context.Context, tx Tx, locked map[StockKey]StockRecord, key StockKey, delta int64) (StockRecord, error) {
	rec, ok := locked[key]
	if !ok {
		if delta < 0 {
			return StockRecord{}, newError(KindRecordNotFound, "no stock record for %s", key)
		}
		created, err := tx.CreateStock(ctx, StockRecord{
			ItemCode:     key.ItemCode,
			LocationCode: key.LocationCode,
			Quantity:     delta,
		})
		if err != nil {
			return StockRecord{}, err
		}
		locked[key] = created
		return created, nil
	}

	if delta > 0 && rec.Quantity > math.MaxInt64-delta {
		return StockRecord{}, newError(KindInvalidRequest,
			"quantity for %s would exceed the storable maximum: current %d, adding %d", key, rec.Quantity, delta)
	}
	if rec.Quantity+delta < 0 {
		return StockRecord{}, newError(KindInsufficientStock,
			"insufficient stock for %s: available %d, requested %d", key, rec.Quantity, -delta)
	}
	rec.Quantity += delta
	if err := tx.UpdateQuantity(ctx, key, rec.Quantity); err != nil {
		return StockRecord{}, err
	}
	locked[key] = rec
	return rec, nil
}
