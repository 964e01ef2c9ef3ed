package inventory

import (
	"context"
	"sort"
)

// Store is the persistence collaborator behind the ledger and the history.
// Reads outside a transaction are not locked.
type Store interface {
	GetStock(ctx context.Context, key StockKey) (*StockRecord, error)
	// SearchStock matches keyword case-insensitively against item and
	// location codes and their display names. Empty keyword returns all rows.
	SearchStock(ctx context.Context, keyword string) ([]StockRecord, error)
	RecentTransfers(ctx context.Context, limit int) ([]TransferRecord, error)

	// InTx runs fn in one transaction. A nil return commits, anything else
	// rolls back every write made through tx. Locks are released either way.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write side of Store, valid only inside InTx.
type Tx interface {
	// LockStock takes exclusive locks on keys in the given order and returns
	// the records that exist. Keys are expected to be sorted.
	LockStock(ctx context.Context, keys []StockKey) (map[StockKey]StockRecord, error)
	UpdateQuantity(ctx context.Context, key StockKey, quantity int64) error
	// CreateStock inserts rec. If a concurrent writer created the same key
	// first, rec.Quantity is added to it instead. The stored row is returned.
	CreateStock(ctx context.Context, rec StockRecord) (StockRecord, error)
	SetThreshold(ctx context.Context, key StockKey, threshold int64) error
	AppendTransfer(ctx context.Context, rec TransferRecord) error
}

// ItemResolver looks up catalog display names.
type ItemResolver interface {
	ItemName(ctx context.Context, itemCode string) (string, bool, error)
}

// LocationResolver looks up warehouse display names.
type LocationResolver interface {
	LocationName(ctx context.Context, locationCode string) (string, bool, error)
}

// orderKeys returns the distinct keys sorted by StockKey.Less.
func orderKeys(keys []StockKey) []StockKey {
	out := make([]StockKey, 0, len(keys))
	seen := make(map[StockKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
