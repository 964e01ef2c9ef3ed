package inventory

import "context"

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// History is the append-only log of completed transfers.
type History struct {
	store        Store
	defaultLimit int
}

func NewHistory(store Store, defaultLimit int) *History {
	if defaultLimit <= 0 || defaultLimit > MaxHistoryLimit {
		defaultLimit = DefaultHistoryLimit
	}
	return &History{store: store, defaultLimit: defaultLimit}
}

// Append writes rec through tx, so it becomes durable when tx commits.
func (h *History) Append(ctx context.Context, tx Tx, rec TransferRecord) error {
	if rec.ID == "" || rec.Quantity <= 0 {
		return newError(KindInvalidRequest, "transfer record needs an id and a positive quantity")
	}
	return tx.AppendTransfer(ctx, rec)
}

// Recent returns up to limit transfers, most recent first.
func (h *History) Recent(ctx context.Context, limit int) ([]TransferRecord, error) {
	if limit <= 0 {
		limit = h.defaultLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	out, err := h.store.RecentTransfers(ctx, limit)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}
