package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// lock_not_available, raised when lock_timeout expires.
const pgLockNotAvailable = "55P03"

// PGStore keeps stock and transfers in Postgres. Row locks are taken with
// SELECT ... FOR UPDATE and bounded by lock_timeout derived from the context.
type PGStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) *PGStore { return &PGStore{pool: pool} }

const stockSelect = `
	SELECT s.item_code, COALESCE(p.name, ''), s.location_code, COALESCE(w.name, ''),
	       s.quantity, s.safety_threshold, s.updated_at
	FROM stock_records s
	LEFT JOIN products p ON p.code = s.item_code
	LEFT JOIN warehouses w ON w.code = s.location_code
`

func scanStock(row pgx.Row) (StockRecord, error) {
	var s StockRecord
	err := row.Scan(&s.ItemCode, &s.ItemName, &s.LocationCode, &s.LocationName,
		&s.Quantity, &s.SafetyThreshold, &s.UpdatedAt)
	return s, err
}

func (r *PGStore) GetStock(ctx context.Context, key StockKey) (*StockRecord, error) {
	s, err := scanStock(r.pool.QueryRow(ctx, stockSelect+`
		WHERE s.item_code = $1 AND s.location_code = $2
	`, key.ItemCode, key.LocationCode))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock %s: %w", key, err)
	}
	return &s, nil
}

func (r *PGStore) SearchStock(ctx context.Context, keyword string) ([]StockRecord, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	rows, err := r.pool.Query(ctx, stockSelect+`
		WHERE $1 = ''
		   OR s.item_code ILIKE $2 OR s.location_code ILIKE $2
		   OR p.name ILIKE $2 OR w.name ILIKE $2
		ORDER BY s.item_code, s.location_code
	`, keyword, pattern)
	if err != nil {
		return nil, fmt.Errorf("search stock: %w", err)
	}
	defer rows.Close()
	var out []StockRecord
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGStore) RecentTransfers(ctx context.Context, limit int) ([]TransferRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_code, item_name, source_location, source_location_name,
		       dest_location, dest_location_name, quantity, initiator, created_at
		FROM transfers
		ORDER BY created_at DESC, seq DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transfers: %w", err)
	}
	defer rows.Close()
	var out []TransferRecord
	for rows.Next() {
		var t TransferRecord
		if err := rows.Scan(&t.ID, &t.ItemCode, &t.ItemName, &t.SourceLocation, &t.SourceLocationName,
			&t.DestLocation, &t.DestLocationName, &t.Quantity, &t.Initiator, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockStock(ctx context.Context, keys []StockKey) (map[StockKey]StockRecord, error) {
	if deadline, ok := ctx.Deadline(); ok {
		ms := max(time.Until(deadline).Milliseconds(), 1)
		if _, err := t.tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", ms)); err != nil {
			return nil, fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	out := make(map[StockKey]StockRecord, len(keys))
	for _, key := range keys {
		var s StockRecord
		err := t.tx.QueryRow(ctx, `
			SELECT item_code, location_code, quantity, safety_threshold, updated_at
			FROM stock_records
			WHERE item_code = $1 AND location_code = $2
			FOR UPDATE
		`, key.ItemCode, key.LocationCode).Scan(&s.ItemCode, &s.LocationCode, &s.Quantity, &s.SafetyThreshold, &s.UpdatedAt)
		switch {
		case err == pgx.ErrNoRows:
			continue
		case isLockNotAvailable(err):
			return nil, fmt.Errorf("lock %s: %w", key, ErrLockTimeout)
		case err != nil:
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		out[key] = s
	}
	return out, nil
}

func (t *pgTx) UpdateQuantity(ctx context.Context, key StockKey, quantity int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE stock_records SET quantity = $3, updated_at = now()
		WHERE item_code = $1 AND location_code = $2
	`, key.ItemCode, key.LocationCode, quantity)
	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update %s: no such stock record", key)
	}
	return nil
}

// CreateStock serialises with a concurrent creator on the primary key; the
// loser adds its quantity to the winner's row.
func (t *pgTx) CreateStock(ctx context.Context, rec StockRecord) (StockRecord, error) {
	var s StockRecord
	err := t.tx.QueryRow(ctx, `
		INSERT INTO stock_records (item_code, location_code, quantity, safety_threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_code, location_code)
		DO UPDATE SET quantity = stock_records.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING item_code, location_code, quantity, safety_threshold, updated_at
	`, rec.ItemCode, rec.LocationCode, rec.Quantity, rec.SafetyThreshold).
		Scan(&s.ItemCode, &s.LocationCode, &s.Quantity, &s.SafetyThreshold, &s.UpdatedAt)
	if err != nil {
		if isLockNotAvailable(err) {
			return StockRecord{}, fmt.Errorf("create %s: %w", rec.Key(), ErrLockTimeout)
		}
		return StockRecord{}, fmt.Errorf("create %s: %w", rec.Key(), err)
	}
	return s, nil
}

func (t *pgTx) SetThreshold(ctx context.Context, key StockKey, threshold int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE stock_records SET safety_threshold = $3, updated_at = now()
		WHERE item_code = $1 AND location_code = $2
	`, key.ItemCode, key.LocationCode, threshold)
	if err != nil {
		return fmt.Errorf("set threshold %s: %w", key, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("set threshold %s: no such stock record", key)
	}
	return nil
}

func (t *pgTx) AppendTransfer(ctx context.Context, rec TransferRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO transfers (id, item_code, item_name, source_location, source_location_name,
		                       dest_location, dest_location_name, quantity, initiator, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.ID, rec.ItemCode, rec.ItemName, rec.SourceLocation, rec.SourceLocationName,
		rec.DestLocation, rec.DestLocationName, rec.Quantity, rec.Initiator, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transfer %s: %w", rec.ID, err)
	}
	return nil
}

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var (
	_ Store = (*PGStore)(nil)
	_ Store = (*MemStore)(nil)
)
