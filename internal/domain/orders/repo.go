package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const orderSelect = `
	SELECT po.id, po.order_code, po.supplier_id, COALESCE(s.name, ''), po.status, po.total_amount,
	       po.notes, po.approved_by, po.approved_at, po.rejection_reason, po.created_at, po.updated_at
	FROM purchase_orders po
	LEFT JOIN suppliers s ON s.id = po.supplier_id
`

func scanOrder(row pgx.Row) (*PurchaseOrder, error) {
	var o PurchaseOrder
	if err := row.Scan(
		&o.ID,
		&o.OrderCode,
		&o.SupplierID,
		&o.SupplierName,
		&o.Status,
		&o.TotalAmount,
		&o.Notes,
		&o.ApprovedBy,
		&o.ApprovedAt,
		&o.RejectionReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns orders newest first. status "" or "all" returns every order.
func (r *Repo) List(ctx context.Context, status string) ([]PurchaseOrder, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == StatusAll {
		status = ""
	}
	if status != "" && !Status(status).Valid() {
		return nil, ErrInvalidStatus
	}
	rows, err := r.pool.Query(ctx, orderSelect+`
		WHERE $1 = '' OR po.status = $1
		ORDER BY po.created_at DESC, po.id DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// GetByID returns the order with its items, or nil.
func (r *Repo) GetByID(ctx context.Context, id int64) (*PurchaseOrder, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE po.id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.Items(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) Items(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_code, product_name, quantity, unit_price
		FROM purchase_order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductCode, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Create stores a pending order and its items in one transaction.
func (r *Repo) Create(ctx context.Context, in NewOrder) (*PurchaseOrder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.OrderCode == "" {
		in.OrderCode = newOrderCode(time.Now())
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err = tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (order_code, supplier_id, status, total_amount, notes)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, in.OrderCode, in.SupplierID, string(StatusPending), in.Total(), in.Notes).Scan(&id); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUnknownSupplier
		}
		return nil, err
	}

	batch := &pgx.Batch{}
	for _, it := range in.Items {
		batch.Queue(`
			INSERT INTO purchase_order_items (order_id, product_code, product_name, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5)
		`, id, it.ProductCode, it.ProductName, it.Quantity, it.UnitPrice)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdateStatus moves the order to c.Status. approved_at is stamped only on
// the transition into approved; on that transition the supplier's last sale
// is updated as well. It returns nil when the order does not exist.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, c StatusChange) (*PurchaseOrder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var prev Status
	if err = tx.QueryRow(ctx, `SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE`, id).Scan(&prev); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $2,
		    approved_by = $3,
		    rejection_reason = $4,
		    notes = $5,
		    approved_at = CASE WHEN status <> $2 AND $2 = 'approved' THEN NOW() ELSE approved_at END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, string(c.Status), c.ApprovedBy, c.RejectionReason, c.Notes); err != nil {
		return nil, err
	}

	if prev != StatusApproved && c.Status == StatusApproved {
		if _, err = tx.Exec(ctx, `
			UPDATE suppliers s
			SET last_sale_date = CURRENT_DATE, last_sale_sum = po.total_amount
			FROM purchase_orders po
			WHERE po.id = $1 AND s.id = po.supplier_id
		`, id); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// newOrderCode formats codes like PO-2405-1f3a9c.
func newOrderCode(now time.Time) string {
	return "PO-" + now.Format("0601") + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
