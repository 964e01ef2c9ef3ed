package suppliers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const columns = `id, name, contact_person, contact_phone, credit_rating, cooperation_status,
	latest_evaluation, last_sale_date, last_sale_sum, created_at`

func scan(row pgx.Row) (*Supplier, error) {
	var s Supplier
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.ContactPerson,
		&s.ContactPhone,
		&s.CreditRating,
		&s.CooperationStatus,
		&s.LatestEvaluation,
		&s.LastSaleDate,
		&s.LastSaleSum,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts s, or returns the supplier already registered under the
// same name with created = false.
func (r *Repo) Create(ctx context.Context, s Supplier) (_ *Supplier, created bool, err error) {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, false, err
	}
	out, err := scan(r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact_person, contact_phone, credit_rating, cooperation_status, latest_evaluation)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (name) DO NOTHING
		RETURNING `+columns,
		s.Name, s.ContactPerson, s.ContactPhone, s.CreditRating, string(s.CooperationStatus), s.LatestEvaluation))
	if err == pgx.ErrNoRows {
		existing, err := r.GetByName(ctx, s.Name)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Supplier, error) {
	s, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM suppliers WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *Repo) GetByName(ctx context.Context, name string) (*Supplier, error) {
	s, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM suppliers WHERE name = $1`, name))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// List returns suppliers, most recently registered first.
func (r *Repo) List(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM suppliers ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of u. It returns nil when there is no
// supplier with the id.
func (r *Repo) Update(ctx context.Context, id int64, u Update) (*Supplier, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	var status *string
	if u.CooperationStatus != nil {
		v := string(*u.CooperationStatus)
		status = &v
	}
	s, err := scan(r.pool.QueryRow(ctx, `
		UPDATE suppliers
		SET contact_person     = COALESCE($2, contact_person),
		    contact_phone      = COALESCE($3, contact_phone),
		    credit_rating      = COALESCE($4, credit_rating),
		    cooperation_status = COALESCE($5, cooperation_status),
		    latest_evaluation  = COALESCE($6, latest_evaluation)
		WHERE id = $1
		RETURNING `+columns,
		id, u.ContactPerson, u.ContactPhone, u.CreditRating, status, u.LatestEvaluation))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrInUse
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
