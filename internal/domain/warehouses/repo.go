package warehouses

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Create inserts w. If the code is taken, the existing warehouse is returned
// unchanged and created is false.
func (r *Repo) Create(ctx context.Context, w Warehouse) (_ *Warehouse, created bool, err error) {
	w.Normalize()
	if err := w.Validate(); err != nil {
		return nil, false, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO warehouses (code, name, type) VALUES ($1,$2,$3)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, code, name, type, active, created_at
	`, w.Code, w.Name, string(w.Type))
	var out Warehouse
	err = row.Scan(&out.ID, &out.Code, &out.Name, &out.Type, &out.Active, &out.CreatedAt)
	if err == pgx.ErrNoRows {
		existing, err := r.GetByCode(ctx, w.Code)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*Warehouse, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, name, type, active, created_at
		FROM warehouses WHERE code = $1
	`, code)
	var w Warehouse
	if err := row.Scan(&w.ID, &w.Code, &w.Name, &w.Type, &w.Active, &w.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *Repo) List(ctx context.Context, onlyActive bool) ([]Warehouse, error) {
	q := `
		SELECT id, code, name, type, active, created_at
		FROM warehouses
	`
	if onlyActive {
		q += " WHERE active = TRUE"
	}
	q += " ORDER BY code"

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Type, &w.Active, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Update changes name, type and active flag of the warehouse with w.Code.
// It returns nil when there is no such warehouse.
func (r *Repo) Update(ctx context.Context, w Warehouse) (*Warehouse, error) {
	w.Normalize()
	if err := w.Validate(); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE warehouses SET name=$2, type=$3, active=$4 WHERE code=$1
		RETURNING id, code, name, type, active, created_at
	`, w.Code, w.Name, string(w.Type), w.Active)
	var out Warehouse
	if err := row.Scan(&out.ID, &out.Code, &out.Name, &out.Type, &out.Active, &out.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// Delete removes the registry entry only. Stock records keep the code and
// fall back to it as their display name.
func (r *Repo) Delete(ctx context.Context, code string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE code = $1`, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) LocationName(ctx context.Context, code string) (string, bool, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM warehouses WHERE code = $1`, code).Scan(&name)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}
