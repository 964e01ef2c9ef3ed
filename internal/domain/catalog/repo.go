package catalog

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

/* Products */

const productColumns = `id, code, name, category, attributes, created_at, updated_at`

func scanProduct(row pgx.Row, extra ...any) (*Product, error) {
	var p Product
	dest := append([]any{&p.ID, &p.Code, &p.Name, &p.Category, &p.Attributes, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if p.Attributes == nil {
		p.Attributes = []Attribute{}
	}
	return &p, nil
}

// Upsert creates the product or overwrites the one with the same code.
// created is false when an existing product was updated.
func (r *Repo) Upsert(ctx context.Context, p Product) (_ *Product, created bool, err error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, false, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Categories are registered on first use.
	if _, err = tx.Exec(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`, p.Category); err != nil {
		return nil, false, err
	}

	out, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products (code, name, category, attributes)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
		    category = EXCLUDED.category,
		    attributes = EXCLUDED.attributes,
		    updated_at = NOW()
		RETURNING `+productColumns+`, (xmax = 0)
	`, p.Code, p.Name, p.Category, p.Attributes), &created)
	if err != nil {
		return nil, false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE code = $1
	`, code))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List returns products ordered by code. A non-empty keyword filters by
// name or code, case-insensitively.
func (r *Repo) List(ctx context.Context, keyword string) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%'
		ORDER BY code
	`, keyword)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DeleteByCode reports false when no product had the code.
func (r *Repo) DeleteByCode(ctx context.Context, code string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE code = $1`, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ItemName resolves a product code to its display name.
func (r *Repo) ItemName(ctx context.Context, code string) (string, bool, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM products WHERE code = $1`, code).Scan(&name)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

/* Categories */

const categoryColumns = `id, name, active, created_at`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory registers name. An existing category with the same name is
// returned as is with created = false.
func (r *Repo) CreateCategory(ctx context.Context, name string) (_ *Category, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, ErrInvalidCategory
	}
	c, err := scanCategory(r.pool.QueryRow(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING `+categoryColumns, name))
	if err == pgx.ErrNoRows {
		existing, err := r.GetCategoryByName(ctx, name)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (r *Repo) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = $1`, strings.TrimSpace(name)))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListCategories returns categories by name; onlyActive hides retired ones.
func (r *Repo) ListCategories(ctx context.Context, onlyActive bool) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE NOT $1 OR active
		ORDER BY name
	`, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SetCategoryActive retires or restores a category. Products keep their
// category text either way. It returns nil when there is no such id.
func (r *Repo) SetCategoryActive(ctx context.Context, id int64, active bool) (*Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `
		UPDATE categories SET active = $2 WHERE id = $1
		RETURNING `+categoryColumns, id, active))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}
