// Package dbtest connects integration tests to a scratch Postgres database.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwZhang-1102/goodsManagement/internal/infra/db"
)

// Pool returns a migrated pool for the database in TEST_PG_DSN and skips the
// test when the variable is unset or the database is unreachable.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, dsn); err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	pool, err := db.Connect(ctx, dsn, 8)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// Exec runs cleanup statements, failing the test on error.
func Exec(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}
