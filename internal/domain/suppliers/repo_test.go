package suppliers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwZhang-1102/goodsManagement/internal/infra/db/dbtest"
)

func TestRepo_CreateUpdateDelete(t *testing.T) {
	pool := dbtest.Pool(t)
	dbtest.Exec(t, pool, `DELETE FROM suppliers WHERE name LIKE 'T-SUP-%'`)
	r := NewRepo(pool)
	ctx := context.Background()

	s, created, err := r.Create(ctx, Supplier{Name: "T-SUP-1", ContactPerson: "Ms Chen", CreditRating: "A"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, StatusActive, s.CooperationStatus)
	assert.Nil(t, s.LastSaleDate)

	_, created, err = r.Create(ctx, Supplier{Name: "T-SUP-1"})
	require.NoError(t, err)
	assert.False(t, created)

	eval := "Late twice this quarter"
	status := StatusPaused
	upd, err := r.Update(ctx, s.ID, Update{LatestEvaluation: &eval, CooperationStatus: &status})
	require.NoError(t, err)
	require.NotNil(t, upd)
	assert.Equal(t, eval, upd.LatestEvaluation)
	assert.Equal(t, StatusPaused, upd.CooperationStatus)
	assert.Equal(t, "Ms Chen", upd.ContactPerson)
	assert.Equal(t, "A", upd.CreditRating)

	list, err := r.List(ctx)
	require.NoError(t, err)
	var found bool
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt), "newest first")
	}
	for _, l := range list {
		found = found || l.ID == s.ID
	}
	assert.True(t, found)

	missing, err := r.Update(ctx, -1, Update{LatestEvaluation: &eval})
	require.NoError(t, err)
	assert.Nil(t, missing)

	deleted, err := r.Delete(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestRepo_DeleteWithOrders(t *testing.T) {
	pool := dbtest.Pool(t)
	dbtest.Exec(t, pool, `DELETE FROM purchase_orders WHERE order_code = 'T-PO-INUSE'`)
	dbtest.Exec(t, pool, `DELETE FROM suppliers WHERE name = 'T-SUP-INUSE'`)
	r := NewRepo(pool)
	ctx := context.Background()

	s, _, err := r.Create(ctx, Supplier{Name: "T-SUP-INUSE"})
	require.NoError(t, err)
	dbtest.Exec(t, pool, `INSERT INTO purchase_orders (order_code, supplier_id, status) VALUES ('T-PO-INUSE', $1, 'pending')`, s.ID)

	deleted, err := r.Delete(ctx, s.ID)
	assert.ErrorIs(t, err, ErrInUse)
	assert.False(t, deleted)

	still, err := r.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}
