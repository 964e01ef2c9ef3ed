package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/catalog"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
	"github.com/jwZhang-1102/goodsManagement/internal/infra/metrics"
	"github.com/jwZhang-1102/goodsManagement/internal/report"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeProducts struct {
	mu    sync.Mutex
	items map[string]catalog.Product
}

func (f *fakeProducts) Upsert(_ context.Context, p catalog.Product) (*catalog.Product, bool, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.items[p.Code]
	f.items[p.Code] = p
	return &p, !exists, nil
}

func (f *fakeProducts) GetByCode(_ context.Context, code string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[code]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProducts) List(context.Context, string) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Product
	for _, p := range f.items {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) DeleteByCode(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[code]
	delete(f.items, code)
	return ok, nil
}

type forgetful struct {
	mu        sync.Mutex
	items     []string
	locations []string
}

func (f *forgetful) ForgetItem(_ context.Context, code string) {
	f.mu.Lock()
	f.items = append(f.items, code)
	f.mu.Unlock()
}

func (f *forgetful) ForgetLocation(_ context.Context, code string) {
	f.mu.Lock()
	f.locations = append(f.locations, code)
	f.mu.Unlock()
}

type failingTransferer struct{ err error }

func (f failingTransferer) Transfer(context.Context, inventory.TransferRequest) (inventory.TransferRecord, error) {
	return inventory.TransferRecord{}, f.err
}

type testAPI struct {
	handler http.Handler
	store   *inventory.MemStore
	names   *forgetful
	reg     *prometheus.Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := inventory.NewMemStore()
	store.SetItemName("P-1001", "Laptop X1")
	store.SetLocationName("SH-MAIN", "Shanghai main")
	store.SetLocationName("BJ-01", "Beijing branch")
	store.Seed(inventory.StockRecord{ItemCode: "P-1001", LocationCode: "SH-MAIN", Quantity: 50, SafetyThreshold: 10})

	log := discardLogger()
	ledger := inventory.NewLedger(store, time.Second)
	history := inventory.NewHistory(store, 0)
	coord := inventory.NewCoordinator(ledger, history, store, store, log)

	reg := prometheus.NewRegistry()
	names := &forgetful{}
	srv := New(Options{Addr: ":0"}, Deps{
		Log:       log,
		Transfers: coord,
		Stock:     ledger,
		History:   history,
		Products:  &fakeProducts{items: map[string]catalog.Product{}},
		Names:     names,
		Metrics:   metrics.NewHTTP(reg),
		Gatherer:  reg,
	})
	return &testAPI{handler: srv.Handler(), store: store, names: names, reg: reg}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestTransfer_CreatesDestination(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, "/api/inventory/transfer",
		`{"item_code":"P-1001","source_location":"SH-MAIN","dest_location":"BJ-01","quantity":30,"initiator":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tr inventory.TransferRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, "Laptop X1", tr.ItemName)
	assert.Equal(t, "Beijing branch", tr.DestLocationName)
	assert.EqualValues(t, 30, tr.Quantity)

	rec = a.do(t, http.MethodGet, "/api/inventory/P-1001/BJ-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sr inventory.StockRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sr))
	assert.EqualValues(t, 30, sr.Quantity)
	assert.EqualValues(t, 0, sr.SafetyThreshold)

	rec = a.do(t, http.MethodGet, "/api/inventory/transfers?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var recent []inventory.TransferRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recent))
	require.Len(t, recent, 1)
	assert.Equal(t, tr.ID, recent[0].ID)
}

func TestTransfer_ErrorMapping(t *testing.T) {
	a := newTestAPI(t)
	cases := []struct {
		name string
		body string
		code int
		kind inventory.Kind
	}{
		{"insufficient", `{"item_code":"P-1001","source_location":"SH-MAIN","dest_location":"BJ-01","quantity":51}`, http.StatusConflict, inventory.KindInsufficientStock},
		{"same location", `{"item_code":"P-1001","source_location":"SH-MAIN","dest_location":"SH-MAIN","quantity":1}`, http.StatusBadRequest, inventory.KindInvalidRequest},
		{"zero quantity", `{"item_code":"P-1001","source_location":"SH-MAIN","dest_location":"BJ-01","quantity":0}`, http.StatusBadRequest, inventory.KindInvalidRequest},
		{"unknown source", `{"item_code":"P-1001","source_location":"GZ-01","dest_location":"BJ-01","quantity":1}`, http.StatusNotFound, inventory.KindRecordNotFound},
		{"malformed", `{"item_code":`, http.StatusBadRequest, inventory.KindInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/api/inventory/transfer", tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.kind, decodeError(t, rec).Error)
		})
	}

	src, err := a.store.GetStock(context.Background(), inventory.StockKey{ItemCode: "P-1001", LocationCode: "SH-MAIN"})
	require.NoError(t, err)
	assert.EqualValues(t, 50, src.Quantity)
}

func TestTransfer_LockTimeoutIsRetryable(t *testing.T) {
	srv := New(Options{}, Deps{
		Log:       discardLogger(),
		Transfers: failingTransferer{err: inventory.ErrLockTimeout},
		Stock:     inventory.NewLedger(inventory.NewMemStore(), time.Second),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/transfer",
		strings.NewReader(`{"item_code":"P","source_location":"A","dest_location":"B","quantity":1}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, inventory.KindLockTimeout, decodeError(t, rec).Error)
}

func TestTransfer_StorageFailureHidesDetail(t *testing.T) {
	srv := New(Options{}, Deps{
		Log:       discardLogger(),
		Transfers: failingTransferer{err: io.ErrUnexpectedEOF},
		Stock:     inventory.NewLedger(inventory.NewMemStore(), time.Second),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/transfer",
		strings.NewReader(`{"item_code":"P","source_location":"A","dest_location":"B","quantity":1}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, inventory.KindPersistenceFailure, body.Error)
	assert.Equal(t, "internal error", body.Message)
}

func TestStock_SearchAdjustThreshold(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/inventory?search=shanghai", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var found []inventory.StockRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Shanghai main", found[0].LocationName)

	rec = a.do(t, http.MethodGet, "/api/inventory?search=nothing-matches", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/inventory/adjust", `{"item_code":"P-1001","location_code":"SH-MAIN","delta":-60}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/inventory/adjust", `{"item_code":"P-1001","location_code":"SH-MAIN","delta":-5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"item_code":"P-1001","location_code":"SH-MAIN","current_quantity":45}`, rec.Body.String())

	rec = a.do(t, http.MethodPut, "/api/inventory/P-1001/SH-MAIN/threshold", `{"safety_threshold":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var sr inventory.StockRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sr))
	assert.EqualValues(t, 60, sr.SafetyThreshold)

	rec = a.do(t, http.MethodPut, "/api/inventory/P-1001/GZ-01/threshold", `{"safety_threshold":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/inventory/P-1001/SH-MAIN/threshold", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/inventory/P-1001/NOWHERE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/inventory/transfers?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExports(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodPost, "/api/inventory/transfer",
		`{"item_code":"P-1001","source_location":"SH-MAIN","dest_location":"BJ-01","quantity":5}`)

	for _, tc := range []struct {
		path  string
		sheet string
		rows  int
	}{
		{"/api/inventory/export.xlsx", "Stock", 3},
		{"/api/inventory/transfers/export.xlsx", "Transfers", 2},
	} {
		path := tc.path
		rec := a.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		rows, err := f.GetRows(tc.sheet)
		require.NoError(t, err)
		assert.Len(t, rows, tc.rows, path)
		_ = f.Close()
	}
}

func TestProducts(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/products", `{"code":"P-2001","name":"Monitor","category":"Displays"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/products", `{"code":"P-2001","name":"Monitor 27","category":"Displays"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/products", `{"code":"P-2002"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, inventory.KindInvalidRequest, decodeError(t, rec).Error)

	rec = a.do(t, http.MethodGet, "/api/products?code=P-2001", "")
	var list []catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Monitor 27", list[0].Name)

	rec = a.do(t, http.MethodGet, "/api/products?code=P-404", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/api/products/P-2001", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/products/P-2001", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, "/api/products/P-2001", "").Code)

	assert.Equal(t, []string{"P-2001", "P-2001", "P-2001"}, a.names.items)
}

func TestUnmountedRegistriesAre404(t *testing.T) {
	a := newTestAPI(t)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/orders", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodGet, "/api/inventory/P-1001/SH-MAIN", "")

	rec := a.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="GET /api/inventory/{item}/{location}"`)
}
