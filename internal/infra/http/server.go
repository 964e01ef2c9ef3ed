package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/catalog"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/orders"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/suppliers"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/warehouses"
	"github.com/jwZhang-1102/goodsManagement/internal/infra/metrics"
)

/* Dependencies */

type Stock interface {
	Get(ctx context.Context, itemCode, locationCode string) (*inventory.StockRecord, error)
	Search(ctx context.Context, keyword string) ([]inventory.StockRecord, error)
	Adjust(ctx context.Context, itemCode, locationCode string, delta int64) (int64, error)
	SetThreshold(ctx context.Context, itemCode, locationCode string, threshold int64) error
}

type TransferLog interface {
	Recent(ctx context.Context, limit int) ([]inventory.TransferRecord, error)
}

type Products interface {
	Upsert(ctx context.Context, p catalog.Product) (*catalog.Product, bool, error)
	GetByCode(ctx context.Context, code string) (*catalog.Product, error)
	List(ctx context.Context, keyword string) ([]catalog.Product, error)
	DeleteByCode(ctx context.Context, code string) (bool, error)
}

type Categories interface {
	CreateCategory(ctx context.Context, name string) (*catalog.Category, bool, error)
	ListCategories(ctx context.Context, onlyActive bool) ([]catalog.Category, error)
	SetCategoryActive(ctx context.Context, id int64, active bool) (*catalog.Category, error)
}

type Warehouses interface {
	Create(ctx context.Context, w warehouses.Warehouse) (*warehouses.Warehouse, bool, error)
	GetByCode(ctx context.Context, code string) (*warehouses.Warehouse, error)
	List(ctx context.Context, onlyActive bool) ([]warehouses.Warehouse, error)
	Update(ctx context.Context, w warehouses.Warehouse) (*warehouses.Warehouse, error)
	Delete(ctx context.Context, code string) (bool, error)
}

type Suppliers interface {
	Create(ctx context.Context, s suppliers.Supplier) (*suppliers.Supplier, bool, error)
	GetByID(ctx context.Context, id int64) (*suppliers.Supplier, error)
	List(ctx context.Context) ([]suppliers.Supplier, error)
	Update(ctx context.Context, id int64, u suppliers.Update) (*suppliers.Supplier, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type Orders interface {
	List(ctx context.Context, status string) ([]orders.PurchaseOrder, error)
	GetByID(ctx context.Context, id int64) (*orders.PurchaseOrder, error)
	Items(ctx context.Context, orderID int64) ([]orders.Item, error)
	Create(ctx context.Context, in orders.NewOrder) (*orders.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id int64, c orders.StatusChange) (*orders.PurchaseOrder, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// NameCache drops cached display names after registry changes.
type NameCache interface {
	ForgetItem(ctx context.Context, code string)
	ForgetLocation(ctx context.Context, code string)
}

// Deps wires the API to the domain. Nil registries leave their routes unmounted.
type Deps struct {
	Log        *slog.Logger
	Transfers  inventory.Transferer
	Stock      Stock
	History    TransferLog
	Products   Products
	Categories Categories
	Warehouses Warehouses
	Suppliers  Suppliers
	Orders     Orders
	Names      NameCache
	Metrics    *metrics.HTTP
	// Gatherer backs /metrics; nil hides the endpoint.
	Gatherer prometheus.Gatherer
}

type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	srv *http.Server
	d   Deps
}

func New(opts Options, d Deps) *Server {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	s := &Server{d: d}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	if d.Stock != nil {
		s.inventoryRoutes(mux)
	}
	if d.Products != nil {
		s.productRoutes(mux)
	}
	if d.Categories != nil {
		s.categoryRoutes(mux)
	}
	if d.Warehouses != nil {
		s.warehouseRoutes(mux)
	}
	if d.Suppliers != nil {
		s.supplierRoutes(mux)
	}
	if d.Orders != nil {
		s.orderRoutes(mux)
	}

	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.observe(mux),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

/* Middleware */

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe logs every request and records it in the HTTP metrics by route
// pattern, so path values do not blow up label cardinality.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		took := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if s.d.Metrics != nil {
			s.d.Metrics.Observe(r.Method, route, rec.status, took)
		}
		s.d.Log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", took,
		)
	})
}
