package http

import (
	"net/http"
	"strings"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/catalog"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/orders"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/suppliers"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/warehouses"
)

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

/* Products */

func (s *Server) productRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", s.listProducts)
	mux.HandleFunc("POST /api/products", s.upsertProduct)
	mux.HandleFunc("GET /api/products/{code}", s.getProduct)
	mux.HandleFunc("DELETE /api/products/{code}", s.deleteProduct)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	if code := strings.TrimSpace(r.URL.Query().Get("code")); code != "" {
		p, err := s.d.Products.GetByCode(r.Context(), code)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out := []catalog.Product{}
		if p != nil {
			out = append(out, *p)
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	list, err := s.d.Products.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) upsertProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decode(r, &p); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	out, created, err := s.d.Products.Upsert(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.forgetItem(r, out.Code)
	writeJSON(w, createdStatus(created), out)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.d.Products.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if p == nil {
		s.notFound(w, "product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ok, err := s.d.Products.DeleteByCode(r.Context(), code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.notFound(w, "product")
		return
	}
	s.forgetItem(r, code)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) forgetItem(r *http.Request, code string) {
	if s.d.Names != nil {
		s.d.Names.ForgetItem(r.Context(), code)
	}
}

/* Categories */

func (s *Server) categoryRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/categories", s.listCategories)
	mux.HandleFunc("POST /api/categories", s.createCategory)
	mux.HandleFunc("PUT /api/categories/{id}/active", s.setCategoryActive)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Categories.ListCategories(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []catalog.Category{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	out, created, err := s.d.Categories.CreateCategory(r.Context(), body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, createdStatus(created), out)
}

func (s *Server) setCategoryActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid category id")
		return
	}
	var body struct {
		Active *bool `json:"active"`
	}
	if err := decode(r, &body); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	if body.Active == nil {
		s.badRequest(w, "active is required")
		return
	}
	out, err := s.d.Categories.SetCategoryActive(r.Context(), id, *body.Active)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if out == nil {
		s.notFound(w, "category")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

/* Warehouses */

func (s *Server) warehouseRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/warehouses", s.listWarehouses)
	mux.HandleFunc("POST /api/warehouses", s.createWarehouse)
	mux.HandleFunc("GET /api/warehouses/{code}", s.getWarehouse)
	mux.HandleFunc("PUT /api/warehouses/{code}", s.updateWarehouse)
	mux.HandleFunc("DELETE /api/warehouses/{code}", s.deleteWarehouse)
}

func (s *Server) listWarehouses(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Warehouses.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []warehouses.Warehouse{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createWarehouse(w http.ResponseWriter, r *http.Request) {
	wh := warehouses.Warehouse{Active: true}
	if err := decode(r, &wh); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	out, created, err := s.d.Warehouses.Create(r.Context(), wh)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, createdStatus(created), out)
}

func (s *Server) getWarehouse(w http.ResponseWriter, r *http.Request) {
	wh, err := s.d.Warehouses.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wh == nil {
		s.notFound(w, "warehouse")
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

func (s *Server) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	wh := warehouses.Warehouse{Active: true}
	if err := decode(r, &wh); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	wh.Code = r.PathValue("code")
	out, err := s.d.Warehouses.Update(r.Context(), wh)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if out == nil {
		s.notFound(w, "warehouse")
		return
	}
	s.forgetLocation(r, out.Code)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ok, err := s.d.Warehouses.Delete(r.Context(), code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.notFound(w, "warehouse")
		return
	}
	s.forgetLocation(r, code)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) forgetLocation(r *http.Request, code string) {
	if s.d.Names != nil {
		s.d.Names.ForgetLocation(r.Context(), code)
	}
}

/* Suppliers */

func (s *Server) supplierRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/suppliers", s.listSuppliers)
	mux.HandleFunc("POST /api/suppliers", s.createSupplier)
	mux.HandleFunc("GET /api/suppliers/{id}", s.getSupplier)
	mux.HandleFunc("PUT /api/suppliers/{id}", s.updateSupplier)
	mux.HandleFunc("DELETE /api/suppliers/{id}", s.deleteSupplier)
}

func (s *Server) listSuppliers(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Suppliers.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []suppliers.Supplier{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in suppliers.Supplier
	if err := decode(r, &in); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	out, created, err := s.d.Suppliers.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, createdStatus(created), out)
}

func (s *Server) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid supplier id")
		return
	}
	out, err := s.d.Suppliers.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if out == nil {
		s.notFound(w, "supplier")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid supplier id")
		return
	}
	var u suppliers.Update
	if err := decode(r, &u); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	out, err := s.d.Suppliers.Update(r.Context(), id, u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if out == nil {
		s.notFound(w, "supplier")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid supplier id")
		return
	}
	deleted, err := s.d.Suppliers.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !deleted {
		s.notFound(w, "supplier")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* Orders */

func (s *Server) orderRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/orders", s.listOrders)
	mux.HandleFunc("POST /api/orders", s.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", s.getOrder)
	mux.HandleFunc("GET /api/orders/{id}/items", s.orderItems)
	mux.HandleFunc("PUT /api/orders/{id}", s.updateOrderStatus)
	mux.HandleFunc("DELETE /api/orders/{id}", s.deleteOrder)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Orders.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []orders.PurchaseOrder{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.NewOrder
	if err := decode(r, &in); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	out, err := s.d.Orders.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid order id")
		return
	}
	out, err := s.d.Orders.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if out == nil {
		s.notFound(w, "order")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) orderItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid order id")
		return
	}
	items, err := s.d.Orders.Items(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid order id")
		return
	}
	var c orders.StatusChange
	if err := decode(r, &c); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	out, err := s.d.Orders.UpdateStatus(r.Context(), id, c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if out == nil {
		s.notFound(w, "order")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid order id")
		return
	}
	deleted, err := s.d.Orders.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !deleted {
		s.notFound(w, "order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
