package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
	"github.com/jwZhang-1102/goodsManagement/internal/report"
)

func (s *Server) inventoryRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/inventory", s.searchStock)
	mux.HandleFunc("GET /api/inventory/export.xlsx", s.exportStock)
	mux.HandleFunc("GET /api/inventory/{item}/{location}", s.getStock)
	mux.HandleFunc("PUT /api/inventory/{item}/{location}/threshold", s.setThreshold)
	mux.HandleFunc("POST /api/inventory/adjust", s.adjustStock)
	if s.d.Transfers != nil {
		mux.HandleFunc("POST /api/inventory/transfer", s.transfer)
	}
	if s.d.History != nil {
		mux.HandleFunc("GET /api/inventory/transfers", s.recentTransfers)
		mux.HandleFunc("GET /api/inventory/transfers/export.xlsx", s.exportTransfers)
	}
}

func (s *Server) searchStock(w http.ResponseWriter, r *http.Request) {
	recs, err := s.d.Stock.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []inventory.StockRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) getStock(w http.ResponseWriter, r *http.Request) {
	rec, err := s.d.Stock.Get(r.Context(), r.PathValue("item"), r.PathValue("location"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rec == nil {
		s.notFound(w, "stock record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req inventory.TransferRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	rec, err := s.d.Transfers.Transfer(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type adjustRequest struct {
	ItemCode     string `json:"item_code"`
	LocationCode string `json:"location_code"`
	Delta        int64  `json:"delta"`
}

type adjustResponse struct {
	ItemCode     string `json:"item_code"`
	LocationCode string `json:"location_code"`
	Quantity     int64  `json:"current_quantity"`
}

func (s *Server) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	qty, err := s.d.Stock.Adjust(r.Context(), req.ItemCode, req.LocationCode, req.Delta)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResponse{ItemCode: req.ItemCode, LocationCode: req.LocationCode, Quantity: qty})
}

func (s *Server) setThreshold(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SafetyThreshold *int64 `json:"safety_threshold"`
	}
	if err := decode(r, &body); err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	if body.SafetyThreshold == nil {
		s.badRequest(w, "safety_threshold is required")
		return
	}
	item, loc := r.PathValue("item"), r.PathValue("location")
	if err := s.d.Stock.SetThreshold(r.Context(), item, loc, *body.SafetyThreshold); err != nil {
		s.fail(w, r, err)
		return
	}
	s.getStock(w, r)
}

func (s *Server) recentTransfers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	recs, err := s.d.History.Recent(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []inventory.TransferRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

/* Exports */

func (s *Server) exportStock(w http.ResponseWriter, r *http.Request) {
	recs, err := s.d.Stock.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	buf := &bytes.Buffer{}
	if err := report.StockWorkbook(buf, recs); err != nil {
		s.fail(w, r, err)
		return
	}
	sendFile(w, "stock", buf)
}

func (s *Server) exportTransfers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", inventory.MaxHistoryLimit)
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	recs, err := s.d.History.Recent(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	buf := &bytes.Buffer{}
	if err := report.TransferWorkbook(buf, recs); err != nil {
		s.fail(w, r, err)
		return
	}
	sendFile(w, "transfers", buf)
}

func sendFile(w http.ResponseWriter, name string, buf *bytes.Buffer) {
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().UTC().Format("20060102_1504"))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
