package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/catalog"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/orders"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/suppliers"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/warehouses"
)

// kindConflict reports a registry entry that cannot change while others
// still reference it.
const kindConflict inventory.Kind = "Conflict"

type errorBody struct {
	Error   inventory.Kind `json:"error"`
	Message string         `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(kind inventory.Kind) int {
	switch kind {
	case inventory.KindInvalidRequest:
		return http.StatusBadRequest
	case inventory.KindRecordNotFound:
		return http.StatusNotFound
	case inventory.KindInsufficientStock:
		return http.StatusConflict
	case inventory.KindLockTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// invalid maps registry validation errors onto InvalidRequest.
func invalid(err error) bool {
	for _, target := range []error{
		catalog.ErrInvalidProduct,
		catalog.ErrInvalidCategory,
		warehouses.ErrInvalidWarehouse,
		suppliers.ErrInvalidSupplier,
		orders.ErrInvalidOrder,
		orders.ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: inventory.KindOf(err), Message: err.Error()}
	var e *inventory.Error
	code := 0
	switch {
	case invalid(err):
		body.Error = inventory.KindInvalidRequest
	case errors.Is(err, orders.ErrUnknownSupplier):
		body.Error = inventory.KindRecordNotFound
	case errors.Is(err, suppliers.ErrInUse):
		body.Error, code = kindConflict, http.StatusConflict
	case errors.As(err, &e):
		body.Message = e.Message
	}

	if code == 0 {
		code = statusOf(body.Error)
	}
	switch code {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
	case http.StatusInternalServerError:
		s.d.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		body.Message = "internal error"
	}
	writeJSON(w, code, body)
}

func (s *Server) badRequest(w http.ResponseWriter, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: inventory.KindInvalidRequest, Message: fmt.Sprintf(format, args...)})
}

func (s *Server) notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: inventory.KindRecordNotFound, Message: what + " not found"})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// queryInt returns def when the parameter is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
