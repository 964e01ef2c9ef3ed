package warehouses

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidWarehouse = errors.New("warehouses: code and name are required, type must be known")

type Type string

const (
	TypeCentral  Type = "central"  // main distribution warehouse
	TypeRegional Type = "regional" // branch warehouse
	TypeTransit  Type = "transit"  // cross-dock / in-transit area
)

func (t Type) Valid() bool {
	switch t {
	case TypeCentral, TypeRegional, TypeTransit:
		return true
	}
	return false
}

type Warehouse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Normalize trims fields; an empty type defaults to regional.
func (w *Warehouse) Normalize() {
	w.Code = strings.TrimSpace(w.Code)
	w.Name = strings.TrimSpace(w.Name)
	w.Type = Type(strings.ToLower(strings.TrimSpace(string(w.Type))))
	if w.Type == "" {
		w.Type = TypeRegional
	}
}

func (w Warehouse) Validate() error {
	if w.Code == "" || w.Name == "" || !w.Type.Valid() {
		return ErrInvalidWarehouse
	}
	return nil
}
