package orders

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidOrder    = errors.New("orders: supplier and at least one item with positive quantity are required")
	ErrInvalidStatus   = errors.New("orders: unknown status")
	// ErrUnknownSupplier is returned by Create when the supplier id is not registered.
	ErrUnknownSupplier = errors.New("orders: supplier does not exist")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// StatusAll disables the status filter in List.
const StatusAll = "all"

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

type Item struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductCode string  `json:"product_code,omitempty"`
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

func (i Item) Amount() float64 { return float64(i.Quantity) * i.UnitPrice }

type PurchaseOrder struct {
	ID              int64      `json:"id"`
	OrderCode       string     `json:"order_code"`
	SupplierID      int64      `json:"supplier_id"`
	SupplierName    string     `json:"supplier_name"`
	Status          Status     `json:"status"`
	TotalAmount     float64    `json:"total_amount"`
	Notes           string     `json:"notes"`
	ApprovedBy      string     `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectionReason string     `json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Items           []Item     `json:"items,omitempty"`
}

// NewOrder is the input of Create. OrderCode is generated when empty.
type NewOrder struct {
	OrderCode  string `json:"order_code"`
	SupplierID int64  `json:"supplier_id"`
	Notes      string `json:"notes"`
	Items      []Item `json:"items"`
}

func (o *NewOrder) Validate() error {
	o.OrderCode = strings.TrimSpace(o.OrderCode)
	if o.SupplierID <= 0 || len(o.Items) == 0 {
		return ErrInvalidOrder
	}
	for i := range o.Items {
		it := &o.Items[i]
		it.ProductName = strings.TrimSpace(it.ProductName)
		it.ProductCode = strings.TrimSpace(it.ProductCode)
		if it.ProductName == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return ErrInvalidOrder
		}
	}
	return nil
}

func (o NewOrder) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Amount()
	}
	return sum
}

// StatusChange is the input of UpdateStatus.
type StatusChange struct {
	Status          Status `json:"status"`
	ApprovedBy      string `json:"approved_by"`
	RejectionReason string `json:"rejection_reason"`
	Notes           string `json:"notes"`
}

func (c *StatusChange) Validate() error {
	c.Status = Status(strings.ToLower(strings.TrimSpace(string(c.Status))))
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
