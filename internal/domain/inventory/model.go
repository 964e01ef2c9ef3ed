package inventory

import (
	"strings"
	"time"
)

// StockKey identifies a single stock record: one item at one location.
type StockKey struct {
	ItemCode     string
	LocationCode string
}

func (k StockKey) String() string { return k.ItemCode + "@" + k.LocationCode }

// Less orders keys by item code, then location code. Locks are always
// taken in this order.
func (k StockKey) Less(o StockKey) bool {
	if k.ItemCode != o.ItemCode {
		return k.ItemCode < o.ItemCode
	}
	return k.LocationCode < o.LocationCode
}

type StockRecord struct {
	ItemCode        string    `json:"item_code"`
	ItemName        string    `json:"item_name,omitempty"`
	LocationCode    string    `json:"location_code"`
	LocationName    string    `json:"location_name,omitempty"`
	Quantity        int64     `json:"current_quantity"`
	SafetyThreshold int64     `json:"safety_threshold"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r StockRecord) Key() StockKey {
	return StockKey{ItemCode: r.ItemCode, LocationCode: r.LocationCode}
}

// BelowThreshold reports whether the record sits under its safety threshold.
// The threshold is informational only and never blocks a transfer.
func (r StockRecord) BelowThreshold() bool {
	return r.SafetyThreshold > 0 && r.Quantity < r.SafetyThreshold
}

// TransferRecord is an immutable log entry of one completed transfer.
// Display names are snapshotted at transfer time.
type TransferRecord struct {
	ID                 string    `json:"id"`
	ItemCode           string    `json:"item_code"`
	ItemName           string    `json:"item_name"`
	SourceLocation     string    `json:"source_location"`
	SourceLocationName string    `json:"source_location_name"`
	DestLocation       string    `json:"dest_location"`
	DestLocationName   string    `json:"dest_location_name"`
	Quantity           int64     `json:"quantity"`
	Initiator          string    `json:"initiator"`
	CreatedAt          time.Time `json:"created_at"`
}

type TransferRequest struct {
	ItemCode       string `json:"item_code"`
	SourceLocation string `json:"source_location"`
	DestLocation   string `json:"dest_location"`
	Quantity       int64  `json:"quantity"`
	Initiator      string `json:"initiator"`
}

func (r TransferRequest) normalized() TransferRequest {
	r.ItemCode = strings.TrimSpace(r.ItemCode)
	r.SourceLocation = strings.TrimSpace(r.SourceLocation)
	r.DestLocation = strings.TrimSpace(r.DestLocation)
	r.Initiator = strings.TrimSpace(r.Initiator)
	return r
}

// Validate checks the request shape. It does not touch storage.
func (r TransferRequest) Validate() error {
	switch {
	case r.ItemCode == "":
		return newError(KindInvalidRequest, "item code is required")
	case r.SourceLocation == "":
		return newError(KindInvalidRequest, "source location is required")
	case r.DestLocation == "":
		return newError(KindInvalidRequest, "destination location is required")
	case r.Quantity <= 0:
		return newError(KindInvalidRequest, "quantity must be a positive integer, got %d", r.Quantity)
	case r.SourceLocation == r.DestLocation:
		return newError(KindInvalidRequest, "source and destination are the same location %q", r.SourceLocation)
	}
	return nil
}

func (r TransferRequest) sourceKey() StockKey {
	return StockKey{ItemCode: r.ItemCode, LocationCode: r.SourceLocation}
}

func (r TransferRequest) destKey() StockKey {
	return StockKey{ItemCode: r.ItemCode, LocationCode: r.DestLocation}
}

// Phase is the lifecycle position of a single transfer request.
type Phase int

const (
	PhaseReceived Phase = iota
	PhaseValidated
	PhaseLocked
	PhaseMutated
	PhaseLogged
	PhaseConfirmed
	PhaseRejected
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseReceived:
		return "received"
	case PhaseValidated:
		return "validated"
	case PhaseLocked:
		return "locked"
	case PhaseMutated:
		return "mutated"
	case PhaseLogged:
		return "logged"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseRejected:
		return "rejected"
	case PhaseAborted:
		return "aborted"
	}
	return "unknown"
}
