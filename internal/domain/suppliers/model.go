package suppliers

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidSupplier = errors.New("suppliers: name is required, rating and status must be known")
	// ErrInUse is returned by Delete while purchase orders still reference the supplier.
	ErrInUse           = errors.New("suppliers: supplier has purchase orders")
)

type Status string

const (
	StatusActive     Status = "active"
	StatusPaused     Status = "paused"
	StatusTerminated Status = "terminated"
)

// Ratings from best to worst.
var Ratings = []string{"AAA", "AA", "A", "B", "C"}

type Supplier struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	ContactPerson     string     `json:"contact_person"`
	ContactPhone      string     `json:"contact_phone"`
	CreditRating      string     `json:"credit_rating"`
	CooperationStatus Status     `json:"cooperation_status"`
	LatestEvaluation  string     `json:"latest_evaluation"`
	LastSaleDate      *time.Time `json:"last_sale_date,omitempty"`
	LastSaleSum       float64    `json:"last_sale_sum"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (s *Supplier) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.ContactPerson = strings.TrimSpace(s.ContactPerson)
	s.ContactPhone = strings.TrimSpace(s.ContactPhone)
	s.CreditRating = strings.ToUpper(strings.TrimSpace(s.CreditRating))
	s.CooperationStatus = Status(strings.ToLower(strings.TrimSpace(string(s.CooperationStatus))))
	if s.CooperationStatus == "" {
		s.CooperationStatus = StatusActive
	}
	s.LatestEvaluation = strings.TrimSpace(s.LatestEvaluation)
}

func (s Supplier) Validate() error {
	if s.Name == "" || !validStatus(s.CooperationStatus) || !validRating(s.CreditRating) {
		return ErrInvalidSupplier
	}
	return nil
}

// Update carries the fields changed by an evaluation; nil leaves a field as is.
type Update struct {
	ContactPerson     *string `json:"contact_person"`
	ContactPhone      *string `json:"contact_phone"`
	CreditRating      *string `json:"credit_rating"`
	CooperationStatus *Status `json:"cooperation_status"`
	LatestEvaluation  *string `json:"latest_evaluation"`
}

func (u *Update) Validate() error {
	if u.CreditRating != nil {
		v := strings.ToUpper(strings.TrimSpace(*u.CreditRating))
		if !validRating(v) {
			return ErrInvalidSupplier
		}
		u.CreditRating = &v
	}
	if u.CooperationStatus != nil {
		v := Status(strings.ToLower(strings.TrimSpace(string(*u.CooperationStatus))))
		if !validStatus(v) {
			return ErrInvalidSupplier
		}
		u.CooperationStatus = &v
	}
	return nil
}

func validStatus(s Status) bool {
	switch s {
	case StatusActive, StatusPaused, StatusTerminated:
		return true
	}
	return false
}

// validRating accepts an empty rating for suppliers not yet rated.
func validRating(r string) bool {
	if r == "" {
		return true
	}
	for _, v := range Ratings {
		if v == r {
			return true
		}
	}
	return false
}
