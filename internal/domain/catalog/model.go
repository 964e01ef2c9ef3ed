package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidProduct  = errors.New("catalog: code, name and category are required")
	ErrInvalidCategory = errors.New("catalog: category name is required")
)

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Product struct {
	ID         int64       `json:"id"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	Attributes []Attribute `json:"attributes"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Normalize trims the text fields and drops attributes without a name.
func (p *Product) Normalize() {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	attrs := p.Attributes[:0]
	for _, a := range p.Attributes {
		a.Name = strings.TrimSpace(a.Name)
		a.Value = strings.TrimSpace(a.Value)
		if a.Name != "" {
			attrs = append(attrs, a)
		}
	}
	if len(attrs) == 0 {
		attrs = []Attribute{}
	}
	p.Attributes = attrs
}

func (p Product) Validate() error {
	if p.Code == "" || p.Name == "" || p.Category == "" {
		return ErrInvalidProduct
	}
	return nil
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
