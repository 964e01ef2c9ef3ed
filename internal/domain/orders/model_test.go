package orders

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrder_Validate(t *testing.T) {
	o := NewOrder{
		SupplierID: 1,
		Items: []Item{
			{ProductName: " Laptop X1 ", Quantity: 10, UnitPrice: 1200},
			{ProductName: "Mouse", Quantity: 20, UnitPrice: 150},
		},
	}
	assert.NoError(t, o.Validate())
	assert.Equal(t, "Laptop X1", o.Items[0].ProductName)
	assert.InDelta(t, 15000, o.Total(), 0.001)

	assert.ErrorIs(t, (&NewOrder{SupplierID: 1}).Validate(), ErrInvalidOrder)
	assert.ErrorIs(t, (&NewOrder{Items: o.Items}).Validate(), ErrInvalidOrder)
	assert.ErrorIs(t, (&NewOrder{SupplierID: 1, Items: []Item{{ProductName: "x", Quantity: 0}}}).Validate(), ErrInvalidOrder)
}

func TestStatusChange_Validate(t *testing.T) {
	c := StatusChange{Status: " Approved "}
	assert.NoError(t, c.Validate())
	assert.Equal(t, StatusApproved, c.Status)

	assert.ErrorIs(t, (&StatusChange{Status: "shipped"}).Validate(), ErrInvalidStatus)
}

func TestNewOrderCode(t *testing.T) {
	code := newOrderCode(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(code, "PO-2405-"), code)
	assert.Len(t, code, len("PO-2405-")+6)
}
