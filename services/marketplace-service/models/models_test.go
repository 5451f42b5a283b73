package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInventoryRecalculate(t *testing.T) {
	cases := []struct{ qty, reserved, want int }{
		{50, 0, 50},
		{50, 10, 40},
		{5, 10, 0},
		{0, 0, 0},
	}
	for _, tc := range cases {
		inv := &Inventory{Quantity: tc.qty, ReservedQuantity: tc.reserved, AvailableQuantity: -99}
		inv.Recalculate()
		assert.Equal(t, tc.want, inv.AvailableQuantity, "qty=%d reserved=%d", tc.qty, tc.reserved)
	}
}

func TestInventoryStockStatus(t *testing.T) {
	inv := func(avail int) *Inventory {
		return &Inventory{AvailableQuantity: avail, MinStockLevel: 10, MaxStockLevel: 100}
	}
	assert.Equal(t, StockOutOfStock, inv(0).StockStatus())
	assert.Equal(t, StockLow, inv(10).StockStatus())
	assert.Equal(t, StockIn, inv(11).StockStatus())
	assert.Equal(t, StockIn, inv(99).StockStatus())
	assert.Equal(t, StockOverstocked, inv(100).StockStatus())
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderPending.CanTransition(OrderConfirmed))
	assert.True(t, OrderPending.CanTransition(OrderReady))
	assert.True(t, OrderReady.CanTransition(OrderCancelled))
	assert.False(t, OrderConfirmed.CanTransition(OrderPending))
	assert.False(t, OrderCompleted.CanTransition(OrderCancelled))
	assert.False(t, OrderCancelled.CanTransition(OrderPending))
	assert.False(t, OrderPending.CanTransition(OrderStatus("shipped")))
	assert.False(t, OrderPending.CanTransition(OrderPending))
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("lost").Valid())
	assert.False(t, PaymentStatus("void").Valid())
	assert.True(t, PaymentRefunded.Valid())
}

func TestAddressMerge(t *testing.T) {
	city := "Pune"
	a := Address{Street: "MG Road", City: "Mumbai", ZipCode: "400001"}

	merged := a.Merge(&AddressInput{City: &city})

	assert.Equal(t, Address{Street: "MG Road", City: "Pune", ZipCode: "400001"}, merged)
	assert.Equal(t, a, a.Merge(nil))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("ravi@example.com"))
	assert.False(t, ValidEmail("ravi@example"))
	assert.False(t, ValidEmail("ravi example.com"))
}

func TestPageSkip(t *testing.T) {
	assert.Equal(t, int64(0), Page{Page: 1, Limit: 10}.Skip())
	assert.Equal(t, int64(20), Page{Page: 3, Limit: 10}.Skip())
	assert.Equal(t, int64(0), Page{}.Skip())
}
