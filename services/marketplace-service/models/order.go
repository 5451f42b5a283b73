package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// orderFlow is the forward path; cancelled is reachable from any non-terminal state.
var orderFlow = []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderCompleted}

func (s OrderStatus) Valid() bool {
	return s == OrderCancelled || s.step() >= 0
}

func (s OrderStatus) step() int {
	for i, st := range orderFlow {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// HoldsStock reports whether the order's quantities are still deducted from inventory.
func (s OrderStatus) HoldsStock() bool {
	return s != OrderCancelled
}

// CanTransition reports whether next is reachable from s: any forward move
// along the flow, or cancellation from a non-terminal state.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() || s == next {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	return next.step() > s.step()
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentRefunded PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentPartial, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentOnline PaymentMethod = "online"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentOnline:
		return true
	}
	return false
}

// OrderItem is an immutable snapshot of a product line at order time.
type OrderItem struct {
	Product     primitive.ObjectID `bson:"product" json:"product"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Unit        Unit               `bson:"unit" json:"unit"`
	Price       float64            `bson:"price" json:"price"`
	Subtotal    float64            `bson:"subtotal" json:"subtotal"`
}

type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber   string             `bson:"orderNumber" json:"orderNumber"`
	Customer      primitive.ObjectID `bson:"customer" json:"customer"`
	Items         []OrderItem        `bson:"items" json:"items"`
	Subtotal      float64            `bson:"subtotal" json:"subtotal"`
	Discount      float64            `bson:"discount" json:"discount"`
	Tax           float64            `bson:"tax" json:"tax"`
	Total         float64            `bson:"total" json:"total"`
	PaymentMethod PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	OrderStatus   OrderStatus        `bson:"orderStatus" json:"orderStatus"`
	Notes         string             `bson:"notes" json:"notes"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OrderView is an order with its customer populated.
type OrderView struct {
	Order
	CustomerInfo *CustomerRef `json:"customerInfo,omitempty"`
}

type OrderItemInput struct {
	Product  string `json:"product" binding:"required,objectid"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest is the admin entry point; the customer must exist.
type CreateOrderRequest struct {
	Customer      string           `json:"customer" binding:"required,objectid"`
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Discount      float64          `json:"discount" binding:"gte=0"`
	Tax           float64          `json:"tax" binding:"gte=0"`
	PaymentMethod PaymentMethod    `json:"paymentMethod" binding:"omitempty,oneof=cash card upi online"`
	PaymentStatus PaymentStatus    `json:"paymentStatus" binding:"omitempty,oneof=pending paid partial refunded"`
	Notes         string           `json:"notes"`
}

// CustomerOrderRequest is the public entry point; the customer is found or
// created by phone.
type CustomerOrderRequest struct {
	CustomerName  string           `json:"customerName" binding:"required"`
	CustomerPhone string           `json:"customerPhone" binding:"required"`
	CustomerEmail string           `json:"customerEmail"`
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Discount      float64          `json:"discount" binding:"gte=0"`
	Tax           float64          `json:"tax" binding:"gte=0"`
	PaymentMethod PaymentMethod    `json:"paymentMethod" binding:"omitempty,oneof=cash card upi online"`
	Notes         string           `json:"notes"`
}

type UpdateOrderRequest struct {
	OrderStatus   *OrderStatus   `json:"orderStatus"`
	PaymentStatus *PaymentStatus `json:"paymentStatus"`
	Notes         *string        `json:"notes"`
}

type RejectOrderRequest struct {
	Reason string `json:"reason"`
}

// StatusCount is one row of the per-status breakdown.
type StatusCount struct {
	Status OrderStatus `bson:"_id" json:"status"`
	Count  int64       `bson:"count" json:"count"`
}

type OrderStats struct {
	TotalOrders    int64         `json:"totalOrders"`
	TotalRevenue   float64       `json:"totalRevenue"`
	OrdersByStatus []StatusCount `json:"ordersByStatus"`
}
