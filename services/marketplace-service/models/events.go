package models

import "time"

const (
	EventOrderCreated    = "order.created"
	EventOrderApproved   = "order.approved"
	EventOrderRejected   = "order.rejected"
	EventOrderCancelled  = "order.cancelled"
	EventOrderUpdated    = "order.updated"
	EventProductCreated  = "product.created"
	EventProductDeleted  = "product.deleted"
	EventInventoryLow    = "inventory.low_stock"
	EventInventoryChange = "inventory.updated"
)

// DomainEvent is the envelope published to Kafka and SNS.
type DomainEvent struct {
	Type      string      `json:"type"`
	Key       string      `json:"key"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type OrderEventPayload struct {
	OrderID       string        `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	CustomerID    string        `json:"customerId"`
	OrderStatus   OrderStatus   `json:"orderStatus"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Total         float64       `json:"total"`
	Reason        string        `json:"reason,omitempty"`
}

type StockEventPayload struct {
	ProductID         string      `json:"productId"`
	Quantity          int         `json:"quantity"`
	AvailableQuantity int         `json:"availableQuantity"`
	MinStockLevel     int         `json:"minStockLevel"`
	StockStatus       StockStatus `json:"stockStatus"`
}

// PaymentEvent arrives from the payment side (SQS or Kafka) and moves an
// order's paymentStatus.
type PaymentEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number,omitempty"`
	PaymentID   string    `json:"payment_id,omitempty"`
	Amount      float64   `json:"amount,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

const (
	PaymentEventSucceeded = "payment_succeeded"
	PaymentEventPartial   = "payment_partial"
	PaymentEventRefunded  = "payment_refunded"
	PaymentEventFailed    = "payment_failed"
)
