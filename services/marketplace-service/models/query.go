package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return int64((p.Page - 1) * p.Limit)
}

// Query types below are the store's public filter contract. A nil field
// means "no constraint".

type CategoryQuery struct {
	IsActive *bool
	Page     Page
}

type ProductQuery struct {
	Category *primitive.ObjectID
	IsActive *bool
	Search   *string
	Page     Page
}

type CustomerQuery struct {
	Search   *string
	IsActive *bool
	Page     Page
}

type OrderQuery struct {
	Customer      *primitive.ObjectID
	OrderStatus   *OrderStatus
	PaymentStatus *PaymentStatus
	Range         DateRange
	Page          Page
}

// DateRange bounds createdAt inclusively on both ends.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

type InventoryQuery struct {
	StockStatus *StockStatus
	Page        Page
}
