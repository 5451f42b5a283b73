package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StockStatus classifies available quantity against the thresholds.
type StockStatus string

const (
	StockOutOfStock  StockStatus = "out_of_stock"
	StockLow         StockStatus = "low_stock"
	StockOverstocked StockStatus = "overstocked"
	StockIn          StockStatus = "in_stock"
)

// ValidStockStatus reports whether s names a known status.
func ValidStockStatus(s StockStatus) bool {
	switch s {
	case StockOutOfStock, StockLow, StockOverstocked, StockIn:
		return true
	}
	return false
}

// Inventory is the stock ledger of one product.
//
// AvailableQuantity is always max(0, Quantity-ReservedQuantity); the store
// recomputes it on every write and nothing else may set it.
type Inventory struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Product           primitive.ObjectID `bson:"product" json:"product"`
	Quantity          int                `bson:"quantity" json:"quantity"`
	ReservedQuantity  int                `bson:"reservedQuantity" json:"reservedQuantity"`
	AvailableQuantity int                `bson:"availableQuantity" json:"availableQuantity"`
	MinStockLevel     int                `bson:"minStockLevel" json:"minStockLevel"`
	MaxStockLevel     int                `bson:"maxStockLevel" json:"maxStockLevel"`
	LastRestocked     *time.Time         `bson:"lastRestocked,omitempty" json:"lastRestocked,omitempty"`
	LastSold          *time.Time         `bson:"lastSold,omitempty" json:"lastSold,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Recalculate re-derives AvailableQuantity.
func (i *Inventory) Recalculate() {
	i.AvailableQuantity = AvailableOf(i.Quantity, i.ReservedQuantity)
}

// AvailableOf is max(0, quantity-reserved).
func AvailableOf(quantity, reserved int) int {
	if avail := quantity - reserved; avail > 0 {
		return avail
	}
	return 0
}

// StockStatus derives the classification from the current available quantity.
func (i *Inventory) StockStatus() StockStatus {
	switch {
	case i.AvailableQuantity <= 0:
		return StockOutOfStock
	case i.AvailableQuantity <= i.MinStockLevel:
		return StockLow
	case i.AvailableQuantity >= i.MaxStockLevel:
		return StockOverstocked
	default:
		return StockIn
	}
}

// IsLow reports whether available stock is at or below the minimum level.
func (i *Inventory) IsLow() bool {
	return i.AvailableQuantity <= i.MinStockLevel
}

// ProductRef is the populated product on inventory reads.
type ProductRef struct {
	ID       primitive.ObjectID `json:"id"`
	Name     string             `json:"name"`
	Unit     Unit               `json:"unit"`
	Price    float64            `json:"price"`
	Category primitive.ObjectID `json:"category"`
}

// InventoryView is what the inventory endpoints return.
type InventoryView struct {
	Inventory
	StockStatus StockStatus `json:"stockStatus"`
	ProductInfo *ProductRef `json:"productInfo,omitempty"`
}

// NewInventoryView wraps inv with its derived status.
func NewInventoryView(inv *Inventory, p *Product) InventoryView {
	v := InventoryView{Inventory: *inv, StockStatus: inv.StockStatus()}
	if p != nil {
		v.ProductInfo = &ProductRef{ID: p.ID, Name: p.Name, Unit: p.Unit, Price: p.Price, Category: p.Category}
	}
	return v
}

// UpdateInventoryRequest replaces ledger fields. Quantity changes stamp lastRestocked.
type UpdateInventoryRequest struct {
	Quantity         *int `json:"quantity" binding:"omitempty,gte=0"`
	ReservedQuantity *int `json:"reservedQuantity" binding:"omitempty,gte=0"`
	MinStockLevel    *int `json:"minStockLevel" binding:"omitempty,gte=0"`
	MaxStockLevel    *int `json:"maxStockLevel" binding:"omitempty,gte=0"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// StockStamp selects which timestamp a quantity adjustment records.
type StockStamp int

const (
	StampNone StockStamp = iota
	StampSold
	StampRestocked
)
