package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Unit is the sale unit of a product.
type Unit string

const (
	UnitKg    Unit = "kg"
	UnitPiece Unit = "piece"
	UnitDozen Unit = "dozen"
	UnitPack  Unit = "pack"
	UnitGram  Unit = "gram"
)

const (
	DefaultMinStockLevel = 10
	DefaultMaxStockLevel = 1000
)

// ValidUnit reports whether u is one of the supported units.
func ValidUnit(u Unit) bool {
	switch u {
	case UnitKg, UnitPiece, UnitDozen, UnitPack, UnitGram:
		return true
	}
	return false
}

// Product is a catalog entry. Stock mirrors the paired Inventory quantity.
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Category      primitive.ObjectID `bson:"category" json:"category"`
	Price         float64            `bson:"price" json:"price"`
	CostPrice     float64            `bson:"costPrice" json:"costPrice"`
	Unit          Unit               `bson:"unit" json:"unit"`
	Image         string             `bson:"image,omitempty" json:"image,omitempty"`
	Stock         int                `bson:"stock" json:"stock"`
	MinStockLevel int                `bson:"minStockLevel" json:"minStockLevel"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	Barcode       string             `bson:"barcode,omitempty" json:"barcode,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CategoryRef is the populated category on product reads.
type CategoryRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// ProductView is a product with its category resolved.
type ProductView struct {
	Product
	CategoryInfo *CategoryRef `json:"categoryInfo,omitempty"`
}

type CreateProductRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Category      string   `json:"category" binding:"required,objectid"`
	Price         *float64 `json:"price" binding:"required,gte=0"`
	CostPrice     *float64 `json:"costPrice" binding:"required,gte=0"`
	Unit          Unit     `json:"unit" binding:"required,unit"`
	Image         string   `json:"image"`
	Stock         *int     `json:"stock" binding:"omitempty,gte=0"`
	MinStockLevel *int     `json:"minStockLevel" binding:"omitempty,gte=0"`
	IsActive      *bool    `json:"isActive"`
	Barcode       string   `json:"barcode"`
}

type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category" binding:"omitempty,objectid"`
	Price         *float64 `json:"price" binding:"omitempty,gte=0"`
	CostPrice     *float64 `json:"costPrice" binding:"omitempty,gte=0"`
	Unit          *Unit    `json:"unit" binding:"omitempty,unit"`
	Image         *string  `json:"image"`
	Stock         *int     `json:"stock" binding:"omitempty,gte=0"`
	MinStockLevel *int     `json:"minStockLevel" binding:"omitempty,gte=0"`
	IsActive      *bool    `json:"isActive"`
	Barcode       *string  `json:"barcode"`
}

// ImageUploadRequest asks for a presigned product image upload.
type ImageUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// ImageUpload is returned to the client that will PUT the image bytes.
type ImageUpload struct {
	UploadURL string            `json:"uploadUrl"`
	Headers   map[string]string `json:"headers"`
	Key       string            `json:"key"`
	ImageURL  string            `json:"imageUrl"`
	ExpiresIn int64             `json:"expiresIn"`
}
