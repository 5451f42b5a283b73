package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidEmail applies the loose format check used across customer inputs.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeEmail lowercases and trims.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipCode" json:"zipCode"`
}

// Customer is a buyer. Phone is the natural key. TotalOrders and TotalSpent
// are maintained by the order workflow only.
type Customer struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone       string             `bson:"phone" json:"phone"`
	Address     Address            `bson:"address" json:"address"`
	TotalOrders int                `bson:"totalOrders" json:"totalOrders"`
	TotalSpent  float64            `bson:"totalSpent" json:"totalSpent"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CustomerRef is the populated customer on order reads.
type CustomerRef struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Phone string             `json:"phone"`
	Email string             `json:"email,omitempty"`
}

type AddressInput struct {
	Street  *string `json:"street"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zipCode"`
}

// Merge applies the non-nil fields of in onto a.
func (a Address) Merge(in *AddressInput) Address {
	if in == nil {
		return a
	}
	if in.Street != nil {
		a.Street = *in.Street
	}
	if in.City != nil {
		a.City = *in.City
	}
	if in.State != nil {
		a.State = *in.State
	}
	if in.ZipCode != nil {
		a.ZipCode = *in.ZipCode
	}
	return a
}

type CreateCustomerRequest struct {
	Name     string        `json:"name" binding:"required"`
	Email    string        `json:"email"`
	Phone    string        `json:"phone" binding:"required"`
	Address  *AddressInput `json:"address"`
	IsActive *bool         `json:"isActive"`
}

type UpdateCustomerRequest struct {
	Name     *string       `json:"name"`
	Email    *string       `json:"email"`
	Phone    *string       `json:"phone"`
	Address  *AddressInput `json:"address"`
	IsActive *bool         `json:"isActive"`
}
