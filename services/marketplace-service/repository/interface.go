package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStaleState means a conditional write found the document in a different state.
	ErrStaleState = errors.New("document changed concurrently")
	ErrDuplicate  = errors.New("duplicate key")
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error)
	List(ctx context.Context, q models.CategoryQuery) ([]models.Category, int64, error)
	Save(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error)
	// ListLowStock returns active products with stock <= minStockLevel, lowest stock first.
	ListLowStock(ctx context.Context) ([]models.Product, error)
	Save(ctx context.Context, product *models.Product) error
	SetStock(ctx context.Context, id primitive.ObjectID, stock int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// InventoryPatch replaces the non-nil ledger fields.
type InventoryPatch struct {
	Quantity         *int
	ReservedQuantity *int
	MinStockLevel    *int
	MaxStockLevel    *int
	Restocked        *time.Time
}

type InventoryRepository interface {
	Create(ctx context.Context, inv *models.Inventory) error
	FindByProduct(ctx context.Context, productID primitive.ObjectID) (*models.Inventory, error)
	// ListAll returns every ledger ordered by availableQuantity ascending.
	ListAll(ctx context.Context) ([]models.Inventory, error)
	// ListLow returns ledgers with availableQuantity <= minStockLevel.
	ListLow(ctx context.Context) ([]models.Inventory, error)
	// AdjustQuantity adds delta to quantity and re-derives availableQuantity in
	// one write. A negative delta only applies when availableQuantity >= -delta,
	// otherwise ErrInsufficientStock.
	AdjustQuantity(ctx context.Context, productID primitive.ObjectID, delta int, stamp models.StockStamp) (*models.Inventory, error)
	Patch(ctx context.Context, productID primitive.ObjectID, patch InventoryPatch) (*models.Inventory, error)
	DeleteByProduct(ctx context.Context, productID primitive.ObjectID) error
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Customer, error)
	List(ctx context.Context, q models.CustomerQuery) ([]models.Customer, int64, error)
	Save(ctx context.Context, customer *models.Customer) error
	// AddOrderStats increments totalOrders and totalSpent.
	AddOrderStats(ctx context.Context, id primitive.ObjectID, orders int, spent float64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// OrderPatch sets the non-nil fields on an order.
type OrderPatch struct {
	OrderStatus   *models.OrderStatus
	PaymentStatus *models.PaymentStatus
	Notes         *string
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, q models.OrderQuery) ([]models.Order, int64, error)
	FindByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Order, error)
	// Patch applies patch only while the order is still in status from;
	// otherwise ErrStaleState. An empty from applies it unconditionally.
	Patch(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, patch OrderPatch) (*models.Order, error)
	Stats(ctx context.Context, r models.DateRange) (*models.OrderStats, error)
}

// SequenceRepository hands out monotonically increasing numbers per name.
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}
