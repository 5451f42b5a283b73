package services

import (
	"context"
	"errors"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stockLedger moves inventory quantities and mirrors the result into
// Product.stock. Every write registers its compensation, so callers must run
// it inside a unit of work.
type stockLedger struct {
	inventory repository.InventoryRepository
	products  repository.ProductRepository
}

// adjust adds delta to the product's quantity. A negative delta fails with
// repository.ErrInsufficientStock and writes nothing when stock is short.
func (l stockLedger) adjust(ctx context.Context, productID primitive.ObjectID, delta int, stamp models.StockStamp) (*models.Inventory, error) {
	inv, err := l.inventory.AdjustQuantity(ctx, productID, delta, stamp)
	if err != nil {
		return nil, err
	}
	repository.OnRollback(ctx, "inventory.adjust "+productID.Hex(), func(ctx context.Context) error {
		_, err := l.inventory.AdjustQuantity(ctx, productID, -delta, models.StampNone)
		return err
	})

	if err := l.mirror(ctx, productID, inv.Quantity, inv.Quantity-delta); err != nil {
		return nil, err
	}
	return inv, nil
}

// restore puts quantity back for a released order line. A product deleted
// since the order was placed has nothing to restore into.
func (l stockLedger) restore(ctx context.Context, productID primitive.ObjectID, quantity int) (*models.Inventory, error) {
	inv, err := l.adjust(ctx, productID, quantity, models.StampNone)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return inv, err
}

// set replaces ledger fields, mirroring quantity when it changes.
func (l stockLedger) set(ctx context.Context, productID primitive.ObjectID, patch repository.InventoryPatch) (*models.Inventory, error) {
	before, err := l.inventory.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if patch.Quantity != nil && patch.Restocked == nil {
		now := time.Now().UTC()
		patch.Restocked = &now
	}

	inv, err := l.inventory.Patch(ctx, productID, patch)
	if err != nil {
		return nil, err
	}
	repository.OnRollback(ctx, "inventory.patch "+productID.Hex(), func(ctx context.Context) error {
		_, err := l.inventory.Patch(ctx, productID, repository.InventoryPatch{
			Quantity:         &before.Quantity,
			ReservedQuantity: &before.ReservedQuantity,
			MinStockLevel:    &before.MinStockLevel,
			MaxStockLevel:    &before.MaxStockLevel,
		})
		return err
	})

	if inv.Quantity != before.Quantity {
		if err := l.mirror(ctx, productID, inv.Quantity, before.Quantity); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

func (l stockLedger) mirror(ctx context.Context, productID primitive.ObjectID, stock, previous int) error {
	if err := l.products.SetStock(ctx, productID, stock); err != nil {
		return err
	}
	repository.OnRollback(ctx, "product.stock "+productID.Hex(), func(ctx context.Context) error {
		return l.products.SetStock(ctx, productID, previous)
	})
	return nil
}
