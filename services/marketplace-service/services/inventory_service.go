package services

import (
	"context"

	awspkg "github.com/gourmetmarketplace/backend/pkg/aws"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/events"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type InventoryService interface {
	List(ctx context.Context, q models.InventoryQuery) ([]models.InventoryView, int64, error)
	Get(ctx context.Context, productID string) (*models.InventoryView, error)
	Update(ctx context.Context, productID string, req *models.UpdateInventoryRequest) (*models.InventoryView, error)
	Restock(ctx context.Context, productID string, quantity int) (*models.InventoryView, error)
	LowStock(ctx context.Context) ([]models.InventoryView, error)
}

type inventoryServiceImpl struct {
	inventory repository.InventoryRepository
	products  repository.ProductRepository
	uow       repository.UnitOfWork
	ledger    stockLedger
	integ     Integrations
	metrics   recorder
	logger    *zap.Logger
}

func NewInventoryService(
	inventory repository.InventoryRepository,
	products repository.ProductRepository,
	uow repository.UnitOfWork,
	integ Integrations,
	logger *zap.Logger,
) InventoryService {
	return &inventoryServiceImpl{
		inventory: inventory,
		products:  products,
		uow:       uow,
		ledger:    stockLedger{inventory: inventory, products: products},
		integ:     integ,
		metrics:   recorder{metrics: integ.Metrics, logger: logger},
		logger:    logger,
	}
}

// List filters by derived stock status, so it pages in memory over the full
// ledger ordered by available quantity.
func (s *inventoryServiceImpl) List(ctx context.Context, q models.InventoryQuery) ([]models.InventoryView, int64, error) {
	if q.StockStatus != nil && !models.ValidStockStatus(*q.StockStatus) {
		return nil, 0, apperrors.Validation("Invalid stock status: %s", *q.StockStatus)
	}
	all, err := s.inventory.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.views(ctx, all)
	if err != nil {
		return nil, 0, err
	}

	if q.StockStatus != nil {
		filtered := views[:0]
		for _, v := range views {
			if v.StockStatus == *q.StockStatus {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	total := int64(len(views))
	if q.Page.Limit > 0 {
		start := int(q.Page.Skip())
		if start > len(views) {
			start = len(views)
		}
		end := start + q.Page.Limit
		if end > len(views) {
			end = len(views)
		}
		views = views[start:end]
	}
	return views, total, nil
}

func (s *inventoryServiceImpl) Get(ctx context.Context, productID string) (*models.InventoryView, error) {
	oid, err := parseID(productID, "product")
	if err != nil {
		return nil, err
	}
	inv, err := s.inventory.FindByProduct(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Inventory not found for this product")
	}
	return s.view(ctx, inv)
}

func (s *inventoryServiceImpl) Update(ctx context.Context, productID string, req *models.UpdateInventoryRequest) (*models.InventoryView, error) {
	oid, err := parseID(productID, "product")
	if err != nil {
		return nil, err
	}
	patch := repository.InventoryPatch{
		Quantity:         req.Quantity,
		ReservedQuantity: req.ReservedQuantity,
		MinStockLevel:    req.MinStockLevel,
		MaxStockLevel:    req.MaxStockLevel,
	}

	var inv *models.Inventory
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.ledger.set(ctx, oid, patch)
		return err
	})
	if err != nil {
		return nil, notFound(err, "Inventory not found for this product")
	}

	s.afterStockChange(ctx, inv)
	return s.view(ctx, inv)
}

func (s *inventoryServiceImpl) Restock(ctx context.Context, productID string, quantity int) (*models.InventoryView, error) {
	oid, err := parseID(productID, "product")
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, apperrors.Validation("Quantity must be greater than 0")
	}

	var inv *models.Inventory
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.ledger.adjust(ctx, oid, quantity, models.StampRestocked)
		return err
	})
	if err != nil {
		return nil, notFound(err, "Inventory not found for this product")
	}

	s.metrics.value(awspkg.MetricStockRestocked, float64(quantity), nil)
	s.logger.Info("Inventory restocked", zap.String("product_id", productID), zap.Int("quantity", quantity),
		zap.Int("new_quantity", inv.Quantity))
	s.afterStockChange(ctx, inv)
	return s.view(ctx, inv)
}

func (s *inventoryServiceImpl) LowStock(ctx context.Context) ([]models.InventoryView, error) {
	low, err := s.inventory.ListLow(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, low)
}

func (s *inventoryServiceImpl) afterStockChange(ctx context.Context, inv *models.Inventory) {
	s.integ.Cache.InvalidateProduct(ctx, inv.Product.Hex())
	publishStockChange(ctx, s.integ.Events, s.metrics, s.logger, inv)
}

func (s *inventoryServiceImpl) view(ctx context.Context, inv *models.Inventory) (*models.InventoryView, error) {
	views, err := s.views(ctx, []models.Inventory{*inv})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *inventoryServiceImpl) views(ctx context.Context, ledgers []models.Inventory) ([]models.InventoryView, error) {
	ids := make([]primitive.ObjectID, 0, len(ledgers))
	for _, inv := range ledgers {
		ids = append(ids, inv.Product)
	}
	products, err := s.products.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	out := make([]models.InventoryView, 0, len(ledgers))
	for i := range ledgers {
		out = append(out, models.NewInventoryView(&ledgers[i], byID[ledgers[i].Product]))
	}
	return out, nil
}

// publishStockChange announces a committed stock movement, plus a low-stock
// alert when available stock is at or below the minimum.
func publishStockChange(ctx context.Context, pub events.Publisher, rec recorder, logger *zap.Logger, inv *models.Inventory) {
	payload := models.StockEventPayload{
		ProductID:         inv.Product.Hex(),
		Quantity:          inv.Quantity,
		AvailableQuantity: inv.AvailableQuantity,
		MinStockLevel:     inv.MinStockLevel,
		StockStatus:       inv.StockStatus(),
	}
	events.Emit(ctx, pub, logger, events.NewEvent(models.EventInventoryChange, payload.ProductID, payload))
	if inv.IsLow() {
		events.Emit(ctx, pub, logger, events.NewEvent(models.EventInventoryLow, payload.ProductID, payload))
		rec.count(awspkg.MetricInventoryLow, map[string]string{"ProductID": payload.ProductID})
	}
}
