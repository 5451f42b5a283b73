package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	awspkg "github.com/gourmetmarketplace/backend/pkg/aws"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/cache"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/events"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const imageUploadExpiry = 15 * time.Minute

var imageContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImagePresigner hands out direct-to-bucket upload URLs.
type ImagePresigner interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (uploadURL string, headers map[string]string, publicURL string, err error)
}

var _ ImagePresigner = (*awspkg.S3Presigner)(nil)

// Integrations are the optional collaborators shared by the catalog and order
// services. Any of them may be nil.
type Integrations struct {
	Cache     *cache.CacheManager
	Events    events.Publisher
	Metrics   BusinessMetrics
	Presigner ImagePresigner
	// ImagePrefix is prepended to uploaded object keys.
	ImagePrefix string
}

type ProductService interface {
	Create(ctx context.Context, req *models.CreateProductRequest) (*models.ProductView, error)
	List(ctx context.Context, q models.ProductQuery) ([]models.ProductView, int64, error)
	Get(ctx context.Context, id string) (*models.ProductView, error)
	Update(ctx context.Context, id string, req *models.UpdateProductRequest) (*models.ProductView, error)
	Delete(ctx context.Context, id string) error
	LowStock(ctx context.Context) ([]models.ProductView, error)
	PresignImage(ctx context.Context, id string, req *models.ImageUploadRequest) (*models.ImageUpload, error)
}

type productServiceImpl struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	inventory  repository.InventoryRepository
	uow        repository.UnitOfWork
	ledger     stockLedger
	integ      Integrations
	metrics    recorder
	logger     *zap.Logger
}

func NewProductService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	inventory repository.InventoryRepository,
	uow repository.UnitOfWork,
	integ Integrations,
	logger *zap.Logger,
) ProductService {
	return &productServiceImpl{
		categories: categories,
		products:   products,
		inventory:  inventory,
		uow:        uow,
		ledger:     stockLedger{inventory: inventory, products: products},
		integ:      integ,
		metrics:    recorder{metrics: integ.Metrics, logger: logger},
		logger:     logger,
	}
}

// productPage is the cached shape of one list page.
type productPage struct {
	Items []models.ProductView `json:"items"`
	Total int64                `json:"total"`
}

func (s *productServiceImpl) Create(ctx context.Context, req *models.CreateProductRequest) (*models.ProductView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("Product name is required")
	}
	if req.Price == nil || req.CostPrice == nil {
		return nil, apperrors.Validation("price and costPrice are required")
	}
	unit := req.Unit
	if unit == "" {
		unit = models.UnitKg
	}
	if !models.ValidUnit(unit) {
		return nil, apperrors.Validation("Invalid unit: %s", unit)
	}
	categoryID, err := s.requireCategory(ctx, req.Category)
	if err != nil {
		return nil, err
	}
	barcode := strings.TrimSpace(req.Barcode)
	if err := s.ensureBarcodeFree(ctx, barcode, primitive.NilObjectID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &models.Product{
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		Category:      categoryID,
		Price:         *req.Price,
		CostPrice:     *req.CostPrice,
		Unit:          unit,
		Image:         strings.TrimSpace(req.Image),
		Stock:         intOr(req.Stock, 0),
		MinStockLevel: intOr(req.MinStockLevel, models.DefaultMinStockLevel),
		IsActive:      boolOr(req.IsActive, true),
		Barcode:       barcode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.products.Create(ctx, product); err != nil {
			return err
		}
		repository.OnRollback(ctx, "product.create", func(ctx context.Context) error {
			return s.products.Delete(ctx, product.ID)
		})

		inv := &models.Inventory{
			Product:       product.ID,
			Quantity:      product.Stock,
			MinStockLevel: product.MinStockLevel,
			MaxStockLevel: models.DefaultMaxStockLevel,
			LastRestocked: &now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.inventory.Create(ctx, inv)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("Product with this barcode already exists")
		}
		return nil, err
	}

	s.integ.Cache.InvalidateProduct(ctx, product.ID.Hex())
	events.Emit(ctx, s.integ.Events, s.logger, events.NewEvent(models.EventProductCreated, product.ID.Hex(), product))
	s.metrics.count(awspkg.MetricProductsCreated, nil)
	s.logger.Info("Product created", zap.String("product_id", product.ID.Hex()), zap.String("name", product.Name))

	return s.view(ctx, product)
}

func (s *productServiceImpl) List(ctx context.Context, q models.ProductQuery) ([]models.ProductView, int64, error) {
	var cached productPage
	if s.integ.Cache.GetProductList(ctx, q, &cached) {
		return cached.Items, cached.Total, nil
	}

	products, total, err := s.products.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.views(ctx, products)
	if err != nil {
		return nil, 0, err
	}
	s.integ.Cache.SetProductListAsync(q, productPage{Items: views, Total: total})
	return views, total, nil
}

func (s *productServiceImpl) Get(ctx context.Context, id string) (*models.ProductView, error) {
	oid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}

	var cached models.ProductView
	if s.integ.Cache.GetProduct(ctx, oid.Hex(), &cached) {
		return &cached, nil
	}

	product, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Product not found")
	}
	view, err := s.view(ctx, product)
	if err != nil {
		return nil, err
	}
	s.integ.Cache.SetProductAsync(oid.Hex(), view)
	return view, nil
}

func (s *productServiceImpl) Update(ctx context.Context, id string, req *models.UpdateProductRequest) (*models.ProductView, error) {
	oid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	existing, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Product not found")
	}
	previous := *existing
	product := existing

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("Product name is required")
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		categoryID, err := s.requireCategory(ctx, *req.Category)
		if err != nil {
			return nil, err
		}
		product.Category = categoryID
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.CostPrice != nil {
		product.CostPrice = *req.CostPrice
	}
	if req.Unit != nil {
		if !models.ValidUnit(*req.Unit) {
			return nil, apperrors.Validation("Invalid unit: %s", *req.Unit)
		}
		product.Unit = *req.Unit
	}
	if req.Image != nil {
		product.Image = strings.TrimSpace(*req.Image)
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.Barcode != nil {
		barcode := strings.TrimSpace(*req.Barcode)
		if barcode != product.Barcode {
			if err := s.ensureBarcodeFree(ctx, barcode, product.ID); err != nil {
				return nil, err
			}
		}
		product.Barcode = barcode
	}

	var patch repository.InventoryPatch
	if req.Stock != nil && *req.Stock != previous.Stock {
		product.Stock = *req.Stock
		patch.Quantity = req.Stock
	}
	if req.MinStockLevel != nil && *req.MinStockLevel != previous.MinStockLevel {
		product.MinStockLevel = *req.MinStockLevel
		patch.MinStockLevel = req.MinStockLevel
	}

	var inv *models.Inventory
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.products.Save(ctx, product); err != nil {
			return err
		}
		repository.OnRollback(ctx, "product.save", func(ctx context.Context) error {
			return s.products.Save(ctx, &previous)
		})

		if patch.Quantity == nil && patch.MinStockLevel == nil {
			return nil
		}
		var err error
		inv, err = s.ledger.set(ctx, product.ID, patch)
		if errors.Is(err, repository.ErrNotFound) {
			inv, err = s.createMissingInventory(ctx, product)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("Product with this barcode already exists")
		}
		return nil, notFound(err, "Product not found")
	}

	s.integ.Cache.InvalidateProduct(ctx, product.ID.Hex())
	if inv != nil {
		product.Stock = inv.Quantity
		publishStockChange(ctx, s.integ.Events, s.metrics, s.logger, inv)
	} else if current, err := s.products.FindByID(ctx, product.ID); err == nil {
		// orders may have moved stock since the read above
		product.Stock = current.Stock
	}
	return s.view(ctx, product)
}

func (s *productServiceImpl) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "product")
	if err != nil {
		return err
	}
	product, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return notFound(err, "Product not found")
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		inv, err := s.inventory.FindByProduct(ctx, oid)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if inv != nil {
			if err := s.inventory.DeleteByProduct(ctx, oid); err != nil {
				return err
			}
			repository.OnRollback(ctx, "inventory.delete", func(ctx context.Context) error {
				return s.inventory.Create(ctx, inv)
			})
		}
		return s.products.Delete(ctx, oid)
	})
	if err != nil {
		return notFound(err, "Product not found")
	}

	s.integ.Cache.InvalidateProduct(ctx, id)
	events.Emit(ctx, s.integ.Events, s.logger, events.NewEvent(models.EventProductDeleted, id, map[string]string{
		"productId": id,
		"name":      product.Name,
	}))
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func (s *productServiceImpl) LowStock(ctx context.Context) ([]models.ProductView, error) {
	products, err := s.products.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, products)
}

func (s *productServiceImpl) PresignImage(ctx context.Context, id string, req *models.ImageUploadRequest) (*models.ImageUpload, error) {
	if s.integ.Presigner == nil {
		return nil, apperrors.New(http.StatusServiceUnavailable, "Image uploads are not configured", nil)
	}
	oid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, oid); err != nil {
		return nil, notFound(err, "Product not found")
	}

	contentType, _, err := mime.ParseMediaType(req.ContentType)
	if err != nil {
		return nil, apperrors.Validation("Invalid content type")
	}
	ext, ok := imageContentTypes[contentType]
	if !ok {
		return nil, apperrors.Validation("Unsupported image type: %s", contentType)
	}
	if contentType == "image/jpeg" && strings.EqualFold(path.Ext(req.Filename), ".jpeg") {
		ext = ".jpeg"
	}

	key := path.Join(s.integ.ImagePrefix, "products", oid.Hex(), uuid.NewString()+ext)
	uploadURL, headers, publicURL, err := s.integ.Presigner.PresignPut(ctx, key, contentType, imageUploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign image upload: %w", err)
	}
	return &models.ImageUpload{
		UploadURL: uploadURL,
		Headers:   headers,
		Key:       key,
		ImageURL:  publicURL,
		ExpiresIn: int64(imageUploadExpiry.Seconds()),
	}, nil
}

func (s *productServiceImpl) createMissingInventory(ctx context.Context, product *models.Product) (*models.Inventory, error) {
	now := time.Now().UTC()
	inv := &models.Inventory{
		Product:       product.ID,
		Quantity:      product.Stock,
		MinStockLevel: product.MinStockLevel,
		MaxStockLevel: models.DefaultMaxStockLevel,
		LastRestocked: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.inventory.Create(ctx, inv); err != nil {
		return nil, err
	}
	repository.OnRollback(ctx, "inventory.create", func(ctx context.Context) error {
		return s.inventory.DeleteByProduct(ctx, product.ID)
	})
	s.logger.Warn("Recreated missing inventory record", zap.String("product_id", product.ID.Hex()))
	return inv, nil
}

func (s *productServiceImpl) requireCategory(ctx context.Context, id string) (primitive.ObjectID, error) {
	oid, err := parseID(id, "category")
	if err != nil {
		return primitive.NilObjectID, err
	}
	if _, err := s.categories.FindByID(ctx, oid); err != nil {
		return primitive.NilObjectID, notFound(err, "Category not found")
	}
	return oid, nil
}

// ensureBarcodeFree fails when another product already carries barcode.
func (s *productServiceImpl) ensureBarcodeFree(ctx context.Context, barcode string, self primitive.ObjectID) error {
	if barcode == "" {
		return nil
	}
	other, err := s.products.FindByBarcode(ctx, barcode)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return apperrors.Validation("Product with this barcode already exists")
	}
	return nil
}

func (s *productServiceImpl) view(ctx context.Context, p *models.Product) (*models.ProductView, error) {
	views, err := s.views(ctx, []models.Product{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views populates category {id,name}. A dangling category reference is left unpopulated.
func (s *productServiceImpl) views(ctx context.Context, products []models.Product) ([]models.ProductView, error) {
	ids := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.Category)
	}
	categories, err := s.categories.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.CategoryRef, len(categories))
	for _, c := range categories {
		byID[c.ID] = &models.CategoryRef{ID: c.ID, Name: c.Name}
	}

	out := make([]models.ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, models.ProductView{Product: p, CategoryInfo: byID[p.Category]})
	}
	return out, nil
}
