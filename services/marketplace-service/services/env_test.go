package services

import (
	"context"
	"testing"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	categories *fakeCategoryRepo
	products   *fakeProductRepo
	inventory  *fakeInventoryRepo
	customers  *fakeCustomerRepo
	orders     *fakeOrderRepo
	events     *capturedEvents

	categorySvc  CategoryService
	productSvc   ProductService
	inventorySvc InventoryService
	customerSvc  CustomerService
	orderSvc     OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	env := &testEnv{
		categories: newFakeCategoryRepo(),
		products:   newFakeProductRepo(),
		inventory:  newFakeInventoryRepo(),
		customers:  newFakeCustomerRepo(),
		orders:     newFakeOrderRepo(),
		events:     &capturedEvents{},
	}
	uow := repository.NewJournalUnitOfWork(logger)
	integ := Integrations{Events: env.events}

	env.categorySvc = NewCategoryService(env.categories, integ, logger)
	env.productSvc = NewProductService(env.categories, env.products, env.inventory, uow, integ, logger)
	env.inventorySvc = NewInventoryService(env.inventory, env.products, uow, integ, logger)
	env.customerSvc = NewCustomerService(env.customers, logger)
	env.orderSvc = NewOrderService(env.orders, env.customers, env.products, env.inventory, &fakeSequenceRepo{}, uow, integ, logger)
	return env
}

func ptr[T any](v T) *T { return &v }

func (e *testEnv) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := e.categorySvc.Create(context.Background(), &models.CreateCategoryRequest{Name: name})
	require.NoError(t, err)
	return c
}

func (e *testEnv) product(t *testing.T, category *models.Category, name string, price float64, stock int) *models.ProductView {
	t.Helper()
	p, err := e.productSvc.Create(context.Background(), &models.CreateProductRequest{
		Name:      name,
		Category:  category.ID.Hex(),
		Price:     ptr(price),
		CostPrice: ptr(price / 2),
		Unit:      models.UnitKg,
		Stock:     ptr(stock),
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) customer(t *testing.T, name, phone string) *models.Customer {
	t.Helper()
	c, err := e.customerSvc.Create(context.Background(), &models.CreateCustomerRequest{Name: name, Phone: phone})
	require.NoError(t, err)
	return c
}

func (e *testEnv) stock(t *testing.T, p *models.ProductView) (inventoryQty, productStock int) {
	t.Helper()
	inv, err := e.inventory.FindByProduct(context.Background(), p.ID)
	require.NoError(t, err)
	prod, err := e.products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return inv.Quantity, prod.Stock
}
