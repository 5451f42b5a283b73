package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repositories. Each stores copies so callers cannot mutate state
// behind the store's back.

func page[T any](items []T, p models.Page) []T {
	if p.Limit <= 0 {
		return items
	}
	start := int(p.Skip())
	if start > len(items) {
		start = len(items)
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type fakeCategoryRepo struct {
	mu   sync.Mutex
	data map[primitive.ObjectID]models.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{data: map[primitive.ObjectID]models.Category{}}
}

func (r *fakeCategoryRepo) Create(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.Name == c.Name {
			return repository.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.data[c.ID] = *c
	return nil
}

func (r *fakeCategoryRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCategoryRepo) FindByName(_ context.Context, name string) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.data {
		if c.Name == models.NormalizeCategoryName(name) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCategoryRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Category{}
	for _, id := range ids {
		if c, ok := r.data[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCategoryRepo) List(_ context.Context, q models.CategoryQuery) ([]models.Category, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Category{}
	for _, c := range r.data {
		if q.IsActive != nil && c.IsActive != *q.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, q.Page), int64(len(out)), nil
}

func (r *fakeCategoryRepo) Save(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[c.ID]; !ok {
		return repository.ErrNotFound
	}
	r.data[c.ID] = *c
	return nil
}

func (r *fakeCategoryRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

type fakeProductRepo struct {
	mu   sync.Mutex
	data map[primitive.ObjectID]models.Product
	// failSetStock makes SetStock fail for the product, to exercise rollback.
	failSetStock map[primitive.ObjectID]error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{data: map[primitive.ObjectID]models.Product{}, failSetStock: map[primitive.ObjectID]error{}}
}

func (r *fakeProductRepo) Create(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.data[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) FindByBarcode(_ context.Context, barcode string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.Barcode != "" && p.Barcode == barcode {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeProductRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := r.data[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) List(_ context.Context, q models.ProductQuery) ([]models.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Product{}
	for _, p := range r.data {
		if q.Category != nil && p.Category != *q.Category {
			continue
		}
		if q.IsActive != nil && p.IsActive != *q.IsActive {
			continue
		}
		if q.Search != nil {
			s := strings.ToLower(*q.Search)
			if !strings.Contains(strings.ToLower(p.Name), s) && !strings.Contains(strings.ToLower(p.Description), s) {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, q.Page), int64(len(out)), nil
}

func (r *fakeProductRepo) ListLowStock(_ context.Context) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Product{}
	for _, p := range r.data {
		if p.IsActive && p.Stock <= p.MinStockLevel {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

func (r *fakeProductRepo) Save(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.data[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	saved := *p
	saved.Stock = current.Stock
	r.data[p.ID] = saved
	return nil
}

func (r *fakeProductRepo) SetStock(_ context.Context, id primitive.ObjectID, stock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failSetStock[id]; err != nil {
		return err
	}
	p, ok := r.data[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = stock
	r.data[id] = p
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

type fakeInventoryRepo struct {
	mu   sync.Mutex
	data map[primitive.ObjectID]models.Inventory
	// failCreate makes Create fail, to exercise rollback.
	failCreate error
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{data: map[primitive.ObjectID]models.Inventory{}}
}

func (r *fakeInventoryRepo) Create(_ context.Context, inv *models.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	if _, ok := r.data[inv.Product]; ok {
		return repository.ErrDuplicate
	}
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	inv.Recalculate()
	r.data[inv.Product] = *inv
	return nil
}

func (r *fakeInventoryRepo) FindByProduct(_ context.Context, productID primitive.ObjectID) (*models.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

func (r *fakeInventoryRepo) sorted(keep func(models.Inventory) bool) []models.Inventory {
	out := []models.Inventory{}
	for _, inv := range r.data {
		if keep(inv) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AvailableQuantity < out[j].AvailableQuantity })
	return out
}

func (r *fakeInventoryRepo) ListAll(_ context.Context) ([]models.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(models.Inventory) bool { return true }), nil
}

func (r *fakeInventoryRepo) ListLow(_ context.Context) ([]models.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(inv models.Inventory) bool { return inv.AvailableQuantity <= inv.MinStockLevel }), nil
}

func (r *fakeInventoryRepo) AdjustQuantity(_ context.Context, productID primitive.ObjectID, delta int, stamp models.StockStamp) (*models.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if delta < 0 && inv.AvailableQuantity < -delta {
		return nil, repository.ErrInsufficientStock
	}
	now := time.Now().UTC()
	inv.Quantity += delta
	switch stamp {
	case models.StampSold:
		inv.LastSold = &now
	case models.StampRestocked:
		inv.LastRestocked = &now
	}
	inv.UpdatedAt = now
	inv.Recalculate()
	r.data[productID] = inv
	return &inv, nil
}

func (r *fakeInventoryRepo) Patch(_ context.Context, productID primitive.ObjectID, patch repository.InventoryPatch) (*models.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Quantity != nil {
		inv.Quantity = *patch.Quantity
	}
	if patch.ReservedQuantity != nil {
		inv.ReservedQuantity = *patch.ReservedQuantity
	}
	if patch.MinStockLevel != nil {
		inv.MinStockLevel = *patch.MinStockLevel
	}
	if patch.MaxStockLevel != nil {
		inv.MaxStockLevel = *patch.MaxStockLevel
	}
	if patch.Restocked != nil {
		inv.LastRestocked = patch.Restocked
	}
	inv.Recalculate()
	r.data[productID] = inv
	return &inv, nil
}

func (r *fakeInventoryRepo) DeleteByProduct(_ context.Context, productID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[productID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.data, productID)
	return nil
}

type fakeCustomerRepo struct {
	mu   sync.Mutex
	data map[primitive.ObjectID]models.Customer
	// failStats makes AddOrderStats fail, to exercise rollback.
	failStats error
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{data: map[primitive.ObjectID]models.Customer{}}
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.Phone == c.Phone {
			return repository.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.data[c.ID] = *c
	return nil
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) find(match func(models.Customer) bool) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.data {
		if match(c) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCustomerRepo) FindByPhone(_ context.Context, phone string) (*models.Customer, error) {
	return r.find(func(c models.Customer) bool { return c.Phone == phone })
}

func (r *fakeCustomerRepo) FindByEmail(_ context.Context, email string) (*models.Customer, error) {
	return r.find(func(c models.Customer) bool { return c.Email != "" && c.Email == models.NormalizeEmail(email) })
}

func (r *fakeCustomerRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Customer{}
	for _, id := range ids {
		if c, ok := r.data[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCustomerRepo) List(_ context.Context, q models.CustomerQuery) ([]models.Customer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Customer{}
	for _, c := range r.data {
		if q.IsActive != nil && c.IsActive != *q.IsActive {
			continue
		}
		if q.Search != nil {
			s := strings.ToLower(*q.Search)
			if !strings.Contains(strings.ToLower(c.Name), s) && !strings.Contains(c.Phone, s) && !strings.Contains(c.Email, s) {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, q.Page), int64(len(out)), nil
}

func (r *fakeCustomerRepo) Save(_ context.Context, c *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c.TotalOrders, c.TotalSpent = existing.TotalOrders, existing.TotalSpent
	r.data[c.ID] = *c
	return nil
}

func (r *fakeCustomerRepo) AddOrderStats(_ context.Context, id primitive.ObjectID, orders int, spent float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStats != nil {
		return r.failStats
	}
	c, ok := r.data[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.TotalOrders += orders
	c.TotalSpent += spent
	r.data[id] = c
	return nil
}

func (r *fakeCustomerRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

type fakeOrderRepo struct {
	mu   sync.Mutex
	data map[primitive.ObjectID]models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{data: map[primitive.ObjectID]models.Order{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	r.data[o.ID] = *o
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *fakeOrderRepo) FindByOrderNumber(_ context.Context, number string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.data {
		if o.OrderNumber == number {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func inRange(t time.Time, rng models.DateRange) bool {
	if rng.From != nil && t.Before(*rng.From) {
		return false
	}
	if rng.To != nil && t.After(*rng.To) {
		return false
	}
	return true
}

func (r *fakeOrderRepo) List(_ context.Context, q models.OrderQuery) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Order{}
	for _, o := range r.data {
		if q.Customer != nil && o.Customer != *q.Customer {
			continue
		}
		if q.OrderStatus != nil && o.OrderStatus != *q.OrderStatus {
			continue
		}
		if q.PaymentStatus != nil && o.PaymentStatus != *q.PaymentStatus {
			continue
		}
		if !inRange(o.CreatedAt, q.Range) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, q.Page), int64(len(out)), nil
}

func (r *fakeOrderRepo) FindByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Order, error) {
	out, _, err := r.List(ctx, models.OrderQuery{Customer: &customerID})
	return out, err
}

func (r *fakeOrderRepo) Patch(_ context.Context, id primitive.ObjectID, from models.OrderStatus, patch repository.OrderPatch) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if from != "" && o.OrderStatus != from {
		return nil, repository.ErrStaleState
	}
	if patch.OrderStatus != nil {
		o.OrderStatus = *patch.OrderStatus
	}
	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
	o.UpdatedAt = time.Now().UTC()
	r.data[id] = o
	return &o, nil
}

func (r *fakeOrderRepo) Stats(_ context.Context, rng models.DateRange) (*models.OrderStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.OrderStats{OrdersByStatus: []models.StatusCount{}}
	counts := map[models.OrderStatus]int64{}
	for _, o := range r.data {
		if !inRange(o.CreatedAt, rng) {
			continue
		}
		stats.TotalOrders++
		stats.TotalRevenue += o.Total
		counts[o.OrderStatus]++
	}
	for status, n := range counts {
		stats.OrdersByStatus = append(stats.OrdersByStatus, models.StatusCount{Status: status, Count: n})
	}
	sort.Slice(stats.OrdersByStatus, func(i, j int) bool {
		return stats.OrdersByStatus[i].Status < stats.OrdersByStatus[j].Status
	})
	return stats, nil
}

type fakeSequenceRepo struct {
	mu  sync.Mutex
	seq map[string]int64
}

func (r *fakeSequenceRepo) Next(_ context.Context, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seq == nil {
		r.seq = map[string]int64{}
	}
	r.seq[name]++
	return r.seq[name], nil
}

type capturedEvents struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (c *capturedEvents) Publish(_ context.Context, evt models.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturedEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

// retryingUnitOfWork runs fn once to completion, aborts it, and runs it again,
// the way a Mongo transaction behaves after a transient commit error.
type retryingUnitOfWork struct {
	inner repository.UnitOfWork
}

var errTransientCommit = errors.New("transient commit error")

func (u retryingUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_ = u.inner.Do(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return errTransientCommit
	})
	return u.inner.Do(ctx, fn)
}

// staleOrderRepo serves one stale copy of an order before falling through to
// the live store.
type staleOrderRepo struct {
	*fakeOrderRepo
	mu    sync.Mutex
	stale *models.Order
}

func (r *staleOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	stale := r.stale
	r.stale = nil
	r.mu.Unlock()
	if stale != nil && stale.ID == id {
		return stale, nil
	}
	return r.fakeOrderRepo.FindByID(ctx, id)
}

func (c *capturedEvents) count(eventType string) int {
	n := 0
	for _, t := range c.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

// staleProductRepo serves one stale copy of a product before falling through
// to the live store.
type staleProductRepo struct {
	*fakeProductRepo
	mu    sync.Mutex
	stale *models.Product
}

func (r *staleProductRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.Lock()
	stale := r.stale
	r.stale = nil
	r.mu.Unlock()
	if stale != nil && stale.ID == id {
		return stale, nil
	}
	return r.fakeProductRepo.FindByID(ctx, id)
}
