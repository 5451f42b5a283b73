package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	awspkg "github.com/gourmetmarketplace/backend/pkg/aws"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/events"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OrderSequence names the counter behind order numbers.
const OrderSequence = "orders"

type OrderService interface {
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.OrderView, error)
	// CreateForCustomer finds the customer by phone, registering them if new.
	CreateForCustomer(ctx context.Context, req *models.CustomerOrderRequest) (*models.OrderView, error)
	List(ctx context.Context, q models.OrderQuery) ([]models.OrderView, int64, error)
	Get(ctx context.Context, id string) (*models.OrderView, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.OrderView, error)
	ListByPhone(ctx context.Context, phone string) ([]models.OrderView, error)
	Approve(ctx context.Context, id string) (*models.OrderView, error)
	Reject(ctx context.Context, id, reason string) (*models.OrderView, error)
	Cancel(ctx context.Context, id string) (*models.OrderView, error)
	Update(ctx context.Context, id string, req *models.UpdateOrderRequest) (*models.OrderView, error)
	Stats(ctx context.Context, r models.DateRange) (*models.OrderStats, error)
}

type orderServiceImpl struct {
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	inventory repository.InventoryRepository
	sequence  repository.SequenceRepository
	uow       repository.UnitOfWork
	ledger    stockLedger
	integ     Integrations
	metrics   recorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	inventory repository.InventoryRepository,
	sequence repository.SequenceRepository,
	uow repository.UnitOfWork,
	integ Integrations,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		orders:    orders,
		customers: customers,
		products:  products,
		inventory: inventory,
		sequence:  sequence,
		uow:       uow,
		ledger:    stockLedger{inventory: inventory, products: products},
		integ:     integ,
		metrics:   recorder{metrics: integ.Metrics, logger: logger},
		logger:    logger,
		now:       time.Now,
	}
}

// draft is a priced order that has passed every read-side check.
type draft struct {
	customer      *models.Customer
	newCustomer   bool
	items         []models.OrderItem
	subtotal      decimal.Decimal
	discount      decimal.Decimal
	tax           decimal.Decimal
	total         decimal.Decimal
	paymentMethod models.PaymentMethod
	paymentStatus models.PaymentStatus
	notes         string
}

func (s *orderServiceImpl) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.OrderView, error) {
	customerID, err := parseID(req.Customer, "customer")
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, notFound(err, "Customer not found")
	}

	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentPending
	}
	if !paymentStatus.Valid() {
		return nil, apperrors.Validation("Invalid payment status: %s", paymentStatus)
	}

	d, err := s.price(ctx, req.Items, req.Discount, req.Tax)
	if err != nil {
		return nil, err
	}
	d.customer = customer
	d.paymentMethod = req.PaymentMethod
	d.paymentStatus = paymentStatus
	d.notes = req.Notes
	return s.place(ctx, d)
}

func (s *orderServiceImpl) CreateForCustomer(ctx context.Context, req *models.CustomerOrderRequest) (*models.OrderView, error) {
	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	if name == "" || phone == "" {
		return nil, apperrors.Validation("Customer name and phone are required")
	}
	email, err := cleanEmail(req.CustomerEmail)
	if err != nil {
		return nil, err
	}

	d, err := s.price(ctx, req.Items, req.Discount, req.Tax)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByPhone(ctx, phone)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		now := s.now().UTC()
		customer = &models.Customer{Name: name, Phone: phone, Email: email, IsActive: true, CreatedAt: now, UpdatedAt: now}
		d.newCustomer = true
	case err != nil:
		return nil, err
	}

	d.customer = customer
	d.paymentMethod = req.PaymentMethod
	d.paymentStatus = models.PaymentPending
	d.notes = req.Notes
	return s.place(ctx, d)
}

// price resolves every line against the catalog and current stock. Repeated
// lines for one product are checked against their combined quantity.
func (s *orderServiceImpl) price(ctx context.Context, lines []models.OrderItemInput, discount, tax float64) (*draft, error) {
	if len(lines) == 0 {
		return nil, apperrors.Validation("Customer and items are required")
	}
	if discount < 0 || tax < 0 {
		return nil, apperrors.Validation("Discount and tax cannot be negative")
	}

	d := &draft{
		discount: decimal.NewFromFloat(discount),
		tax:      decimal.NewFromFloat(tax),
		subtotal: decimal.Zero,
	}
	requested := make(map[primitive.ObjectID]int, len(lines))

	for _, line := range lines {
		productID, err := parseID(line.Product, "product")
		if err != nil {
			return nil, err
		}
		if line.Quantity < 1 {
			return nil, apperrors.Validation("Quantity must be at least 1")
		}
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, notFound(err, fmt.Sprintf("Product with ID %s not found", line.Product))
		}
		if !product.IsActive {
			return nil, apperrors.Validation("Product %s is not active", product.Name)
		}

		requested[productID] += line.Quantity
		inv, err := s.inventory.FindByProduct(ctx, productID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if inv == nil || inv.AvailableQuantity < requested[productID] {
			return nil, apperrors.Validation("Insufficient stock for %s", product.Name)
		}

		price := decimal.NewFromFloat(product.Price)
		lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		d.subtotal = d.subtotal.Add(lineTotal)
		d.items = append(d.items, models.OrderItem{
			Product:     product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Unit:        product.Unit,
			Price:       product.Price,
			Subtotal:    money(lineTotal),
		})
	}

	d.total = d.subtotal.Sub(d.discount).Add(d.tax)
	if d.total.IsNegative() {
		return nil, apperrors.Validation("Discount cannot exceed the order subtotal plus tax")
	}
	return d, nil
}

// place writes the order and its side effects in one unit of work: stock is
// taken line by line with a conditional decrement, the customer's running
// totals move, and the order document is inserted last.
func (s *orderServiceImpl) place(ctx context.Context, d *draft) (*models.OrderView, error) {
	paymentMethod := d.paymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentCash
	}
	if !paymentMethod.Valid() {
		return nil, apperrors.Validation("Invalid payment method: %s", paymentMethod)
	}

	now := s.now().UTC()
	order := &models.Order{
		Items:         d.items,
		Subtotal:      money(d.subtotal),
		Discount:      money(d.discount),
		Tax:           money(d.tax),
		Total:         money(d.total),
		PaymentMethod: paymentMethod,
		PaymentStatus: d.paymentStatus,
		OrderStatus:   models.OrderPending,
		Notes:         d.notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var touched []*models.Inventory
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		touched = touched[:0]
		if d.newCustomer {
			if err := s.customers.Create(ctx, d.customer); err != nil {
				return err
			}
			repository.OnRollback(ctx, "customer.create", func(ctx context.Context) error {
				return s.customers.Delete(ctx, d.customer.ID)
			})
		}
		order.Customer = d.customer.ID

		seq, err := s.sequence.Next(ctx, OrderSequence)
		if err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		order.OrderNumber = fmt.Sprintf("ORD-%d-%04d", now.UnixMilli(), seq)

		for _, item := range order.Items {
			inv, err := s.ledger.adjust(ctx, item.Product, -item.Quantity, models.StampSold)
			if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrNotFound) {
				return apperrors.Validation("Insufficient stock for %s", item.ProductName)
			}
			if err != nil {
				return err
			}
			touched = append(touched, inv)
		}

		if err := s.customers.AddOrderStats(ctx, order.Customer, 1, order.Total); err != nil {
			return err
		}
		repository.OnRollback(ctx, "customer.stats", func(ctx context.Context) error {
			return s.customers.AddOrderStats(ctx, order.Customer, -1, -order.Total)
		})

		return s.orders.Create(ctx, order)
	})
	if err != nil {
		s.metrics.count(awspkg.MetricOrdersFailed, nil)
		if errors.Is(err, repository.ErrDuplicate) && d.newCustomer {
			return nil, apperrors.Validation("Customer with this phone number already exists")
		}
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total),
		zap.Int("items", len(order.Items)))
	s.metrics.count(awspkg.MetricOrdersCreated, map[string]string{"PaymentMethod": string(order.PaymentMethod)})
	s.metrics.value(awspkg.MetricOrderRevenue, order.Total, nil)
	s.afterStockChange(ctx, touched)
	s.publish(ctx, models.EventOrderCreated, order, "")

	return s.view(ctx, order)
}

func (s *orderServiceImpl) List(ctx context.Context, q models.OrderQuery) ([]models.OrderView, int64, error) {
	if q.OrderStatus != nil && !q.OrderStatus.Valid() {
		return nil, 0, apperrors.Validation("Invalid order status: %s", *q.OrderStatus)
	}
	if q.PaymentStatus != nil && !q.PaymentStatus.Valid() {
		return nil, 0, apperrors.Validation("Invalid payment status: %s", *q.PaymentStatus)
	}
	orders, total, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.views(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *orderServiceImpl) Get(ctx context.Context, id string) (*models.OrderView, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, order)
}

func (s *orderServiceImpl) GetByNumber(ctx context.Context, orderNumber string) (*models.OrderView, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFound(err, "Order not found")
	}
	return s.view(ctx, order)
}

// ListByPhone returns an empty list for an unknown phone.
func (s *orderServiceImpl) ListByPhone(ctx context.Context, phone string) ([]models.OrderView, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperrors.Validation("Phone number is required")
	}
	customer, err := s.customers.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return []models.OrderView{}, nil
	}
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.FindByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, orders)
}

func (s *orderServiceImpl) Approve(ctx context.Context, id string) (*models.OrderView, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OrderStatus != models.OrderPending {
		return nil, apperrors.Conflict("Cannot approve order with status: %s", order.OrderStatus)
	}

	confirmed := models.OrderConfirmed
	updated, err := s.orders.Patch(ctx, order.ID, models.OrderPending, repository.OrderPatch{OrderStatus: &confirmed})
	if err != nil {
		return nil, s.staleOr(ctx, err, order.ID, "approve")
	}

	s.logger.Info("Order approved", zap.String("order_id", id), zap.String("order_number", updated.OrderNumber))
	s.metrics.count(awspkg.MetricOrdersApproved, nil)
	s.publish(ctx, models.EventOrderApproved, updated, "")
	return s.view(ctx, updated)
}

// Reject cancels an order with a reason. Stock is released unless the order
// was already cancelled, in which case only the note is recorded.
func (s *orderServiceImpl) Reject(ctx context.Context, id, reason string) (*models.OrderView, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OrderStatus == models.OrderCompleted {
		return nil, apperrors.Conflict("Cannot reject a completed order")
	}

	patch := repository.OrderPatch{}
	if reason = strings.TrimSpace(reason); reason != "" {
		notes := order.Notes + fmt.Sprintf(" [Rejected: %s]", reason)
		patch.Notes = &notes
	}

	updated, touched, err := s.release(ctx, order, patch)
	if err != nil {
		return nil, s.staleOr(ctx, err, order.ID, "reject")
	}

	s.logger.Info("Order rejected", zap.String("order_id", id), zap.String("reason", reason))
	s.metrics.count(awspkg.MetricOrdersRejected, nil)
	s.afterStockChange(ctx, touched)
	s.publish(ctx, models.EventOrderRejected, updated, reason)
	return s.view(ctx, updated)
}

func (s *orderServiceImpl) Cancel(ctx context.Context, id string) (*models.OrderView, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cancellable(order.OrderStatus); err != nil {
		return nil, err
	}

	updated, touched, err := s.release(ctx, order, repository.OrderPatch{})
	if err != nil {
		return nil, s.staleOr(ctx, err, order.ID, "cancel")
	}

	s.logger.Info("Order cancelled", zap.String("order_id", id))
	s.metrics.count(awspkg.MetricOrdersCancelled, nil)
	s.afterStockChange(ctx, touched)
	s.publish(ctx, models.EventOrderCancelled, updated, "")
	return s.view(ctx, updated)
}

// Update applies a status change through the state machine; moving to
// cancelled releases stock exactly like Cancel.
func (s *orderServiceImpl) Update(ctx context.Context, id string, req *models.UpdateOrderRequest) (*models.OrderView, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := repository.OrderPatch{Notes: req.Notes}
	if req.PaymentStatus != nil {
		if !req.PaymentStatus.Valid() {
			return nil, apperrors.Validation("Invalid payment status: %s", *req.PaymentStatus)
		}
		patch.PaymentStatus = req.PaymentStatus
	}

	next := order.OrderStatus
	if req.OrderStatus != nil && *req.OrderStatus != order.OrderStatus {
		next = *req.OrderStatus
		if !next.Valid() {
			return nil, apperrors.Validation("Invalid order status: %s", next)
		}
		if !order.OrderStatus.CanTransition(next) {
			return nil, apperrors.Conflict("Cannot change order status from %s to %s", order.OrderStatus, next)
		}
	}

	var (
		updated *models.Order
		touched []*models.Inventory
	)
	if next == models.OrderCancelled && order.OrderStatus != models.OrderCancelled {
		updated, touched, err = s.release(ctx, order, patch)
	} else {
		// payment and notes edits do not depend on the status read
		var guard models.OrderStatus
		if next != order.OrderStatus {
			patch.OrderStatus = &next
			guard = order.OrderStatus
		}
		updated, err = s.orders.Patch(ctx, order.ID, guard, patch)
	}
	if err != nil {
		return nil, s.staleOr(ctx, err, order.ID, "update")
	}

	if req.PaymentStatus != nil && *req.PaymentStatus != order.PaymentStatus {
		s.metrics.count(awspkg.MetricPaymentUpdates, map[string]string{"PaymentStatus": string(*req.PaymentStatus)})
	}
	eventType := models.EventOrderUpdated
	if updated.OrderStatus == models.OrderCancelled && order.OrderStatus != models.OrderCancelled {
		eventType = models.EventOrderCancelled
		s.metrics.count(awspkg.MetricOrdersCancelled, nil)
	}
	s.afterStockChange(ctx, touched)
	s.publish(ctx, eventType, updated, "")
	return s.view(ctx, updated)
}

func (s *orderServiceImpl) Stats(ctx context.Context, r models.DateRange) (*models.OrderStats, error) {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return nil, apperrors.Validation("startDate must not be after endDate")
	}
	stats, err := s.orders.Stats(ctx, r)
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = money(decimal.NewFromFloat(stats.TotalRevenue))
	return stats, nil
}

// release moves an order to cancelled and returns its stock when the order
// still holds it. The status write is conditional on the status read, so two
// concurrent releases cannot both return stock.
func (s *orderServiceImpl) release(ctx context.Context, order *models.Order, patch repository.OrderPatch) (*models.Order, []*models.Inventory, error) {
	cancelled := models.OrderCancelled
	patch.OrderStatus = &cancelled
	from := order.OrderStatus

	var (
		updated *models.Order
		touched []*models.Inventory
	)
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		touched = touched[:0]
		var err error
		updated, err = s.orders.Patch(ctx, order.ID, from, patch)
		if err != nil {
			return err
		}
		repository.OnRollback(ctx, "order.status", func(ctx context.Context) error {
			_, err := s.orders.Patch(ctx, order.ID, cancelled, repository.OrderPatch{OrderStatus: &from, Notes: &order.Notes})
			return err
		})

		if !from.HoldsStock() {
			return nil
		}
		for _, item := range order.Items {
			inv, err := s.ledger.restore(ctx, item.Product, item.Quantity)
			if err != nil {
				return err
			}
			if inv == nil {
				s.logger.Warn("Skipping stock restore for missing product",
					zap.String("order_id", order.ID.Hex()), zap.String("product_id", item.Product.Hex()))
				continue
			}
			touched = append(touched, inv)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, touched, nil
}

func cancellable(status models.OrderStatus) error {
	switch status {
	case models.OrderCancelled:
		return apperrors.Conflict("Order is already cancelled")
	case models.OrderCompleted:
		return apperrors.Conflict("Cannot cancel a completed order")
	}
	return nil
}

// staleOr reports a lost race on the order status as a conflict against the
// status that won.
func (s *orderServiceImpl) staleOr(ctx context.Context, err error, id primitive.ObjectID, action string) error {
	if !errors.Is(err, repository.ErrStaleState) {
		return notFound(err, "Order not found")
	}
	current, findErr := s.orders.FindByID(ctx, id)
	if findErr != nil {
		return notFound(findErr, "Order not found")
	}
	conflict := apperrors.Conflict("Cannot %s order with status: %s", action, current.OrderStatus)
	conflict.Err = err
	return conflict
}

func (s *orderServiceImpl) find(ctx context.Context, id string) (*models.Order, error) {
	oid, err := parseID(id, "order")
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Order not found")
	}
	return order, nil
}

func (s *orderServiceImpl) afterStockChange(ctx context.Context, touched []*models.Inventory) {
	for _, inv := range touched {
		s.integ.Cache.InvalidateProduct(ctx, inv.Product.Hex())
		publishStockChange(ctx, s.integ.Events, s.metrics, s.logger, inv)
	}
}

func (s *orderServiceImpl) publish(ctx context.Context, eventType string, order *models.Order, reason string) {
	events.Emit(ctx, s.integ.Events, s.logger, events.NewEvent(eventType, order.ID.Hex(), models.OrderEventPayload{
		OrderID:       order.ID.Hex(),
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.Customer.Hex(),
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		Reason:        reason,
	}))
}

func (s *orderServiceImpl) view(ctx context.Context, order *models.Order) (*models.OrderView, error) {
	views, err := s.views(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views populates customer {id,name,phone,email}.
func (s *orderServiceImpl) views(ctx context.Context, orders []models.Order) ([]models.OrderView, error) {
	ids := make([]primitive.ObjectID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.Customer)
	}
	customers, err := s.customers.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.CustomerRef, len(customers))
	for _, c := range customers {
		byID[c.ID] = &models.CustomerRef{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}
	}

	out := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, models.OrderView{Order: o, CustomerInfo: byID[o.Customer]})
	}
	return out, nil
}
