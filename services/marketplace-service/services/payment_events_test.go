package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func placedOrder(t *testing.T, env *testEnv) *models.OrderView {
	t.Helper()
	cat := env.category(t, "sweets")
	p := env.product(t, cat, "Gulab Jamun", 250, 50)
	c := env.customer(t, "Ravi", "9876543210")
	o, err := env.orderSvc.Create(context.Background(), orderFor(c, line(p, 2)))
	require.NoError(t, err)
	return o
}

func paymentStatus(t *testing.T, env *testEnv, id string) models.PaymentStatus {
	t.Helper()
	o, err := env.orderSvc.Get(context.Background(), id)
	require.NoError(t, err)
	return o.PaymentStatus
}

func TestPaymentEvents_StatusMapping(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	order := placedOrder(t, env)
	h := NewPaymentEventHandler(env.orderSvc, zap.NewNop())

	require.NoError(t, h.Apply(ctx, models.PaymentEvent{Type: models.PaymentEventPartial, OrderID: order.ID.Hex()}))
	assert.Equal(t, models.PaymentPartial, paymentStatus(t, env, order.ID.Hex()))

	require.NoError(t, h.Apply(ctx, models.PaymentEvent{Type: models.PaymentEventSucceeded, OrderID: order.ID.Hex()}))
	assert.Equal(t, models.PaymentPaid, paymentStatus(t, env, order.ID.Hex()))

	require.NoError(t, h.Apply(ctx, models.PaymentEvent{Type: models.PaymentEventFailed, OrderID: order.ID.Hex()}))
	assert.Equal(t, models.PaymentPaid, paymentStatus(t, env, order.ID.Hex()))

	require.NoError(t, h.Apply(ctx, models.PaymentEvent{Type: "payment_disputed", OrderID: order.ID.Hex()}))
	assert.Equal(t, models.PaymentPaid, paymentStatus(t, env, order.ID.Hex()))

	_, err := env.orderSvc.Cancel(ctx, order.ID.Hex())
	require.NoError(t, err)
	require.NoError(t, h.Apply(ctx, models.PaymentEvent{Type: models.PaymentEventRefunded, OrderID: order.ID.Hex()}))
	assert.Equal(t, models.PaymentRefunded, paymentStatus(t, env, order.ID.Hex()))
}

func TestPaymentEvents_SQSEnvelopeByOrderNumber(t *testing.T) {
	env := newTestEnv(t)
	order := placedOrder(t, env)
	h := NewPaymentEventHandler(env.orderSvc, zap.NewNop())

	inner, err := json.Marshal(models.PaymentEvent{Type: models.PaymentEventSucceeded, OrderID: order.OrderNumber})
	require.NoError(t, err)
	envelope, err := json.Marshal(map[string]string{"Type": "Notification", "Message": string(inner)})
	require.NoError(t, err)

	require.NoError(t, h.HandleSQS(context.Background(), string(envelope)))
	assert.Equal(t, models.PaymentPaid, paymentStatus(t, env, order.ID.Hex()))
}

func TestPaymentEvents_KafkaValue(t *testing.T) {
	env := newTestEnv(t)
	order := placedOrder(t, env)
	h := NewPaymentEventHandler(env.orderSvc, zap.NewNop())

	value := fmt.Sprintf(`{"type":"payment_partial","order_id":"%s","amount":100}`, order.ID.Hex())
	require.NoError(t, h.HandleKafka(context.Background(), []byte(value)))
	assert.Equal(t, models.PaymentPartial, paymentStatus(t, env, order.ID.Hex()))
}

func TestPaymentEvents_DropsBadMessages(t *testing.T) {
	env := newTestEnv(t)
	h := NewPaymentEventHandler(env.orderSvc, zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, h.HandleKafka(ctx, []byte("not json")))
	assert.NoError(t, h.HandleKafka(ctx, []byte(`{"type":"payment_succeeded"}`)))
	assert.NoError(t, h.HandleKafka(ctx, []byte(`{"type":"payment_succeeded","order_id":"64b7f0c2a1b2c3d4e5f60718"}`)))
	assert.NoError(t, h.HandleSQS(ctx, `{"type":"payment_succeeded","order_id":"ORD-1-0001"}`))
}

type brokenOrders struct {
	OrderService
}

func (brokenOrders) Update(context.Context, string, *models.UpdateOrderRequest) (*models.OrderView, error) {
	return nil, errors.New("connection reset")
}

func TestPaymentEvents_StoreFailureIsRetried(t *testing.T) {
	h := NewPaymentEventHandler(brokenOrders{}, zap.NewNop())

	err := h.Apply(context.Background(), models.PaymentEvent{Type: models.PaymentEventSucceeded, OrderID: "64b7f0c2a1b2c3d4e5f60718"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPaymentEvents_StaleOrderReadStillRecordsPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	order := placedOrder(t, env)

	pending, err := env.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	_, err = env.orderSvc.Approve(ctx, order.ID.Hex())
	require.NoError(t, err)

	// the handler's read races the approval and sees the order still pending
	orders := &staleOrderRepo{fakeOrderRepo: env.orders, stale: pending}
	svc := NewOrderService(orders, env.customers, env.products, env.inventory, &fakeSequenceRepo{},
		repository.NewJournalUnitOfWork(zap.NewNop()), Integrations{Events: env.events}, zap.NewNop())
	h := NewPaymentEventHandler(svc, zap.NewNop())

	require.NoError(t, h.Apply(ctx, models.PaymentEvent{Type: models.PaymentEventSucceeded, OrderID: order.ID.Hex()}))

	current, err := env.orderSvc.Get(ctx, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, current.PaymentStatus)
	assert.Equal(t, models.OrderConfirmed, current.OrderStatus)
}

type racedOrders struct {
	OrderService
}

func (racedOrders) Update(context.Context, string, *models.UpdateOrderRequest) (*models.OrderView, error) {
	conflict := apperrors.Conflict("Cannot update order with status: %s", models.OrderConfirmed)
	conflict.Err = repository.ErrStaleState
	return nil, conflict
}

func TestPaymentEvents_LostStatusRaceIsRetried(t *testing.T) {
	h := NewPaymentEventHandler(racedOrders{}, zap.NewNop())

	err := h.Apply(context.Background(), models.PaymentEvent{Type: models.PaymentEventSucceeded, OrderID: "64b7f0c2a1b2c3d4e5f60718"})

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStaleState)
}
