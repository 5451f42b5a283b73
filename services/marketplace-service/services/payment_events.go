package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PaymentEventHandler applies payment outcomes published by the payment side
// to an order's paymentStatus. It serves both the SQS and the Kafka intake.
type PaymentEventHandler struct {
	orders OrderService
	logger *zap.Logger
}

func NewPaymentEventHandler(orders OrderService, logger *zap.Logger) *PaymentEventHandler {
	return &PaymentEventHandler{orders: orders, logger: logger}
}

// HandleSQS accepts raw queue bodies, unwrapping an SNS envelope if present.
// Malformed messages are dropped so they are not redelivered forever.
func (h *PaymentEventHandler) HandleSQS(ctx context.Context, body string) error {
	var envelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}
	return h.handle(ctx, []byte(body))
}

// HandleKafka accepts a message value.
func (h *PaymentEventHandler) HandleKafka(ctx context.Context, value []byte) error {
	return h.handle(ctx, value)
}

func (h *PaymentEventHandler) handle(ctx context.Context, raw []byte) error {
	var evt models.PaymentEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		h.logger.Warn("Dropping invalid payment event", zap.Error(err), zap.ByteString("payload", raw))
		return nil
	}
	if evt.Type == "" || (evt.OrderID == "" && evt.OrderNumber == "") {
		h.logger.Warn("Dropping payment event with missing fields",
			zap.String("type", evt.Type), zap.String("order_id", evt.OrderID))
		return nil
	}
	return h.Apply(ctx, evt)
}

// Apply maps the event type onto a payment status and updates the order.
// Unknown types and failures are logged; failed payments leave the order as is.
func (h *PaymentEventHandler) Apply(ctx context.Context, evt models.PaymentEvent) error {
	var status models.PaymentStatus
	switch evt.Type {
	case models.PaymentEventSucceeded:
		status = models.PaymentPaid
	case models.PaymentEventPartial:
		status = models.PaymentPartial
	case models.PaymentEventRefunded:
		status = models.PaymentRefunded
	case models.PaymentEventFailed:
		h.logger.Warn("Payment failed", zap.String("order_id", evt.OrderID), zap.String("payment_id", evt.PaymentID))
		return nil
	default:
		h.logger.Warn("Unknown payment event type", zap.String("type", evt.Type))
		return nil
	}

	orderID, err := h.resolveOrder(ctx, evt)
	if err != nil {
		return h.dropOrRetry(evt, err)
	}
	if _, err := h.orders.Update(ctx, orderID, &models.UpdateOrderRequest{PaymentStatus: &status}); err != nil {
		return h.dropOrRetry(evt, err)
	}

	h.logger.Info("Order payment status updated",
		zap.String("order_id", orderID), zap.String("payment_status", string(status)))
	return nil
}

func (h *PaymentEventHandler) resolveOrder(ctx context.Context, evt models.PaymentEvent) (string, error) {
	if _, err := primitive.ObjectIDFromHex(evt.OrderID); err == nil {
		return evt.OrderID, nil
	}
	number := evt.OrderNumber
	if number == "" {
		number = evt.OrderID
	}
	order, err := h.orders.GetByNumber(ctx, number)
	if err != nil {
		return "", err
	}
	return order.ID.Hex(), nil
}

// dropOrRetry returns client-class errors as nil so the message is discarded,
// and anything else so the queue redelivers it. A lost status race is retried.
func (h *PaymentEventHandler) dropOrRetry(evt models.PaymentEvent, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Code < 500 && !errors.Is(err, repository.ErrStaleState) {
		h.logger.Warn("Discarding payment event", zap.String("order_id", evt.OrderID),
			zap.String("type", evt.Type), zap.String("reason", appErr.Message))
		return nil
	}
	return fmt.Errorf("apply payment event for order %s: %w", evt.OrderID, err)
}
