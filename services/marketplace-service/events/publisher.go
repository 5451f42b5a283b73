package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	awspkg "github.com/gourmetmarketplace/backend/pkg/aws"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.uber.org/zap"
)

// Publisher delivers domain events. Delivery is best-effort: callers log a
// failure and carry on, the write that produced the event already committed.
type Publisher interface {
	Publish(ctx context.Context, evt models.DomainEvent) error
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, key string, payload interface{}) models.DomainEvent {
	return models.DomainEvent{Type: eventType, Key: key, Payload: payload, Timestamp: time.Now().UTC()}
}

type keyedWriter interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaPublisher writes events keyed by aggregate id.
type KafkaPublisher struct {
	producer keyedWriter
}

func NewKafkaPublisher(producer keyedWriter) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt models.DomainEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.producer.Publish(ctx, evt.Key, data, map[string]string{"event_type": evt.Type})
}

// SNSPublisher fans events out through a topic with an event_type attribute
// subscribers can filter on.
type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, evt models.DomainEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.client.Publish(ctx, p.topicArn, data, map[string]string{
		"event_type":            evt.Type,
		awspkg.AttrMessageGroup: evt.Key,
	})
}

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt models.DomainEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nop struct{}

func (nop) Publish(context.Context, models.DomainEvent) error { return nil }

// Nop discards events.
var Nop Publisher = nop{}

// Emit publishes evt on a detached context and logs failures.
func Emit(ctx context.Context, p Publisher, logger *zap.Logger, evt models.DomainEvent) {
	if p == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.Publish(pubCtx, evt); err != nil {
		logger.Warn("Failed to publish event", zap.String("type", evt.Type), zap.String("key", evt.Key), zap.Error(err))
		return
	}
	logger.Debug("Event published", zap.String("type", evt.Type), zap.String("key", evt.Key))
}
