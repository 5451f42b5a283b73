package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message value. A returned error leaves the
// offset uncommitted and the message is handed to the handler again after a
// backoff. Handlers should return nil for messages they can never process.
type MessageHandler func(ctx context.Context, value []byte) error

const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = time.Second
	maxRetryDelay      = 30 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group.
type Consumer struct {
	reader messageReader
	topic  string
	group  string
	logger *zap.Logger

	maxAttempts int
	retryDelay  time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	logger.Info("Kafka consumer initialized", zap.String("topic", topic), zap.String("group", groupID))
	return &Consumer{
		reader:      r,
		topic:       topic,
		group:       groupID,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle MessageHandler) error {
	c.logger.Info("Kafka consumer listening", zap.String("topic", c.topic), zap.String("group", c.group))
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			c.logger.Error("Kafka fetch failed", zap.String("topic", c.topic), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
			continue
		}

		if err := c.process(ctx, m, handle); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("Kafka commit failed", zap.String("topic", c.topic), zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// process hands m to the handler until it succeeds or the attempts run out.
// Only a cancelled ctx is returned; the message is then left uncommitted for
// the next group member.
func (c *Consumer) process(ctx context.Context, m kafka.Message, handle MessageHandler) error {
	attempts := c.maxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	delay := c.retryDelay

	for attempt := 1; ; attempt++ {
		err := handle(ctx, m.Value)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= attempts {
			c.logger.Error("Kafka message dropped after retries",
				zap.String("topic", c.topic), zap.Int64("offset", m.Offset),
				zap.Int("attempts", attempt), zap.Error(err))
			return nil
		}
		c.logger.Warn("Kafka message handler failed, retrying",
			zap.String("topic", c.topic), zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt), zap.Duration("backoff", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (c *Consumer) Close() error {
	c.logger.Info("Closing Kafka consumer", zap.String("topic", c.topic), zap.String("group", c.group))
	return c.reader.Close()
}
