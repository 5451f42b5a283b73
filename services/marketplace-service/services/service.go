package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// BusinessMetrics is satisfied by the CloudWatch metrics client.
type BusinessMetrics interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

// recorder sends business metrics off the request path.
type recorder struct {
	metrics BusinessMetrics
	logger  *zap.Logger
}

func (r recorder) count(name string, dims map[string]string) {
	r.send(name, func(ctx context.Context) error { return r.metrics.RecordCount(ctx, name, dims) })
}

func (r recorder) value(name string, v float64, dims map[string]string) {
	r.send(name, func(ctx context.Context) error { return r.metrics.RecordValue(ctx, name, v, dims) })
}

func (r recorder) send(name string, fn func(ctx context.Context) error) {
	if r.metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.logger.Debug("Failed to record metric", zap.String("metric", name), zap.Error(err))
		}
	}()
}

func parseID(id, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("Invalid %s ID", what)
	}
	return oid, nil
}

// notFound maps repository.ErrNotFound to a 404 with msg and passes other errors through.
func notFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("%s", msg)
	}
	return err
}

// money rounds to two decimal places.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
