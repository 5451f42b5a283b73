package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// HTTP metrics
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"
)

// Marketplace metrics
const (
	MetricOrdersCreated   = "OrdersCreated"
	MetricOrdersApproved  = "OrdersApproved"
	MetricOrdersCancelled = "OrdersCancelled"
	MetricOrdersRejected  = "OrdersRejected"
	MetricOrdersFailed    = "OrdersFailed"
	MetricOrderRevenue    = "OrderRevenue"
	MetricProductsCreated = "ProductsCreated"
	MetricInventoryLow    = "InventoryLowStock"
	MetricStockRestocked  = "StockRestocked"
	MetricPaymentUpdates  = "PaymentStatusUpdates"
)

type metricsAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsClient publishes datapoints to one CloudWatch namespace. A nil
// client accepts every call and sends nothing.
type MetricsClient struct {
	api       metricsAPI
	namespace string
	service   string
}

func NewMetricsClient(cfg aws.Config, namespace, service string) *MetricsClient {
	return newMetricsClient(cloudwatch.NewFromConfig(cfg), namespace, service)
}

func newMetricsClient(api metricsAPI, namespace, service string) *MetricsClient {
	if namespace == "" {
		namespace = "GourmetMarketplace"
	}
	return &MetricsClient{api: api, namespace: namespace, service: service}
}

func (m *MetricsClient) put(ctx context.Context, name string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	if m == nil {
		return nil
	}
	_, err := m.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{{
			MetricName: aws.String(name),
			Value:      aws.Float64(value),
			Unit:       unit,
			Timestamp:  aws.Time(time.Now()),
			Dimensions: m.dimensions(dimensions),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to put metric %s: %w", name, err)
	}
	return nil
}

// dimensions always carries Service and is sorted so datapoints with the same
// labels aggregate together.
func (m *MetricsClient) dimensions(extra map[string]string) []types.Dimension {
	dims := make([]types.Dimension, 0, len(extra)+1)
	if m.service != "" {
		dims = append(dims, types.Dimension{Name: aws.String("Service"), Value: aws.String(m.service)})
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if k != "Service" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(extra[k])})
	}
	return dims
}

func (m *MetricsClient) RecordCount(ctx context.Context, name string, dimensions map[string]string) error {
	return m.put(ctx, name, 1, types.StandardUnitCount, dimensions)
}

func (m *MetricsClient) RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error {
	return m.put(ctx, name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

func (m *MetricsClient) RecordValue(ctx context.Context, name string, value float64, dimensions map[string]string) error {
	return m.put(ctx, name, value, types.StandardUnitNone, dimensions)
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil
}
