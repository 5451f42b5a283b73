package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/gourmetmarketplace/backend/pkg/aws"
)

// MetricsRecorder is the part of awspkg.MetricsClient the middleware uses.
type MetricsRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// MetricsMiddleware records request count, latency and error class per route
// template. Datapoints are sent after the response is written.
func MetricsMiddleware(recorder MetricsRecorder) gin.HandlerFunc {
	if recorder == nil || !recorder.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		dims := map[string]string{
			"Method": c.Request.Method,
			"Route":  route,
			"Status": statusCodeToRange(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = recorder.RecordLatency(ctx, awspkg.MetricHTTPLatency, elapsed, dims)
			for _, name := range requestMetrics(status) {
				_ = recorder.RecordCount(ctx, name, dims)
			}
		}()
	}
}

// requestMetrics lists the counters one response increments.
func requestMetrics(status int) []string {
	names := []string{awspkg.MetricHTTPRequests}
	switch {
	case status >= 500:
		names = append(names, awspkg.MetricHTTPErrors, awspkg.MetricHTTP5xx)
	case status >= 400:
		names = append(names, awspkg.MetricHTTPErrors, awspkg.MetricHTTP4xx)
	}
	return names
}

func statusCodeToRange(status int) string {
	if status < 200 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
