package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It discards everything until Initialize runs.
var Log = zap.NewNop()

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// Incoming ids are echoed into logs and headers, so only short opaque tokens pass.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type ctxKey struct{}

// Initialize builds Log for env ("production" gives JSON, anything else a
// colored console). LOG_LEVEL overrides the default level.
func Initialize(env string) {
	InitializeWithWriter(env, nil)
}

// InitializeWithWriter is Initialize plus a JSON copy of every entry sent to w.
func InitializeWithWriter(env string, w io.Writer) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if lvl, err := zapcore.ParseLevel(raw); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	built, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if w != nil {
		remote := cfg.EncoderConfig
		remote.EncodeLevel = zapcore.LowercaseLevelEncoder
		shipped := zapcore.NewCore(zapcore.NewJSONEncoder(remote), zapcore.AddSync(w), cfg.Level)
		built = built.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, shipped)
		}))
	}

	Log = built
	zap.ReplaceGlobals(Log)
}

// RequestID assigns every request an id, reusing a well-formed X-Request-ID
// from the caller, and stores it on both the gin and the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// For returns l tagged with the request id carried by ctx. A nil l means Log.
func For(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = Log
	}
	return l.With(zap.String(RequestIDKey, RequestIDFrom(ctx)))
}

// RequestIDFrom returns the request id carried by ctx, or "unknown".
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if gc, ok := ctx.(*gin.Context); ok {
		if id := gc.GetString(RequestIDKey); id != "" {
			return id
		}
		if gc.Request == nil {
			return "unknown"
		}
		ctx = gc.Request.Context()
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}
