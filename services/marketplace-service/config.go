package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "github.com/gourmetmarketplace/backend/pkg/aws"
)

// Config holds all environment variables for the marketplace service.
type Config struct {
	Port        string
	Environment string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool
	RedisURL          string

	JWTSecret string
	JWTTTL    time.Duration

	KafkaBrokers      []string
	KafkaOrderTopic   string
	KafkaPaymentTopic string
	KafkaGroupID      string

	SNSTopicARN       string
	PaymentQueueURL   string
	S3Bucket          string
	S3Prefix          string
	CloudFrontDomain  string
	CloudWatchEnabled bool
	MetricsNamespace  string
	LogGroup          string
	AWSUseSecrets     bool

	RateLimitPerMinute int
	AllowedOrigins     []string
}

// Secret names read when AWS_USE_SECRETS=true.
const (
	secretJWT   = "marketplace/JWT_SECRET"
	secretMongo = "marketplace/MONGODB_URI"
)

// LoadConfig loads environment variables into Config and validates them.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:            getEnv("MONGODB_DB", "gourmet_marketplace"),
		MongoTransactions:  getBool("MONGO_TRANSACTIONS", false),
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTTTL:             getDuration("JWT_TTL", 24*time.Hour),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:    getEnv("KAFKA_ORDER_TOPIC", "marketplace.orders"),
		KafkaPaymentTopic:  getEnv("KAFKA_PAYMENT_TOPIC", "payment.events"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "marketplace-service"),
		SNSTopicARN:        os.Getenv("SNS_TOPIC_ARN"),
		PaymentQueueURL:    os.Getenv("PAYMENT_EVENTS_QUEUE_URL"),
		S3Bucket:           os.Getenv("AWS_S3_BUCKET"),
		S3Prefix:           getEnv("AWS_S3_PREFIX", "uploads"),
		CloudFrontDomain:   os.Getenv("AWS_CLOUDFRONT_DOMAIN"),
		CloudWatchEnabled:  getBool("CLOUDWATCH_ENABLED", false),
		MetricsNamespace:   getEnv("CLOUDWATCH_NAMESPACE", "GourmetMarketplace"),
		LogGroup:           os.Getenv("CLOUDWATCH_LOG_GROUP"),
		AWSUseSecrets:      getBool("AWS_USE_SECRETS", false),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 100),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	if cfg.JWTSecret == "" && !cfg.AWSUseSecrets {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// ApplySecrets overrides JWT_SECRET and MONGODB_URI from the secret store.
// Missing secrets keep the environment values.
func (c *Config) ApplySecrets(ctx context.Context, sm awspkg.SecretGetter) error {
	if v, err := sm.GetSecret(ctx, secretJWT); err == nil && v != "" {
		c.JWTSecret = v
	}
	if v, err := sm.GetSecret(ctx, secretMongo); err == nil && v != "" {
		c.MongoURI = v
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// ImageBaseURL is where uploaded images are served from. Empty means the
// bucket URL.
func (c *Config) ImageBaseURL() string {
	if c.CloudFrontDomain == "" {
		return ""
	}
	if strings.HasPrefix(c.CloudFrontDomain, "http") {
		return c.CloudFrontDomain
	}
	return "https://" + c.CloudFrontDomain
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// needsAWS reports whether any AWS-backed integration is configured.
func (c *Config) needsAWS() bool {
	return c.AWSUseSecrets || c.CloudWatchEnabled || c.SNSTopicARN != "" ||
		c.PaymentQueueURL != "" || c.S3Bucket != ""
}
