package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	awspkg "github.com/gourmetmarketplace/backend/pkg/aws"
	"github.com/gourmetmarketplace/backend/services/common/auth"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/common/logger"
	commonmw "github.com/gourmetmarketplace/backend/services/common/middleware"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/cache"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/controllers"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/database"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/events"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/kafka"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/routes"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
)

const serviceName = "marketplace-service"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger.Initialize(cfg.Environment)
	defer func() { _ = logger.Log.Sync() }()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- 1. AWS ---
	var awsCfg *aws.Config
	if cfg.needsAWS() {
		loaded, err := awspkg.LoadAWSConfig(rootCtx)
		if err != nil {
			logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		awsCfg = &loaded
	}

	if cfg.AWSUseSecrets {
		if err := cfg.ApplySecrets(rootCtx, awspkg.NewSecretsClient(*awsCfg)); err != nil {
			logger.Log.Fatal("Failed to load secrets", zap.Error(err))
		}
	}

	var logShipper *awspkg.LogShipper
	if cfg.CloudWatchEnabled {
		shipper, err := awspkg.NewLogShipper(rootCtx, *awsCfg, cfg.LogGroup, serviceName)
		if err != nil {
			logger.Log.Warn("CloudWatch Logs unavailable, logging to stdout only", zap.Error(err))
		} else {
			logShipper = shipper
			logger.InitializeWithWriter(cfg.Environment, shipper)
		}
	}
	log := logger.Log.With(zap.String("service", serviceName))

	var metrics *awspkg.MetricsClient
	if cfg.CloudWatchEnabled {
		metrics = awspkg.NewMetricsClient(*awsCfg, cfg.MetricsNamespace, serviceName)
	}

	// --- 2. Stores ---
	if err := database.ConnectWithConfig(cfg.MongoURI, cfg.MongoDB); err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	indexCtx, cancelIdx := context.WithTimeout(rootCtx, 30*time.Second)
	if err := database.EnsureIndexes(indexCtx, database.DB); err != nil {
		log.Warn("Failed to ensure indexes", zap.Error(err))
	}
	cancelIdx()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(rootCtx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, catalog cache disabled", zap.Error(err))
		}
	}
	cacheManager := cache.NewCacheManager(redisClient, cache.DefaultTTL, log)

	categoryRepo := repository.NewCategoryRepository(database.DB)
	productRepo := repository.NewProductRepository(database.DB)
	inventoryRepo := repository.NewInventoryRepository(database.DB)
	customerRepo := repository.NewCustomerRepository(database.DB)
	orderRepo := repository.NewOrderRepository(database.DB)
	sequenceRepo := repository.NewSequenceRepository(database.DB)
	adminRepo := repository.NewAdminRepository(database.DB)
	uow := repository.NewUnitOfWork(database.MongoClient, cfg.MongoTransactions, log)

	// --- 3. Events ---
	var publishers events.Multi
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
		publishers = append(publishers, events.NewKafkaPublisher(producer))
	}
	if cfg.SNSTopicARN != "" {
		publishers = append(publishers, events.NewSNSPublisher(awspkg.NewSNSClient(*awsCfg), cfg.SNSTopicARN))
	}

	integ := services.Integrations{
		Cache:       cacheManager,
		Events:      publishers,
		ImagePrefix: cfg.S3Prefix,
	}
	if metrics != nil {
		integ.Metrics = metrics
	}
	if cfg.S3Bucket != "" {
		integ.Presigner = awspkg.NewS3Presigner(*awsCfg, cfg.S3Bucket, cfg.ImageBaseURL())
	}

	// --- 4. Services ---
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	categoryService := services.NewCategoryService(categoryRepo, integ, log)
	productService := services.NewProductService(categoryRepo, productRepo, inventoryRepo, uow, integ, log)
	inventoryService := services.NewInventoryService(inventoryRepo, productRepo, uow, integ, log)
	customerService := services.NewCustomerService(customerRepo, log)
	orderService := services.NewOrderService(orderRepo, customerRepo, productRepo, inventoryRepo, sequenceRepo, uow, integ, log)
	authService := services.NewAuthService(adminRepo, tokens, log)
	paymentHandler := services.NewPaymentEventHandler(orderService, log)

	// --- 5. Background consumers ---
	var workers sync.WaitGroup
	if cfg.PaymentQueueURL != "" {
		consumer := awspkg.NewSQSConsumer(*awsCfg, cfg.PaymentQueueURL, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := consumer.StartPolling(rootCtx, paymentHandler.HandleSQS); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Payment queue consumer stopped", zap.Error(err))
			}
		}()
	}
	var paymentConsumer *kafka.Consumer
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaPaymentTopic != "" {
		paymentConsumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaPaymentTopic, cfg.KafkaGroupID, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := paymentConsumer.Run(rootCtx, paymentHandler.HandleKafka); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Payment topic consumer stopped", zap.Error(err))
			}
		}()
	}

	// --- 6. HTTP ---
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	controllers.RegisterValidators()

	checks := map[string]controllers.Pinger{
		"mongodb": func(ctx context.Context) error { return database.MongoClient.Ping(ctx, nil) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(commonmw.RequestLogger(log, "/api/v1/health"))
	r.Use(apperrors.ErrorMiddleware(log))
	r.Use(commonmw.SecurityHeaders(cfg.Environment == "production"))
	r.Use(commonmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(commonmw.RateLimitMiddleware(rootCtx, cfg.RateLimitPerMinute, 50))
	r.Use(commonmw.MetricsMiddleware(metrics))
	r.Use(commonmw.Timeout(30 * time.Second))

	routes.RegisterRoutes(r, routes.Controllers{
		Health:    controllers.NewHealthController(checks),
		Auth:      controllers.NewAuthController(authService, cfg.Environment == "production"),
		Category:  controllers.NewCategoryController(categoryService),
		Product:   controllers.NewProductController(productService),
		Inventory: controllers.NewInventoryController(inventoryService),
		Customer:  controllers.NewCustomerController(customerService),
		Order:     controllers.NewOrderController(orderService),
	}, tokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Marketplace Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- 7. Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down Marketplace Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	stop()
	workers.Wait()
	cacheManager.Wait()

	if paymentConsumer != nil {
		if err := paymentConsumer.Close(); err != nil {
			log.Error("Failed to close Kafka consumer", zap.Error(err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	if err := database.Close(); err != nil {
		log.Error("Failed to close MongoDB", zap.Error(err))
	}

	log.Info("Marketplace Service stopped gracefully")
	if logShipper != nil {
		flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelFlush()
		_ = logger.Log.Sync()
		if err := logShipper.Close(flushCtx); err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch Logs flush incomplete: %v\n", err)
		}
	}
}
