// Command create-admin provisions the first back-office account.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/gourmetmarketplace/backend/services/common/auth"
	"github.com/gourmetmarketplace/backend/services/common/logger"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/database"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	logger.Initialize(os.Getenv("ENVIRONMENT"))
	defer func() { _ = logger.Log.Sync() }()

	var mongoURI, dbName, username, password, email string
	flag.StringVar(&mongoURI, "mongo", envOr("MONGODB_URI", "mongodb://localhost:27017"), "MongoDB URI")
	flag.StringVar(&dbName, "db", envOr("MONGODB_DB", "gourmet_marketplace"), "MongoDB database name")
	flag.StringVar(&username, "username", envOr("ADMIN_USERNAME", "admin"), "admin username")
	flag.StringVar(&password, "password", envOr("ADMIN_PASSWORD", "admin123"), "admin password")
	flag.StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "admin email")
	flag.Parse()

	if err := database.ConnectWithConfig(mongoURI, dbName); err != nil {
		logger.Log.Fatal("MongoDB connection failed", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureIndexes(ctx, database.DB); err != nil {
		logger.Log.Fatal("Failed to ensure indexes", zap.Error(err))
	}

	// Token issuing is never reached by EnsureAdmin.
	svc := services.NewAuthService(
		repository.NewAdminRepository(database.DB),
		auth.NewTokenManager(os.Getenv("JWT_SECRET"), time.Hour),
		logger.Log,
	)
	created, err := svc.EnsureAdmin(ctx, username, password, email)
	if err != nil {
		logger.Log.Fatal("Failed to create admin", zap.Error(err))
	}
	if !created {
		logger.Log.Info("Admin already exists", zap.String("username", username))
		return
	}
	logger.Log.Info("Admin created", zap.String("username", username))
	if password == "admin123" {
		logger.Log.Warn("Default password in use, change it after first login")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
