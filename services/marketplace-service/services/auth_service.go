package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gourmetmarketplace/backend/services/common/auth"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID, username, role string) (string, time.Time, error)
}

var _ TokenIssuer = (*auth.TokenManager)(nil)

type AuthService interface {
	Login(ctx context.Context, req *models.AdminLoginRequest) (*models.LoginResult, error)
	// EnsureAdmin creates the account unless the username is taken and
	// reports whether it did.
	EnsureAdmin(ctx context.Context, username, password, email string) (bool, error)
}

type authServiceImpl struct {
	admins repository.AdminRepository
	tokens TokenIssuer
	logger *zap.Logger
}

func NewAuthService(admins repository.AdminRepository, tokens TokenIssuer, logger *zap.Logger) AuthService {
	return &authServiceImpl{admins: admins, tokens: tokens, logger: logger}
}

func (s *authServiceImpl) Login(ctx context.Context, req *models.AdminLoginRequest) (*models.LoginResult, error) {
	admin, err := s.admins.FindByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !admin.IsActive {
		return nil, apperrors.Unauthorized("Account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		s.logger.Warn("Failed admin login", zap.String("username", admin.Username))
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	token, expiresAt, err := s.tokens.Issue(admin.ID.Hex(), admin.Username, admin.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.admins.TouchLogin(ctx, admin.ID, now); err != nil {
		s.logger.Warn("Failed to record last login", zap.String("admin_id", admin.ID.Hex()), zap.Error(err))
	} else {
		admin.LastLogin = &now
	}

	s.logger.Info("Admin logged in", zap.String("admin_id", admin.ID.Hex()))
	return &models.LoginResult{Token: token, ExpiresAt: expiresAt, Admin: admin}, nil
}

func (s *authServiceImpl) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return false, apperrors.Validation("username and password are required")
	}

	_, err := s.admins.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now().UTC()
	admin := &models.Admin{
		Username:  username,
		Password:  string(hashed),
		Email:     models.NormalizeEmail(email),
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("Admin account created", zap.String("username", username))
	return true, nil
}
