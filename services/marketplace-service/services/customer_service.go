package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type CustomerService interface {
	// Create is the admin path; only the phone must be unique.
	Create(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, error)
	// Register is the public path; phone and email must both be unused.
	Register(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, error)
	List(ctx context.Context, q models.CustomerQuery) ([]models.Customer, int64, error)
	Get(ctx context.Context, id string) (*models.Customer, error)
	Update(ctx context.Context, id string, req *models.UpdateCustomerRequest) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
}

type customerServiceImpl struct {
	repo   repository.CustomerRepository
	logger *zap.Logger
}

func NewCustomerService(repo repository.CustomerRepository, logger *zap.Logger) CustomerService {
	return &customerServiceImpl{repo: repo, logger: logger}
}

func (s *customerServiceImpl) Create(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, error) {
	return s.create(ctx, req, false)
}

func (s *customerServiceImpl) Register(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, error) {
	return s.create(ctx, req, true)
}

func (s *customerServiceImpl) create(ctx context.Context, req *models.CreateCustomerRequest, uniqueEmail bool) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, apperrors.Validation("Name and phone are required")
	}
	email, err := cleanEmail(req.Email)
	if err != nil {
		return nil, err
	}

	if err := s.ensurePhoneFree(ctx, phone, primitive.NilObjectID); err != nil {
		return nil, err
	}
	if uniqueEmail {
		if err := s.ensureEmailFree(ctx, email, primitive.NilObjectID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	customer := &models.Customer{
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   models.Address{}.Merge(req.Address),
		IsActive:  boolOr(req.IsActive, true),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("Customer with this phone number already exists")
		}
		return nil, err
	}
	s.logger.Info("Customer created", zap.String("customer_id", customer.ID.Hex()))
	return customer, nil
}

func (s *customerServiceImpl) List(ctx context.Context, q models.CustomerQuery) ([]models.Customer, int64, error) {
	return s.repo.List(ctx, q)
}

func (s *customerServiceImpl) Get(ctx context.Context, id string) (*models.Customer, error) {
	oid, err := parseID(id, "customer")
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Customer not found")
	}
	return customer, nil
}

func (s *customerServiceImpl) Update(ctx context.Context, id string, req *models.UpdateCustomerRequest) (*models.Customer, error) {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("Name cannot be empty")
		}
		customer.Name = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" {
			return nil, apperrors.Validation("Phone cannot be empty")
		}
		if phone != customer.Phone {
			if err := s.ensurePhoneFree(ctx, phone, customer.ID); err != nil {
				return nil, err
			}
		}
		customer.Phone = phone
	}
	if req.Email != nil {
		email, err := cleanEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		if email != customer.Email {
			if err := s.ensureEmailFree(ctx, email, customer.ID); err != nil {
				return nil, err
			}
		}
		customer.Email = email
	}
	customer.Address = customer.Address.Merge(req.Address)
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}

	if err := s.repo.Save(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("Customer with this phone number already exists")
		}
		return nil, notFound(err, "Customer not found")
	}
	return customer, nil
}

func (s *customerServiceImpl) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "customer")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return notFound(err, "Customer not found")
	}
	s.logger.Info("Customer deleted", zap.String("customer_id", id))
	return nil
}

func (s *customerServiceImpl) ensurePhoneFree(ctx context.Context, phone string, self primitive.ObjectID) error {
	other, err := s.repo.FindByPhone(ctx, phone)
	return uniqueCheck(other, err, self, "Customer with this phone number already exists")
}

func (s *customerServiceImpl) ensureEmailFree(ctx context.Context, email string, self primitive.ObjectID) error {
	if email == "" {
		return nil
	}
	other, err := s.repo.FindByEmail(ctx, email)
	return uniqueCheck(other, err, self, "Customer with this email already exists")
}

func uniqueCheck(other *models.Customer, err error, self primitive.ObjectID, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return apperrors.Validation("%s", msg)
	}
	return nil
}

// cleanEmail normalizes an optional email and checks its format.
func cleanEmail(raw string) (string, error) {
	email := models.NormalizeEmail(raw)
	if email == "" {
		return "", nil
	}
	if !models.ValidEmail(email) {
		return "", apperrors.Validation("Please provide a valid email")
	}
	return email, nil
}
