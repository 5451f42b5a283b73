package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/repository"
	"go.uber.org/zap"
)

type CategoryService interface {
	Create(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error)
	List(ctx context.Context, q models.CategoryQuery) ([]models.Category, int64, error)
	Get(ctx context.Context, id string) (*models.Category, error)
	Update(ctx context.Context, id string, req *models.UpdateCategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, id string) error
}

type categoryServiceImpl struct {
	repo   repository.CategoryRepository
	integ  Integrations
	logger *zap.Logger
}

func NewCategoryService(repo repository.CategoryRepository, integ Integrations, logger *zap.Logger) CategoryService {
	return &categoryServiceImpl{repo: repo, integ: integ, logger: logger}
}

func (s *categoryServiceImpl) Create(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	name := models.NormalizeCategoryName(req.Name)
	if name == "" {
		return nil, apperrors.Validation("Category name is required")
	}
	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	category := &models.Category{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsActive:    boolOr(req.IsActive, true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("Category with this name already exists")
		}
		return nil, err
	}
	s.logger.Info("Category created", zap.String("category_id", category.ID.Hex()), zap.String("name", name))
	return category, nil
}

func (s *categoryServiceImpl) List(ctx context.Context, q models.CategoryQuery) ([]models.Category, int64, error) {
	return s.repo.List(ctx, q)
}

func (s *categoryServiceImpl) Get(ctx context.Context, id string) (*models.Category, error) {
	oid, err := parseID(id, "category")
	if err != nil {
		return nil, err
	}
	category, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Category not found")
	}
	return category, nil
}

func (s *categoryServiceImpl) Update(ctx context.Context, id string, req *models.UpdateCategoryRequest) (*models.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := models.NormalizeCategoryName(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("Category name is required")
		}
		if name != category.Name {
			if err := s.ensureNameFree(ctx, name); err != nil {
				return nil, err
			}
			category.Name = name
		}
	}
	if req.Description != nil {
		category.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := s.repo.Save(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("Category with this name already exists")
		}
		return nil, notFound(err, "Category not found")
	}
	s.invalidateProducts(ctx, category.ID.Hex())
	return category, nil
}

// Delete leaves products that reference the category untouched.
func (s *categoryServiceImpl) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "category")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return notFound(err, "Category not found")
	}
	s.invalidateProducts(ctx, id)
	s.logger.Info("Category deleted", zap.String("category_id", id))
	return nil
}

// invalidateProducts drops cached product reads, which embed the category.
func (s *categoryServiceImpl) invalidateProducts(ctx context.Context, categoryID string) {
	if err := s.integ.Cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.String("category_id", categoryID), zap.Error(err))
	}
}

func (s *categoryServiceImpl) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.repo.FindByName(ctx, name)
	switch {
	case err == nil:
		return apperrors.Validation("Category with this name already exists")
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}
