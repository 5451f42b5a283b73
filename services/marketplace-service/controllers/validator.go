package controllers

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pagination limits
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPageNumber   = 1000000
)

var registerOnce sync.Once

// RegisterValidators adds the objectid and unit tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("unit", func(fl validator.FieldLevel) bool {
			return models.ValidUnit(models.Unit(fl.Field().String()))
		})
	})
}

// bindJSON binds the body into dst and pushes a validation error on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperrors.FromBinding(err))
		return false
	}
	return true
}

// ParsePagination reads page and limit, defaulting to 1 and 10 and capping limit at 100.
func ParsePagination(c *gin.Context) (models.Page, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return models.Page{}, apperrors.Validation("Invalid page number")
	}
	if page > MaxPageNumber {
		page = MaxPageNumber
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	if err != nil || limit < 1 {
		return models.Page{}, apperrors.Validation("Invalid page size")
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return models.Page{Page: page, Limit: limit}, nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid %s value: %s", key, raw)
	}
	return &v, nil
}

func queryObjectID(c *gin.Context, key string) (*primitive.ObjectID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid %s ID", key)
	}
	return &oid, nil
}

func queryString(c *gin.Context, key string) *string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	return &raw
}

// queryDate accepts RFC 3339 or a plain date. A plain end date covers the whole day.
func queryDate(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid %s: %s", key, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
