package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	applog "github.com/gourmetmarketplace/backend/services/common/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation is returned for missing or malformed input and duplicate unique keys.
func Validation(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// NotFound is returned when a referenced entity does not exist.
func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, fmt.Sprintf(format, args...), nil)
}

// Unauthorized is returned for a missing or invalid credential.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

// Forbidden is returned when the credential is valid but lacks the role.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

// Conflict is returned for illegal state transitions. The API reports them as 400.
func Conflict(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// Internal wraps an unexpected failure. The cause is logged, never rendered.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// As extracts an *Error from err, wrapping anything unknown as Internal.
func As(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if mongo.IsDuplicateKeyError(err) {
		return New(http.StatusBadRequest, "Duplicate value for a unique field", err)
	}
	return Internal(err)
}

// FromBinding converts a gin binding failure into a validation error with a readable message.
func FromBinding(err error) *Error {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeField(fe))
		}
		return New(http.StatusBadRequest, strings.Join(msgs, "; "), err)
	}
	return New(http.StatusBadRequest, "Invalid request body", err)
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "objectid":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	case "unit":
		return fmt.Sprintf("%s must be one of [kg piece dozen pack gram]", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// ErrorMiddleware renders the last error pushed with c.Error as the standard
// failure envelope.
func ErrorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := As(c.Errors.Last().Err)
		if appErr.Code >= http.StatusInternalServerError && logger != nil {
			applog.For(c, logger).Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(appErr.Err),
			)
		}

		c.AbortWithStatusJSON(appErr.Code, gin.H{
			"success": false,
			"message": appErr.Message,
		})
	}
}
