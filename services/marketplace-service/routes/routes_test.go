package routes

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gourmetmarketplace/backend/services/common/auth"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/controllers"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Controllers are built without services; every request below is answered
// before a handler reaches its service.
func newRouter(t *testing.T) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	controllers.RegisterValidators()

	tokens := auth.NewTokenManager("routes-test-secret", time.Hour)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(nil))
	RegisterRoutes(r, Controllers{
		Health:    controllers.NewHealthController(nil),
		Auth:      controllers.NewAuthController(nil, false),
		Category:  controllers.NewCategoryController(nil),
		Product:   controllers.NewProductController(nil),
		Inventory: controllers.NewInventoryController(nil),
		Customer:  controllers.NewCustomerController(nil),
		Order:     controllers.NewOrderController(nil),
	}, tokens)
	return r, tokens
}

func TestRoutes_Access(t *testing.T) {
	r, tokens := newRouter(t)
	adminToken, _, err := tokens.Issue("a1", "admin", models.RoleAdmin)
	require.NoError(t, err)
	staffToken, _, err := tokens.Issue("s1", "staff", "staff")
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/v1/health", "", "", http.StatusOK},
		{"order list needs a token", http.MethodGet, "/api/v1/orders", "", "", http.StatusUnauthorized},
		{"inventory needs a token", http.MethodGet, "/api/v1/inventory", "", "", http.StatusUnauthorized},
		{"low stock needs a token", http.MethodGet, "/api/v1/products/low-stock", "", "", http.StatusUnauthorized},
		{"category create needs a token", http.MethodPost, "/api/v1/categories", "", `{}`, http.StatusUnauthorized},
		{"non-admin is forbidden", http.MethodGet, "/api/v1/orders", staffToken, "", http.StatusForbidden},
		{"admin reaches the handler", http.MethodGet, "/api/v1/orders?page=0", adminToken, "", http.StatusBadRequest},
		{"checkout is public", http.MethodPost, "/api/v1/orders/customer", "", `{}`, http.StatusBadRequest},
		{"registration is public", http.MethodPost, "/api/v1/customers/register", "", `{}`, http.StatusBadRequest},
		{"login is public", http.MethodPost, "/api/v1/users/admin/login", "", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}
