package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/middleware"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(nil))
	return r
}

func do(t *testing.T, r *gin.Engine, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query   string
		want    models.Page
		wantErr string
	}{
		{"", models.Page{Page: 1, Limit: 10}, ""},
		{"?page=3&limit=25", models.Page{Page: 3, Limit: 25}, ""},
		{"?limit=500", models.Page{Page: 1, Limit: MaxPageSize}, ""},
		{"?page=0", models.Page{}, "Invalid page number"},
		{"?limit=abc", models.Page{}, "Invalid page size"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/x"+tc.query, nil)

			got, err := ParsePagination(c)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantErr, apperrors.As(err).Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type fakeProductService struct {
	services.ProductService
	lastQuery models.ProductQuery
	created   *models.CreateProductRequest
}

func (f *fakeProductService) List(_ context.Context, q models.ProductQuery) ([]models.ProductView, int64, error) {
	f.lastQuery = q
	return []models.ProductView{{Product: models.Product{Name: "Gulab Jamun"}}}, 21, nil
}

func (f *fakeProductService) Create(_ context.Context, req *models.CreateProductRequest) (*models.ProductView, error) {
	f.created = req
	return &models.ProductView{Product: models.Product{Name: req.Name, Unit: req.Unit}}, nil
}

func (f *fakeProductService) Get(context.Context, string) (*models.ProductView, error) {
	return nil, apperrors.NotFound("Product not found")
}

func TestProductController_ListForwardsFilters(t *testing.T) {
	svc := &fakeProductService{}
	ctrl := NewProductController(svc)
	r := newEngine()
	r.GET("/products", ctrl.GetProducts)
	cat := primitive.NewObjectID()

	w, body := do(t, r, http.MethodGet, "/products?category="+cat.Hex()+"&isActive=true&search=jamun&page=2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Products fetched successfully", body.Message)
	require.NotNil(t, svc.lastQuery.Category)
	assert.Equal(t, cat, *svc.lastQuery.Category)
	assert.True(t, *svc.lastQuery.IsActive)
	assert.Equal(t, "jamun", *svc.lastQuery.Search)
	assert.Equal(t, models.Page{Page: 2, Limit: 10}, svc.lastQuery.Page)

	var data struct {
		Products   []models.ProductView `json:"products"`
		Pagination struct {
			Total int64 `json:"total"`
			Pages int64 `json:"pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Len(t, data.Products, 1)
	assert.Equal(t, int64(21), data.Pagination.Total)
	assert.Equal(t, int64(3), data.Pagination.Pages)
}

func TestProductController_BadQuery(t *testing.T) {
	r := newEngine()
	r.GET("/products", NewProductController(&fakeProductService{}).GetProducts)

	w, body := do(t, r, http.MethodGet, "/products?category=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid category ID", body.Message)

	w, body = do(t, r, http.MethodGet, "/products?isActive=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid isActive value: maybe", body.Message)
}

func TestProductController_CreateValidatesBody(t *testing.T) {
	svc := &fakeProductService{}
	r := newEngine()
	r.POST("/products", NewProductController(svc).CreateProduct)

	w, body := do(t, r, http.MethodPost, "/products", gin.H{
		"name": "Barfi", "category": "not-an-id", "price": 400, "costPrice": 250, "unit": "kg",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Category must be a valid id", body.Message)

	w, body = do(t, r, http.MethodPost, "/products", gin.H{
		"name": "Barfi", "category": primitive.NewObjectID().Hex(), "price": 400, "costPrice": 250, "unit": "litre",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unit must be one of [kg piece dozen pack gram]", body.Message)
	assert.Nil(t, svc.created)

	w, body = do(t, r, http.MethodPost, "/products", gin.H{
		"name": "Barfi", "category": primitive.NewObjectID().Hex(), "price": 0, "costPrice": 0, "unit": "piece",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Product created successfully", body.Message)
	require.NotNil(t, svc.created)
	assert.Equal(t, 0.0, *svc.created.Price)
}

func TestProductController_NotFound(t *testing.T) {
	r := newEngine()
	r.GET("/products/:id", NewProductController(&fakeProductService{}).GetProduct)

	w, body := do(t, r, http.MethodGet, "/products/"+primitive.NewObjectID().Hex(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "Product not found", body.Message)
}

type fakeOrderService struct {
	services.OrderService
	rejectReason string
	statsRange   models.DateRange
	byPhone      []models.OrderView
	approveErr   error
}

func (f *fakeOrderService) Reject(_ context.Context, id, reason string) (*models.OrderView, error) {
	f.rejectReason = reason
	return &models.OrderView{Order: models.Order{OrderStatus: models.OrderCancelled}}, nil
}

func (f *fakeOrderService) Approve(context.Context, string) (*models.OrderView, error) {
	return nil, f.approveErr
}

func (f *fakeOrderService) Stats(_ context.Context, rng models.DateRange) (*models.OrderStats, error) {
	f.statsRange = rng
	return &models.OrderStats{TotalOrders: 2, TotalRevenue: 725}, nil
}

func (f *fakeOrderService) ListByPhone(context.Context, string) ([]models.OrderView, error) {
	return f.byPhone, nil
}

func TestOrderController_RejectBodyIsOptional(t *testing.T) {
	svc := &fakeOrderService{}
	r := newEngine()
	r.POST("/orders/:id/reject", NewOrderController(svc).RejectOrder)

	w, body := do(t, r, http.MethodPost, "/orders/abc/reject", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Order rejected successfully", body.Message)
	assert.Equal(t, "", svc.rejectReason)

	w, _ = do(t, r, http.MethodPost, "/orders/abc/reject", gin.H{"reason": "out of sugar"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "out of sugar", svc.rejectReason)
}

func TestOrderController_ApproveConflict(t *testing.T) {
	svc := &fakeOrderService{approveErr: apperrors.Conflict("Cannot approve order with status: %s", "confirmed")}
	r := newEngine()
	r.POST("/orders/:id/approve", NewOrderController(svc).ApproveOrder)

	w, body := do(t, r, http.MethodPost, "/orders/abc/approve", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot approve order with status: confirmed", body.Message)
}

func TestOrderController_StatsDateRange(t *testing.T) {
	svc := &fakeOrderService{}
	r := newEngine()
	r.GET("/orders/stats", NewOrderController(svc).GetOrderStats)

	w, _ := do(t, r, http.MethodGet, "/orders/stats?startDate=2026-01-01&endDate=2026-01-31", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.statsRange.From)
	require.NotNil(t, svc.statsRange.To)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *svc.statsRange.From)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), *svc.statsRange.To)

	w, body := do(t, r, http.MethodGet, "/orders/stats?startDate=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid startDate: yesterday", body.Message)
}

func TestOrderController_CustomerOrdersMessage(t *testing.T) {
	svc := &fakeOrderService{}
	r := newEngine()
	r.GET("/orders/customer", NewOrderController(svc).GetCustomerOrders)

	_, body := do(t, r, http.MethodGet, "/orders/customer?phone=000", nil)
	assert.Equal(t, "No orders found for this customer", body.Message)
	assert.JSONEq(t, `{"orders":[]}`, string(body.Data))

	svc.byPhone = []models.OrderView{{Order: models.Order{OrderNumber: "ORD-1-0001"}}}
	_, body = do(t, r, http.MethodGet, "/orders/customer?phone=111", nil)
	assert.Equal(t, "Customer orders fetched successfully", body.Message)
}

type fakeAuthService struct {
	services.AuthService
	err error
}

func (f *fakeAuthService) Login(_ context.Context, req *models.AdminLoginRequest) (*models.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResult{
		Token:     "signed-token",
		ExpiresAt: time.Now().Add(time.Hour),
		Admin:     &models.Admin{Username: req.Username, Role: models.RoleAdmin},
	}, nil
}

func TestAuthController_LoginSetsCookie(t *testing.T) {
	r := newEngine()
	ctrl := NewAuthController(&fakeAuthService{}, false)
	r.POST("/login", ctrl.AdminLogin)
	r.POST("/logout", ctrl.Logout)

	w, body := do(t, r, http.MethodPost, "/login", gin.H{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", body.Message)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AccessTokenCookie, cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Greater(t, cookies[0].MaxAge, 0)

	w, _ = do(t, r, http.MethodPost, "/logout", nil)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuthController_LoginFailures(t *testing.T) {
	r := newEngine()
	r.POST("/login", NewAuthController(&fakeAuthService{err: apperrors.Unauthorized("Invalid credentials")}, false).AdminLogin)

	w, body := do(t, r, http.MethodPost, "/login", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", body.Message)
	assert.Empty(t, w.Result().Cookies())

	w, body = do(t, r, http.MethodPost, "/login", gin.H{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password is required", body.Message)
}

func TestHealthController(t *testing.T) {
	r := newEngine()
	healthy := NewHealthController(map[string]Pinger{"mongodb": func(context.Context) error { return nil }})
	r.GET("/ok", healthy.Health)
	broken := NewHealthController(map[string]Pinger{"redis": func(context.Context) error { return errors.New("refused") }})
	r.GET("/broken", broken.Health)

	w, body := do(t, r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	assert.Contains(t, string(body.Data), `"status":"healthy"`)

	w, body = do(t, r, http.MethodGet, "/broken", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, string(body.Data), `"redis":"down"`)
}
