package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(ErrorMiddleware(nil))
	r.GET("/x", handler)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorMiddleware_RendersTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", Validation("Name is required"), http.StatusBadRequest, "Name is required"},
		{"not found", NotFound("Order not found"), http.StatusNotFound, "Order not found"},
		{"auth", Unauthorized("Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{"conflict", Conflict("Cannot approve order with status: %s", "confirmed"), http.StatusBadRequest, "Cannot approve order with status: confirmed"},
		{"wrapped", fmt.Errorf("create order: %w", NotFound("Customer not found")), http.StatusNotFound, "Customer not found"},
		{"unknown", stderrors.New("socket closed"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(func(c *gin.Context) { _ = c.Error(tc.err) })

			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.msg, body["message"])
		})
	}
}

func TestErrorMiddleware_NoErrorsLeavesResponse(t *testing.T) {
	w := serve(func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) })

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])
}

func TestInternal_HidesCause(t *testing.T) {
	err := Internal(stderrors.New("dial tcp: refused"))

	assert.Equal(t, "Internal server error", err.Message)
	assert.Contains(t, err.Error(), "dial tcp: refused")
	assert.True(t, stderrors.Is(err, err.Err))
}

func TestFromBinding_NonValidatorError(t *testing.T) {
	err := FromBinding(stderrors.New("unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, err.Code)
	assert.Equal(t, "Invalid request body", err.Message)
}
