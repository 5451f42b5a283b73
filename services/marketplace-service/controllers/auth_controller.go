package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gourmetmarketplace/backend/services/common/response"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/middleware"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
)

type AuthController struct {
	service      services.AuthService
	secureCookie bool
}

// NewAuthController sets Secure on the session cookie when secureCookie is true.
func NewAuthController(s services.AuthService, secureCookie bool) *AuthController {
	return &AuthController{service: s, secureCookie: secureCookie}
}

func (ctrl *AuthController) AdminLogin(c *gin.Context) {
	var req models.AdminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := ctrl.service.Login(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, result.Token, maxAge, "/", "", ctrl.secureCookie, true)
	response.OK(c, http.StatusOK, result, "Login successful")
}

func (ctrl *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", ctrl.secureCookie, true)
	response.OK(c, http.StatusOK, nil, "Logged out successfully")
}
