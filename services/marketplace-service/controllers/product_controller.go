package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gourmetmarketplace/backend/services/common/response"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
)

type ProductController struct {
	service services.ProductService
}

func NewProductController(s services.ProductService) *ProductController {
	return &ProductController{service: s}
}

func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := ctrl.service.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, product, "Product created successfully")
}

// GetProducts lists products filtered by category, isActive and a free-text search.
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	page, err := ParsePagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	category, catErr := queryObjectID(c, "category")
	isActive, activeErr := queryBool(c, "isActive")
	if err := firstErr(catErr, activeErr); err != nil {
		_ = c.Error(err)
		return
	}

	q := models.ProductQuery{
		Category: category,
		IsActive: isActive,
		Search:   queryString(c, "search"),
		Page:     page,
	}
	products, total, err := ctrl.service.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Page(c, http.StatusOK, "products", products,
		response.NewPagination(page.Page, page.Limit, total), "Products fetched successfully")
}

func (ctrl *ProductController) GetProduct(c *gin.Context) {
	product, err := ctrl.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, product, "Product fetched successfully")
}

func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	var req models.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := ctrl.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, product, "Product updated successfully")
}

func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	if err := ctrl.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, nil, "Product deleted successfully")
}

func (ctrl *ProductController) GetLowStockProducts(c *gin.Context) {
	products, err := ctrl.service.LowStock(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, products, "Low stock products fetched successfully")
}

// PresignImageUpload returns a direct-to-bucket upload URL for a product image.
func (ctrl *ProductController) PresignImageUpload(c *gin.Context) {
	var req models.ImageUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	upload, err := ctrl.service.PresignImage(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, upload, "Upload URL generated successfully")
}
