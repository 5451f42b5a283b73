package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gourmetmarketplace/backend/services/common/response"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
)

type CategoryController struct {
	service services.CategoryService
}

func NewCategoryController(s services.CategoryService) *CategoryController {
	return &CategoryController{service: s}
}

func (ctrl *CategoryController) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := ctrl.service.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, category, "Category created successfully")
}

func (ctrl *CategoryController) GetCategories(c *gin.Context) {
	page, err := ParsePagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	isActive, err := queryBool(c, "isActive")
	if err != nil {
		_ = c.Error(err)
		return
	}

	categories, total, err := ctrl.service.List(c.Request.Context(), models.CategoryQuery{IsActive: isActive, Page: page})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Page(c, http.StatusOK, "categories", categories,
		response.NewPagination(page.Page, page.Limit, total), "Categories fetched successfully")
}

func (ctrl *CategoryController) GetCategory(c *gin.Context) {
	category, err := ctrl.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, category, "Category fetched successfully")
}

func (ctrl *CategoryController) UpdateCategory(c *gin.Context) {
	var req models.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := ctrl.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, category, "Category updated successfully")
}

func (ctrl *CategoryController) DeleteCategory(c *gin.Context) {
	if err := ctrl.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, nil, "Category deleted successfully")
}
