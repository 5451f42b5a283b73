package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gourmetmarketplace/backend/services/common/response"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
)

type InventoryController struct {
	service services.InventoryService
}

func NewInventoryController(s services.InventoryService) *InventoryController {
	return &InventoryController{service: s}
}

func (ctrl *InventoryController) GetInventory(c *gin.Context) {
	page, err := ParsePagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var status *models.StockStatus
	if raw := queryString(c, "stockStatus"); raw != nil {
		s := models.StockStatus(*raw)
		status = &s
	}

	rows, total, err := ctrl.service.List(c.Request.Context(), models.InventoryQuery{StockStatus: status, Page: page})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Page(c, http.StatusOK, "inventory", rows,
		response.NewPagination(page.Page, page.Limit, total), "Inventory fetched successfully")
}

func (ctrl *InventoryController) GetByProduct(c *gin.Context) {
	inv, err := ctrl.service.Get(c.Request.Context(), c.Param("productId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, inv, "Inventory fetched successfully")
}

func (ctrl *InventoryController) UpdateInventory(c *gin.Context) {
	var req models.UpdateInventoryRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := ctrl.service.Update(c.Request.Context(), c.Param("productId"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, inv, "Inventory updated successfully")
}

func (ctrl *InventoryController) Restock(c *gin.Context) {
	var req models.RestockRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := ctrl.service.Restock(c.Request.Context(), c.Param("productId"), req.Quantity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, inv, "Inventory restocked successfully")
}

func (ctrl *InventoryController) GetLowStock(c *gin.Context) {
	rows, err := ctrl.service.LowStock(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, rows, "Low stock items fetched successfully")
}
