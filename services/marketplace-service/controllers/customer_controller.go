package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gourmetmarketplace/backend/services/common/response"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
)

type CustomerController struct {
	service services.CustomerService
}

func NewCustomerController(s services.CustomerService) *CustomerController {
	return &CustomerController{service: s}
}

func (ctrl *CustomerController) CreateCustomer(c *gin.Context) {
	var req models.CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := ctrl.service.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, customer, "Customer created successfully")
}

// RegisterCustomer is the public sign-up.
func (ctrl *CustomerController) RegisterCustomer(c *gin.Context) {
	var req models.CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := ctrl.service.Register(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, customer, "Customer registered successfully")
}

func (ctrl *CustomerController) GetCustomers(c *gin.Context) {
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

	q := models.CustomerQuery{Search: queryString(c, "search"), IsActive: isActive, Page: page}
	customers, total, err := ctrl.service.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Page(c, http.StatusOK, "customers", customers,
		response.NewPagination(page.Page, page.Limit, total), "Customers fetched successfully")
}

func (ctrl *CustomerController) GetCustomer(c *gin.Context) {
	customer, err := ctrl.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, customer, "Customer fetched successfully")
}

func (ctrl *CustomerController) UpdateCustomer(c *gin.Context) {
	var req models.UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := ctrl.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, customer, "Customer updated successfully")
}

func (ctrl *CustomerController) DeleteCustomer(c *gin.Context) {
	if err := ctrl.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, nil, "Customer deleted successfully")
}
