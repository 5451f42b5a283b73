package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/gourmetmarketplace/backend/services/common/errors"
	"github.com/gourmetmarketplace/backend/services/common/response"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/services"
)

type OrderController struct {
	service services.OrderService
}

func NewOrderController(s services.OrderService) *OrderController {
	return &OrderController{service: s}
}

func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := ctrl.service.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, order, "Order created successfully")
}

// CreateCustomerOrder is the public checkout; the customer is matched by phone.
func (ctrl *OrderController) CreateCustomerOrder(c *gin.Context) {
	var req models.CustomerOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := ctrl.service.CreateForCustomer(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusCreated, order, "Order created successfully")
}

func (ctrl *OrderController) GetCustomerOrders(c *gin.Context) {
	orders, err := ctrl.service.ListByPhone(c.Request.Context(), c.Query("phone"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	msg := "Customer orders fetched successfully"
	if len(orders) == 0 {
		orders = []models.OrderView{}
		msg = "No orders found for this customer"
	}
	response.OK(c, http.StatusOK, gin.H{"orders": orders}, msg)
}

func (ctrl *OrderController) GetOrders(c *gin.Context) {
	page, err := ParsePagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	customer, custErr := queryObjectID(c, "customer")
	rng, rngErr := dateRange(c)
	if err := firstErr(custErr, rngErr); err != nil {
		_ = c.Error(err)
		return
	}

	q := models.OrderQuery{Customer: customer, Range: rng, Page: page}
	if raw := queryString(c, "orderStatus"); raw != nil {
		s := models.OrderStatus(*raw)
		if !s.Valid() {
			_ = c.Error(apperrors.Validation("Invalid order status: %s", s))
			return
		}
		q.OrderStatus = &s
	}
	if raw := queryString(c, "paymentStatus"); raw != nil {
		s := models.PaymentStatus(*raw)
		if !s.Valid() {
			_ = c.Error(apperrors.Validation("Invalid payment status: %s", s))
			return
		}
		q.PaymentStatus = &s
	}

	orders, total, err := ctrl.service.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Page(c, http.StatusOK, "orders", orders,
		response.NewPagination(page.Page, page.Limit, total), "Orders fetched successfully")
}

func (ctrl *OrderController) GetOrder(c *gin.Context) {
	order, err := ctrl.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, order, "Order fetched successfully")
}

func (ctrl *OrderController) UpdateOrder(c *gin.Context) {
	var req models.UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := ctrl.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, order, "Order updated successfully")
}

func (ctrl *OrderController) ApproveOrder(c *gin.Context) {
	order, err := ctrl.service.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, order, "Order approved successfully")
}

// RejectOrder takes an optional {reason} body.
func (ctrl *OrderController) RejectOrder(c *gin.Context) {
	var req models.RejectOrderRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	order, err := ctrl.service.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, order, "Order rejected successfully")
}

func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	order, err := ctrl.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, order, "Order cancelled successfully")
}

func (ctrl *OrderController) GetOrderStats(c *gin.Context) {
	rng, err := dateRange(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	stats, err := ctrl.service.Stats(c.Request.Context(), rng)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, stats, "Order statistics fetched successfully")
}

func dateRange(c *gin.Context) (models.DateRange, error) {
	from, fromErr := queryDate(c, "startDate", false)
	to, toErr := queryDate(c, "endDate", true)
	if err := firstErr(fromErr, toErr); err != nil {
		return models.DateRange{}, err
	}
	return models.DateRange{From: from, To: to}, nil
}
