package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/controllers"
	"github.com/gourmetmarketplace/backend/services/marketplace-service/middleware"
)

// Controllers bundles every handler the API mounts.
type Controllers struct {
	Health    *controllers.HealthController
	Auth      *controllers.AuthController
	Category  *controllers.CategoryController
	Product   *controllers.ProductController
	Inventory *controllers.InventoryController
	Customer  *controllers.CustomerController
	Order     *controllers.OrderController
}

// RegisterRoutes mounts the API under /api/v1. Admin routes require a valid
// admin token.
func RegisterRoutes(r *gin.Engine, ctrls Controllers, verifier middleware.TokenVerifier) {
	api := r.Group("/api/v1")
	admin := []gin.HandlerFunc{middleware.RequireAuth(verifier), middleware.AdminOnly()}

	api.GET("/health", ctrls.Health.Health)

	users := api.Group("/users")
	{
		users.POST("/admin/login", ctrls.Auth.AdminLogin)
		users.POST("/logout", ctrls.Auth.Logout)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", ctrls.Category.GetCategories)
		categories.GET("/:id", ctrls.Category.GetCategory)

		protected := categories.Group("", admin...)
		protected.POST("", ctrls.Category.CreateCategory)
		protected.PUT("/:id", ctrls.Category.UpdateCategory)
		protected.DELETE("/:id", ctrls.Category.DeleteCategory)
	}

	products := api.Group("/products")
	{
		products.GET("", ctrls.Product.GetProducts)
		products.GET("/low-stock", middleware.RequireAuth(verifier), middleware.AdminOnly(), ctrls.Product.GetLowStockProducts)
		products.GET("/:id", ctrls.Product.GetProduct)

		protected := products.Group("", admin...)
		protected.POST("", ctrls.Product.CreateProduct)
		protected.PUT("/:id", ctrls.Product.UpdateProduct)
		protected.DELETE("/:id", ctrls.Product.DeleteProduct)
		protected.POST("/:id/image-upload", ctrls.Product.PresignImageUpload)
	}

	customers := api.Group("/customers")
	{
		customers.POST("/register", ctrls.Customer.RegisterCustomer)

		protected := customers.Group("", admin...)
		protected.GET("", ctrls.Customer.GetCustomers)
		protected.POST("", ctrls.Customer.CreateCustomer)
		protected.GET("/:id", ctrls.Customer.GetCustomer)
		protected.PUT("/:id", ctrls.Customer.UpdateCustomer)
		protected.DELETE("/:id", ctrls.Customer.DeleteCustomer)
	}

	orders := api.Group("/orders")
	{
		orders.POST("/customer", ctrls.Order.CreateCustomerOrder)
		orders.GET("/customer", ctrls.Order.GetCustomerOrders)

		protected := orders.Group("", admin...)
		protected.GET("", ctrls.Order.GetOrders)
		protected.POST("", ctrls.Order.CreateOrder)
		protected.GET("/stats", ctrls.Order.GetOrderStats)
		protected.GET("/:id", ctrls.Order.GetOrder)
		protected.PUT("/:id", ctrls.Order.UpdateOrder)
		protected.POST("/:id/approve", ctrls.Order.ApproveOrder)
		protected.POST("/:id/reject", ctrls.Order.RejectOrder)
		protected.POST("/:id/cancel", ctrls.Order.CancelOrder)
	}

	inventory := api.Group("/inventory", admin...)
	{
		inventory.GET("", ctrls.Inventory.GetInventory)
		inventory.GET("/low-stock", ctrls.Inventory.GetLowStock)
		inventory.GET("/product/:productId", ctrls.Inventory.GetByProduct)
		inventory.PUT("/product/:productId", ctrls.Inventory.UpdateInventory)
		inventory.POST("/product/:productId/restock", ctrls.Inventory.Restock)
	}
}
