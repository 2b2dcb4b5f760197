// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// Handlers bundles the route handlers and the auth middleware they sit behind
type Handlers struct {
	Products *handlers.ProductHandler
	Cart     *handlers.CartHandler
	Orders   *handlers.OrderHandler
	Payments *handlers.PaymentHandler
	Bookings *handlers.BookingHandler

	RequireAuth  gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers) {
	SetupCatalogRoutes(rg, h)
	SetupCartRoutes(rg, h)
	SetupOrderRoutes(rg, h)
	SetupPaymentRoutes(rg, h)
	SetupBookingRoutes(rg, h)
	SetupAdminRoutes(rg, h)
}

// SetupCatalogRoutes sets up product and category routes
func SetupCatalogRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/categories", h.Products.GetCategories)
	rg.GET("/categories/:slug", h.Products.GetCategoryBySlug)

	products := rg.Group("/products")
	{
		products.GET("", h.Products.GetProducts)
		products.GET("/:slug", h.Products.GetProductBySlug)
	}
}

// SetupCartRoutes sets up cart routes. Guests are tracked by session cookie.
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers) {
	cart := rg.Group("/cart")
	cart.Use(h.OptionalAuth)
	{
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.ClearCart)
		cart.POST("/items", h.Cart.AddToCart)
		cart.PUT("/items/:productId", h.Cart.UpdateCartItem)
		cart.DELETE("/items/:productId", h.Cart.RemoveFromCart)
	}

	rg.POST("/cart/merge", h.RequireAuth, h.Cart.MergeCart)
}

// SetupOrderRoutes sets up order routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.OptionalAuth, h.Orders.CreateOrder)
		orders.GET("", h.RequireAuth, h.Orders.GetUserOrders)
		orders.GET("/:number", h.OptionalAuth, h.Orders.GetOrder)
		orders.GET("/:number/invoice", h.RequireAuth, h.Orders.GetInvoice)
	}
}

// SetupPaymentRoutes sets up payment and gateway webhook routes
func SetupPaymentRoutes(rg *gin.RouterGroup, h *Handlers) {
	payments := rg.Group("/payments")
	{
		payments.POST("/initialize", h.OptionalAuth, h.Payments.InitializePayment)
		payments.GET("/verify/:reference", h.Payments.VerifyPayment)
	}

	rg.POST("/webhooks/paystack", h.Payments.Webhook)
}

// SetupBookingRoutes sets up property and booking routes
func SetupBookingRoutes(rg *gin.RouterGroup, h *Handlers) {
	properties := rg.Group("/properties")
	{
		properties.GET("", h.Bookings.GetProperties)
		properties.GET("/:slug", h.Bookings.GetProperty)
		properties.GET("/:slug/availability", h.Bookings.CheckAvailability)
	}

	bookings := rg.Group("/bookings")
	bookings.Use(h.OptionalAuth)
	{
		bookings.POST("", h.Bookings.CreateBooking)
		bookings.GET("/:reference", h.Bookings.GetBooking)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers) {
	admin := rg.Group("/admin")
	admin.Use(h.RequireAuth)                // Require authentication
	admin.Use(middleware.AdminMiddleware()) // Require admin privileges
	{
		admin.GET("/products/low-stock", h.Products.GetLowStock)

		orders := admin.Group("/orders")
		{
			orders.GET("", h.Orders.ListOrders)
			orders.PUT("/:id/status", h.Orders.UpdateOrderStatus)
			orders.PUT("/:id/payment-status", h.Orders.UpdatePaymentStatus)
		}

		bookings := admin.Group("/bookings")
		{
			bookings.GET("", h.Bookings.ListBookings)
			bookings.PUT("/:reference/status", h.Bookings.UpdateBookingStatus)
		}
	}
}
