package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testHandlers() *Handlers {
	log, _ := test.NewNullLogger()
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
	}
	return &Handlers{
		Products:     handlers.NewProductHandler(nil, log),
		Cart:         handlers.NewCartHandler(nil, nil, log),
		Orders:       handlers.NewOrderHandler(nil, nil, nil, log),
		Payments:     handlers.NewPaymentHandler(nil, log),
		Bookings:     handlers.NewBookingHandler(nil, log),
		RequireAuth:  deny,
		OptionalAuth: func(c *gin.Context) { c.Next() },
	}
}

func TestSetupRoutes_RegistersSurface(t *testing.T) {
	r := gin.New()
	require.NotPanics(t, func() {
		SetupRoutes(r.Group("/api/v1"), testHandlers())
	})

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /api/v1/categories",
		"GET /api/v1/categories/:slug",
		"GET /api/v1/products",
		"GET /api/v1/products/:slug",
		"GET /api/v1/cart",
		"POST /api/v1/cart/items",
		"PUT /api/v1/cart/items/:productId",
		"DELETE /api/v1/cart/items/:productId",
		"DELETE /api/v1/cart",
		"POST /api/v1/cart/merge",
		"POST /api/v1/orders",
		"GET /api/v1/orders",
		"GET /api/v1/orders/:number",
		"GET /api/v1/orders/:number/invoice",
		"POST /api/v1/payments/initialize",
		"GET /api/v1/payments/verify/:reference",
		"POST /api/v1/webhooks/paystack",
		"GET /api/v1/properties",
		"GET /api/v1/properties/:slug",
		"GET /api/v1/properties/:slug/availability",
		"POST /api/v1/bookings",
		"GET /api/v1/bookings/:reference",
		"GET /api/v1/admin/orders",
		"PUT /api/v1/admin/orders/:id/status",
		"PUT /api/v1/admin/orders/:id/payment-status",
		"GET /api/v1/admin/bookings",
		"PUT /api/v1/admin/bookings/:reference/status",
		"GET /api/v1/admin/products/low-stock",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestSetupRoutes_ProtectedRoutesRequireAuth(t *testing.T) {
	r := gin.New()
	SetupRoutes(r.Group("/api/v1"), testHandlers())

	for _, target := range []string{
		"/api/v1/orders",
		"/api/v1/admin/orders",
		"/api/v1/admin/products/low-stock",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}
