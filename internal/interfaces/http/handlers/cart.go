// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// CartService is the cart surface used over HTTP
type CartService interface {
	GetCart(ctx context.Context, id cart.Identity) (*cart.Cart, error)
	AddItem(ctx context.Context, id cart.Identity, productID uint, quantity int) (*cart.Cart, error)
	UpdateItem(ctx context.Context, id cart.Identity, productID uint, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, id cart.Identity, productID uint) (*cart.Cart, error)
	ClearCart(ctx context.Context, id cart.Identity) error
	MergeGuestCart(ctx context.Context, id cart.Identity) (*cart.Cart, error)
}

// CartHandler handles cart endpoints
type CartHandler struct {
	carts    CartService
	sessions *Sessions
	log      logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts CartService, sessions *Sessions, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{carts: carts, sessions: sessions, log: log}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	result, err := h.carts.GetCart(c.Request.Context(), h.sessions.Identity(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart retrieved successfully", result)
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.carts.AddItem(c.Request.Context(), h.sessions.Identity(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Item added to cart successfully", result)
}

// UpdateCartItem handles PUT /cart/items/:productId
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	productID, err := parseUintParam(c, "productId")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var req cart.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.carts.UpdateItem(c.Request.Context(), h.sessions.Identity(c), productID, *req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart item updated successfully", result)
}

// RemoveFromCart handles DELETE /cart/items/:productId
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	productID, err := parseUintParam(c, "productId")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.carts.RemoveItem(c.Request.Context(), h.sessions.Identity(c), productID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Item removed from cart successfully", result)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.carts.ClearCart(c.Request.Context(), h.sessions.Identity(c)); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart cleared successfully", nil)
}

// MergeCart handles POST /cart/merge, folding the guest cart into the user's
func (h *CartHandler) MergeCart(c *gin.Context) {
	result, err := h.carts.MergeGuestCart(c.Request.Context(), h.sessions.Identity(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Guest cart merged successfully", result)
}
