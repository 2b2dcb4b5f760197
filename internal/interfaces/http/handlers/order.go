// internal/interfaces/http/handlers/order.go
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// OrderService is the order surface used over HTTP
type OrderService interface {
	CreateOrderFromCart(ctx context.Context, id cart.Identity, email string, req *order.CheckoutRequest) (*order.Order, error)
	GetByID(ctx context.Context, id uint) (*order.Order, error)
	GetByNumber(ctx context.Context, number string) (*order.Order, error)
	List(ctx context.Context, filter order.ListFilter) (*order.OrderResponse, error)
	ListForUser(ctx context.Context, userID string, page, limit int) (*order.OrderResponse, error)
	UpdateStatus(ctx context.Context, id uint, to order.OrderStatus, comment, actor string) (*order.Order, error)
	UpdatePaymentStatus(ctx context.Context, numberOrID, status, reference string) (*order.Order, bool, error)
}

// InvoiceRenderer renders an order invoice as PDF
type InvoiceRenderer interface {
	GenerateInvoice(o *order.Order) (*bytes.Buffer, error)
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	orders   OrderService
	invoices InvoiceRenderer
	sessions *Sessions
	log      logrus.FieldLogger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderService, invoices InvoiceRenderer, sessions *Sessions, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		invoices: invoices,
		sessions: sessions,
		log:      log,
	}
}

// UpdateOrderStatusRequest is the admin status change body
type UpdateOrderStatusRequest struct {
	Status  order.OrderStatus `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled refunded"`
	Comment string            `json:"comment"`
}

// UpdatePaymentStatusRequest is the admin payment reconciliation body
type UpdatePaymentStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	Reference string `json:"reference"`
}

// CreateOrder handles POST /orders. Guests must supply an email.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req order.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	id := h.sessions.Identity(c)
	email := ""
	if !id.IsGuest() {
		email = middleware.GetUserEmail(c)
	}

	created, err := h.orders.CreateOrderFromCart(c.Request.Context(), id, email, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusCreated, "Order created successfully", created)
}

// GetUserOrders handles GET /orders
func (h *OrderHandler) GetUserOrders(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.orders.ListForUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Orders retrieved successfully", resp)
}

// GetOrder handles GET /orders/:number. Visible to the owner, an admin, or a
// guest who supplies the order's email.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	o, err := h.orders.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if !canViewOrder(c, o, c.Query("email")) {
		respondError(c, h.log, apperror.NotFound("order not found"))
		return
	}

	respondOK(c, http.StatusOK, "Order retrieved successfully", o)
}

// GetInvoice handles GET /orders/:number/invoice
func (h *OrderHandler) GetInvoice(c *gin.Context) {
	o, err := h.orders.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if !canViewOrder(c, o, "") {
		respondError(c, h.log, apperror.NotFound("order not found"))
		return
	}

	pdf, err := h.invoices.GenerateInvoice(o)
	if err != nil {
		respondError(c, h.log, apperror.Upstream("generate invoice", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", o.OrderNumber))
	c.Data(http.StatusOK, "application/pdf", pdf.Bytes())
}

// ListOrders handles GET /admin/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var filter order.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Orders retrieved successfully", resp)
}

// UpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	id, err := h.resolveOrderID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	updated, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Comment, adminActor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Order status updated successfully", updated)
}

// UpdatePaymentStatus handles PUT /admin/orders/:id/payment-status
func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, changed, err := h.orders.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), req.Status, req.Reference)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Payment status reconciled", gin.H{
		"order":   updated,
		"changed": changed,
	})
}

// resolveOrderID accepts a numeric id or an order number
func (h *OrderHandler) resolveOrderID(ctx context.Context, param string) (uint, error) {
	if id, err := strconv.ParseUint(param, 10, 32); err == nil && id > 0 {
		return uint(id), nil
	}
	o, err := h.orders.GetByNumber(ctx, param)
	if err != nil {
		return 0, err
	}
	return o.ID, nil
}

func canViewOrder(c *gin.Context, o *order.Order, email string) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	if userID, ok := middleware.GetUserID(c); ok && o.IsOwnedBy(userID) {
		return true
	}
	return o.UserID == nil && email != "" && strings.EqualFold(strings.TrimSpace(email), o.Email)
}

func adminActor(c *gin.Context) string {
	if email := middleware.GetUserEmail(c); email != "" {
		return email
	}
	userID, _ := middleware.GetUserID(c)
	return userID
}
