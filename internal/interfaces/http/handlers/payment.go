// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// SignatureHeader carries the gateway's HMAC of the webhook body
const SignatureHeader = "x-paystack-signature"

// PaymentService is the payment surface used over HTTP
type PaymentService interface {
	Initialize(ctx context.Context, req *payment.InitializePaymentRequest) (*payment.Checkout, error)
	Verify(ctx context.Context, reference string) (*payment.Outcome, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	payments PaymentService
	log      logrus.FieldLogger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments PaymentService, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		log:      log,
	}
}

// InitializePayment handles POST /payments/initialize
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	var req payment.InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	checkout, err := h.payments.Initialize(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Payment initialized", checkout)
}

// VerifyPayment handles GET /payments/verify/:reference
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	outcome, err := h.payments.Verify(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Payment verified", outcome)
}

// Webhook handles POST /webhooks/paystack. The raw body is needed for the
// signature check so it is read before any binding.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBindError(c, err)
		return
	}
	if len(body) == 0 {
		respondError(c, h.log, apperror.Validation("empty webhook body"))
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader(SignatureHeader)); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
