// internal/domain/payment/service.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/booking"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/datatypes"
)

// OrderPayments is the order side of payment reconciliation
type OrderPayments interface {
	GetByNumber(ctx context.Context, number string) (*order.Order, error)
	UpdatePaymentStatus(ctx context.Context, numberOrID, status, reference string) (*order.Order, bool, error)
}

// BookingPayments is the booking side of payment reconciliation
type BookingPayments interface {
	GetByReference(ctx context.Context, reference string) (*booking.RealEstateBooking, error)
	UpdatePaymentStatus(ctx context.Context, reference, status, paymentReference string) (*booking.RealEstateBooking, bool, error)
}

// Service initializes gateway checkouts and reconciles their outcome
type Service struct {
	gateway     Gateway
	txns        Repository
	orders      OrderPayments
	bookings    BookingPayments
	secret      string
	callbackURL string
	log         logrus.FieldLogger
	now         func() time.Time
	marshal     func(v interface{}) ([]byte, error)
}

// NewService creates a new payment service
func NewService(gateway Gateway, txns Repository, orders OrderPayments, bookings BookingPayments, cfg *config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		gateway:     gateway,
		txns:        txns,
		orders:      orders,
		bookings:    bookings,
		secret:      cfg.External.Paystack.SecretKey,
		callbackURL: cfg.PaymentCallbackURL(),
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		marshal:     json.Marshal,
	}
}

// InitializePaymentRequest names exactly one order or booking to pay for
type InitializePaymentRequest struct {
	OrderNumber      string `json:"order_number"`
	BookingReference string `json:"booking_reference"`
}

// Checkout is what the client needs to send the shopper to the gateway
type Checkout struct {
	Reference        string          `json:"reference"`
	AuthorizationURL string          `json:"authorization_url"`
	AccessCode       string          `json:"access_code,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

// Outcome is the reconciled result of a verification
type Outcome struct {
	Reference        string      `json:"reference"`
	Status           Status      `json:"status"`
	SubjectType      SubjectType `json:"subject_type"`
	SubjectReference string      `json:"subject_reference"`
	Message          string      `json:"message,omitempty"`
}

type subject struct {
	kind      SubjectType
	reference string
	email     string
	amount    decimal.Decimal
	currency  string
}

// Initialize dispatches on whichever reference the request carries
func (s *Service) Initialize(ctx context.Context, req *InitializePaymentRequest) (*Checkout, error) {
	switch {
	case req.OrderNumber != "" && req.BookingReference != "":
		return nil, apperror.Validation("provide either order_number or booking_reference, not both")
	case req.OrderNumber != "":
		return s.InitializeOrderPayment(ctx, req.OrderNumber)
	case req.BookingReference != "":
		return s.InitializeBookingPayment(ctx, req.BookingReference)
	default:
		return nil, apperror.Validation("order_number or booking_reference is required")
	}
}

// InitializeOrderPayment starts a gateway checkout for an unpaid order
func (s *Service) InitializeOrderPayment(ctx context.Context, orderNumber string) (*Checkout, error) {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.IsPaid() {
		return nil, apperror.Conflict("order is already paid")
	}
	if o.Status == order.OrderStatusCancelled || o.Status == order.OrderStatusRefunded {
		return nil, apperror.Conflict(fmt.Sprintf("order is %s", o.Status))
	}

	return s.initialize(ctx, subject{
		kind:      SubjectOrder,
		reference: o.OrderNumber,
		email:     o.Email,
		amount:    o.Total,
		currency:  o.Currency,
	})
}

// InitializeBookingPayment starts a gateway checkout for an unpaid booking
func (s *Service) InitializeBookingPayment(ctx context.Context, reference string) (*Checkout, error) {
	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == booking.PaymentStatusPaid {
		return nil, apperror.Conflict("booking is already paid")
	}
	if !b.HoldsDates() {
		return nil, apperror.Conflict(fmt.Sprintf("booking is %s", b.Status))
	}

	return s.initialize(ctx, subject{
		kind:      SubjectBooking,
		reference: b.Reference,
		email:     b.GuestEmail,
		amount:    b.Total,
		currency:  b.Currency,
	})
}

func (s *Service) initialize(ctx context.Context, sub subject) (*Checkout, error) {
	previous, err := s.txns.ListForSubject(ctx, sub.kind, sub.reference)
	if err != nil {
		return nil, apperror.Upstream("list payment transactions", err)
	}

	amountMinor := ToMinorUnits(sub.amount)
	for _, t := range previous {
		if t.Status == StatusPending && t.AuthorizationURL != "" && t.AmountMinor == amountMinor {
			return checkoutFrom(&t), nil
		}
	}

	// The gateway rejects a reused reference, so retries get a suffix
	reference := sub.reference
	if len(previous) > 0 {
		reference = fmt.Sprintf("%s-R%d", sub.reference, len(previous))
	}

	metadata := map[string]interface{}{
		"subject_type":      sub.kind,
		"subject_reference": sub.reference,
	}
	meta, err := s.marshal(metadata)
	if err != nil {
		return nil, apperror.Upstream("encode payment metadata", err)
	}

	entry := s.log.WithFields(logrus.Fields{
		"subject_type":      sub.kind,
		"subject_reference": sub.reference,
		"reference":         reference,
	})

	result, err := s.gateway.Initialize(ctx, InitializeRequest{
		Email:       sub.email,
		Amount:      sub.amount,
		Currency:    sub.currency,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Metadata:    metadata,
	})
	if err != nil {
		entry.WithField("error", err.Error()).Error("Failed to initialize payment")
		return nil, apperror.Upstream("initialize payment", err)
	}

	t := &PaymentTransaction{
		Reference:        reference,
		SubjectType:      sub.kind,
		SubjectReference: sub.reference,
		Email:            sub.email,
		Amount:           sub.amount,
		AmountMinor:      amountMinor,
		Currency:         sub.currency,
		Status:           StatusPending,
		Gateway:          "paystack",
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Metadata:         datatypes.JSON(meta),
	}
	if err := s.txns.Create(ctx, t); err != nil {
		return nil, apperror.Upstream("record payment transaction", err)
	}

	entry.Info("Payment initialized")
	return checkoutFrom(t), nil
}

func checkoutFrom(t *PaymentTransaction) *Checkout {
	return &Checkout{
		Reference:        t.Reference,
		AuthorizationURL: t.AuthorizationURL,
		AccessCode:       t.AccessCode,
		Amount:           t.Amount,
		Currency:         t.Currency,
	}
}

// Verify asks the gateway for the outcome of a transaction and applies it
// to the order or booking it pays for.
func (s *Service) Verify(ctx context.Context, reference string) (*Outcome, error) {
	t, err := s.txns.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, apperror.NotFound("payment not found")
		}
		return nil, apperror.Upstream("find payment transaction", err)
	}

	entry := s.log.WithFields(logrus.Fields{
		"reference":         t.Reference,
		"subject_type":      t.SubjectType,
		"subject_reference": t.SubjectReference,
	})

	result, err := s.gateway.Verify(ctx, t.Reference)
	if err != nil {
		entry.WithField("error", err.Error()).Error("Payment verification failed")
		return nil, apperror.Upstream("verify payment", err)
	}

	status := MapGatewayStatus(result.Status)
	if status == StatusPaid && (result.Amount != t.AmountMinor || !sameCurrency(result.Currency, t.Currency)) {
		entry.WithFields(logrus.Fields{
			"expected_amount":   t.Amount.StringFixed(2),
			"received_amount":   FromMinorUnits(result.Amount).StringFixed(2),
			"expected_currency": t.Currency,
			"received_currency": result.Currency,
		}).Error("Payment amount does not match, treating as failed")
		status = StatusFailed
	}

	raw := datatypes.JSON(result.Raw)
	if len(raw) == 0 {
		raw = datatypes.JSON("{}")
	}
	if err := s.txns.RecordVerification(ctx, t.Reference, status, raw, s.now()); err != nil {
		return nil, apperror.Upstream("record payment verification", err)
	}

	if status != StatusPending {
		if err := s.reconcile(ctx, t, status); err != nil {
			if !apperror.Is(err, apperror.KindConflict) {
				return nil, err
			}
			entry.WithFields(logrus.Fields{
				"status": status,
				"error":  err.Error(),
			}).Warn("Payment outcome not applied")
		}
	}

	entry.WithField("status", status).Info("Payment verified")

	return &Outcome{
		Reference:        t.Reference,
		Status:           status,
		SubjectType:      t.SubjectType,
		SubjectReference: t.SubjectReference,
		Message:          result.GatewayResponse,
	}, nil
}

func (s *Service) reconcile(ctx context.Context, t *PaymentTransaction, status Status) error {
	switch t.SubjectType {
	case SubjectOrder:
		_, _, err := s.orders.UpdatePaymentStatus(ctx, t.SubjectReference, string(status), t.Reference)
		return err
	case SubjectBooking:
		_, _, err := s.bookings.UpdatePaymentStatus(ctx, t.SubjectReference, string(status), t.Reference)
		return err
	default:
		return apperror.Upstream("reconcile payment", fmt.Errorf("unknown subject type %q", t.SubjectType))
	}
}

func sameCurrency(a, b string) bool {
	return a == "" || b == "" || a == b
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// HandleWebhook authenticates a gateway event and reconciles successful
// charges. Once the signature checks out the event is acknowledged even
// when processing fails, since verification can be repeated from the
// callback page.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !ValidSignature(s.secret, body, signature) {
		return apperror.Unauthenticated("invalid webhook signature")
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.WithField("error", err.Error()).Warn("Ignoring malformed webhook payload")
		return nil
	}

	entry := s.log.WithFields(logrus.Fields{
		"event":     event.Event,
		"reference": event.Data.Reference,
	})

	if event.Event != "charge.success" || event.Data.Reference == "" {
		entry.Debug("Ignoring webhook event")
		return nil
	}

	if _, err := s.Verify(ctx, event.Data.Reference); err != nil {
		entry.WithField("error", err.Error()).Error("Failed to process webhook")
	}
	return nil
}
