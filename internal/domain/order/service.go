// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/dberr"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

const (
	maxOrderNumberAttempts = 3
	compensationTimeout    = 5 * time.Second
)

// ProductLookup resolves sellable products
type ProductLookup interface {
	GetActiveProduct(ctx context.Context, id uint) (*product.Product, error)
}

// CartSnapshotter reads and clears the cart an order is placed from
type CartSnapshotter interface {
	GetCart(ctx context.Context, id cart.Identity) (*cart.Cart, error)
	ClearCart(ctx context.Context, id cart.Identity) error
}

// Notifier delivers customer notifications about an order
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
	OrderPaid(ctx context.Context, o *Order) error
}

// Service handles order business logic
type Service struct {
	repo     Repository
	products ProductLookup
	carts    CartSnapshotter
	notifier Notifier
	rules    PricingRules
	prefix   string
	currency string
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a new order service
func NewService(repo Repository, products ProductLookup, carts CartSnapshotter, notifier Notifier, cfg *config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		carts:    carts,
		notifier: notifier,
		rules:    RulesFromConfig(cfg),
		prefix:   cfg.Commerce.OrderNumberPrefix,
		currency: cfg.Commerce.Currency,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// LineInput is one requested product and quantity
type LineInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// CheckoutRequest represents order creation data
type CheckoutRequest struct {
	Email                string   `json:"email"`
	ShippingAddress      Address  `json:"shipping_address" binding:"required"`
	BillingAddress       *Address `json:"billing_address,omitempty"` // Optional, defaults to shipping
	UseShippingAsBilling bool     `json:"use_shipping_as_billing"`
	Notes                string   `json:"notes,omitempty"`
}

// CreateOrderInput is a full order request
type CreateOrderInput struct {
	UserID   string
	Email    string
	Lines    []LineInput
	Shipping Address
	Billing  *Address
	Notes    string
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order               `json:"orders"`
	Pagination pagination.Pagination `json:"pagination"`
}

// CreateOrderFromCart places an order from the identity's current cart and clears it
func (s *Service) CreateOrderFromCart(ctx context.Context, id cart.Identity, email string, req *CheckoutRequest) (*Order, error) {
	snapshot, err := s.carts.GetCart(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Items) == 0 {
		return nil, apperror.Validation("cart is empty")
	}

	lines := make([]LineInput, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		lines = append(lines, LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	if email == "" {
		email = req.Email
	}

	billing := req.BillingAddress
	if req.UseShippingAsBilling {
		billing = nil
	}

	o, err := s.CreateOrder(ctx, CreateOrderInput{
		UserID:   id.UserID,
		Email:    email,
		Lines:    lines,
		Shipping: req.ShippingAddress,
		Billing:  billing,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.ClearCart(ctx, id); err != nil {
		s.log.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"user_id":      id.UserID,
			"session_id":   id.SessionID,
			"error":        err.Error(),
		}).Warn("Failed to clear cart after order creation")
	}

	return o, nil
}

// CreateOrder validates and prices the lines, then writes the header and its
// items. If the items cannot be written the header is deleted again so an
// order never exists without items.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if len(in.Lines) == 0 {
		return nil, apperror.Validation("order must contain at least one item")
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, apperror.Validation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.Validation("email is invalid")
	}
	if missing := in.Shipping.missing(); len(missing) > 0 {
		return nil, apperror.Validationf("shipping address is missing: %s", strings.Join(missing, ", "))
	}

	billing := in.Shipping
	if in.Billing != nil {
		if missing := in.Billing.missing(); len(missing) > 0 {
			return nil, apperror.Validationf("billing address is missing: %s", strings.Join(missing, ", "))
		}
		billing = *in.Billing
	}

	items, err := s.buildItems(ctx, in.Lines)
	if err != nil {
		return nil, err
	}

	totals := CalculateTotals(items, s.rules)

	o := &Order{
		Email:           email,
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusPending,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		Currency:        s.currency,
		ShippingAddress: in.Shipping,
		BillingAddress:  billing,
		Notes:           in.Notes,
	}
	if in.UserID != "" {
		userID := in.UserID
		o.UserID = &userID
	}

	if err := s.insertHeader(ctx, o); err != nil {
		return nil, err
	}

	for i := range items {
		items[i].OrderID = o.ID
	}

	if err := s.repo.CreateItems(ctx, items); err != nil {
		s.compensate(ctx, o, err)
		return nil, apperror.Upstream("create order items", err)
	}
	o.Items = items

	history := &OrderStatusHistory{
		OrderID:   o.ID,
		Status:    OrderStatusPending,
		Comment:   "Order placed",
		Actor:     actorFor(in.UserID),
		CreatedAt: s.now(),
	}
	if err := s.repo.AddStatusHistory(ctx, history); err != nil {
		s.log.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"error":        err.Error(),
		}).Warn("Failed to record initial order status")
	}

	s.log.WithFields(logrus.Fields{
		"order_number": o.OrderNumber,
		"user_id":      in.UserID,
		"total":        o.Total.StringFixed(2),
		"items":        len(items),
	}).Info("Order created")

	if err := s.notifier.OrderPlaced(ctx, o); err != nil {
		s.log.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"error":        err.Error(),
		}).Warn("Failed to send order confirmation")
	}

	return o, nil
}

// buildItems denormalizes product data into line snapshots, merging repeated products
func (s *Service) buildItems(ctx context.Context, lines []LineInput) ([]OrderItem, error) {
	quantities := make(map[uint]int, len(lines))
	sequence := make([]uint, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == 0 {
			return nil, apperror.Validation("product_id is required")
		}
		if line.Quantity <= 0 {
			return nil, apperror.Validationf("quantity for product %d must be positive", line.ProductID)
		}
		if _, seen := quantities[line.ProductID]; !seen {
			sequence = append(sequence, line.ProductID)
		}
		quantities[line.ProductID] += line.Quantity
	}

	items := make([]OrderItem, 0, len(sequence))
	for _, productID := range sequence {
		prod, err := s.products.GetActiveProduct(ctx, productID)
		if err != nil {
			if apperror.Is(err, apperror.KindNotFound) {
				return nil, apperror.Validationf("product %d is no longer available", productID)
			}
			return nil, err
		}

		qty := quantities[productID]
		items = append(items, OrderItem{
			ProductID: prod.ID,
			SKU:       prod.SKU,
			Name:      prod.Name,
			Quantity:  qty,
			UnitPrice: prod.Price,
			LineTotal: prod.Price.Mul(decimalFromInt(qty)),
			CreatedAt: s.now(),
		})
	}
	return items, nil
}

// insertHeader retries with a fresh number if the unique index rejects one
func (s *Service) insertHeader(ctx context.Context, o *Order) error {
	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		o.OrderNumber = GenerateOrderNumber(s.prefix, s.now())
		err = s.repo.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !dberr.IsUniqueViolation(err) {
			return apperror.Upstream("create order", err)
		}
		s.log.WithField("order_number", o.OrderNumber).Warn("Order number collision, retrying")
	}
	return apperror.Upstream("create order", err)
}

// compensate deletes the header of an order whose items failed to insert. It
// ignores the request's cancellation and runs under its own timeout.
func (s *Service) compensate(ctx context.Context, o *Order, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	entry := s.log.WithFields(logrus.Fields{
		"order_number": o.OrderNumber,
		"order_id":     o.ID,
		"cause":        cause.Error(),
	})

	if err := s.repo.Delete(ctx, o.ID); err != nil {
		entry.WithField("error", err.Error()).Error("Failed to roll back order header after item insert failure")
		return
	}
	entry.Warn("Rolled back order header after item insert failure")
}

// GetByID retrieves a single order by ID
func (s *Service) GetByID(ctx context.Context, id uint) (*Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	return o, mapRepoError("load order", err)
}

// GetByNumber retrieves a single order by order number
func (s *Service) GetByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := s.repo.FindByNumber(ctx, number)
	return o, mapRepoError("load order", err)
}

// find accepts an order number or a numeric id
func (s *Service) find(ctx context.Context, numberOrID string) (*Order, error) {
	o, err := s.repo.FindByNumber(ctx, numberOrID)
	if errors.Is(err, ErrOrderNotFound) {
		if id, convErr := strconv.ParseUint(numberOrID, 10, 64); convErr == nil {
			o, err = s.repo.FindByID(ctx, uint(id))
		}
	}
	return o, mapRepoError("load order", err)
}

// List retrieves orders with filtering and pagination
func (s *Service) List(ctx context.Context, filter ListFilter) (*OrderResponse, error) {
	filter.Page, filter.Limit = pagination.Normalize(filter.Page, filter.Limit)

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Upstream("list orders", err)
	}

	return &OrderResponse{
		Orders:     orders,
		Pagination: pagination.New(filter.Page, filter.Limit, total),
	}, nil
}

// ListForUser retrieves orders placed by a specific user
func (s *Service) ListForUser(ctx context.Context, userID string, page, limit int) (*OrderResponse, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	return s.List(ctx, ListFilter{Page: page, Limit: limit, UserID: userID})
}

// UpdateStatus moves an order along the fulfilment state machine
func (s *Service) UpdateStatus(ctx context.Context, id uint, to OrderStatus, comment, actor string) (*Order, error) {
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if o.Status == to {
		return o, nil
	}
	if !CanTransition(o.Status, to) {
		return nil, apperror.Conflict(fmt.Sprintf("invalid status transition from %s to %s", o.Status, to))
	}

	if err := s.transition(ctx, o, to, comment, actor); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

func (s *Service) transition(ctx context.Context, o *Order, to OrderStatus, comment, actor string) error {
	now := s.now()
	updates := map[string]interface{}{}
	switch to {
	case OrderStatusProcessing:
		updates["processed_at"] = now
	case OrderStatusShipped:
		updates["shipped_at"] = now
	case OrderStatusDelivered:
		updates["delivered_at"] = now
	case OrderStatusCancelled:
		updates["cancelled_at"] = now
	}

	changed, err := s.repo.UpdateStatus(ctx, o.ID, o.Status, to, updates)
	if err != nil {
		return apperror.Upstream("update order status", err)
	}
	if !changed {
		return apperror.Conflict("order status was changed by another request")
	}

	history := &OrderStatusHistory{
		OrderID:   o.ID,
		Status:    to,
		Comment:   comment,
		Actor:     actor,
		CreatedAt: now,
	}
	if err := s.repo.AddStatusHistory(ctx, history); err != nil {
		s.log.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"status":       to,
			"error":        err.Error(),
		}).Warn("Failed to record order status history")
	}

	s.log.WithFields(logrus.Fields{
		"order_number": o.OrderNumber,
		"from":         o.Status,
		"to":           to,
		"actor":        actor,
	}).Info("Order status updated")

	o.Status = to
	return nil
}

// UpdatePaymentStatus reconciles the payment state of an order. Repeating a
// call with the status the order already has changes nothing and reports
// changed=false. Becoming paid also starts fulfilment of a pending order.
func (s *Service) UpdatePaymentStatus(ctx context.Context, numberOrID, status, reference string) (*Order, bool, error) {
	target, ok := ParsePaymentStatus(status)
	if !ok {
		return nil, false, apperror.Validationf("unknown payment status %q", status)
	}

	o, err := s.find(ctx, numberOrID)
	if err != nil {
		return nil, false, err
	}

	if o.PaymentStatus == target {
		return o, false, nil
	}
	if !CanTransitionPayment(o.PaymentStatus, target) {
		return nil, false, apperror.Conflict(fmt.Sprintf("payment status cannot change from %s to %s", o.PaymentStatus, target))
	}

	updates := map[string]interface{}{}
	if reference != "" {
		updates["payment_reference"] = reference
	}
	if target == PaymentStatusPaid {
		updates["paid_at"] = s.now()
	}

	changed, err := s.repo.ApplyPaymentStatus(ctx, o.ID, o.PaymentStatus, target, updates)
	if err != nil {
		return nil, false, apperror.Upstream("update payment status", err)
	}
	if !changed {
		// Another request applied a payment update first
		current, err := s.GetByID(ctx, o.ID)
		return current, false, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"order_number": o.OrderNumber,
		"from":         o.PaymentStatus,
		"to":           target,
		"reference":    reference,
	})
	entry.Info("Order payment status updated")

	switch {
	case target == PaymentStatusPaid && o.Status == OrderStatusPending:
		if err := s.transition(ctx, o, OrderStatusProcessing, "Payment received", "payment"); err != nil {
			entry.WithField("error", err.Error()).Error("Failed to start fulfilment after payment")
		}
	case target == PaymentStatusRefunded && CanTransition(o.Status, OrderStatusRefunded):
		if err := s.transition(ctx, o, OrderStatusRefunded, "Payment refunded", "payment"); err != nil {
			entry.WithField("error", err.Error()).Error("Failed to mark order refunded")
		}
	}

	updated, err := s.GetByID(ctx, o.ID)
	if err != nil {
		return nil, true, err
	}

	if target == PaymentStatusPaid {
		if err := s.notifier.OrderPaid(ctx, updated); err != nil {
			entry.WithField("error", err.Error()).Warn("Failed to send payment confirmation")
		}
	}

	return updated, true, nil
}

func mapRepoError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOrderNotFound):
		return apperror.NotFound("order not found")
	default:
		return apperror.Upstream(op, err)
	}
}

func actorFor(userID string) string {
	if userID == "" {
		return "guest"
	}
	return userID
}
