// internal/domain/order/entity.go
package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ParsePaymentStatus accepts "completed" as an alias of paid
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "completed":
		return PaymentStatusPaid, true
	case "pending":
		return PaymentStatusPending, true
	case "failed":
		return PaymentStatusFailed, true
	case "refunded":
		return PaymentStatusRefunded, true
	}
	return "", false
}

// Order represents the order entity
type Order struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	OrderNumber      string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID           *string       `gorm:"index;size:255" json:"user_id"` // Nullable for guest orders
	Email            string        `gorm:"not null;size:255;index" json:"email"`
	Status           OrderStatus   `gorm:"not null;default:'pending';size:20;index" json:"status"`
	PaymentStatus    PaymentStatus `gorm:"not null;default:'pending';size:20;index" json:"payment_status"`
	PaymentReference string        `gorm:"size:100" json:"payment_reference,omitempty"`

	// Financial Information
	Subtotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	Shipping decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping"`
	Total    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Currency string          `gorm:"size:3;default:'NGN'" json:"currency"`

	// Addresses are copied at creation time
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	Notes string `gorm:"type:text" json:"notes"`

	// Timestamps
	PaidAt      *time.Time `json:"paid_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a line snapshot frozen at order creation
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	SKU       string          `gorm:"not null;size:100" json:"sku"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	Actor     string      `gorm:"size:255" json:"actor"`
	CreatedAt time.Time   `json:"created_at"`
}

// Address represents shipping/billing address (embedded in Order)
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name" binding:"required"`
	LastName     string `gorm:"size:100" json:"last_name" binding:"required"`
	AddressLine1 string `gorm:"size:255" json:"address_line1" binding:"required"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city" binding:"required"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country" binding:"required,len=2"`
	Phone        string `gorm:"size:30" json:"phone"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// FullName joins the first and last name
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// missing lists the required fields that are blank
func (a Address) missing() []string {
	var fields []string
	if strings.TrimSpace(a.FirstName) == "" {
		fields = append(fields, "first_name")
	}
	if strings.TrimSpace(a.LastName) == "" {
		fields = append(fields, "last_name")
	}
	if strings.TrimSpace(a.AddressLine1) == "" {
		fields = append(fields, "address_line1")
	}
	if strings.TrimSpace(a.City) == "" {
		fields = append(fields, "city")
	}
	if strings.TrimSpace(a.Country) == "" {
		fields = append(fields, "country")
	}
	return fields
}

// IsOwnedBy reports whether userID placed the order
func (o *Order) IsOwnedBy(userID string) bool {
	return userID != "" && o.UserID != nil && *o.UserID == userID
}

// IsPaid reports whether payment has been received
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransition reports whether the order state machine allows from -> to
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

var validPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusPaid, PaymentStatusPending},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

// CanTransitionPayment reports whether payment may move from -> to
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, allowed := range validPaymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
