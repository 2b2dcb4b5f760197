// internal/domain/booking/entity.go
package booking

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus represents the booking status
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// HoldsCalendar lists the statuses that block the dates of a booking
var HoldsCalendar = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// PaymentStatus represents payment status of a booking
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

// Property is a bookable real-estate listing
type Property struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Title         string          `gorm:"not null;size:255" json:"title"`
	Slug          string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Location      string          `gorm:"size:255" json:"location"`
	Description   string          `gorm:"type:text" json:"description"`
	PricePerNight decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_per_night"`
	MaxGuests     int             `gorm:"default:2" json:"max_guests"`
	ImageURL      string          `gorm:"size:500" json:"image_url"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RealEstateBooking reserves a property for [CheckIn, CheckOut)
type RealEstateBooking struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Reference        string          `gorm:"uniqueIndex;not null;size:50" json:"reference"`
	PropertyID       uint            `gorm:"not null;index" json:"property_id"`
	UserID           *string         `gorm:"index;size:255" json:"user_id"`
	CheckIn          time.Time       `gorm:"type:date;not null" json:"check_in"`
	CheckOut         time.Time       `gorm:"type:date;not null" json:"check_out"`
	Nights           int             `gorm:"not null" json:"nights"`
	GuestName        string          `gorm:"not null;size:255" json:"guest_name"`
	GuestEmail       string          `gorm:"not null;size:255" json:"guest_email"`
	GuestPhone       string          `gorm:"size:30" json:"guest_phone"`
	Guests           int             `gorm:"not null;default:1" json:"guests"`
	PricePerNight    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_per_night"`
	Total            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Currency         string          `gorm:"size:3;default:'NGN'" json:"currency"`
	Status           BookingStatus   `gorm:"not null;default:'pending';size:20;index" json:"status"`
	PaymentStatus    PaymentStatus   `gorm:"not null;default:'pending';size:20" json:"payment_status"`
	PaymentReference string          `gorm:"size:100" json:"payment_reference,omitempty"`
	Notes            string          `gorm:"type:text" json:"notes"`
	PaidAt           *time.Time      `json:"paid_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"property,omitempty"`
}

// TableName overrides
func (Property) TableName() string          { return "properties" }
func (RealEstateBooking) TableName() string { return "real_estate_bookings" }

// Range returns the stay as a half-open date range
func (b *RealEstateBooking) Range() Range {
	return Range{Start: b.CheckIn, End: b.CheckOut}
}

// IsOwnedBy reports whether the booking belongs to the given user
func (b *RealEstateBooking) IsOwnedBy(userID string) bool {
	return userID != "" && b.UserID != nil && *b.UserID == userID
}

// HoldsDates reports whether the booking blocks its dates for others
func (b *RealEstateBooking) HoldsDates() bool {
	for _, s := range HoldsCalendar {
		if b.Status == s {
			return true
		}
	}
	return false
}

var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransition reports whether a booking may move from -> to
func CanTransition(from, to BookingStatus) bool {
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
