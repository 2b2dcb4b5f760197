// internal/domain/booking/service.go
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/dberr"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

const maxReferenceAttempts = 3

// Notifier delivers customer notifications about a booking
type Notifier interface {
	BookingPlaced(ctx context.Context, b *RealEstateBooking) error
	BookingPaid(ctx context.Context, b *RealEstateBooking) error
}

// Service handles property bookings
type Service struct {
	repo     Repository
	notifier Notifier
	prefix   string
	currency string
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a new booking service
func NewService(repo Repository, notifier Notifier, cfg *config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		prefix:   cfg.Commerce.BookingReferencePrefix,
		currency: cfg.Commerce.Currency,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBookingRequest represents booking creation data
type CreateBookingRequest struct {
	PropertyID uint   `json:"property_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	GuestName  string `json:"guest_name" binding:"required"`
	GuestEmail string `json:"guest_email" binding:"required,email"`
	GuestPhone string `json:"guest_phone"`
	Guests     int    `json:"guests"`
	Notes      string `json:"notes"`
}

// Availability is the answer to an availability query
type Availability struct {
	PropertyID    uint            `json:"property_id"`
	CheckIn       string          `json:"check_in"`
	CheckOut      string          `json:"check_out"`
	Available     bool            `json:"available"`
	Nights        int             `json:"nights"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	Total         decimal.Decimal `json:"total"`
}

// BookingResponse represents booking response with pagination
type BookingResponse struct {
	Bookings   []RealEstateBooking   `json:"bookings"`
	Pagination pagination.Pagination `json:"pagination"`
}

// GenerateReference builds a booking reference: PREFIX-yyyymmdd-XXXXXX
func GenerateReference(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix)
}

// ListProperties returns the active properties
func (s *Service) ListProperties(ctx context.Context) ([]Property, error) {
	properties, err := s.repo.ListProperties(ctx)
	if err != nil {
		return nil, apperror.Upstream("list properties", err)
	}
	return properties, nil
}

// GetPropertyBySlug returns an active property
func (s *Service) GetPropertyBySlug(ctx context.Context, slug string) (*Property, error) {
	p, err := s.repo.FindPropertyBySlug(ctx, slug)
	return p, mapRepoError("load property", err)
}

func (s *Service) activeProperty(ctx context.Context, id uint) (*Property, error) {
	p, err := s.repo.FindProperty(ctx, id)
	if err != nil {
		return nil, mapRepoError("load property", err)
	}
	if !p.IsActive {
		return nil, apperror.NotFound("property not found")
	}
	return p, nil
}

// CheckAvailability reports false when a pending or confirmed booking of the
// property overlaps [checkIn, checkOut).
func (s *Service) CheckAvailability(ctx context.Context, propertyID uint, checkIn, checkOut string) (*Availability, error) {
	stay, nights, err := ParseStay(checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	p, err := s.activeProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.HasOverlap(ctx, propertyID, stay)
	if err != nil {
		return nil, apperror.Upstream("check availability", err)
	}

	return &Availability{
		PropertyID:    propertyID,
		CheckIn:       stay.Start.Format(DateLayout),
		CheckOut:      stay.End.Format(DateLayout),
		Available:     !taken,
		Nights:        nights,
		PricePerNight: p.PricePerNight,
		Total:         p.PricePerNight.Mul(decimal.NewFromInt(int64(nights))),
	}, nil
}

// CreateBooking validates the request and books the stay. The availability
// re-check and the insert happen atomically in the repository, so of two
// racing requests for the same dates only the first succeeds.
func (s *Service) CreateBooking(ctx context.Context, userID string, req *CreateBookingRequest) (*RealEstateBooking, error) {
	stay, nights, err := ParseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	today := s.now().Truncate(24 * time.Hour)
	if stay.Start.Before(today) {
		return nil, apperror.Validation("check-in cannot be in the past")
	}

	name := strings.TrimSpace(req.GuestName)
	if name == "" {
		return nil, apperror.Validation("guest_name is required")
	}
	email := strings.TrimSpace(req.GuestEmail)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperror.Validation("guest_email is invalid")
	}

	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	if guests < 0 {
		return nil, apperror.Validation("guests must be positive")
	}

	p, err := s.activeProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if p.MaxGuests > 0 && guests > p.MaxGuests {
		return nil, apperror.Validationf("this property accepts at most %d guests", p.MaxGuests)
	}

	b := &RealEstateBooking{
		PropertyID:    p.ID,
		CheckIn:       stay.Start,
		CheckOut:      stay.End,
		Nights:        nights,
		GuestName:     name,
		GuestEmail:    email,
		GuestPhone:    strings.TrimSpace(req.GuestPhone),
		Guests:        guests,
		PricePerNight: p.PricePerNight,
		Total:         p.PricePerNight.Mul(decimal.NewFromInt(int64(nights))),
		Currency:      s.currency,
		Status:        BookingStatusPending,
		PaymentStatus: PaymentStatusPending,
		Notes:         req.Notes,
	}
	if userID != "" {
		b.UserID = &userID
	}

	if err := s.insertBooking(ctx, b); err != nil {
		return nil, err
	}
	b.Property = p

	s.log.WithFields(logrus.Fields{
		"reference":   b.Reference,
		"property_id": b.PropertyID,
		"check_in":    req.CheckIn,
		"check_out":   req.CheckOut,
		"total":       b.Total.StringFixed(2),
	}).Info("Booking created")

	if err := s.notifier.BookingPlaced(ctx, b); err != nil {
		s.log.WithFields(logrus.Fields{
			"reference": b.Reference,
			"error":     err.Error(),
		}).Warn("Failed to send booking confirmation")
	}

	return b, nil
}

// insertBooking retries with a fresh reference if the unique index rejects one
func (s *Service) insertBooking(ctx context.Context, b *RealEstateBooking) error {
	var err error
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		b.Reference = GenerateReference(s.prefix, s.now())
		err = s.repo.CreateIfAvailable(ctx, b)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrDatesUnavailable):
			return apperror.Conflict("dates no longer available")
		case !dberr.IsUniqueViolation(err):
			return mapRepoError("create booking", err)
		}
		s.log.WithField("reference", b.Reference).Warn("Booking reference collision, retrying")
	}
	return apperror.Upstream("create booking", err)
}

// GetByReference retrieves a booking by its reference
func (s *Service) GetByReference(ctx context.Context, reference string) (*RealEstateBooking, error) {
	b, err := s.repo.FindByReference(ctx, reference)
	return b, mapRepoError("load booking", err)
}

// List retrieves bookings with filtering and pagination
func (s *Service) List(ctx context.Context, filter ListFilter) (*BookingResponse, error) {
	filter.Page, filter.Limit = pagination.Normalize(filter.Page, filter.Limit)

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Upstream("list bookings", err)
	}

	return &BookingResponse{
		Bookings:   bookings,
		Pagination: pagination.New(filter.Page, filter.Limit, total),
	}, nil
}

// UpdateStatus moves a booking along its lifecycle
func (s *Service) UpdateStatus(ctx context.Context, reference string, to BookingStatus, actor string) (*RealEstateBooking, error) {
	b, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if b.Status == to {
		return b, nil
	}
	if !CanTransition(b.Status, to) {
		return nil, apperror.Conflict(fmt.Sprintf("invalid status transition from %s to %s", b.Status, to))
	}

	if err := s.transition(ctx, b, to, actor); err != nil {
		return nil, err
	}

	return s.GetByReference(ctx, reference)
}

func (s *Service) transition(ctx context.Context, b *RealEstateBooking, to BookingStatus, actor string) error {
	changed, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, to)
	if err != nil {
		if errors.Is(err, ErrDatesUnavailable) {
			return apperror.Conflict("dates no longer available")
		}
		return apperror.Upstream("update booking status", err)
	}
	if !changed {
		return apperror.Conflict("booking status was changed by another request")
	}

	s.log.WithFields(logrus.Fields{
		"reference": b.Reference,
		"from":      b.Status,
		"to":        to,
		"actor":     actor,
	}).Info("Booking status updated")

	b.Status = to
	return nil
}

// UpdatePaymentStatus reconciles the payment state of a booking with the same
// idempotence rules as orders. Becoming paid confirms a pending booking.
func (s *Service) UpdatePaymentStatus(ctx context.Context, reference, status, paymentReference string) (*RealEstateBooking, bool, error) {
	target, ok := ParsePaymentStatus(status)
	if !ok {
		return nil, false, apperror.Validationf("unknown payment status %q", status)
	}

	b, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, false, err
	}

	if b.PaymentStatus == target {
		return b, false, nil
	}
	if !CanTransitionPayment(b.PaymentStatus, target) {
		return nil, false, apperror.Conflict(fmt.Sprintf("payment status cannot change from %s to %s", b.PaymentStatus, target))
	}

	updates := map[string]interface{}{}
	if paymentReference != "" {
		updates["payment_reference"] = paymentReference
	}
	if target == PaymentStatusPaid {
		updates["paid_at"] = s.now()
	}

	changed, err := s.repo.ApplyPaymentStatus(ctx, b.ID, b.PaymentStatus, target, updates)
	if err != nil {
		return nil, false, apperror.Upstream("update booking payment status", err)
	}
	if !changed {
		current, err := s.GetByReference(ctx, reference)
		return current, false, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"reference": b.Reference,
		"from":      b.PaymentStatus,
		"to":        target,
	})
	entry.Info("Booking payment status updated")

	if target == PaymentStatusPaid && b.Status == BookingStatusPending {
		if err := s.transition(ctx, b, BookingStatusConfirmed, "payment"); err != nil {
			entry.WithField("error", err.Error()).Error("Failed to confirm booking after payment")
		}
	}

	updated, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, true, err
	}

	if target == PaymentStatusPaid {
		if err := s.notifier.BookingPaid(ctx, updated); err != nil {
			entry.WithField("error", err.Error()).Warn("Failed to send booking payment confirmation")
		}
	}

	return updated, true, nil
}

func mapRepoError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBookingNotFound):
		return apperror.NotFound("booking not found")
	case errors.Is(err, ErrPropertyNotFound):
		return apperror.NotFound("property not found")
	default:
		return apperror.Upstream(op, err)
	}
}
