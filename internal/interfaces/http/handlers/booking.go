// internal/interfaces/http/handlers/booking.go
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/booking"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// BookingService is the booking surface used over HTTP
type BookingService interface {
	ListProperties(ctx context.Context) ([]booking.Property, error)
	GetPropertyBySlug(ctx context.Context, slug string) (*booking.Property, error)
	CheckAvailability(ctx context.Context, propertyID uint, checkIn, checkOut string) (*booking.Availability, error)
	CreateBooking(ctx context.Context, userID string, req *booking.CreateBookingRequest) (*booking.RealEstateBooking, error)
	GetByReference(ctx context.Context, reference string) (*booking.RealEstateBooking, error)
	List(ctx context.Context, filter booking.ListFilter) (*booking.BookingResponse, error)
	UpdateStatus(ctx context.Context, reference string, to booking.BookingStatus, actor string) (*booking.RealEstateBooking, error)
}

// BookingHandler handles property and booking endpoints
type BookingHandler struct {
	bookings BookingService
	log      logrus.FieldLogger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingService, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		log:      log,
	}
}

// UpdateBookingStatusRequest is the admin status change body
type UpdateBookingStatusRequest struct {
	Status booking.BookingStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
}

// GetProperties handles GET /properties
func (h *BookingHandler) GetProperties(c *gin.Context) {
	properties, err := h.bookings.ListProperties(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Properties retrieved successfully", properties)
}

// GetProperty handles GET /properties/:slug
func (h *BookingHandler) GetProperty(c *gin.Context) {
	p, err := h.bookings.GetPropertyBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Property retrieved successfully", p)
}

// CheckAvailability handles GET /properties/:slug/availability. The path
// segment may be the numeric property id or its slug.
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	checkIn, checkOut := c.Query("check_in"), c.Query("check_out")
	if checkIn == "" || checkOut == "" {
		respondError(c, h.log, apperror.Validation("check_in and check_out are required"))
		return
	}

	propertyID, err := h.resolvePropertyID(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	availability, err := h.bookings.CheckAvailability(c.Request.Context(), propertyID, checkIn, checkOut)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Availability retrieved successfully", availability)
}

// CreateBooking handles POST /bookings. Authentication is optional.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req booking.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	created, err := h.bookings.CreateBooking(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusCreated, "Booking created successfully", created)
}

// GetBooking handles GET /bookings/:reference
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.bookings.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if !canViewBooking(c, b, c.Query("email")) {
		respondError(c, h.log, apperror.NotFound("booking not found"))
		return
	}

	respondOK(c, http.StatusOK, "Booking retrieved successfully", b)
}

// ListBookings handles GET /admin/bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var filter booking.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Bookings retrieved successfully", resp)
}

// UpdateBookingStatus handles PUT /admin/bookings/:reference/status
func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	var req UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.bookings.UpdateStatus(c.Request.Context(), c.Param("reference"), req.Status, adminActor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Booking status updated successfully", updated)
}

func (h *BookingHandler) resolvePropertyID(ctx context.Context, param string) (uint, error) {
	if id, err := strconv.ParseUint(param, 10, 32); err == nil && id > 0 {
		return uint(id), nil
	}
	p, err := h.bookings.GetPropertyBySlug(ctx, param)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

func canViewBooking(c *gin.Context, b *booking.RealEstateBooking, email string) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	if userID, ok := middleware.GetUserID(c); ok && b.IsOwnedBy(userID) {
		return true
	}
	return b.UserID == nil && email != "" && strings.EqualFold(strings.TrimSpace(email), b.GuestEmail)
}
