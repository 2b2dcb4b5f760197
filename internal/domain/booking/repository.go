package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/dberr"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrBookingNotFound is returned by lookups that match no booking
	ErrBookingNotFound = errors.New("booking not found")
	// ErrPropertyNotFound is returned when the property does not exist
	ErrPropertyNotFound = errors.New("property not found")
	// ErrDatesUnavailable is returned when another booking already holds the dates
	ErrDatesUnavailable = errors.New("dates no longer available")
)

// ListFilter narrows a booking listing
type ListFilter struct {
	Page       int           `form:"page,default=1"`
	Limit      int           `form:"limit,default=20"`
	Status     BookingStatus `form:"status"`
	PropertyID uint          `form:"property_id"`
}

// Repository persists properties and bookings
type Repository interface {
	FindProperty(ctx context.Context, id uint) (*Property, error)
	FindPropertyBySlug(ctx context.Context, slug string) (*Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
	HasOverlap(ctx context.Context, propertyID uint, stay Range) (bool, error)
	// CreateIfAvailable re-checks the calendar and inserts as one atomic unit
	CreateIfAvailable(ctx context.Context, b *RealEstateBooking) error
	FindByReference(ctx context.Context, reference string) (*RealEstateBooking, error)
	List(ctx context.Context, filter ListFilter) ([]RealEstateBooking, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to BookingStatus) (bool, error)
	ApplyPaymentStatus(ctx context.Context, id uint, from, to PaymentStatus, updates map[string]interface{}) (bool, error)
}

// GormRepository is the postgres Repository
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm backed booking repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) FindProperty(ctx context.Context, id uint) (*Property, error) {
	var p Property
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to retrieve property: %w", err)
	}
	return &p, nil
}

func (r *GormRepository) FindPropertyBySlug(ctx context.Context, slug string) (*Property, error) {
	var p Property
	if err := r.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to retrieve property: %w", err)
	}
	return &p, nil
}

func (r *GormRepository) ListProperties(ctx context.Context) ([]Property, error) {
	var properties []Property
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("title ASC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve properties: %w", err)
	}
	return properties, nil
}

func overlapping(db *gorm.DB, propertyID uint, stay Range) *gorm.DB {
	return db.Model(&RealEstateBooking{}).
		Where("property_id = ? AND status IN ?", propertyID, HoldsCalendar).
		Where("check_in < ? AND ? < check_out", stay.End, stay.Start)
}

func (r *GormRepository) HasOverlap(ctx context.Context, propertyID uint, stay Range) (bool, error) {
	var count int64
	if err := overlapping(r.db.WithContext(ctx), propertyID, stay).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return count > 0, nil
}

// CreateIfAvailable serializes bookings per property with a row lock on the
// property. The bookings_no_overlap exclusion constraint rejects anything that
// slips past the lock.
func (r *GormRepository) CreateIfAvailable(ctx context.Context, b *RealEstateBooking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Property
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", b.PropertyID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPropertyNotFound
			}
			return err
		}

		var count int64
		if err := overlapping(tx, b.PropertyID, b.Range()).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDatesUnavailable
		}

		return tx.Omit("Property").Create(b).Error
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDatesUnavailable), errors.Is(err, ErrPropertyNotFound):
		return err
	case dberr.IsExclusionViolation(err):
		return ErrDatesUnavailable
	default:
		return fmt.Errorf("failed to create booking: %w", err)
	}
}

func (r *GormRepository) FindByReference(ctx context.Context, reference string) (*RealEstateBooking, error) {
	var b RealEstateBooking
	if err := r.db.WithContext(ctx).Preload("Property").Where("reference = ?", reference).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to retrieve booking: %w", err)
	}
	return &b, nil
}

func (r *GormRepository) List(ctx context.Context, filter ListFilter) ([]RealEstateBooking, int64, error) {
	var bookings []RealEstateBooking
	var total int64

	query := r.db.WithContext(ctx).Model(&RealEstateBooking{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PropertyID > 0 {
		query = query.Where("property_id = ?", filter.PropertyID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	err := query.Preload("Property").
		Order("check_in DESC, id DESC").
		Offset(pagination.Offset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve bookings: %w", err)
	}

	return bookings, total, nil
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id uint, from, to BookingStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&RealEstateBooking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		if dberr.IsExclusionViolation(result.Error) {
			return false, ErrDatesUnavailable
		}
		return false, fmt.Errorf("failed to update booking status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GormRepository) ApplyPaymentStatus(ctx context.Context, id uint, from, to PaymentStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"payment_status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.WithContext(ctx).Model(&RealEstateBooking{}).
		Where("id = ? AND payment_status = ? AND payment_status <> ?", id, from, to).
		Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update booking payment status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
