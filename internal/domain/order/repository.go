package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// ErrOrderNotFound is returned by lookups that match no order
var ErrOrderNotFound = errors.New("order not found")

// ListFilter narrows an order listing
type ListFilter struct {
	Page          int           `form:"page,default=1"`
	Limit         int           `form:"limit,default=20"`
	Status        OrderStatus   `form:"status"`
	PaymentStatus PaymentStatus `form:"payment_status"`
	UserID        string        `form:"-"`
	SortBy        string        `form:"sort_by,default=created_at"`
	SortOrder     string        `form:"sort_order,default=desc"`
}

// Repository persists orders. Each call is an independent statement; the
// service coordinates multi-step writes itself.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	CreateItems(ctx context.Context, items []OrderItem) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int64, error)
	// UpdateStatus applies updates only while the order is still in status from
	UpdateStatus(ctx context.Context, id uint, from, to OrderStatus, updates map[string]interface{}) (bool, error)
	// ApplyPaymentStatus applies updates only while the payment status is still from
	ApplyPaymentStatus(ctx context.Context, id uint, from, to PaymentStatus, updates map[string]interface{}) (bool, error)
	AddStatusHistory(ctx context.Context, h *OrderStatusHistory) error
}

// GormRepository is the postgres Repository
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm backed order repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, o *Order) error {
	return r.db.WithContext(ctx).Omit("Items", "StatusHistory").Create(o).Error
}

func (r *GormRepository) CreateItems(ctx context.Context, items []OrderItem) error {
	if len(items) == 0 {
		return errors.New("no order items to insert")
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *GormRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Order{}).Error
}

func (r *GormRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		})
}

func (r *GormRepository) FindByID(ctx context.Context, id uint) (*Order, error) {
	var o Order
	if err := r.preloaded(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

func (r *GormRepository) FindByNumber(ctx context.Context, number string) (*Order, error) {
	var o Order
	if err := r.preloaded(ctx).Where("order_number = ?", number).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

func (r *GormRepository) List(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	var orders []Order
	var total int64

	query := r.db.WithContext(ctx).Model(&Order{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	err := query.Preload("Items").
		Order(buildOrderClause(filter.SortBy, filter.SortOrder)).
		Offset(pagination.Offset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return orders, total, nil
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id uint, from, to OrderStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GormRepository) ApplyPaymentStatus(ctx context.Context, id uint, from, to PaymentStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"payment_status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND payment_status = ? AND payment_status <> ?", id, from, to).
		Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update payment status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GormRepository) AddStatusHistory(ctx context.Context, h *OrderStatusHistory) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}
	return nil
}

// buildOrderClause builds ORDER BY clause for sorting
func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total":        true,
		"order_number": true,
		"status":       true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
