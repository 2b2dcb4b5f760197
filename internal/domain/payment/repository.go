package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrTransactionNotFound is returned for an unknown payment reference
var ErrTransactionNotFound = errors.New("payment transaction not found")

// Repository persists payment transactions
type Repository interface {
	Create(ctx context.Context, t *PaymentTransaction) error
	FindByReference(ctx context.Context, reference string) (*PaymentTransaction, error)
	ListForSubject(ctx context.Context, subject SubjectType, reference string) ([]PaymentTransaction, error)
	RecordVerification(ctx context.Context, reference string, status Status, raw datatypes.JSON, at time.Time) error
}

// GormRepository is the postgres Repository
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm backed transaction repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, t *PaymentTransaction) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return nil
}

func (r *GormRepository) FindByReference(ctx context.Context, reference string) (*PaymentTransaction, error) {
	var t PaymentTransaction
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to retrieve payment transaction: %w", err)
	}
	return &t, nil
}

func (r *GormRepository) ListForSubject(ctx context.Context, subject SubjectType, reference string) ([]PaymentTransaction, error) {
	var out []PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_reference = ?", subject, reference).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}
	return out, nil
}

func (r *GormRepository) RecordVerification(ctx context.Context, reference string, status Status, raw datatypes.JSON, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&PaymentTransaction{}).
		Where("reference = ?", reference).
		Updates(map[string]interface{}{
			"status":           status,
			"gateway_response": raw,
			"verified_at":      at,
			"updated_at":       at,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record verification: %w", err)
	}
	return nil
}
