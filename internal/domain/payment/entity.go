// internal/domain/payment/entity.go
package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SubjectType is what a payment pays for
type SubjectType string

const (
	SubjectOrder   SubjectType = "order"
	SubjectBooking SubjectType = "booking"
)

// Status is the outcome of a payment attempt as seen by checkout
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// MapGatewayStatus folds gateway transaction states into pending, paid or failed
func MapGatewayStatus(s string) Status {
	switch strings.ToLower(s) {
	case "success":
		return StatusPaid
	case "failed", "reversed", "abandoned":
		return StatusFailed
	default:
		return StatusPending
	}
}

// PaymentTransaction records one gateway transaction
type PaymentTransaction struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Reference        string          `gorm:"uniqueIndex;not null;size:100" json:"reference"`
	SubjectType      SubjectType     `gorm:"not null;size:20;index:idx_payment_subject" json:"subject_type"`
	SubjectReference string          `gorm:"not null;size:50;index:idx_payment_subject" json:"subject_reference"`
	Email            string          `gorm:"size:255" json:"email"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	AmountMinor      int64           `gorm:"not null" json:"amount_minor"`
	Currency         string          `gorm:"size:3" json:"currency"`
	Status           Status          `gorm:"not null;default:'pending';size:20" json:"status"`
	Gateway          string          `gorm:"size:50;default:'paystack'" json:"gateway"`
	AuthorizationURL string          `gorm:"size:500" json:"authorization_url"`
	AccessCode       string          `gorm:"size:100" json:"-"`
	GatewayResponse  datatypes.JSON  `json:"gateway_response,omitempty"`
	Metadata         datatypes.JSON  `json:"metadata,omitempty"`
	VerifiedAt       *time.Time      `json:"verified_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
