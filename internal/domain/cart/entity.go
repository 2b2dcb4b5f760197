// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Identity owns a cart. A guest has no user id and is keyed by the session cookie.
type Identity struct {
	UserID    string
	SessionID string
}

// IsGuest reports whether the identity is unauthenticated
func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

// CartItem represents a cart item stored in database for authenticated users
type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    string          `gorm:"not null;size:255;uniqueIndex:idx_cart_items_user_product" json:"user_id"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_cart_items_user_product;index" json:"product_id"`
	Quantity  int             `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"` // Price at time of adding
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// Item is one cart line regardless of where it is stored
type Item struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"added_at"`
}

// LineTotal is price times quantity
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// GuestCart is the document kept in redis for a guest session
type GuestCart struct {
	SessionID string    `json:"session_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cart is the response view of a cart
type Cart struct {
	Items     []Item          `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Guest     bool            `json:"guest"`
}

// Total is the sum of price times quantity over all lines
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount is the sum of quantities over all lines
func ItemCount(items []Item) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

func toItem(row CartItem) Item {
	return Item{
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
		Price:     row.Price,
		AddedAt:   row.CreatedAt,
	}
}
