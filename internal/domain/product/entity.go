// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	CategoryID        uint            `gorm:"not null;index" json:"category_id"`
	SKU               string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name              string          `gorm:"not null;size:255" json:"name"`
	Slug              string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	StockQuantity     int             `gorm:"default:0" json:"stock_quantity"`
	LowStockThreshold int             `gorm:"default:5" json:"low_stock_threshold"`
	ImageURL          string          `gorm:"size:500" json:"image_url"`
	IsActive          bool            `gorm:"default:true" json:"is_active"`
	IsFeatured        bool            `gorm:"default:false" json:"is_featured"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Derived after load, never stored
	LowStock bool `gorm:"-" json:"low_stock"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
}

// Category represents product categories
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;size:255" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string    `gorm:"size:500" json:"description"`
	Image       string    `gorm:"size:500" json:"image"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Category) TableName() string { return "categories" }

// IsLowStock reports whether the stock level is at or below the threshold
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

func (p *Product) IsInStock() bool {
	return p.StockQuantity > 0
}

// AfterFind fills the derived low stock flag
func (p *Product) AfterFind(tx *gorm.DB) error {
	p.LowStock = p.IsLowStock()
	return nil
}
