// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/booking"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log logrus.FieldLogger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// Catalog
		&product.Category{},
		&product.Product{},

		// Cart
		&cart.CartItem{},

		// Orders
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		// Bookings
		&booking.Property{},
		&booking.RealEstateBooking{},

		// Payments
		&payment.PaymentTransaction{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations(ctx context.Context) error {
	m.log.Info("Running database auto-migrations")

	db := m.db.WithContext(ctx)
	for _, model := range Models() {
		m.log.Debugf("Migrating model: %T", model)
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("Database auto-migrations completed")
	return nil
}

// bookingOverlapConstraint keeps two live bookings of one property from
// sharing a night. Ranges are half-open so back-to-back stays are allowed.
const bookingOverlapConstraint = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN
		ALTER TABLE real_estate_bookings
			ADD CONSTRAINT bookings_no_overlap
			EXCLUDE USING gist (
				property_id WITH =,
				daterange(check_in, check_out, '[)') WITH &&
			) WHERE (status IN ('pending', 'confirmed'));
	END IF;
END
$$;`

// CreateConstraints installs constraints gorm tags cannot express
func (m *Migration) CreateConstraints(ctx context.Context) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist",
		"ALTER TABLE real_estate_bookings DROP CONSTRAINT IF EXISTS chk_bookings_dates",
		"ALTER TABLE real_estate_bookings ADD CONSTRAINT chk_bookings_dates CHECK (check_out > check_in)",
		bookingOverlapConstraint,
	}

	db := m.db.WithContext(ctx)
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}

	m.log.Info("Database constraints in place")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_low_stock ON products(stock_quantity, low_stock_threshold) WHERE is_active",

		// Category indexes
		"CREATE INDEX IF NOT EXISTS idx_categories_sort_order ON categories(sort_order)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(email)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		// Booking indexes
		"CREATE INDEX IF NOT EXISTS idx_bookings_property_dates ON real_estate_bookings(property_id, check_in, check_out)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON real_estate_bookings(created_at DESC)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payment_transactions_status ON payment_transactions(status)",
		"CREATE INDEX IF NOT EXISTS idx_payment_transactions_created_at ON payment_transactions(created_at DESC)",
	}

	successCount := 0
	failCount := 0

	db := m.db.WithContext(ctx)
	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			m.log.WithField("error", err.Error()).Warn("Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.log.WithFields(logrus.Fields{
		"created": successCount,
		"failed":  failCount,
	}).Info("Additional indexes created")
	return nil
}

// SeedInitialData inserts a small development catalog
func (m *Migration) SeedInitialData(ctx context.Context) error {
	m.log.Info("Seeding initial data")

	if err := m.seedCategories(ctx); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := m.seedProducts(ctx); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if err := m.seedProperties(ctx); err != nil {
		return fmt.Errorf("failed to seed properties: %w", err)
	}

	m.log.Info("Initial data seeded")
	return nil
}

func (m *Migration) seedCategories(ctx context.Context) error {
	categories := []product.Category{
		{Name: "Skincare", Slug: "skincare", Description: "Cleansers, serums and moisturisers", SortOrder: 1, IsActive: true},
		{Name: "Hair Care", Slug: "hair-care", Description: "Shampoos, oils and treatments", SortOrder: 2, IsActive: true},
		{Name: "Fragrance", Slug: "fragrance", Description: "Perfumes and body mists", SortOrder: 3, IsActive: true},
	}

	db := m.db.WithContext(ctx)
	for _, category := range categories {
		var existing product.Category
		err := db.Where("slug = ?", category.Slug).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&category).Error; err != nil {
				return err
			}
			m.log.WithField("slug", category.Slug).Info("Created category")
		case err != nil:
			return err
		default:
			m.log.WithField("slug", category.Slug).Debug("Category already exists")
		}
	}
	return nil
}

type seedProduct struct {
	category string
	sku      string
	name     string
	price    string
	stock    int
	featured bool
}

func (m *Migration) seedProducts(ctx context.Context) error {
	seeds := []seedProduct{
		{"skincare", "SKN-001", "Shea Butter Body Cream", "6500.00", 40, true},
		{"skincare", "SKN-002", "Vitamin C Serum", "12500.00", 3, true},
		{"skincare", "SKN-003", "Black Soap Cleanser", "4200.00", 25, false},
		{"hair-care", "HAR-001", "Chebe Hair Oil", "8000.00", 18, true},
		{"hair-care", "HAR-002", "Moisture Leave-In Conditioner", "5500.00", 0, false},
		{"fragrance", "FRG-001", "Oud Eau de Parfum", "35000.00", 7, true},
	}

	db := m.db.WithContext(ctx)
	for _, s := range seeds {
		var category product.Category
		if err := db.Where("slug = ?", s.category).First(&category).Error; err != nil {
			return fmt.Errorf("category %s: %w", s.category, err)
		}

		var existing product.Product
		err := db.Where("sku = ?", s.sku).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		p := product.Product{
			CategoryID:        category.ID,
			SKU:               s.sku,
			Name:              s.name,
			Slug:              product.Slugify(s.name),
			Description:       s.name,
			Price:             decimal.RequireFromString(s.price),
			StockQuantity:     s.stock,
			LowStockThreshold: 5,
			IsActive:          true,
			IsFeatured:        s.featured,
		}
		if err := db.Create(&p).Error; err != nil {
			m.log.WithFields(logrus.Fields{"sku": s.sku, "error": err.Error()}).Warn("Failed to create product")
			continue
		}
		m.log.WithField("sku", s.sku).Info("Created product")
	}
	return nil
}

func (m *Migration) seedProperties(ctx context.Context) error {
	properties := []booking.Property{
		{
			Title:         "Lekki Waterfront Apartment",
			Slug:          "lekki-waterfront-apartment",
			Location:      "Lekki Phase 1, Lagos",
			Description:   "Two-bedroom serviced apartment with a lagoon view.",
			PricePerNight: decimal.NewFromInt(45000),
			MaxGuests:     4,
			IsActive:      true,
		},
		{
			Title:         "Ikoyi Studio",
			Slug:          "ikoyi-studio",
			Location:      "Ikoyi, Lagos",
			Description:   "Compact studio close to the business district.",
			PricePerNight: decimal.NewFromInt(25000),
			MaxGuests:     2,
			IsActive:      true,
		},
	}

	db := m.db.WithContext(ctx)
	for _, p := range properties {
		var existing booking.Property
		err := db.Where("slug = ?", p.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&p).Error; err != nil {
			return err
		}
		m.log.WithField("slug", p.Slug).Info("Created property")
	}
	return nil
}

// GetTableInfo logs row counts per table
func (m *Migration) GetTableInfo(ctx context.Context) {
	tables := []string{
		"categories", "products", "cart_items", "orders", "order_items",
		"order_status_history", "properties", "real_estate_bookings", "payment_transactions",
	}

	fields := logrus.Fields{}
	var total int64
	db := m.db.WithContext(ctx)
	for _, table := range tables {
		var count int64
		if err := db.Table(table).Count(&count).Error; err != nil {
			fields[table] = "unavailable"
			continue
		}
		fields[table] = count
		total += count
	}
	fields["total"] = total
	m.log.WithFields(fields).Info("Database tables")
}
