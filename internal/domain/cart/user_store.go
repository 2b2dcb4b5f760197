package cart

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStore keeps authenticated carts as cart_items rows
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a row-backed cart store
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) List(ctx context.Context, id Identity) ([]Item, error) {
	var rows []CartItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", id.UserID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve user cart: %w", err)
	}

	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = toItem(row)
	}
	return items, nil
}

// Add relies on the (user_id, product_id) unique index so concurrent adds never duplicate a line
func (s *UserStore) Add(ctx context.Context, id Identity, item Item) error {
	row := CartItem{
		UserID:    id.UserID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Price:     item.Price,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
			"price":      gorm.Expr("EXCLUDED.price"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

// AddAll upserts every line in a single statement
func (s *UserStore) AddAll(ctx context.Context, id Identity, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]CartItem, len(items))
	for i, item := range items {
		rows[i] = CartItem{
			UserID:    id.UserID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
			"price":      gorm.Expr("EXCLUDED.price"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to add cart items: %w", err)
	}
	return nil
}

func (s *UserStore) SetQuantity(ctx context.Context, id Identity, productID uint, quantity int) error {
	result := s.db.WithContext(ctx).Model(&CartItem{}).
		Where("user_id = ? AND product_id = ?", id.UserID, productID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *UserStore) Remove(ctx context.Context, id Identity, productID uint) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", id.UserID, productID).
		Delete(&CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (s *UserStore) Clear(ctx context.Context, id Identity) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", id.UserID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
