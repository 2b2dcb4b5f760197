// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// ProductLookup resolves sellable products
type ProductLookup interface {
	GetActiveProduct(ctx context.Context, id uint) (*product.Product, error)
}

// Service handles cart business logic
type Service struct {
	users    Store
	guests   Store
	products ProductLookup
	log      logrus.FieldLogger
}

// NewService creates a new cart service
func NewService(users, guests Store, products ProductLookup, log logrus.FieldLogger) *Service {
	return &Service{
		users:    users,
		guests:   guests,
		products: products,
		log:      log,
	}
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart returns the identity's lines with derived count and total
func (s *Service) GetCart(ctx context.Context, id Identity) (*Cart, error) {
	var items []Item
	guest, err := s.run(ctx, id, "load cart", func(store Store, owner Identity) error {
		var err error
		items, err = store.List(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Cart{
		Items:     items,
		ItemCount: ItemCount(items),
		Total:     Total(items),
		Guest:     guest,
	}, nil
}

// AddItem adds quantity of a product, incrementing an existing line.
// A zero quantity means one. Stock is not checked here.
func (s *Service) AddItem(ctx context.Context, id Identity, productID uint, quantity int) (*Cart, error) {
	if productID == 0 {
		return nil, apperror.Validation("product_id is required")
	}
	if quantity < 0 {
		return nil, apperror.Validation("quantity cannot be negative")
	}
	if quantity == 0 {
		quantity = 1
	}

	prod, err := s.products.GetActiveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	item := Item{ProductID: prod.ID, Quantity: quantity, Price: prod.Price}
	if _, err := s.run(ctx, id, "add cart item", func(store Store, owner Identity) error {
		return store.Add(ctx, owner, item)
	}); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, id)
}

// UpdateItem overwrites the quantity of a line. Zero removes it.
func (s *Service) UpdateItem(ctx context.Context, id Identity, productID uint, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, apperror.Validation("quantity cannot be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, id, productID)
	}

	if _, err := s.run(ctx, id, "update cart item", func(store Store, owner Identity) error {
		return store.SetQuantity(ctx, owner, productID, quantity)
	}); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, id)
}

// RemoveItem deletes a line. Removing an absent product is not an error.
func (s *Service) RemoveItem(ctx context.Context, id Identity, productID uint) (*Cart, error) {
	if _, err := s.run(ctx, id, "remove cart item", func(store Store, owner Identity) error {
		return store.Remove(ctx, owner, productID)
	}); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, id)
}

// ClearCart removes all lines for the identity
func (s *Service) ClearCart(ctx context.Context, id Identity) error {
	_, err := s.run(ctx, id, "clear cart", func(store Store, owner Identity) error {
		return store.Clear(ctx, owner)
	})
	return err
}

// MergeGuestCart moves the session's guest lines into the user's cart.
// Quantities of a product present in both are summed. The guest document is
// cleared only after every line was written.
func (s *Service) MergeGuestCart(ctx context.Context, id Identity) (*Cart, error) {
	if id.IsGuest() {
		return nil, apperror.Unauthenticated("sign in to merge a guest cart")
	}
	if id.SessionID == "" {
		return s.GetCart(ctx, id)
	}

	guestID := Identity{SessionID: id.SessionID}
	guestItems, err := s.guests.List(ctx, guestID)
	if err != nil {
		return nil, apperror.Upstream("load guest cart", err)
	}

	if err := s.addAll(ctx, id, guestItems); err != nil {
		return nil, apperror.Upstream("merge guest cart", err)
	}

	if len(guestItems) > 0 {
		if err := s.guests.Clear(ctx, guestID); err != nil {
			s.log.WithFields(logrus.Fields{
				"user_id":    id.UserID,
				"session_id": id.SessionID,
				"error":      err.Error(),
			}).Warn("Failed to clear merged guest cart")
		}

		s.log.WithFields(logrus.Fields{
			"user_id": id.UserID,
			"lines":   len(guestItems),
		}).Info("Merged guest cart")
	}

	return s.GetCart(ctx, id)
}

func (s *Service) addAll(ctx context.Context, id Identity, items []Item) error {
	if batch, ok := s.users.(BatchAdder); ok {
		return batch.AddAll(ctx, id, items)
	}
	for _, item := range items {
		if err := s.users.Add(ctx, id, item); err != nil {
			return err
		}
	}
	return nil
}

// run applies op to the identity's store. On the authenticated path a store
// failure is logged and the same operation is applied to the guest cart of the
// request's session. The returned flag tells which store served the call.
func (s *Service) run(ctx context.Context, id Identity, op string, fn func(Store, Identity) error) (bool, error) {
	guestID := Identity{SessionID: id.SessionID}
	if id.IsGuest() {
		if id.SessionID == "" {
			return true, apperror.Validation("cart session is required")
		}
		return true, mapStoreError(op, fn(s.guests, guestID))
	}

	err := fn(s.users, id)
	if err == nil || errors.Is(err, ErrItemNotFound) {
		return false, mapStoreError(op, err)
	}

	entry := s.log.WithFields(logrus.Fields{
		"user_id":    id.UserID,
		"session_id": id.SessionID,
		"operation":  op,
		"error":      err.Error(),
	})
	if id.SessionID == "" {
		entry.Error("Cart store failed and no guest session is available")
		return false, apperror.Upstream(op, err)
	}
	entry.Warn("Cart store failed, falling back to guest cart")

	return true, mapStoreError(op, fn(s.guests, guestID))
}

func mapStoreError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrItemNotFound):
		return apperror.NotFound("item not found in cart")
	default:
		return apperror.Upstream(op, err)
	}
}
