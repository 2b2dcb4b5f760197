package cart

import (
	"context"
	"errors"
)

// ErrItemNotFound is returned when a quantity update targets a product that is not in the cart
var ErrItemNotFound = errors.New("item not found in cart")

// Store persists cart lines for one kind of identity
type Store interface {
	List(ctx context.Context, id Identity) ([]Item, error)
	// Add inserts the line or increments the quantity of an existing one
	Add(ctx context.Context, id Identity, item Item) error
	SetQuantity(ctx context.Context, id Identity, productID uint, quantity int) error
	// Remove succeeds when the line is already absent
	Remove(ctx context.Context, id Identity, productID uint) error
	Clear(ctx context.Context, id Identity) error
}

// BatchAdder is implemented by stores that can add several lines in one
// atomic write. Merging prefers it so a failed merge leaves nothing applied.
type BatchAdder interface {
	AddAll(ctx context.Context, id Identity, items []Item) error
}
