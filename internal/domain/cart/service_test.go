package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// memStore is an in-memory Store keyed by user id, or session id for guests
type memStore struct {
	carts map[string][]Item
	err   error
}

func newMemStore() *memStore {
	return &memStore{carts: map[string][]Item{}}
}

func ownerKey(id Identity) string {
	if id.UserID != "" {
		return "user:" + id.UserID
	}
	return "session:" + id.SessionID
}

func (m *memStore) List(_ context.Context, id Identity) ([]Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]Item{}, m.carts[ownerKey(id)]...), nil
}

func (m *memStore) Add(_ context.Context, id Identity, item Item) error {
	if m.err != nil {
		return m.err
	}
	key := ownerKey(id)
	for i := range m.carts[key] {
		if m.carts[key][i].ProductID == item.ProductID {
			m.carts[key][i].Quantity += item.Quantity
			m.carts[key][i].Price = item.Price
			return nil
		}
	}
	m.carts[key] = append(m.carts[key], item)
	return nil
}

func (m *memStore) SetQuantity(_ context.Context, id Identity, productID uint, quantity int) error {
	if m.err != nil {
		return m.err
	}
	key := ownerKey(id)
	for i := range m.carts[key] {
		if m.carts[key][i].ProductID == productID {
			m.carts[key][i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memStore) Remove(_ context.Context, id Identity, productID uint) error {
	if m.err != nil {
		return m.err
	}
	key := ownerKey(id)
	kept := []Item{}
	for _, item := range m.carts[key] {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	m.carts[key] = kept
	return nil
}

func (m *memStore) Clear(_ context.Context, id Identity) error {
	if m.err != nil {
		return m.err
	}
	delete(m.carts, ownerKey(id))
	return nil
}

type fakeCatalog map[uint]*product.Product

func (f fakeCatalog) GetActiveProduct(_ context.Context, id uint) (*product.Product, error) {
	p, ok := f[id]
	if !ok || !p.IsActive {
		return nil, apperror.NotFound("product not found")
	}
	return p, nil
}

func newTestService(t *testing.T) (*Service, *memStore, *memStore, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	users, guests := newMemStore(), newMemStore()
	catalog := fakeCatalog{
		1: {ID: 1, Name: "Silk Scarf", Price: decimal.NewFromInt(20000), IsActive: true},
		2: {ID: 2, Name: "Leather Tote", Price: decimal.RequireFromString("15000.50"), IsActive: true},
		3: {ID: 3, Name: "Retired Watch", Price: decimal.NewFromInt(90000), IsActive: false},
	}
	return NewService(users, guests, catalog, log), users, guests, hook
}

var (
	shopper = Identity{UserID: "user-1", SessionID: "sess-1"}
	guest   = Identity{SessionID: "sess-guest"}
)

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, 1, 2)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, shopper, 1, 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.ItemCount)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(100000)))
	assert.False(t, cart.Guest)
	assert.Len(t, users.carts["user:user-1"], 1)
}

func TestAddItem_DefaultsQuantityAndCapturesPrice(t *testing.T) {
	svc, _, guests, _ := newTestService(t)

	cart, err := svc.AddItem(context.Background(), guest, 2, 0)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].Price.Equal(decimal.RequireFromString("15000.50")))
	assert.True(t, cart.Guest)
	assert.Len(t, guests.carts["session:sess-guest"], 1)
}

func TestAddItem_Rejections(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, 1, -1)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.AddItem(ctx, shopper, 3, 1)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = svc.AddItem(ctx, shopper, 99, 1)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestUpdateItem(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, 1, 4)
	require.NoError(t, err)

	cart, err := svc.UpdateItem(ctx, shopper, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.ItemCount)

	_, err = svc.UpdateItem(ctx, shopper, 1, -3)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.UpdateItem(ctx, shopper, 2, 5)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	cart, err = svc.UpdateItem(ctx, shopper, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.ItemCount)
}

func TestRemoveItem_Idempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, guest, 1, 1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		cart, err := svc.RemoveItem(ctx, guest, 1)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
	}
}

func TestClearCart(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, 1, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, shopper, 2, 1)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, shopper))
	assert.Empty(t, users.carts["user:user-1"])
}

func TestCartInvariants_RandomSequence(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	ops := []struct {
		kind      string
		productID uint
		quantity  int
	}{
		{"add", 1, 2}, {"add", 2, 1}, {"add", 1, 1}, {"update", 2, 7},
		{"remove", 1, 0}, {"add", 1, 4}, {"update", 1, 0}, {"add", 2, 2},
	}

	for _, op := range ops {
		var err error
		switch op.kind {
		case "add":
			_, err = svc.AddItem(ctx, shopper, op.productID, op.quantity)
		case "update":
			_, err = svc.UpdateItem(ctx, shopper, op.productID, op.quantity)
		case "remove":
			_, err = svc.RemoveItem(ctx, shopper, op.productID)
		}
		require.NoError(t, err)

		cart, err := svc.GetCart(ctx, shopper)
		require.NoError(t, err)

		seen := map[uint]bool{}
		sum := 0
		for _, item := range cart.Items {
			assert.False(t, seen[item.ProductID], "duplicate line for product %d", item.ProductID)
			seen[item.ProductID] = true
			sum += item.Quantity
		}
		assert.Equal(t, sum, cart.ItemCount)
	}
}

func TestFallbackToGuestCartOnStoreFailure(t *testing.T) {
	svc, users, guests, hook := newTestService(t)
	users.err = errors.New("connection reset by peer")

	cart, err := svc.AddItem(context.Background(), shopper, 1, 2)
	require.NoError(t, err)

	assert.True(t, cart.Guest)
	assert.Equal(t, 2, cart.ItemCount)
	assert.Len(t, guests.carts["session:sess-1"], 1)

	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, logrus.WarnLevel, hook.AllEntries()[0].Level)
	assert.Equal(t, "add cart item", hook.AllEntries()[0].Data["operation"])
}

func TestFallbackWithoutSessionIsUpstream(t *testing.T) {
	svc, users, _, hook := newTestService(t)
	users.err = errors.New("connection reset by peer")

	_, err := svc.AddItem(context.Background(), Identity{UserID: "user-1"}, 1, 1)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestMissingLineIsNotAStoreFailure(t *testing.T) {
	svc, _, guests, hook := newTestService(t)

	_, err := svc.UpdateItem(context.Background(), shopper, 1, 3)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Empty(t, guests.carts)
	assert.Empty(t, hook.AllEntries())
}

func TestMergeGuestCart_SumsQuantities(t *testing.T) {
	svc, users, guests, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, Identity{SessionID: "sess-1"}, 1, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, Identity{SessionID: "sess-1"}, 2, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, Identity{UserID: "user-1"}, 1, 3)
	require.NoError(t, err)

	cart, err := svc.MergeGuestCart(ctx, shopper)
	require.NoError(t, err)

	assert.Equal(t, 6, cart.ItemCount)
	require.Len(t, users.carts["user:user-1"], 2)
	assert.Equal(t, 5, users.carts["user:user-1"][0].Quantity)
	assert.Empty(t, guests.carts["session:sess-1"])
}

func TestMergeGuestCart_KeepsGuestCartOnFailure(t *testing.T) {
	svc, users, guests, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, Identity{SessionID: "sess-1"}, 1, 2)
	require.NoError(t, err)
	users.err = errors.New("database unavailable")

	_, err = svc.MergeGuestCart(ctx, shopper)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
	assert.Len(t, guests.carts["session:sess-1"], 1)
}

func TestMergeGuestCart_RequiresUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.MergeGuestCart(context.Background(), guest)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}

func TestTotalAndItemCount(t *testing.T) {
	items := []Item{
		{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(20000)},
		{ProductID: 2, Quantity: 3, Price: decimal.RequireFromString("99.99")},
	}

	assert.True(t, Total(items).Equal(decimal.RequireFromString("40299.97")))
	assert.Equal(t, 5, ItemCount(items))
	assert.True(t, Total(nil).IsZero())
	assert.Equal(t, 0, ItemCount(nil))
}
