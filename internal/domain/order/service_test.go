package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

type fakeRepo struct {
	mu        sync.Mutex
	nextID    uint
	orders    map[uint]*Order
	items     map[uint][]OrderItem
	history   []OrderStatusHistory
	itemsErr  error
	deleteErr error
	deleted   []uint
	// cancelOnItems simulates the request being cancelled mid-insert
	cancelOnItems context.CancelFunc
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[uint]*Order{}, items: map[uint][]OrderItem{}}
}

func (r *fakeRepo) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	stored := *o
	stored.Items = nil
	r.orders[o.ID] = &stored
	return nil
}

func (r *fakeRepo) CreateItems(ctx context.Context, items []OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelOnItems != nil {
		r.cancelOnItems()
		return fmt.Errorf("insert order_items: %w", ctx.Err())
	}
	if r.itemsErr != nil {
		return r.itemsErr
	}
	for _, item := range items {
		r.items[item.OrderID] = append(r.items[item.OrderID], item)
	}
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.orders, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeRepo) load(id uint) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	out := *o
	out.Items = append([]OrderItem{}, r.items[id]...)
	return &out, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uint) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(id)
}

func (r *fakeRepo) FindByNumber(_ context.Context, number string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.orders {
		if o.OrderNumber == number {
			return r.load(id)
		}
	}
	return nil, ErrOrderNotFound
}

func (r *fakeRepo) List(_ context.Context, filter ListFilter) ([]Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for id := uint(1); id <= r.nextID; id++ {
		o, ok := r.orders[id]
		if !ok {
			continue
		}
		if filter.UserID != "" && (o.UserID == nil || *o.UserID != filter.UserID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uint, from, to OrderStatus, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r *fakeRepo) ApplyPaymentStatus(_ context.Context, id uint, from, to PaymentStatus, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.PaymentStatus != from || o.PaymentStatus == to {
		return false, nil
	}
	o.PaymentStatus = to
	if ref, ok := updates["payment_reference"].(string); ok {
		o.PaymentReference = ref
	}
	return true, nil
}

func (r *fakeRepo) AddStatusHistory(_ context.Context, h *OrderStatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, *h)
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

type fakeCarts struct {
	items    []cart.Item
	clearErr error
	cleared  int
}

func (c *fakeCarts) GetCart(_ context.Context, _ cart.Identity) (*cart.Cart, error) {
	return &cart.Cart{Items: c.items, ItemCount: cart.ItemCount(c.items), Total: cart.Total(c.items)}, nil
}

func (c *fakeCarts) ClearCart(_ context.Context, _ cart.Identity) error {
	c.cleared++
	return c.clearErr
}

type countingNotifier struct {
	mu     sync.Mutex
	placed int
	paid   int
}

func (n *countingNotifier) OrderPlaced(context.Context, *Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed++
	return nil
}

func (n *countingNotifier) OrderPaid(context.Context, *Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid++
	return nil
}

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	carts    *fakeCarts
	notifier *countingNotifier
	hook     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.Commerce.TaxRate = decimal.RequireFromString("0.075")
	cfg.Commerce.FreeShippingThreshold = decimal.NewFromInt(50000)
	cfg.Commerce.FlatShippingFee = decimal.NewFromInt(2500)
	cfg.Commerce.OrderNumberPrefix = "ORD"
	cfg.Commerce.Currency = "NGN"

	catalog := fakeCatalog{
		1: {ID: 1, SKU: "SCF-001", Name: "Silk Scarf", Price: decimal.NewFromInt(20000), IsActive: true},
		2: {ID: 2, SKU: "TOT-002", Name: "Leather Tote", Price: decimal.NewFromInt(65000), IsActive: true},
		3: {ID: 3, SKU: "OLD-003", Name: "Retired", Price: decimal.NewFromInt(100), IsActive: false},
	}

	log, hook := test.NewNullLogger()
	f := &fixture{repo: newFakeRepo(), carts: &fakeCarts{}, notifier: &countingNotifier{}, hook: hook}
	f.svc = NewService(f.repo, catalog, f.carts, f.notifier, cfg, log)
	return f
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		UserID: "user-1",
		Email:  "jane@example.com",
		Lines:  []LineInput{{ProductID: 1, Quantity: 2}},
		Shipping: Address{
			FirstName:    "Jane",
			LastName:     "Doe",
			AddressLine1: "12 Admiralty Way",
			City:         "Lagos",
			Country:      "NG",
		},
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(40000)))
	assert.True(t, o.Tax.Equal(decimal.NewFromInt(3000)))
	assert.True(t, o.Shipping.Equal(decimal.NewFromInt(2500)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(45500)))
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, "NGN", o.Currency)
	assert.Regexp(t, `^ORD-\d{14}-[0-9A-F]{6}$`, o.OrderNumber)
	assert.Equal(t, o.ShippingAddress, o.BillingAddress)
	require.NotNil(t, o.UserID)
	assert.Equal(t, "user-1", *o.UserID)

	require.Len(t, o.Items, 1)
	assert.Equal(t, "SCF-001", o.Items[0].SKU)
	assert.Equal(t, "Silk Scarf", o.Items[0].Name)
	assert.True(t, o.Items[0].LineTotal.Equal(decimal.NewFromInt(40000)))

	stored, err := f.svc.GetByNumber(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
	assert.Len(t, f.repo.history, 1)
	assert.Equal(t, 1, f.notifier.placed)
}

func TestCreateOrder_MergesRepeatedProducts(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Lines = []LineInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}, {ProductID: 1, Quantity: 2}}

	o, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, o.Items, 2)
	assert.Equal(t, uint(1), o.Items[0].ProductID)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.True(t, o.Shipping.IsZero())
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"no lines", func(in *CreateOrderInput) { in.Lines = nil }},
		{"no email", func(in *CreateOrderInput) { in.Email = " " }},
		{"bad email", func(in *CreateOrderInput) { in.Email = "not-an-email" }},
		{"zero quantity", func(in *CreateOrderInput) { in.Lines[0].Quantity = 0 }},
		{"missing city", func(in *CreateOrderInput) { in.Shipping.City = "" }},
		{"incomplete billing", func(in *CreateOrderInput) { in.Billing = &Address{FirstName: "Jane"} }},
		{"inactive product", func(in *CreateOrderInput) { in.Lines[0].ProductID = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			tt.mutate(&in)

			_, err := f.svc.CreateOrder(context.Background(), in)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
			assert.Empty(t, f.repo.orders)
		})
	}
}

func TestCreateOrder_CompensatesWhenItemsFail(t *testing.T) {
	f := newFixture(t)
	f.repo.itemsErr = errors.New("insert order_items: connection reset")

	_, err := f.svc.CreateOrder(context.Background(), validInput())
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))

	assert.Empty(t, f.repo.orders, "order header must not survive without items")
	assert.Equal(t, []uint{1}, f.repo.deleted)
	assert.Equal(t, 0, f.notifier.placed)

	list, err := f.svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
}

func TestCreateOrder_CompensatesAfterRequestCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.repo.cancelOnItems = cancel

	_, err := f.svc.CreateOrder(ctx, validInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, f.repo.orders, "order header must not survive a cancelled request")
	assert.Equal(t, []uint{1}, f.repo.deleted)

	list, err := f.svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
}

func TestCreateOrder_LogsFailedCompensation(t *testing.T) {
	f := newFixture(t)
	f.repo.itemsErr = errors.New("insert failed")
	f.repo.deleteErr = errors.New("delete failed")

	_, err := f.svc.CreateOrder(context.Background(), validInput())
	assert.Error(t, err)

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.NotEmpty(t, entry.Data["order_number"])
}

func TestCreateOrderFromCart(t *testing.T) {
	f := newFixture(t)
	f.carts.items = []cart.Item{{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(20000)}}

	o, err := f.svc.CreateOrderFromCart(context.Background(), cart.Identity{SessionID: "sess"}, "", &CheckoutRequest{
		Email:                "guest@example.com",
		ShippingAddress:      validInput().Shipping,
		UseShippingAsBilling: true,
	})
	require.NoError(t, err)

	assert.Nil(t, o.UserID)
	assert.Equal(t, "guest@example.com", o.Email)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(45500)))
	assert.Equal(t, 1, f.carts.cleared)
}

func TestCreateOrderFromCart_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrderFromCart(context.Background(), cart.Identity{UserID: "user-1"}, "jane@example.com", &CheckoutRequest{
		ShippingAddress: validInput().Shipping,
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, 0, f.carts.cleared)
}

func TestCreateOrderFromCart_ClearFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.carts.items = []cart.Item{{ProductID: 1, Quantity: 1}}
	f.carts.clearErr = errors.New("redis down")

	_, err := f.svc.CreateOrderFromCart(context.Background(), cart.Identity{UserID: "user-1"}, "jane@example.com", &CheckoutRequest{
		ShippingAddress: validInput().Shipping,
	})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)
}

func TestUpdatePaymentStatus_PaidIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	first, changed, err := f.svc.UpdatePaymentStatus(ctx, o.OrderNumber, "paid", "PSK-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentStatusPaid, first.PaymentStatus)
	assert.Equal(t, OrderStatusProcessing, first.Status)
	assert.Equal(t, "PSK-1", first.PaymentReference)

	second, changed, err := f.svc.UpdatePaymentStatus(ctx, o.OrderNumber, "completed", "PSK-1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first.PaymentStatus, second.PaymentStatus)
	assert.Equal(t, first.Status, second.Status)

	assert.Equal(t, 1, f.notifier.paid)
	assert.Len(t, f.repo.history, 2)
}

func TestUpdatePaymentStatus_ConcurrentDuplicatesApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := f.svc.UpdatePaymentStatus(ctx, o.OrderNumber, "paid", "PSK-1")
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, f.notifier.paid)
}

func TestUpdatePaymentStatus_ByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	updated, changed, err := f.svc.UpdatePaymentStatus(ctx, "1", "failed", "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, o.ID, updated.ID)
	assert.Equal(t, PaymentStatusFailed, updated.PaymentStatus)
	assert.Equal(t, OrderStatusPending, updated.Status)
	assert.Equal(t, 0, f.notifier.paid)
}

func TestUpdatePaymentStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	_, _, err = f.svc.UpdatePaymentStatus(ctx, "ORD-19990101000000-ABCDEF", "paid", "")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, _, err = f.svc.UpdatePaymentStatus(ctx, o.OrderNumber, "settled", "")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, _, err = f.svc.UpdatePaymentStatus(ctx, o.OrderNumber, "refunded", "")
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestUpdatePaymentStatus_RefundMarksOrderRefunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	_, _, err = f.svc.UpdatePaymentStatus(ctx, o.OrderNumber, "paid", "")
	require.NoError(t, err)
	refunded, changed, err := f.svc.UpdatePaymentStatus(ctx, o.OrderNumber, "refunded", "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, OrderStatusRefunded, refunded.Status)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, o.ID, OrderStatusShipped, "", "admin@example.com")
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	for _, next := range []OrderStatus{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered} {
		updated, err := f.svc.UpdateStatus(ctx, o.ID, next, "", "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err = f.svc.UpdateStatus(ctx, o.ID, OrderStatusCancelled, "", "admin@example.com")
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = f.svc.UpdateStatus(ctx, 99, OrderStatusCancelled, "", "admin@example.com")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)
	other := validInput()
	other.UserID = "user-2"
	_, err = f.svc.CreateOrder(ctx, other)
	require.NoError(t, err)

	resp, err := f.svc.ListForUser(ctx, "user-1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 1)
	assert.Equal(t, int64(1), resp.Pagination.Total)

	_, err = f.svc.ListForUser(ctx, "", 1, 10)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}
