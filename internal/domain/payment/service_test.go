package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/booking"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/datatypes"
)

type memTxns struct {
	mu   sync.Mutex
	rows []*PaymentTransaction
}

func (m *memTxns) Create(_ context.Context, t *PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uint(len(m.rows) + 1)
	t.CreatedAt = time.Now()
	cp := *t
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memTxns) FindByReference(_ context.Context, reference string) (*PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *memTxns) ListForSubject(_ context.Context, subject SubjectType, reference string) ([]PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PaymentTransaction
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].SubjectType == subject && m.rows[i].SubjectReference == reference {
			out = append(out, *m.rows[i])
		}
	}
	return out, nil
}

func (m *memTxns) RecordVerification(_ context.Context, reference string, status Status, raw datatypes.JSON, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Reference == reference {
			t.Status = status
			t.GatewayResponse = raw
			t.VerifiedAt = &at
		}
	}
	return nil
}

type fakeGateway struct {
	initialized []InitializeRequest
	verify      map[string]*VerifyResult
	err         error
}

func (g *fakeGateway) Initialize(_ context.Context, req InitializeRequest) (*InitializeResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.initialized = append(g.initialized, req)
	return &InitializeResult{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		AccessCode:       "code-" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*VerifyResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	res, ok := g.verify[reference]
	if !ok {
		return &VerifyResult{Status: "ongoing", Reference: reference}, nil
	}
	return res, nil
}

type paymentCall struct {
	subject, status, reference string
}

type fakeOrders struct {
	orders map[string]*order.Order
	calls  []paymentCall
	err    error
}

func (f *fakeOrders) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	o, ok := f.orders[number]
	if !ok {
		return nil, apperror.NotFound("order not found")
	}
	return o, nil
}

func (f *fakeOrders) UpdatePaymentStatus(_ context.Context, number, status, reference string) (*order.Order, bool, error) {
	f.calls = append(f.calls, paymentCall{number, status, reference})
	if f.err != nil {
		return nil, false, f.err
	}
	o := f.orders[number]
	target, _ := order.ParsePaymentStatus(status)
	changed := o.PaymentStatus != target
	o.PaymentStatus = target
	return o, changed, nil
}

type fakeBookings struct {
	bookings map[string]*booking.RealEstateBooking
	calls    []paymentCall
}

func (f *fakeBookings) GetByReference(_ context.Context, reference string) (*booking.RealEstateBooking, error) {
	b, ok := f.bookings[reference]
	if !ok {
		return nil, apperror.NotFound("booking not found")
	}
	return b, nil
}

func (f *fakeBookings) UpdatePaymentStatus(_ context.Context, reference, status, paymentReference string) (*booking.RealEstateBooking, bool, error) {
	f.calls = append(f.calls, paymentCall{reference, status, paymentReference})
	b := f.bookings[reference]
	target, _ := booking.ParsePaymentStatus(status)
	b.PaymentStatus = target
	return b, true, nil
}

type fixture struct {
	svc      *Service
	gateway  *fakeGateway
	txns     *memTxns
	orders   *fakeOrders
	bookings *fakeBookings
	hook     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.PublicBaseURL = "https://shop.test"
	cfg.External.Paystack.SecretKey = "sk_test"
	cfg.External.Paystack.CallbackPath = "/checkout/verify"

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	f := &fixture{
		gateway: &fakeGateway{verify: map[string]*VerifyResult{}},
		txns:    &memTxns{},
		orders: &fakeOrders{orders: map[string]*order.Order{
			"ORD-1": {
				ID:            1,
				OrderNumber:   "ORD-1",
				Email:         "ada@example.com",
				Status:        order.OrderStatusPending,
				PaymentStatus: order.PaymentStatusPending,
				Total:         decimal.RequireFromString("57975.00"),
				Currency:      "NGN",
			},
		}},
		bookings: &fakeBookings{bookings: map[string]*booking.RealEstateBooking{
			"BKG-1": {
				ID:            1,
				Reference:     "BKG-1",
				GuestEmail:    "guest@example.com",
				Status:        booking.BookingStatusPending,
				PaymentStatus: booking.PaymentStatusPending,
				Total:         decimal.NewFromInt(90000),
				Currency:      "NGN",
			},
		}},
		hook: hook,
	}
	f.svc = NewService(f.gateway, f.txns, f.orders, f.bookings, cfg, log)
	return f
}

func TestInitializeOrderPayment(t *testing.T) {
	f := newFixture(t)

	checkout, err := f.svc.InitializeOrderPayment(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", checkout.Reference)
	assert.Equal(t, "https://checkout.test/ORD-1", checkout.AuthorizationURL)

	require.Len(t, f.gateway.initialized, 1)
	req := f.gateway.initialized[0]
	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, "https://shop.test/checkout/verify", req.CallbackURL)
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("57975")))

	stored, err := f.txns.FindByReference(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.EqualValues(t, 5797500, stored.AmountMinor)
	assert.Equal(t, SubjectOrder, stored.SubjectType)
}

func TestInitializeOrderPayment_ReusesPendingCheckout(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.InitializeOrderPayment(context.Background(), "ORD-1")
	require.NoError(t, err)
	second, err := f.svc.InitializeOrderPayment(context.Background(), "ORD-1")
	require.NoError(t, err)

	assert.Equal(t, first.Reference, second.Reference)
	assert.Len(t, f.gateway.initialized, 1)
}

func TestInitializeOrderPayment_RetryAfterFailureGetsNewReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializeOrderPayment(ctx, "ORD-1")
	require.NoError(t, err)
	require.NoError(t, f.txns.RecordVerification(ctx, "ORD-1", StatusFailed, datatypes.JSON("{}"), time.Now()))

	retry, err := f.svc.InitializeOrderPayment(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1-R1", retry.Reference)
}

func TestInitializeOrderPayment_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializeOrderPayment(ctx, "ORD-404")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	f.orders.orders["ORD-1"].PaymentStatus = order.PaymentStatusPaid
	_, err = f.svc.InitializeOrderPayment(ctx, "ORD-1")
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	f.orders.orders["ORD-1"].PaymentStatus = order.PaymentStatusPending
	f.gateway.err = errors.New("gateway down")
	_, err = f.svc.InitializeOrderPayment(ctx, "ORD-1")
	assert.True(t, apperror.Is(err, apperror.KindUpstream))
}

func TestInitializeOrderPayment_MetadataEncodingFailure(t *testing.T) {
	f := newFixture(t)
	encodeErr := errors.New("unsupported value")
	f.svc.marshal = func(interface{}) ([]byte, error) { return nil, encodeErr }

	_, err := f.svc.InitializeOrderPayment(context.Background(), "ORD-1")
	assert.True(t, apperror.Is(err, apperror.KindUpstream))
	assert.ErrorIs(t, err, encodeErr)
	assert.Empty(t, f.gateway.initialized)

	_, err = f.txns.FindByReference(context.Background(), "ORD-1")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestInitialize_RequiresExactlyOneSubject(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Initialize(context.Background(), &InitializePaymentRequest{})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Initialize(context.Background(), &InitializePaymentRequest{OrderNumber: "ORD-1", BookingReference: "BKG-1"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	checkout, err := f.svc.Initialize(context.Background(), &InitializePaymentRequest{BookingReference: "BKG-1"})
	require.NoError(t, err)
	assert.Equal(t, "BKG-1", checkout.Reference)
	assert.Equal(t, "guest@example.com", f.gateway.initialized[0].Email)
}

func TestVerify_SuccessMarksOrderPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializeOrderPayment(ctx, "ORD-1")
	require.NoError(t, err)
	f.gateway.verify["ORD-1"] = &VerifyResult{Status: "success", Amount: 5797500, Currency: "NGN", Raw: []byte(`{"status":"success"}`)}

	outcome, err := f.svc.Verify(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, outcome.Status)
	assert.Equal(t, []paymentCall{{"ORD-1", "paid", "ORD-1"}}, f.orders.calls)

	stored, _ := f.txns.FindByReference(ctx, "ORD-1")
	assert.Equal(t, StatusPaid, stored.Status)
	assert.NotNil(t, stored.VerifiedAt)
}

func TestVerify_AmountMismatchIsFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializeOrderPayment(ctx, "ORD-1")
	require.NoError(t, err)
	f.gateway.verify["ORD-1"] = &VerifyResult{Status: "success", Amount: 100, Currency: "NGN"}

	outcome, err := f.svc.Verify(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "failed", f.orders.calls[0].status)
	assert.True(t, hasEntry(f.hook, logrus.ErrorLevel, "Payment amount does not match, treating as failed"))

	entry := findEntry(f.hook, "Payment amount does not match, treating as failed")
	require.NotNil(t, entry)
	assert.Equal(t, "57975.00", entry.Data["expected_amount"])
	assert.Equal(t, "1.00", entry.Data["received_amount"])
}

func TestVerify_PendingDoesNotReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializeBookingPayment(ctx, "BKG-1")
	require.NoError(t, err)

	outcome, err := f.svc.Verify(ctx, "BKG-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, outcome.Status)
	assert.Empty(t, f.bookings.calls)
}

func TestVerify_ConflictIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializeOrderPayment(ctx, "ORD-1")
	require.NoError(t, err)
	f.gateway.verify["ORD-1"] = &VerifyResult{Status: "reversed"}
	f.orders.err = apperror.Conflict("payment status cannot change from paid to failed")

	outcome, err := f.svc.Verify(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, outcome.Status)

	assert.True(t, hasEntry(f.hook, logrus.WarnLevel, "Payment outcome not applied"))
}

func TestVerify_UnknownReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Verify(context.Background(), "nope")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestMapGatewayStatus(t *testing.T) {
	assert.Equal(t, StatusPaid, MapGatewayStatus("success"))
	assert.Equal(t, StatusFailed, MapGatewayStatus("failed"))
	assert.Equal(t, StatusFailed, MapGatewayStatus("reversed"))
	assert.Equal(t, StatusFailed, MapGatewayStatus("abandoned"))
	assert.Equal(t, StatusPending, MapGatewayStatus("ongoing"))
	assert.Equal(t, StatusPending, MapGatewayStatus(""))
}

func findEntry(hook *test.Hook, msg string) *logrus.Entry {
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			return e
		}
	}
	return nil
}

func hasEntry(hook *test.Hook, level logrus.Level, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHandleWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializeBookingPayment(ctx, "BKG-1")
	require.NoError(t, err)
	f.gateway.verify["BKG-1"] = &VerifyResult{Status: "success", Amount: 9000000, Currency: "NGN"}

	body := []byte(`{"event":"charge.success","data":{"reference":"BKG-1"}}`)

	err = f.svc.HandleWebhook(ctx, body, "bad")
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
	assert.Empty(t, f.bookings.calls)

	require.NoError(t, f.svc.HandleWebhook(ctx, body, sign("sk_test", body)))
	require.Len(t, f.bookings.calls, 1)
	assert.Equal(t, "paid", f.bookings.calls[0].status)

	other := []byte(`{"event":"transfer.success","data":{"reference":"BKG-1"}}`)
	require.NoError(t, f.svc.HandleWebhook(ctx, other, sign("sk_test", other)))
	assert.Len(t, f.bookings.calls, 1)

	unknown := []byte(`{"event":"charge.success","data":{"reference":"missing"}}`)
	assert.NoError(t, f.svc.HandleWebhook(ctx, unknown, sign("sk_test", unknown)))
}
