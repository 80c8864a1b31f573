package service

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/paygate/internal/config"
	"github.com/punchamoorthee/paygate/internal/domain"
	"github.com/punchamoorthee/paygate/internal/mockgateway"
	"github.com/punchamoorthee/paygate/internal/payerr"
	"github.com/punchamoorthee/paygate/internal/store"
	"github.com/punchamoorthee/paygate/internal/transport"
)

const gatewayKey = "s-priv-2a10ktest"

// countingTransport counts the requests reaching the wrapped transport.
type countingTransport struct {
	transport.Transport
	calls atomic.Int32
}

func (c *countingTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	c.calls.Add(1)
	return c.Transport.Send(ctx, req)
}

func gatewayConfig(url string) *config.Config {
	return &config.Config{
		PrivateKey:     gatewayKey,
		Env:            config.EnvSandbox,
		Auth:           config.AuthBasic,
		Locale:         "en_US",
		BaseURL:        url,
		Timeout:        5 * time.Second,
		ConnectTimeout: time.Second,
	}
}

func newGatewayClient(t *testing.T, mutate func(*config.Config), opts ...Option) (*Client, *countingTransport) {
	t.Helper()
	srv := httptest.NewServer(mockgateway.New(mockgateway.Options{PrivateKey: gatewayKey}).Handler())
	t.Cleanup(srv.Close)

	cfg := gatewayConfig(srv.URL)
	if mutate != nil {
		mutate(cfg)
	}
	ct := &countingTransport{Transport: transport.NewHTTPAdapter(transport.HTTPOptions{Timeout: cfg.Timeout})}
	c := New(cfg, append([]Option{WithTransport(ct)}, opts...)...)
	t.Cleanup(func() { c.Close() })
	return c, ct
}

func testCard() *domain.Card {
	card := domain.NewCard()
	card.Number = "4711100000000000"
	card.ExpiryDate = "01/2030"
	card.CVC = "123"
	return card
}

func TestChargeRefundFlow(t *testing.T) {
	c, ct := newGatewayClient(t, nil)
	ctx := context.Background()

	card := testCard()
	ch, pay, err := c.Charge(ctx, card, TxParams{Amount: 100, Currency: "EUR", ReturnURL: "https://shop"})
	require.NoError(t, err)
	assert.Regexp(t, `^s-crd-`, card.ID)
	assert.Equal(t, "VISA", card.Brand)
	assert.NotEmpty(t, ch.ID)
	assert.True(t, ch.IsSuccess())
	assert.Equal(t, pay.ID, ch.PaymentID())
	assert.Equal(t, domain.StateCompleted, pay.State)
	assert.True(t, domain.AmountsEqual(100, pay.Amount.Charged))
	require.Len(t, pay.Charges, 1)
	assert.Same(t, ch, pay.Charges[0])

	cn, err := c.CancelCharge(ctx, pay, ch, 0)
	require.NoError(t, err)
	assert.True(t, domain.AmountsEqual(100, cn.Amount))
	assert.Equal(t, domain.StateCanceled, pay.State)
	assert.True(t, ch.IsCanceled())
	assert.Same(t, cn, ch.LastCancellation())

	before := ct.calls.Load()
	again, err := c.CancelCharge(ctx, pay, ch, 0)
	require.NoError(t, err)
	assert.Same(t, cn, again)
	assert.Equal(t, before, ct.calls.Load(), "a fully refunded charge is not sent again")
}

func TestCancelChargeAgainstFetchedPayment(t *testing.T) {
	c, ct := newGatewayClient(t, nil)
	ctx := context.Background()

	ch, pay, err := c.Charge(ctx, testCard(), TxParams{Amount: 100, Currency: "EUR", ReturnURL: "https://shop"})
	require.NoError(t, err)
	fresh, err := c.FetchPayment(ctx, pay.ID)
	require.NoError(t, err)
	require.NotSame(t, ch, fresh.Charge(ch.ID))

	cn, err := c.CancelCharge(ctx, fresh, ch, 0)
	require.NoError(t, err)
	assert.True(t, ch.IsCanceled())
	assert.Same(t, cn, ch.LastCancellation())
	assert.True(t, fresh.Charge(ch.ID).IsCanceled())

	before := ct.calls.Load()
	again, err := c.CancelCharge(ctx, fresh, ch, 0)
	require.NoError(t, err)
	assert.Same(t, cn, again)
	assert.Equal(t, before, ct.calls.Load())

	// A copy of the charge without its refunds is answered from the payment.
	stale := domain.NewCharge(100, "EUR", "")
	stale.ID = ch.ID
	stale.BindPayment(pay.ID)
	last, err := c.CancelCharge(ctx, fresh, stale, 0)
	require.NoError(t, err)
	assert.Same(t, fresh.Charge(ch.ID).LastCancellation(), last)
	assert.True(t, stale.IsCanceled())
	assert.Equal(t, before, ct.calls.Load())
}

func TestDeclinedChargeRefreshesPayment(t *testing.T) {
	c, _ := newGatewayClient(t, nil)

	ch, pay, err := c.Charge(context.Background(), testCard(), TxParams{Amount: 666, Currency: "EUR", ReturnURL: "https://shop"})
	var apiErr *payerr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "COR.100.400.100", apiErr.Code)

	assert.Empty(t, ch.ID, "a declined charge is left untouched")
	require.NotEmpty(t, pay.ID)
	require.Len(t, pay.Charges, 1)
	assert.True(t, pay.Charges[0].IsError())
}

func TestRejectedChargeOpensNoPayment(t *testing.T) {
	c, _ := newGatewayClient(t, nil)

	_, pay, err := c.Charge(context.Background(), testCard(), TxParams{Amount: 999, Currency: "EUR", ReturnURL: "https://shop"})
	var apiErr *payerr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Empty(t, pay.ID)
}

func TestAuthorizeCaptureCancelPayment(t *testing.T) {
	c, _ := newGatewayClient(t, nil)
	ctx := context.Background()

	auth, pay, err := c.Authorize(ctx, testCard(), TxParams{Amount: 100, Currency: "EUR", ReturnURL: "https://shop", OrderID: "o-77"})
	require.NoError(t, err)
	assert.Same(t, auth, pay.Authorization)

	ch, err := c.ChargeAuthorization(ctx, pay, 60)
	require.NoError(t, err)
	assert.True(t, domain.AmountsEqual(60, ch.Amount))
	assert.True(t, domain.AmountsEqual(40, pay.Amount.Remaining))
	assert.Equal(t, domain.StatePartlyPaid, pay.State)

	cancels, err := c.CancelPayment(ctx, pay, 0)
	require.NoError(t, err)
	require.Len(t, cancels, 2)
	assert.False(t, cancels[0].IsRefund())
	assert.True(t, domain.AmountsEqual(40, cancels[0].Amount))
	assert.True(t, cancels[1].IsRefund())
	assert.True(t, domain.AmountsEqual(60, cancels[1].Amount))
	assert.Equal(t, domain.StateCanceled, pay.State)

	byOrder, err := c.FetchPaymentByOrderID(ctx, "o-77")
	require.NoError(t, err)
	assert.Equal(t, pay.ID, byOrder.ID)
	assert.Len(t, byOrder.Cancellations(), 2)
}

func TestPartialCancelPayment(t *testing.T) {
	c, _ := newGatewayClient(t, nil)
	ctx := context.Background()

	_, pay, err := c.Authorize(ctx, testCard(), TxParams{Amount: 100, Currency: "EUR", ReturnURL: "https://shop"})
	require.NoError(t, err)
	_, err = c.ChargeAuthorization(ctx, pay, 50)
	require.NoError(t, err)

	cancels, err := c.CancelPayment(ctx, pay, 70)
	require.NoError(t, err)
	require.Len(t, cancels, 2)
	assert.True(t, domain.AmountsEqual(50, cancels[0].Amount))
	assert.True(t, domain.AmountsEqual(20, cancels[1].Amount))
}

func TestShipment(t *testing.T) {
	c, _ := newGatewayClient(t, nil)
	ctx := context.Background()

	_, pay, err := c.Charge(ctx, domain.NewInvoice(), TxParams{Amount: 30, Currency: "EUR", ReturnURL: "https://shop"})
	require.NoError(t, err)

	sh, err := c.Ship(ctx, pay, "inv-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, sh.ID)
	assert.Equal(t, "inv-1", sh.InvoiceID)
	require.Len(t, pay.Shipments, 1)
	assert.Same(t, sh, pay.Shipments[0])
}

func TestRedirectChargeIsPending(t *testing.T) {
	c, _ := newGatewayClient(t, nil)

	pp := domain.NewPayPal()
	pp.Email = "buyer@example.com"
	ch, pay, err := c.Charge(context.Background(), pp, TxParams{Amount: 12.5, Currency: "EUR", ReturnURL: "https://shop"})
	require.NoError(t, err)
	assert.True(t, ch.IsPending())
	assert.NotEmpty(t, ch.RedirectURL)
	assert.Equal(t, ch.RedirectURL, pay.RedirectURL)
	assert.Equal(t, domain.StatePending, pay.State)
}

func TestChargeCreatesLinkedResources(t *testing.T) {
	c, _ := newGatewayClient(t, nil)
	ctx := context.Background()

	cst := domain.NewCustomer("Ada", "Lovelace")
	cst.ExternalID = "cust-1"
	meta := domain.NewMetadata().Set("shop", "berlin")
	ch, _, err := c.Charge(ctx, testCard(), TxParams{
		Amount: 10, Currency: "EUR", ReturnURL: "https://shop",
		Customer: cst, Metadata: meta,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cst.ID)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, cst.ID, ch.References.CustomerID)

	got, err := c.FetchCustomerByExternalID(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, cst.ID, got.ID)
	assert.Equal(t, "Ada", got.Firstname)

	m, err := c.FetchMetadata(ctx, meta.ID)
	require.NoError(t, err)
	v, _ := m.Get("shop")
	assert.Equal(t, "berlin", v)
}

func TestFetchPaymentTypeByID(t *testing.T) {
	c, _ := newGatewayClient(t, nil)
	ctx := context.Background()

	card := testCard()
	require.NoError(t, c.Create(ctx, card))

	pt, err := c.FetchPaymentType(ctx, card.ID)
	require.NoError(t, err)
	got, ok := pt.(*domain.Card)
	require.True(t, ok)
	assert.Equal(t, "471110******0000", got.Number)
	assert.False(t, got.FetchedAt.IsZero())
}

func TestPaypageUsesBearerToken(t *testing.T) {
	c, _ := newGatewayClient(t, nil)
	ctx := context.Background()

	page := domain.NewPaypage(domain.PaypageCharge, 25, "EUR", "https://shop")
	require.NoError(t, c.InitPaypage(ctx, page))
	assert.NotEmpty(t, page.ID)
	assert.Contains(t, page.RedirectURL, "/paypage/")

	pay, err := c.FetchPayment(ctx, page.PaymentID())
	require.NoError(t, err)
	assert.True(t, domain.AmountsEqual(25, pay.Amount.Total))
	assert.Equal(t, domain.StatePending, pay.State)
}

func TestBearerAuthForPaymentAPI(t *testing.T) {
	c, _ := newGatewayClient(t, func(cfg *config.Config) { cfg.Auth = config.AuthBearer })
	require.NoError(t, c.Create(context.Background(), testCard()))
}

func TestWrongKeyIsAPIError(t *testing.T) {
	c, _ := newGatewayClient(t, func(cfg *config.Config) { cfg.PrivateKey = "s-priv-other" })

	err := c.Create(context.Background(), testCard())
	var apiErr *payerr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestJournalRecordsPaymentHistory(t *testing.T) {
	j, err := store.OpenBolt(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	c, _ := newGatewayClient(t, nil, WithJournal(j))
	ch, pay, err := c.Charge(context.Background(), testCard(), TxParams{Amount: 5, Currency: "EUR", ReturnURL: "https://shop"})
	require.NoError(t, err)

	history, err := j.History(context.Background(), pay.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "charge", history[0].Kind)
	assert.Equal(t, ch.ID, history[0].ID)
	assert.Equal(t, "payment", history[1].Kind)
	assert.Equal(t, "GET", history[1].Method)
}

func TestGenericOperationsRejectTransactions(t *testing.T) {
	c, ct := newGatewayClient(t, nil)
	ctx := context.Background()

	err := c.Create(ctx, domain.NewCharge(1, "EUR", ""))
	assert.True(t, errors.Is(err, payerr.ErrIllegalResourceType))
	err = c.Create(ctx, domain.NewPayment())
	assert.True(t, errors.Is(err, payerr.ErrIllegalResourceType))
	assert.Zero(t, ct.calls.Load())
}
