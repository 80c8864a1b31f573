// Package service is the SDK entry point. Client exposes typed operations on
// payments, transactions, payment types and the supporting resources; the
// ResourceService underneath turns them into gateway requests.
package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/punchamoorthee/paygate/internal/config"
	"github.com/punchamoorthee/paygate/internal/domain"
	"github.com/punchamoorthee/paygate/internal/payerr"
	"github.com/punchamoorthee/paygate/internal/transport"
)

// Client is safe for concurrent use. The resources passed to it are not:
// a Payment must not be shared between concurrent operations.
type Client struct {
	res       *ResourceService
	transport transport.Transport
}

type options struct {
	transport transport.Transport
	logger    *slog.Logger
	journal   Journal
}

type Option func(*options)

// WithTransport replaces the HTTP transport.
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithJournal records every successful operation in j.
func WithJournal(j Journal) Option {
	return func(o *options) { o.journal = j }
}

func New(cfg *config.Config, opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		o.transport = transport.NewHTTPAdapter(transport.HTTPOptions{
			Timeout:        cfg.Timeout,
			ConnectTimeout: cfg.ConnectTimeout,
			RateLimit:      cfg.RateLimit,
		})
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		res:       newResourceService(cfg, o.transport, o.logger, o.journal),
		transport: o.transport,
	}
}

// Resources gives access to the raw resource operations.
func (c *Client) Resources() *ResourceService { return c.res }

func (c *Client) Close() error { return c.transport.Close() }

// checked turns an isError response into an error.
func checked(resp *domain.Response, err error) error {
	if err != nil {
		return err
	}
	if resp != nil && resp.IsError {
		return resp.APIError()
	}
	return nil
}

// generic rejects resources that have dedicated operations: transactions
// must refresh their payment and payments are only created through
// transactions.
func generic(r domain.Resource) error {
	switch r.(type) {
	case domain.Transaction:
		return payerr.IllegalResourceType(r.Kind(), "use the transaction operations of the client")
	case *domain.Payment:
		return payerr.IllegalResourceType(r.Kind(), "payments are created by transactions")
	}
	return nil
}

// Create creates a payment type, customer, basket, metadata or paypage.
func (c *Client) Create(ctx context.Context, r domain.Resource) error {
	if err := generic(r); err != nil {
		return err
	}
	return checked(c.res.Create(ctx, r))
}

func (c *Client) Fetch(ctx context.Context, r domain.Resource) error {
	if _, ok := r.(domain.Transaction); ok {
		return generic(r)
	}
	return checked(c.res.Fetch(ctx, r))
}

func (c *Client) Update(ctx context.Context, r domain.Resource) error {
	if err := generic(r); err != nil {
		return err
	}
	return checked(c.res.Update(ctx, r))
}

func (c *Client) Delete(ctx context.Context, r domain.Resource) error {
	if err := generic(r); err != nil {
		return err
	}
	return checked(c.res.Delete(ctx, r))
}

// FetchPaymentType fetches a payment type by id. The variant is taken from
// the id.
func (c *Client) FetchPaymentType(ctx context.Context, id string) (domain.PaymentType, error) {
	t, err := domain.NewPaymentTypeFromID(id)
	if err != nil {
		return nil, err
	}
	if err := c.Fetch(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *Client) FetchCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	cst := &domain.Customer{}
	cst.ID = id
	if err := c.Fetch(ctx, cst); err != nil {
		return nil, err
	}
	return cst, nil
}

// FetchCustomerByExternalID looks a customer up by the merchant's customer
// number.
func (c *Client) FetchCustomerByExternalID(ctx context.Context, externalID string) (*domain.Customer, error) {
	if externalID == "" {
		return nil, payerr.IDRequired("customer")
	}
	cst := &domain.Customer{}
	if err := checked(c.res.FetchPath(ctx, cst, cst.CollectionPath()+"/"+externalID)); err != nil {
		return nil, err
	}
	return cst, nil
}

func (c *Client) FetchBasket(ctx context.Context, id string) (*domain.Basket, error) {
	b := &domain.Basket{}
	b.ID = id
	if err := c.Fetch(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Client) FetchMetadata(ctx context.Context, id string) (*domain.Metadata, error) {
	m := domain.NewMetadata()
	m.ID = id
	if err := c.Fetch(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// InitPaypage creates a hosted checkout page. The returned page carries the
// redirect URL and the id of the payment it completes.
func (c *Client) InitPaypage(ctx context.Context, p *domain.Paypage) error {
	return c.Create(ctx, p)
}
