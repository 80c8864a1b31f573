package service

import (
	"context"
	"errors"

	"github.com/punchamoorthee/paygate/internal/domain"
	"github.com/punchamoorthee/paygate/internal/payerr"
)

// TxParams are the optional inputs of a charge or authorization.
type TxParams struct {
	Amount           domain.Amount
	Currency         string
	ReturnURL        string
	OrderID          string
	InvoiceID        string
	PaymentReference string
	Card3DS          *bool

	Customer *domain.Customer
	Basket   *domain.Basket
	Metadata *domain.Metadata
}

// Charge charges t and opens a new payment. A type, customer, basket or
// metadata without id is created first.
func (c *Client) Charge(ctx context.Context, t domain.PaymentType, p TxParams) (*domain.Charge, *domain.Payment, error) {
	if err := supports(t, domain.CanCharge, "charge"); err != nil {
		return nil, nil, err
	}
	ch := domain.NewCharge(p.Amount, p.Currency, p.ReturnURL)
	ch.OrderID = p.OrderID
	ch.InvoiceID = p.InvoiceID
	ch.PaymentReference = p.PaymentReference
	ch.Card3DS = p.Card3DS
	ch.Type = t
	ch.Customer = p.Customer
	ch.Basket = p.Basket
	ch.Metadata = p.Metadata

	pay := domain.NewPayment()
	err := c.persistTransaction(ctx, pay, ch, domain.MethodPost)
	return ch, pay, err
}

// Authorize reserves an amount on t and opens a new payment.
func (c *Client) Authorize(ctx context.Context, t domain.PaymentType, p TxParams) (*domain.Authorization, *domain.Payment, error) {
	if err := supports(t, domain.CanAuthorize, "authorize"); err != nil {
		return nil, nil, err
	}
	auth := domain.NewAuthorization(p.Amount, p.Currency, p.ReturnURL)
	auth.OrderID = p.OrderID
	auth.InvoiceID = p.InvoiceID
	auth.PaymentReference = p.PaymentReference
	auth.Card3DS = p.Card3DS
	auth.Type = t
	auth.Customer = p.Customer
	auth.Basket = p.Basket
	auth.Metadata = p.Metadata

	pay := domain.NewPayment()
	err := c.persistTransaction(ctx, pay, auth, domain.MethodPost)
	return auth, pay, err
}

func supports(t domain.PaymentType, want domain.Capabilities, transaction string) error {
	if t == nil {
		return payerr.MissingResource(transaction, "payment type required")
	}
	if !t.Capabilities().Has(want) {
		return payerr.IllegalTransactionType(transaction, t.TypeName())
	}
	return nil
}

// ChargeAuthorization captures amount of the payment's authorization. A zero
// amount captures what remains authorized.
func (c *Client) ChargeAuthorization(ctx context.Context, pay *domain.Payment, amount domain.Amount) (*domain.Charge, error) {
	if pay.ID == "" {
		return nil, payerr.IDRequired(pay.Kind())
	}
	if pay.Authorization == nil {
		return nil, payerr.MissingResource("authorization", "payment "+pay.ID+" is not authorized")
	}
	ch := domain.NewCharge(amount, pay.Authorization.Currency, "")
	ch.BindPayment(pay.ID)
	err := c.persistTransaction(ctx, pay, ch, domain.MethodPost)
	return ch, err
}

// CancelCharge refunds amount of ch. A zero amount refunds what remains. When
// ch is already fully refunded its last cancellation is returned and nothing
// is sent.
func (c *Client) CancelCharge(ctx context.Context, pay *domain.Payment, ch *domain.Charge, amount domain.Amount) (*domain.Cancellation, error) {
	if ch.ID == "" {
		return nil, payerr.IDRequired(ch.Kind())
	}
	if ch.IsCanceled() {
		return ch.LastCancellation(), nil
	}
	if err := bind(pay, ch); err != nil {
		return nil, err
	}
	held := pay.Charge(ch.ID)
	if held == nil {
		pay.Charges = append(pay.Charges, ch)
	} else if held != ch && held.IsCanceled() {
		// ch is stale; the payment already knows the charge is refunded.
		for _, cn := range held.Cancellations {
			ch.AddCancellation(cn)
		}
		return held.LastCancellation(), nil
	}
	cn := ch.NewCancellation(amount)
	err := c.persistTransaction(ctx, pay, cn, domain.MethodPost)
	// The payment may hold its own copy of the charge.
	if cn.ID != "" {
		ch.AddCancellation(cn)
	}
	return cn, err
}

// CancelAuthorization reverses amount of the payment's authorization. A zero
// amount reverses what remains.
func (c *Client) CancelAuthorization(ctx context.Context, pay *domain.Payment, amount domain.Amount) (*domain.Cancellation, error) {
	auth := pay.Authorization
	if auth == nil {
		return nil, payerr.MissingResource("authorization", "payment has no authorization")
	}
	if auth.ID == "" {
		return nil, payerr.IDRequired(auth.Kind())
	}
	if err := bind(pay, auth); err != nil {
		return nil, err
	}
	cn := auth.NewCancellation(amount)
	err := c.persistTransaction(ctx, pay, cn, domain.MethodPost)
	return cn, err
}

// CancelPayment cancels amount of the payment: the remaining authorization
// is reversed first, then charges are refunded in order until the amount is
// consumed. A zero amount cancels everything. The cancellations made before
// a failure are returned with the error.
func (c *Client) CancelPayment(ctx context.Context, pay *domain.Payment, amount domain.Amount) ([]*domain.Cancellation, error) {
	if pay.ID == "" {
		return nil, payerr.IDRequired(pay.Kind())
	}
	full := amount == 0
	left := amount.Decimal()
	var out []*domain.Cancellation

	take := func(available domain.Amount) (domain.Amount, bool) {
		if available <= 0 {
			return 0, false
		}
		if full {
			return 0, true
		}
		if !left.IsPositive() {
			return 0, false
		}
		part := available.Decimal()
		if left.LessThan(part) {
			part = left
		}
		left = left.Sub(part)
		return domain.Amount(part.InexactFloat64()), true
	}

	if pay.Authorization != nil && pay.Authorization.ID != "" {
		if a, ok := take(pay.Amount.Remaining); ok {
			cn, err := c.CancelAuthorization(ctx, pay, a)
			if err != nil {
				return out, err
			}
			out = append(out, cn)
		}
	}

	for _, ch := range append([]*domain.Charge(nil), pay.Charges...) {
		if ch.ID == "" || ch.IsCanceled() {
			continue
		}
		refundable := domain.Amount(ch.Amount.Decimal().Sub(ch.CanceledAmount().Decimal()).InexactFloat64())
		if refundable <= 0 {
			continue
		}
		a, ok := take(refundable)
		if !ok {
			break
		}
		cn, err := c.CancelCharge(ctx, pay, ch, a)
		if err != nil {
			return out, err
		}
		out = append(out, cn)
	}
	return out, nil
}

// Ship notifies the gateway that the goods of the payment were shipped.
func (c *Client) Ship(ctx context.Context, pay *domain.Payment, invoiceID, orderID string) (*domain.Shipment, error) {
	if pay.ID == "" {
		return nil, payerr.IDRequired(pay.Kind())
	}
	sh := domain.NewShipment(invoiceID, orderID)
	sh.BindPayment(pay.ID)
	err := c.persistTransaction(ctx, pay, sh, domain.MethodPost)
	return sh, err
}

// UpdateTransaction sends the changed fields of a persisted transaction and
// refreshes its payment.
func (c *Client) UpdateTransaction(ctx context.Context, pay *domain.Payment, tx domain.Transaction) error {
	if tx.ResourceID() == "" {
		return payerr.IDRequired(tx.Kind())
	}
	if err := bind(pay, tx); err != nil {
		return err
	}
	return c.persistTransaction(ctx, pay, tx, domain.MethodPut)
}

// bind ties tx to pay by id. A transaction of another payment is rejected.
func bind(pay *domain.Payment, tx domain.Transaction) error {
	switch {
	case tx.PaymentID() == "":
		if pay.ID == "" {
			return payerr.IDRequired(pay.Kind())
		}
		tx.BindPayment(pay.ID)
	case pay.ID == "":
		pay.ID = tx.PaymentID()
	case tx.PaymentID() != pay.ID:
		return payerr.ReferenceMismatch(tx.Kind(), "belongs to payment "+tx.PaymentID()+", not "+pay.ID)
	}
	return nil
}

// persistTransaction creates or updates tx and then re-fetches pay, whether
// the transaction succeeded or not, as long as a payment id is known. Usage
// errors and transport failures skip the refresh. A failed refresh is
// reported as a *payerr.RefreshError joined to the transaction's own error.
func (c *Client) persistTransaction(ctx context.Context, pay *domain.Payment, tx domain.Transaction, m domain.Method) error {
	var (
		resp *domain.Response
		err  error
	)
	if m == domain.MethodPut {
		resp, err = c.res.Update(ctx, tx)
	} else {
		resp, err = c.res.Create(ctx, tx)
	}

	var local *payerr.LocalError
	if errors.As(err, &local) || resp == nil {
		return err
	}

	if err == nil && resp.IsError {
		err = resp.APIError()
	}
	if err == nil {
		pay.Attach(tx)
	} else if pay.ID == "" && resp.Resources.PaymentID != "" {
		pay.ID = resp.Resources.PaymentID
	}

	if pay.ID != "" {
		if rerr := c.RefreshPayment(ctx, pay); rerr != nil {
			err = errors.Join(err, &payerr.RefreshError{PaymentID: pay.ID, Err: rerr})
		}
	}
	return err
}

// FetchPayment fetches a payment with its transactions.
func (c *Client) FetchPayment(ctx context.Context, id string) (*domain.Payment, error) {
	pay := domain.NewPayment()
	pay.ID = id
	if err := c.RefreshPayment(ctx, pay); err != nil {
		return nil, err
	}
	return pay, nil
}

// FetchPaymentByOrderID fetches a payment by the merchant's order id.
func (c *Client) FetchPaymentByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	if orderID == "" {
		return nil, payerr.IDRequired("payment")
	}
	pay := domain.NewPayment()
	if err := checked(c.res.FetchPath(ctx, pay, pay.CollectionPath()+"/"+orderID)); err != nil {
		return nil, err
	}
	return pay, nil
}

// RefreshPayment re-fetches pay and reconciles its transactions in place.
func (c *Client) RefreshPayment(ctx context.Context, pay *domain.Payment) error {
	return checked(c.res.Fetch(ctx, pay))
}

// FetchCharge fetches a charge of pay, updating the payment's copy if it
// holds one.
func (c *Client) FetchCharge(ctx context.Context, pay *domain.Payment, id string) (*domain.Charge, error) {
	if pay.ID == "" {
		return nil, payerr.IDRequired(pay.Kind())
	}
	ch := pay.Charge(id)
	if ch == nil {
		ch = &domain.Charge{}
		ch.ID = id
	}
	ch.BindPayment(pay.ID)
	if err := checked(c.res.Fetch(ctx, ch)); err != nil {
		return nil, err
	}
	pay.Attach(ch)
	return ch, nil
}

// FetchAuthorization fetches the authorization of pay.
func (c *Client) FetchAuthorization(ctx context.Context, pay *domain.Payment) (*domain.Authorization, error) {
	auth := pay.Authorization
	if auth == nil || auth.ID == "" {
		if err := c.RefreshPayment(ctx, pay); err != nil {
			return nil, err
		}
		auth = pay.Authorization
		if auth == nil {
			return nil, payerr.MissingResource("authorization", "payment "+pay.ID+" is not authorized")
		}
	}
	auth.BindPayment(pay.ID)
	if err := checked(c.res.Fetch(ctx, auth)); err != nil {
		return nil, err
	}
	return auth, nil
}
