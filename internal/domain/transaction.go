package domain

import (
	"encoding/json"
	"fmt"
)

// Transaction is a single operation against a Payment: an authorization,
// a charge, a cancellation or a shipment.
//
// A transaction refers to its payment by id only; the Payment owns the
// transactions, never the other way around.
type Transaction interface {
	Resource
	PaymentID() string
	// BindPayment sets the id of the owning payment.
	BindPayment(paymentID string)
	IsSuccess() bool
	IsPending() bool
	IsError() bool

	base() *txn
}

// Processing holds the gateway's processing identifiers.
type Processing struct {
	UniqueID string `json:"uniqueId,omitempty"`
	ShortID  string `json:"shortId,omitempty"`
	TraceID  string `json:"traceId,omitempty"`
}

// txn carries the fields all transaction kinds share.
type txn struct {
	Envelope

	Amount           Amount
	Currency         string
	ReturnURL        string
	OrderID          string
	InvoiceID        string
	PaymentReference string
	RedirectURL      string
	Date             string
	Processing       Processing
	Message          Message
	References       References

	paymentID string
	success   bool
	pending   bool
	failed    bool
}

func (t *txn) base() *txn { return t }

func (t *txn) PaymentID() string { return t.paymentID }

func (t *txn) BindPayment(paymentID string) { t.paymentID = paymentID }

func (t *txn) IsSuccess() bool { return t.success }
func (t *txn) IsPending() bool { return t.pending }
func (t *txn) IsError() bool   { return t.failed }

// setStatus applies a status word as reported in a payment's transaction
// list.
func (t *txn) setStatus(status string) {
	t.success = status == "success"
	t.pending = status == "pending"
	t.failed = status == "error"
}

func (t *txn) paymentPath() string {
	if t.paymentID == "" {
		return "payments"
	}
	return "payments/" + t.paymentID
}

// txnPayload is the request body shared by transaction kinds.
type txnPayload struct {
	Amount           Amount      `json:"amount,omitempty"`
	Currency         string      `json:"currency,omitempty"`
	ReturnURL        string      `json:"returnUrl,omitempty"`
	OrderID          string      `json:"orderId,omitempty"`
	InvoiceID        string      `json:"invoiceId,omitempty"`
	PaymentReference string      `json:"paymentReference,omitempty"`
	Card3DS          *bool       `json:"card3ds,omitempty"`
	ReasonCode       string      `json:"reasonCode,omitempty"`
	Resources        *References `json:"resources,omitempty"`
}

func (t *txn) payload(refs References) txnPayload {
	p := txnPayload{
		Amount:           t.Amount,
		Currency:         t.Currency,
		ReturnURL:        t.ReturnURL,
		OrderID:          t.OrderID,
		InvoiceID:        t.InvoiceID,
		PaymentReference: t.PaymentReference,
	}
	if !refs.empty() {
		p.Resources = &refs
	}
	return p
}

// txnResponse maps the response fields of a transaction. Pointer fields tell
// absent from empty.
type txnResponse struct {
	ID               *string     `json:"id"`
	IsSuccess        *bool       `json:"isSuccess"`
	IsPending        *bool       `json:"isPending"`
	IsError          *bool       `json:"isError"`
	RedirectURL      *string     `json:"redirectUrl"`
	Amount           *Amount     `json:"amount"`
	Currency         *string     `json:"currency"`
	ReturnURL        *string     `json:"returnUrl"`
	OrderID          *string     `json:"orderId"`
	InvoiceID        *string     `json:"invoiceId"`
	PaymentReference *string     `json:"paymentReference"`
	Date             *string     `json:"date"`
	Message          *Message    `json:"message"`
	Processing       *Processing `json:"processing"`
	Resources        *References `json:"resources"`
}

func decodeTxn(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode transaction: %w", err)
	}
	return nil
}

func (r *txnResponse) successOrPending() bool {
	return (r.IsSuccess != nil && *r.IsSuccess) || (r.IsPending != nil && *r.IsPending)
}

func (t *txn) apply(r *txnResponse) {
	if r.ID != nil {
		t.ID = *r.ID
	}
	if r.IsSuccess != nil {
		t.success = *r.IsSuccess
	}
	if r.IsPending != nil {
		t.pending = *r.IsPending
	}
	if r.IsError != nil {
		t.failed = *r.IsError
	}
	if r.RedirectURL != nil {
		t.RedirectURL = *r.RedirectURL
	}
	if r.Amount != nil {
		t.Amount = *r.Amount
	}
	if r.Currency != nil {
		t.Currency = *r.Currency
	}
	if r.ReturnURL != nil {
		t.ReturnURL = *r.ReturnURL
	}
	if r.OrderID != nil {
		t.OrderID = *r.OrderID
	}
	if r.InvoiceID != nil {
		t.InvoiceID = *r.InvoiceID
	}
	if r.PaymentReference != nil {
		t.PaymentReference = *r.PaymentReference
	}
	if r.Date != nil {
		t.Date = *r.Date
	}
	if r.Message != nil {
		t.Message = *r.Message
	}
	if r.Processing != nil {
		t.Processing = *r.Processing
	}
	if r.Resources != nil {
		t.References.merge(*r.Resources)
		if r.Resources.PaymentID != "" {
			t.paymentID = r.Resources.PaymentID
		}
	}
}

// linkSet collects the optional customer/type/basket/metadata links of a
// transaction.
type linkSet struct {
	Type     PaymentType
	Customer *Customer
	Basket   *Basket
	Metadata *Metadata
}

func (l *linkSet) links() Links {
	links := Links{}
	if l.Type != nil {
		links["type"] = l.Type
	}
	if l.Customer != nil {
		links["customer"] = l.Customer
	}
	if l.Basket != nil {
		links["basket"] = l.Basket
	}
	if l.Metadata != nil {
		links["metadata"] = l.Metadata
	}
	return links
}

// refs overlays the ids of the linked resources onto explicit references.
func (l *linkSet) refs(explicit References) References {
	r := References{
		CustomerID: explicit.CustomerID,
		TypeID:     explicit.TypeID,
		BasketID:   explicit.BasketID,
		MetadataID: explicit.MetadataID,
	}
	if l.Type != nil && l.Type.ResourceID() != "" {
		r.TypeID = l.Type.ResourceID()
	}
	if l.Customer != nil && l.Customer.ID != "" {
		r.CustomerID = l.Customer.ID
	}
	if l.Basket != nil && l.Basket.ID != "" {
		r.BasketID = l.Basket.ID
	}
	if l.Metadata != nil && l.Metadata.ID != "" {
		r.MetadataID = l.Metadata.ID
	}
	return r
}
