package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PaymentState is the remote state of a payment. It is never computed
// locally.
type PaymentState int

const (
	StatePending PaymentState = iota
	StateCompleted
	StateCanceled
	StatePartlyPaid
	StatePaymentReview
	StateChargeback
)

func (s PaymentState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateCanceled:
		return "canceled"
	case StatePartlyPaid:
		return "partly"
	case StatePaymentReview:
		return "payment review"
	case StateChargeback:
		return "chargeback"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Totals is the amount aggregate of a payment as reported by the gateway.
type Totals struct {
	Total     Amount `json:"total"`
	Charged   Amount `json:"charged"`
	Canceled  Amount `json:"canceled"`
	Remaining Amount `json:"remaining"`
	Currency  string `json:"currency"`
}

// Payment is the aggregate root of one money movement attempt. Its state and
// totals mirror the gateway and are refreshed after every transaction.
type Payment struct {
	Envelope

	State       PaymentState
	Amount      Totals
	Currency    string
	OrderID     string
	RedirectURL string
	References  References

	Authorization *Authorization
	Charges       []*Charge
	Shipments     []*Shipment
}

func NewPayment() *Payment { return &Payment{} }

func (p *Payment) Kind() string           { return "payment" }
func (p *Payment) API() API               { return APIPayment }
func (p *Payment) CollectionPath() string { return "payments" }

func (p *Payment) LinkedResources() (Links, error) { return Links{}, nil }

func (p *Payment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string `json:"id,omitempty"`
		OrderID  string `json:"orderId,omitempty"`
		Currency string `json:"currency,omitempty"`
	}{p.ID, p.OrderID, p.Currency})
}

type txnEntry struct {
	Date   string `json:"date"`
	Type   string `json:"type"`
	Status string `json:"status"`
	URL    string `json:"url"`
	Amount Amount `json:"amount"`
}

// HandleResponse merges a payment response, reconciling the listed
// transactions with the local objects by id.
func (p *Payment) HandleResponse(body []byte, _ Method) error {
	var r struct {
		ID    *string `json:"id"`
		State *struct {
			ID int `json:"id"`
		} `json:"state"`
		Amount       *Totals     `json:"amount"`
		Currency     *string     `json:"currency"`
		OrderID      *string     `json:"orderId"`
		RedirectURL  *string     `json:"redirectUrl"`
		Resources    *References `json:"resources"`
		Transactions []txnEntry  `json:"transactions"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("decode payment: %w", err)
	}

	if r.ID != nil {
		p.ID = *r.ID
	}
	if r.State != nil {
		p.State = PaymentState(r.State.ID)
	}
	if r.Amount != nil {
		p.Amount = *r.Amount
	}
	if r.Currency != nil {
		p.Currency = *r.Currency
	}
	if r.OrderID != nil {
		p.OrderID = *r.OrderID
	}
	if r.RedirectURL != nil {
		p.RedirectURL = *r.RedirectURL
	}
	if r.Resources != nil {
		p.References.merge(*r.Resources)
	}
	for _, e := range r.Transactions {
		p.reconcile(e)
	}
	return nil
}

func (p *Payment) reconcile(e txnEntry) {
	segs := strings.Split(strings.TrimRight(e.URL, "/"), "/")
	if len(segs) == 0 || segs[len(segs)-1] == "" {
		return
	}
	id := segs[len(segs)-1]
	parentID := ""
	if len(segs) >= 3 {
		parentID = segs[len(segs)-3]
	}

	var t *txn
	switch e.Type {
	case "authorize":
		if p.Authorization == nil || p.Authorization.ID != id {
			p.Authorization = &Authorization{}
		}
		t = &p.Authorization.txn
	case "charge":
		ch := p.Charge(id)
		if ch == nil {
			ch = &Charge{}
			p.Charges = append(p.Charges, ch)
		}
		t = &ch.txn
	case "shipment":
		sh := p.Shipment(id)
		if sh == nil {
			sh = &Shipment{}
			p.Shipments = append(p.Shipments, sh)
		}
		t = &sh.txn
	case "cancel-authorize":
		// At most one authorization; a foreign parent id does not replace it.
		switch {
		case p.Authorization == nil:
			p.Authorization = &Authorization{}
			p.Authorization.ID = parentID
			p.Authorization.paymentID = p.ID
		case p.Authorization.ID == "":
			p.Authorization.ID = parentID
			p.Authorization.paymentID = p.ID
		}
		cn := p.Authorization.Cancellation(id)
		if cn == nil {
			cn = p.Authorization.NewCancellation(0)
			p.Authorization.Cancellations = append(p.Authorization.Cancellations, cn)
		}
		t = &cn.txn
	case "cancel-charge":
		ch := p.Charge(parentID)
		if ch == nil {
			ch = &Charge{}
			ch.ID = parentID
			ch.paymentID = p.ID
			p.Charges = append(p.Charges, ch)
		}
		cn := ch.Cancellation(id)
		if cn == nil {
			cn = ch.NewCancellation(0)
			ch.Cancellations = append(ch.Cancellations, cn)
		}
		t = &cn.txn
	default:
		return
	}

	t.ID = id
	t.paymentID = p.ID
	t.Amount = e.Amount
	if e.Date != "" {
		t.Date = e.Date
	}
	if e.Status != "" {
		t.setStatus(e.Status)
	}
}

// Charge returns the charge with the given id, or nil.
func (p *Payment) Charge(id string) *Charge {
	for _, ch := range p.Charges {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func (p *Payment) Shipment(id string) *Shipment {
	for _, sh := range p.Shipments {
		if sh.ID == id {
			return sh
		}
	}
	return nil
}

// Cancellations returns the reversals of the authorization followed by the
// refunds of every charge.
func (p *Payment) Cancellations() []*Cancellation {
	var out []*Cancellation
	if p.Authorization != nil {
		out = append(out, p.Authorization.Cancellations...)
	}
	for _, ch := range p.Charges {
		out = append(out, ch.Cancellations...)
	}
	return out
}

// Attach records a transaction created for this payment. The payment id and
// redirect URL reported for the transaction are adopted.
func (p *Payment) Attach(tx Transaction) {
	t := tx.base()
	if p.ID == "" {
		p.ID = t.paymentID
	}
	if t.RedirectURL != "" {
		p.RedirectURL = t.RedirectURL
	}

	switch v := tx.(type) {
	case *Authorization:
		p.Authorization = v
	case *Charge:
		if v.ID == "" || p.Charge(v.ID) == nil {
			p.Charges = append(p.Charges, v)
		}
	case *Shipment:
		if v.ID == "" || p.Shipment(v.ID) == nil {
			p.Shipments = append(p.Shipments, v)
		}
	case *Cancellation:
		switch v.parentKind {
		case parentCharge:
			if ch := p.Charge(v.parentID); ch != nil {
				ch.AddCancellation(v)
			}
		case parentAuthorization:
			if p.Authorization != nil && p.Authorization.ID == v.parentID {
				p.Authorization.AddCancellation(v)
			}
		}
	}
}
