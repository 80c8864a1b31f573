package domain

import (
	"encoding/json"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

// Charge moves money from the customer. Refunds are kept as its
// Cancellations.
type Charge struct {
	txn
	linkSet

	Card3DS       *bool
	Cancellations []*Cancellation
}

func NewCharge(amount Amount, currency, returnURL string) *Charge {
	c := &Charge{}
	c.Amount = amount
	c.Currency = currency
	c.ReturnURL = returnURL
	return c
}

func (c *Charge) Kind() string { return "charge" }
func (c *Charge) API() API     { return APIPayment }

func (c *Charge) CollectionPath() string {
	return c.paymentPath() + "/charges"
}

// LinkedResources requires a payment type when the charge opens a new
// payment.
func (c *Charge) LinkedResources() (Links, error) {
	links := c.links()
	if c.paymentID == "" && links["type"] == nil && c.References.TypeID == "" {
		return nil, payerr.MissingResource(c.Kind(), "payment type required for a new payment")
	}
	return links, nil
}

func (c *Charge) MarshalJSON() ([]byte, error) {
	p := c.payload(c.refs(c.References))
	p.Card3DS = c.Card3DS
	return json.Marshal(p)
}

// HandleResponse merges the response into the charge. On create only
// successful or pending responses are applied.
func (c *Charge) HandleResponse(body []byte, m Method) error {
	var r struct {
		txnResponse
		Card3DS *bool `json:"card3ds"`
	}
	if err := decodeTxn(body, &r); err != nil {
		return err
	}
	if m == MethodPost && !r.successOrPending() {
		return nil
	}
	c.apply(&r.txnResponse)
	if r.Card3DS != nil {
		c.Card3DS = r.Card3DS
	}
	return nil
}

// CanceledAmount is the sum of all refunds of the charge.
func (c *Charge) CanceledAmount() Amount {
	amounts := make([]Amount, 0, len(c.Cancellations))
	for _, cn := range c.Cancellations {
		amounts = append(amounts, cn.Amount)
	}
	return SumAmounts(amounts...)
}

// IsCanceled reports whether the refunds cover the charged amount.
func (c *Charge) IsCanceled() bool {
	if len(c.Cancellations) == 0 {
		return false
	}
	return AmountAtLeast(c.CanceledAmount(), c.Amount)
}

// LastCancellation returns the most recent refund, or nil.
func (c *Charge) LastCancellation() *Cancellation {
	if len(c.Cancellations) == 0 {
		return nil
	}
	return c.Cancellations[len(c.Cancellations)-1]
}

func (c *Charge) Cancellation(id string) *Cancellation {
	return findCancellation(c.Cancellations, id)
}

// NewCancellation prepares a refund of amount under the charge. A zero amount
// refunds whatever remains.
func (c *Charge) NewCancellation(amount Amount) *Cancellation {
	cn := NewCancellation(amount)
	cn.parentKind = parentCharge
	cn.parentID = c.ID
	cn.paymentID = c.paymentID
	return cn
}

func (c *Charge) AddCancellation(cn *Cancellation) {
	if cn.ID != "" && c.Cancellation(cn.ID) != nil {
		return
	}
	c.Cancellations = append(c.Cancellations, cn)
}

func findCancellation(list []*Cancellation, id string) *Cancellation {
	for _, cn := range list {
		if cn.ID == id {
			return cn
		}
	}
	return nil
}
