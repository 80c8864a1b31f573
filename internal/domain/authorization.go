package domain

import (
	"encoding/json"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

// Authorization reserves an amount on the customer's payment type. A payment
// has at most one. Reversals are kept as its Cancellations.
type Authorization struct {
	txn
	linkSet

	Card3DS       *bool
	Cancellations []*Cancellation
}

func NewAuthorization(amount Amount, currency, returnURL string) *Authorization {
	a := &Authorization{}
	a.Amount = amount
	a.Currency = currency
	a.ReturnURL = returnURL
	return a
}

func (a *Authorization) Kind() string { return "authorization" }
func (a *Authorization) API() API     { return APIPayment }

func (a *Authorization) CollectionPath() string {
	return a.paymentPath() + "/authorize"
}

func (a *Authorization) LinkedResources() (Links, error) {
	links := a.links()
	if links["type"] == nil && a.References.TypeID == "" {
		return nil, payerr.MissingResource(a.Kind(), "payment type required")
	}
	return links, nil
}

func (a *Authorization) MarshalJSON() ([]byte, error) {
	p := a.payload(a.refs(a.References))
	p.Card3DS = a.Card3DS
	return json.Marshal(p)
}

// HandleResponse merges the response. On create only successful or pending
// responses are applied.
func (a *Authorization) HandleResponse(body []byte, m Method) error {
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
	a.apply(&r.txnResponse)
	if r.Card3DS != nil {
		a.Card3DS = r.Card3DS
	}
	return nil
}

func (a *Authorization) CanceledAmount() Amount {
	amounts := make([]Amount, 0, len(a.Cancellations))
	for _, cn := range a.Cancellations {
		amounts = append(amounts, cn.Amount)
	}
	return SumAmounts(amounts...)
}

func (a *Authorization) Cancellation(id string) *Cancellation {
	return findCancellation(a.Cancellations, id)
}

// NewCancellation prepares a reversal of amount. A zero amount reverses the
// remaining authorized amount.
func (a *Authorization) NewCancellation(amount Amount) *Cancellation {
	cn := NewCancellation(amount)
	cn.parentKind = parentAuthorization
	cn.parentID = a.ID
	cn.paymentID = a.paymentID
	return cn
}

func (a *Authorization) AddCancellation(cn *Cancellation) {
	if cn.ID != "" && a.Cancellation(cn.ID) != nil {
		return
	}
	a.Cancellations = append(a.Cancellations, cn)
}
