package domain

import (
	"encoding/json"
	"fmt"
)

// Paypage actions.
const (
	PaypageCharge    = "charge"
	PaypageAuthorize = "authorize"
)

// Paypage is a hosted checkout page. Initializing it yields a RedirectURL for
// the customer and the id of the payment it will complete.
type Paypage struct {
	Envelope
	linkSet

	Action           string
	Amount           Amount
	Currency         string
	ReturnURL        string
	OrderID          string
	InvoiceID        string
	PaymentReference string
	ShopName         string
	ShopDescription  string
	Tagline          string
	LogoImage        string
	ExcludeTypes     []string

	RedirectURL string
	References  References
}

func NewPaypage(action string, amount Amount, currency, returnURL string) *Paypage {
	return &Paypage{Action: action, Amount: amount, Currency: currency, ReturnURL: returnURL}
}

func (p *Paypage) Kind() string { return "paypage" }
func (p *Paypage) API() API     { return APIPaypage }

func (p *Paypage) CollectionPath() string {
	action := p.Action
	if action == "" {
		action = PaypageCharge
	}
	return "paypage/" + action
}

// PaymentID is the payment the page completes, known after initialization.
func (p *Paypage) PaymentID() string { return p.References.PaymentID }

// LinkedResources returns the customer, basket and metadata links. Paypages
// never carry a payment type.
func (p *Paypage) LinkedResources() (Links, error) {
	links := p.links()
	delete(links, "type")
	return links, nil
}

func (p *Paypage) MarshalJSON() ([]byte, error) {
	refs := p.refs(p.References)
	refs.TypeID = ""
	var resources *References
	if !refs.empty() {
		resources = &refs
	}
	return json.Marshal(struct {
		Amount           Amount      `json:"amount,omitempty"`
		Currency         string      `json:"currency,omitempty"`
		ReturnURL        string      `json:"returnUrl,omitempty"`
		OrderID          string      `json:"orderId,omitempty"`
		InvoiceID        string      `json:"invoiceId,omitempty"`
		PaymentReference string      `json:"paymentReference,omitempty"`
		ShopName         string      `json:"shopName,omitempty"`
		ShopDescription  string      `json:"shopDescription,omitempty"`
		Tagline          string      `json:"tagline,omitempty"`
		LogoImage        string      `json:"logoImage,omitempty"`
		ExcludeTypes     []string    `json:"excludeTypes,omitempty"`
		Resources        *References `json:"resources,omitempty"`
	}{
		p.Amount, p.Currency, p.ReturnURL, p.OrderID, p.InvoiceID, p.PaymentReference,
		p.ShopName, p.ShopDescription, p.Tagline, p.LogoImage, p.ExcludeTypes, resources,
	})
}

func (p *Paypage) HandleResponse(body []byte, _ Method) error {
	var r struct {
		ID          *string     `json:"id"`
		RedirectURL *string     `json:"redirectUrl"`
		Resources   *References `json:"resources"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("decode paypage: %w", err)
	}
	if r.ID != nil {
		p.ID = *r.ID
	}
	if r.RedirectURL != nil {
		p.RedirectURL = *r.RedirectURL
	}
	if r.Resources != nil {
		p.References.merge(*r.Resources)
	}
	return nil
}
