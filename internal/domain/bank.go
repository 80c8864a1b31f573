package domain

import "encoding/json"

// SepaDirectDebit is a SEPA mandate. The secured variant is backed by the
// gateway's payment guarantee and shares the same fields.
type SepaDirectDebit struct {
	typeBase

	IBAN   string `json:"iban,omitempty"`
	BIC    string `json:"bic,omitempty"`
	Holder string `json:"holder,omitempty"`
}

func NewSepaDirectDebit() *SepaDirectDebit {
	return &SepaDirectDebit{typeBase: newTypeBase(TypeSepaDirectDebit)}
}

func NewSepaDirectDebitSecured() *SepaDirectDebit {
	return &SepaDirectDebit{typeBase: newTypeBase(TypeSepaDirectDebitSecured)}
}

type sepaFields SepaDirectDebit

func (s *SepaDirectDebit) MarshalJSON() ([]byte, error) {
	return json.Marshal((*sepaFields)(s))
}

func (s *SepaDirectDebit) HandleResponse(body []byte, _ Method) error {
	return decodeType(s.name, body, (*sepaFields)(s))
}

// BankRedirect is a bank transfer method where the customer is redirected to
// their bank, identified by BIC (iDEAL, EPS).
type BankRedirect struct {
	typeBase

	BIC string `json:"bic,omitempty"`
}

func NewIdeal() *BankRedirect { return &BankRedirect{typeBase: newTypeBase(TypeIdeal)} }
func NewEPS() *BankRedirect   { return &BankRedirect{typeBase: newTypeBase(TypeEPS)} }

type bankRedirectFields BankRedirect

func (b *BankRedirect) MarshalJSON() ([]byte, error) {
	return json.Marshal((*bankRedirectFields)(b))
}

func (b *BankRedirect) HandleResponse(body []byte, _ Method) error {
	return decodeType(b.name, body, (*bankRedirectFields)(b))
}

// PayPal is a PayPal account, optionally identified by email.
type PayPal struct {
	typeBase

	Email string `json:"email,omitempty"`
}

func NewPayPal() *PayPal { return &PayPal{typeBase: newTypeBase(TypePayPal)} }

type paypalFields PayPal

func (p *PayPal) MarshalJSON() ([]byte, error) {
	return json.Marshal((*paypalFields)(p))
}

func (p *PayPal) HandleResponse(body []byte, _ Method) error {
	return decodeType(p.name, body, (*paypalFields)(p))
}
