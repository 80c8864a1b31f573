package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

// Capabilities is the set of transactions a payment type supports.
type Capabilities uint8

const (
	CanCharge Capabilities = 1 << iota
	CanAuthorize
	CanCancel
)

func (c Capabilities) Has(x Capabilities) bool { return c&x == x }

func (c Capabilities) String() string {
	var parts []string
	if c.Has(CanCharge) {
		parts = append(parts, "charge")
	}
	if c.Has(CanAuthorize) {
		parts = append(parts, "authorize")
	}
	if c.Has(CanCancel) {
		parts = append(parts, "cancel")
	}
	return strings.Join(parts, ",")
}

// PaymentType is a stored payment credential or method.
type PaymentType interface {
	Resource
	TypeName() string
	Capabilities() Capabilities
}

// Type names as used in resource paths.
const (
	TypeCard                   = "card"
	TypeSepaDirectDebit        = "sepa-direct-debit"
	TypeSepaDirectDebitSecured = "sepa-direct-debit-guaranteed"
	TypePayPal                 = "paypal"
	TypeGiropay                = "giropay"
	TypeIdeal                  = "ideal"
	TypeSofort                 = "sofort"
	TypeEPS                    = "eps"
	TypeInvoice                = "invoice"
	TypeInvoiceSecured         = "invoice-guaranteed"
	TypeInstallmentSecured     = "hire-purchase-direct-debit"
	TypePrepayment             = "prepayment"
	TypePrzelewy24             = "przelewy24"
	TypeAlipay                 = "alipay"
	TypeWeChatPay              = "wechatpay"
)

var typeCaps = map[string]Capabilities{
	TypeCard:                   CanCharge | CanAuthorize | CanCancel,
	TypeSepaDirectDebit:        CanCharge,
	TypeSepaDirectDebitSecured: CanCharge,
	TypePayPal:                 CanCharge | CanAuthorize | CanCancel,
	TypeGiropay:                CanCharge,
	TypeIdeal:                  CanCharge,
	TypeSofort:                 CanCharge,
	TypeEPS:                    CanCharge,
	TypeInvoice:                CanCharge,
	TypeInvoiceSecured:         CanCharge,
	TypeInstallmentSecured:     CanAuthorize | CanCancel,
	TypePrepayment:             CanCharge,
	TypePrzelewy24:             CanCharge,
	TypeAlipay:                 CanCharge,
	TypeWeChatPay:              CanCharge,
}

type typeInfo struct {
	name   string
	prefix string
	build  func() PaymentType
}

var typeCatalog = []typeInfo{
	{TypeCard, "crd", func() PaymentType { return NewCard() }},
	{TypeSepaDirectDebit, "sdd", func() PaymentType { return NewSepaDirectDebit() }},
	{TypeSepaDirectDebitSecured, "ddg", func() PaymentType { return NewSepaDirectDebitSecured() }},
	{TypePayPal, "ppl", func() PaymentType { return NewPayPal() }},
	{TypeGiropay, "gro", func() PaymentType { return NewGiropay() }},
	{TypeIdeal, "idl", func() PaymentType { return NewIdeal() }},
	{TypeSofort, "sft", func() PaymentType { return NewSofort() }},
	{TypeEPS, "eps", func() PaymentType { return NewEPS() }},
	{TypeInvoice, "ivc", func() PaymentType { return NewInvoice() }},
	{TypeInvoiceSecured, "ivg", func() PaymentType { return NewInvoiceSecured() }},
	{TypeInstallmentSecured, "hdd", func() PaymentType { return NewInstallmentSecured() }},
	{TypePrepayment, "ppy", func() PaymentType { return NewPrepayment() }},
	{TypePrzelewy24, "p24", func() PaymentType { return NewPrzelewy24() }},
	{TypeAlipay, "ali", func() PaymentType { return NewAlipay() }},
	{TypeWeChatPay, "wcp", func() PaymentType { return NewWeChatPay() }},
}

// NewPaymentTypeFromID returns an empty payment type of the variant encoded
// in id ("s-crd-123" is a card) with the id set.
func NewPaymentTypeFromID(id string) (PaymentType, error) {
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return nil, payerr.IllegalResourceType("payment type", fmt.Sprintf("malformed id %q", id))
	}
	for _, ti := range typeCatalog {
		if ti.prefix == parts[1] {
			t := ti.build()
			t.SetResourceID(id)
			return t, nil
		}
	}
	return nil, payerr.IllegalResourceType("payment type", fmt.Sprintf("unknown type in id %q", id))
}

// TypePrefix returns the id segment of the named variant.
func TypePrefix(name string) (string, bool) {
	for _, ti := range typeCatalog {
		if ti.name == name {
			return ti.prefix, true
		}
	}
	return "", false
}

// NewPaymentType returns an empty payment type of the named variant.
func NewPaymentType(name string) (PaymentType, error) {
	for _, ti := range typeCatalog {
		if ti.name == name {
			return ti.build(), nil
		}
	}
	return nil, payerr.IllegalResourceType("payment type", fmt.Sprintf("unknown type %q", name))
}

// typeBase implements the parts of PaymentType common to all variants.
type typeBase struct {
	Envelope
	name string
	caps Capabilities
}

func newTypeBase(name string) typeBase {
	return typeBase{name: name, caps: typeCaps[name]}
}

func (t *typeBase) Kind() string                    { return t.name }
func (t *typeBase) TypeName() string                { return t.name }
func (t *typeBase) Capabilities() Capabilities      { return t.caps }
func (t *typeBase) API() API                        { return APIPayment }
func (t *typeBase) CollectionPath() string          { return "types/" + t.name }
func (t *typeBase) LinkedResources() (Links, error) { return Links{}, nil }

func decodeType(name string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Basic is a payment type without type specific fields: the customer is
// redirected to, or pays through, the provider.
type Basic struct {
	typeBase
}

func newBasic(name string) *Basic { return &Basic{typeBase: newTypeBase(name)} }

func NewGiropay() *Basic        { return newBasic(TypeGiropay) }
func NewSofort() *Basic         { return newBasic(TypeSofort) }
func NewInvoice() *Basic        { return newBasic(TypeInvoice) }
func NewInvoiceSecured() *Basic { return newBasic(TypeInvoiceSecured) }
func NewPrepayment() *Basic     { return newBasic(TypePrepayment) }
func NewPrzelewy24() *Basic     { return newBasic(TypePrzelewy24) }
func NewAlipay() *Basic         { return newBasic(TypeAlipay) }
func NewWeChatPay() *Basic      { return newBasic(TypeWeChatPay) }

func (b *Basic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID string `json:"id,omitempty"`
	}{b.ID})
}

func (b *Basic) HandleResponse(body []byte, _ Method) error {
	var r struct {
		ID *string `json:"id"`
	}
	if err := decodeType(b.name, body, &r); err != nil {
		return err
	}
	if r.ID != nil {
		b.ID = *r.ID
	}
	return nil
}
