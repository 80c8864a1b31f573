package domain

import "encoding/json"

// InstallmentSecured is a secured installment plan paid by direct debit. The
// plan figures come from the gateway's plan calculation and are sent back
// unchanged when the type is created.
type InstallmentSecured struct {
	typeBase

	IBAN                  string  `json:"iban,omitempty"`
	BIC                   string  `json:"bic,omitempty"`
	AccountHolder         string  `json:"accountHolder,omitempty"`
	InvoiceDate           string  `json:"invoiceDate,omitempty"`
	InvoiceDueDate        string  `json:"invoiceDueDate,omitempty"`
	NumberOfRates         int     `json:"numberOfRates,omitempty"`
	DayOfPurchase         string  `json:"dayOfPurchase,omitempty"`
	TotalPurchaseAmount   Amount  `json:"totalPurchaseAmount,omitempty"`
	TotalInterestAmount   Amount  `json:"totalInterestAmount,omitempty"`
	TotalAmount           Amount  `json:"totalAmount,omitempty"`
	EffectiveInterestRate float64 `json:"effectiveInterestRate,omitempty"`
	NominalInterestRate   float64 `json:"nominalInterestRate,omitempty"`
	FeeFirstRate          Amount  `json:"feeFirstRate,omitempty"`
	FeePerRate            Amount  `json:"feePerRate,omitempty"`
	MonthlyRate           Amount  `json:"monthlyRate,omitempty"`
	LastRate              Amount  `json:"lastRate,omitempty"`
}

func NewInstallmentSecured() *InstallmentSecured {
	return &InstallmentSecured{typeBase: newTypeBase(TypeInstallmentSecured)}
}

type installmentFields InstallmentSecured

func (i *InstallmentSecured) MarshalJSON() ([]byte, error) {
	return json.Marshal((*installmentFields)(i))
}

func (i *InstallmentSecured) HandleResponse(body []byte, _ Method) error {
	return decodeType(i.name, body, (*installmentFields)(i))
}
