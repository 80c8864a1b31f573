package domain

import (
	"encoding/json"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

const (
	parentAuthorization = "authorize"
	parentCharge        = "charges"
)

// Reason codes accepted for refunds.
const (
	ReasonCancel = "CANCEL"
	ReasonReturn = "RETURN"
	ReasonCredit = "CREDIT"
)

// Cancellation is a reversal of an authorization or a refund of a charge.
type Cancellation struct {
	txn

	ReasonCode string

	parentKind string
	parentID   string
}

// NewCancellation returns a cancellation without a parent. Use
// Charge.NewCancellation or Authorization.NewCancellation to bind one.
func NewCancellation(amount Amount) *Cancellation {
	c := &Cancellation{}
	c.Amount = amount
	return c
}

func (c *Cancellation) Kind() string { return "cancellation" }
func (c *Cancellation) API() API     { return APIPayment }

// ParentID is the id of the charge or authorization being canceled.
func (c *Cancellation) ParentID() string { return c.parentID }

// IsRefund reports whether the cancellation belongs to a charge.
func (c *Cancellation) IsRefund() bool { return c.parentKind == parentCharge }

func (c *Cancellation) CollectionPath() string {
	return c.paymentPath() + "/" + c.parentKind + "/" + c.parentID + "/cancels"
}

func (c *Cancellation) LinkedResources() (Links, error) {
	if c.paymentID == "" {
		return nil, payerr.MissingResource(c.Kind(), "payment id required")
	}
	if c.parentKind == "" || c.parentID == "" {
		return nil, payerr.MissingResource(c.Kind(), "charge or authorization id required")
	}
	return Links{}, nil
}

func (c *Cancellation) MarshalJSON() ([]byte, error) {
	p := c.payload(References{})
	p.ReasonCode = c.ReasonCode
	return json.Marshal(p)
}

func (c *Cancellation) HandleResponse(body []byte, _ Method) error {
	var r struct {
		txnResponse
		ReasonCode *string `json:"reasonCode"`
	}
	if err := decodeTxn(body, &r); err != nil {
		return err
	}
	c.apply(&r.txnResponse)
	if r.ReasonCode != nil {
		c.ReasonCode = *r.ReasonCode
	}
	return nil
}
