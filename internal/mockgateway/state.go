package mockgateway

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types as listed in a payment.
const (
	txAuthorize       = "authorize"
	txCharge          = "charge"
	txCancelAuthorize = "cancel-authorize"
	txCancelCharge    = "cancel-charge"
	txShipment        = "shipment"
)

const (
	statusSuccess = "success"
	statusPending = "pending"
	statusError   = "error"
)

// Payment states.
const (
	statePending   = 0
	stateCompleted = 1
	stateCanceled  = 2
	statePartly    = 3
)

var stateNames = map[int]string{
	statePending:   "pending",
	stateCompleted: "completed",
	stateCanceled:  "canceled",
	statePartly:    "partly",
}

type message struct {
	Code     string `json:"code"`
	Customer string `json:"customer"`
	Merchant string `json:"merchant"`
}

type refs struct {
	PaymentID  string `json:"paymentId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
	TypeID     string `json:"typeId,omitempty"`
	BasketID   string `json:"basketId,omitempty"`
	MetadataID string `json:"metadataId,omitempty"`
	PaypageID  string `json:"payPageId,omitempty"`
	TraceID    string `json:"traceId,omitempty"`
}

// cents is an amount in minor units. All arithmetic of the mock is integer.
type cents int64

func toCents(v float64) cents {
	return cents(decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

func (c cents) String() string {
	return decimal.New(int64(c), -2).StringFixed(4)
}

type txnRecord struct {
	ID               string
	Type             string
	Status           string
	ParentID         string
	Amount           cents
	Currency         string
	ReturnURL        string
	OrderID          string
	InvoiceID        string
	PaymentReference string
	ReasonCode       string
	RedirectURL      string
	Card3DS          *bool
	Date             string
	UniqueID         string
	ShortID          string
	Message          message
}

type paymentRecord struct {
	ID          string
	OrderID     string
	Currency    string
	RedirectURL string
	Refs        refs
	Txns        []*txnRecord
	// Planned is the amount of a paypage payment before any transaction.
	Planned cents
}

func (p *paymentRecord) find(typ, id string) *txnRecord {
	for _, t := range p.Txns {
		if t.Type == typ && t.ID == id {
			return t
		}
	}
	return nil
}

func (p *paymentRecord) authorization() *txnRecord {
	for _, t := range p.Txns {
		if t.Type == txAuthorize && t.Status == statusSuccess {
			return t
		}
	}
	return nil
}

func (p *paymentRecord) sum(typ, parentID string, statuses ...string) cents {
	var s cents
	for _, t := range p.Txns {
		if t.Type != typ || (parentID != "" && t.ParentID != parentID) {
			continue
		}
		for _, st := range statuses {
			if t.Status == st {
				s += t.Amount
				break
			}
		}
	}
	return s
}

type totals struct {
	Total, Charged, Canceled, Remaining cents
	State                               int
}

func (p *paymentRecord) totals() totals {
	authorized := p.sum(txAuthorize, "", statusSuccess)
	charged := p.sum(txCharge, "", statusSuccess)
	pendingCharges := p.sum(txCharge, "", statusPending)
	reversed := p.sum(txCancelAuthorize, "", statusSuccess)
	refunded := p.sum(txCancelCharge, "", statusSuccess)

	t := totals{Charged: charged, Canceled: reversed + refunded}
	switch {
	case authorized > 0:
		t.Total = authorized
	case charged+pendingCharges > 0:
		t.Total = charged + pendingCharges
	default:
		t.Total = p.Planned
	}
	t.Remaining = t.Total - charged - reversed
	if t.Remaining < 0 {
		t.Remaining = 0
	}

	switch {
	case t.Total > 0 && t.Canceled >= t.Total:
		t.State = stateCanceled
	case charged > 0 && t.Remaining == 0 && refunded == 0:
		t.State = stateCompleted
	case charged > 0:
		t.State = statePartly
	default:
		t.State = statePending
	}
	return t
}

// newID returns a sandbox style id such as "s-chg-0a1b2c3d4e5f".
func newID(prefix string) string {
	return "s-" + prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
