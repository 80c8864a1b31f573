package domain

import (
	"encoding/json"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

// Shipment notifies the gateway that goods were shipped, which releases
// secured payment types (invoice, installment) for settlement.
type Shipment struct {
	txn
}

func NewShipment(invoiceID, orderID string) *Shipment {
	s := &Shipment{}
	s.InvoiceID = invoiceID
	s.OrderID = orderID
	return s
}

func (s *Shipment) Kind() string { return "shipment" }
func (s *Shipment) API() API     { return APIPayment }

func (s *Shipment) CollectionPath() string {
	return s.paymentPath() + "/shipments"
}

func (s *Shipment) LinkedResources() (Links, error) {
	if s.paymentID == "" {
		return nil, payerr.MissingResource(s.Kind(), "payment id required")
	}
	return Links{}, nil
}

func (s *Shipment) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.payload(References{}))
}

func (s *Shipment) HandleResponse(body []byte, _ Method) error {
	var r txnResponse
	if err := decodeTxn(body, &r); err != nil {
		return err
	}
	s.apply(&r)
	return nil
}
