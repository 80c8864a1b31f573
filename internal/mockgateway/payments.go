package mockgateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xeipuuv/gojsonschema"

	"github.com/punchamoorthee/paygate/internal/domain"
)

type txnRequest struct {
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	ReturnURL        string  `json:"returnUrl"`
	OrderID          string  `json:"orderId"`
	InvoiceID        string  `json:"invoiceId"`
	PaymentReference string  `json:"paymentReference"`
	Card3DS          *bool   `json:"card3ds"`
	ReasonCode       string  `json:"reasonCode"`
	Resources        refs    `json:"resources"`
}

// redirectTypes end up pending until the customer returns from the provider.
var redirectTypes = map[string]bool{
	domain.TypePayPal:     true,
	domain.TypeGiropay:    true,
	domain.TypeIdeal:      true,
	domain.TypeSofort:     true,
	domain.TypeEPS:        true,
	domain.TypePrzelewy24: true,
	domain.TypeAlipay:     true,
	domain.TypeWeChatPay:  true,
}

var txnPrefix = map[string]string{
	txAuthorize:       "aut",
	txCharge:          "chg",
	txCancelAuthorize: "cnl",
	txCancelCharge:    "cnl",
	txShipment:        "shp",
}

// readRequest validates the body against every loader and decodes it.
func readRequest(w http.ResponseWriter, r *http.Request, req *txnRequest, loaders ...gojsonschema.JSONLoader) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "API.000.000.999", "Stream read error")
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	for _, l := range loaders {
		if err := validateJSONSchema(l, body); err != nil {
			respondError(w, r, http.StatusBadRequest, "API.000.000.011", err.Error())
			return false
		}
	}
	if err := json.Unmarshal(body, req); err != nil {
		respondError(w, r, http.StatusBadRequest, "API.000.000.010", "Malformed JSON body")
		return false
	}
	return true
}

func newTxn(typ, parentID string, req *txnRequest, amount cents) *txnRecord {
	id := newID(txnPrefix[typ])
	hex := id[len(id)-12:]
	return &txnRecord{
		ID:               id,
		Type:             typ,
		Status:           statusSuccess,
		ParentID:         parentID,
		Amount:           amount,
		Currency:         req.Currency,
		ReturnURL:        req.ReturnURL,
		OrderID:          req.OrderID,
		InvoiceID:        req.InvoiceID,
		PaymentReference: req.PaymentReference,
		ReasonCode:       req.ReasonCode,
		Card3DS:          req.Card3DS,
		Date:             now(),
		UniqueID:         "31HA" + hex,
		ShortID:          hex[:4] + "." + hex[4:8] + "." + hex[8:],
		Message: message{
			Code:     "COR.000.100.112",
			Customer: "Your payments have been successfully processed.",
			Merchant: "Request successfully processed in 'Merchant in Connector Test Mode'",
		},
	}
}

func (t *txnRecord) decline() {
	t.Status = statusError
	t.Message = message{
		Code:     "COR.100.400.100",
		Customer: "The payment was declined. Please choose another payment method.",
		Merchant: "Transaction declined by the issuer",
	}
}

func txnPath(pay *paymentRecord, t *txnRecord) string {
	p := "/v1/payments/" + pay.ID
	switch t.Type {
	case txAuthorize:
		return p + "/authorize/" + t.ID
	case txCharge:
		return p + "/charges/" + t.ID
	case txCancelAuthorize:
		return p + "/authorize/" + t.ParentID + "/cancels/" + t.ID
	case txCancelCharge:
		return p + "/charges/" + t.ParentID + "/cancels/" + t.ID
	default:
		return p + "/shipments/" + t.ID
	}
}

// renderTxn builds the response body of a transaction. A declined
// transaction also carries the errors array.
func renderTxn(r *http.Request, pay *paymentRecord, t *txnRecord) map[string]any {
	resources := pay.Refs
	resources.PaymentID = pay.ID
	resources.TraceID = t.UniqueID

	doc := map[string]any{
		"id":         t.ID,
		"isSuccess":  t.Status == statusSuccess,
		"isPending":  t.Status == statusPending,
		"isError":    t.Status == statusError,
		"amount":     t.Amount.String(),
		"currency":   t.Currency,
		"returnUrl":  t.ReturnURL,
		"date":       t.Date,
		"url":        baseURL(r) + txnPath(pay, t),
		"message":    t.Message,
		"processing": map[string]string{"uniqueId": t.UniqueID, "shortId": t.ShortID, "traceId": t.UniqueID},
		"resources":  resources,
	}
	for k, v := range map[string]string{
		"orderId":          t.OrderID,
		"invoiceId":        t.InvoiceID,
		"paymentReference": t.PaymentReference,
		"redirectUrl":      t.RedirectURL,
		"reasonCode":       t.ReasonCode,
	} {
		if v != "" {
			doc[k] = v
		}
	}
	if t.Card3DS != nil {
		doc["card3ds"] = *t.Card3DS
	}
	if t.Status == statusError {
		doc["errors"] = []map[string]string{{
			"code":            t.Message.Code,
			"merchantMessage": t.Message.Merchant,
			"customerMessage": t.Message.Customer,
		}}
	}
	return doc
}

func (s *Server) ChargeNew(w http.ResponseWriter, r *http.Request) {
	s.openPayment(w, r, txCharge, domain.CanCharge)
}

func (s *Server) Authorize(w http.ResponseWriter, r *http.Request) {
	s.openPayment(w, r, txAuthorize, domain.CanAuthorize)
}

// openPayment creates a payment with its first transaction.
func (s *Server) openPayment(w http.ResponseWriter, r *http.Request, typ string, want domain.Capabilities) {
	var req txnRequest
	if !readRequest(w, r, &req, transactionLoader, newPaymentLoader) {
		return
	}
	amount := toCents(req.Amount)
	if amount == magicReject {
		respondError(w, r, http.StatusUnprocessableEntity, "API.340.100.014", "Transaction rejected by the risk check")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	typeDoc, ok := s.types[req.Resources.TypeID]
	if !ok {
		respondError(w, r, http.StatusUnprocessableEntity, "API.320.100.102", "Payment type "+req.Resources.TypeID+" not found")
		return
	}
	name, _ := typeDoc["method"].(string)
	pt, err := domain.NewPaymentType(name)
	if err != nil || !pt.Capabilities().Has(want) {
		respondError(w, r, http.StatusUnprocessableEntity, "API.320.100.103", fmt.Sprintf("Payment type %s does not support %s", name, typ))
		return
	}
	linked := []struct {
		id   string
		docs map[string]map[string]any
	}{
		{req.Resources.CustomerID, s.customers},
		{req.Resources.BasketID, s.baskets},
		{req.Resources.MetadataID, s.metadata},
	}
	for _, l := range linked {
		if _, found := l.docs[l.id]; l.id != "" && !found {
			respondError(w, r, http.StatusUnprocessableEntity, "API.320.200.102", "Resource "+l.id+" not found")
			return
		}
	}

	pay := &paymentRecord{
		ID:       newID("pay"),
		OrderID:  req.OrderID,
		Currency: req.Currency,
		Refs:     req.Resources,
	}
	pay.Refs.PaymentID = pay.ID
	tx := newTxn(typ, "", &req, amount)
	switch {
	case amount == magicDecline:
		tx.decline()
	case redirectTypes[name] || (req.Card3DS != nil && *req.Card3DS):
		tx.Status = statusPending
		tx.RedirectURL = baseURL(r) + "/redirect/" + tx.ID
		pay.RedirectURL = tx.RedirectURL
	}
	pay.Txns = append(pay.Txns, tx)
	s.payments[pay.ID] = pay
	respondJSON(w, r, http.StatusOK, renderTxn(r, pay, tx))
}

// ChargeAuthorization captures the authorization of a payment. A missing
// amount captures what remains.
func (s *Server) ChargeAuthorization(w http.ResponseWriter, r *http.Request) {
	var req txnRequest
	if !readRequest(w, r, &req, transactionLoader) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pay, ok := s.payments[mux.Vars(r)["pid"]]
	if !ok {
		respondError(w, r, http.StatusNotFound, "API.310.100.003", "Payment not found")
		return
	}
	auth := pay.authorization()
	if auth == nil {
		respondError(w, r, http.StatusUnprocessableEntity, "API.330.100.007", "Payment is not authorized")
		return
	}
	remaining := pay.totals().Remaining
	amount := toCents(req.Amount)
	if amount == 0 {
		amount = remaining
	}
	switch {
	case amount == magicReject:
		respondError(w, r, http.StatusUnprocessableEntity, "API.340.100.014", "Transaction rejected by the risk check")
		return
	case remaining == 0 || amount > remaining:
		respondError(w, r, http.StatusUnprocessableEntity, "API.330.100.008", "Charge amount exceeds the authorized amount")
		return
	}
	if req.Currency == "" {
		req.Currency = auth.Currency
	}
	tx := newTxn(txCharge, "", &req, amount)
	if amount == magicDecline {
		tx.decline()
	}
	pay.Txns = append(pay.Txns, tx)
	respondJSON(w, r, http.StatusOK, renderTxn(r, pay, tx))
}

// Cancel reverses an authorization or refunds a charge. A missing amount
// cancels everything still available.
func (s *Server) Cancel(parentType string) http.HandlerFunc {
	cancelType := txCancelCharge
	if parentType == txAuthorize {
		cancelType = txCancelAuthorize
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req txnRequest
		if !readRequest(w, r, &req, cancelLoader) {
			return
		}
		vars := mux.Vars(r)

		s.mu.Lock()
		defer s.mu.Unlock()
		pay, ok := s.payments[vars["pid"]]
		if !ok {
			respondError(w, r, http.StatusNotFound, "API.310.100.003", "Payment not found")
			return
		}
		parent := pay.find(parentType, vars["parent"])
		if parent == nil {
			respondError(w, r, http.StatusNotFound, "API.310.100.004", parentType+" "+vars["parent"]+" not found")
			return
		}
		if parent.Status != statusSuccess {
			respondError(w, r, http.StatusUnprocessableEntity, "API.340.100.019", parentType+" "+parent.ID+" cannot be canceled")
			return
		}

		var available cents
		if parentType == txCharge {
			available = parent.Amount - pay.sum(txCancelCharge, parent.ID, statusSuccess)
		} else {
			available = pay.totals().Remaining
		}
		amount := toCents(req.Amount)
		if amount == 0 {
			amount = available
		}
		if available <= 0 || amount > available {
			respondError(w, r, http.StatusUnprocessableEntity, "API.340.100.020", "Cancel amount exceeds the available amount")
			return
		}
		req.Currency = parent.Currency
		tx := newTxn(cancelType, parent.ID, &req, amount)
		pay.Txns = append(pay.Txns, tx)
		respondJSON(w, r, http.StatusOK, renderTxn(r, pay, tx))
	}
}

// Ship records a shipment. The payment must have a successful authorization
// or charge.
func (s *Server) Ship(w http.ResponseWriter, r *http.Request) {
	var req txnRequest
	if !readRequest(w, r, &req, transactionLoader) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pay, ok := s.payments[mux.Vars(r)["pid"]]
	if !ok {
		respondError(w, r, http.StatusNotFound, "API.310.100.003", "Payment not found")
		return
	}
	if pay.authorization() == nil && pay.sum(txCharge, "", statusSuccess) == 0 {
		respondError(w, r, http.StatusUnprocessableEntity, "API.360.000.002", "Shipment requires an authorized or charged payment")
		return
	}
	req.Currency = pay.Currency
	tx := newTxn(txShipment, "", &req, pay.totals().Total)
	pay.Txns = append(pay.Txns, tx)
	respondJSON(w, r, http.StatusOK, renderTxn(r, pay, tx))
}

// lookup must be called with s.mu held.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, typ string) (*paymentRecord, *txnRecord, bool) {
	vars := mux.Vars(r)
	pay, ok := s.payments[vars["pid"]]
	if !ok {
		respondError(w, r, http.StatusNotFound, "API.310.100.003", "Payment not found")
		return nil, nil, false
	}
	tx := pay.find(typ, vars["tid"])
	if tx == nil || (vars["parent"] != "" && tx.ParentID != vars["parent"]) {
		respondError(w, r, http.StatusNotFound, "API.310.100.004", typ+" "+vars["tid"]+" not found")
		return nil, nil, false
	}
	return pay, tx, true
}

func (s *Server) getTxn(typ string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if pay, tx, ok := s.lookup(w, r, typ); ok {
			respondJSON(w, r, http.StatusOK, renderTxn(r, pay, tx))
		}
	}
}

// updateTxn changes the merchant references of a transaction. Amounts are
// immutable.
func (s *Server) updateTxn(typ string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req txnRequest
		if !readRequest(w, r, &req, transactionLoader) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		pay, tx, ok := s.lookup(w, r, typ)
		if !ok {
			return
		}
		if req.OrderID != "" {
			tx.OrderID = req.OrderID
		}
		if req.InvoiceID != "" {
			tx.InvoiceID = req.InvoiceID
		}
		if req.PaymentReference != "" {
			tx.PaymentReference = req.PaymentReference
		}
		respondJSON(w, r, http.StatusOK, renderTxn(r, pay, tx))
	}
}

// GetPayment returns a payment by id or by order id.
func (s *Server) GetPayment(w http.ResponseWriter, r *http.Request) {
	pid := mux.Vars(r)["pid"]
	s.mu.Lock()
	defer s.mu.Unlock()
	pay, ok := s.payments[pid]
	if !ok {
		for _, p := range s.payments {
			if p.OrderID != "" && p.OrderID == pid {
				pay, ok = p, true
				break
			}
		}
	}
	if !ok {
		respondError(w, r, http.StatusNotFound, "API.310.100.003", "Payment not found")
		return
	}

	t := pay.totals()
	txns := make([]map[string]string, 0, len(pay.Txns))
	for _, tx := range pay.Txns {
		txns = append(txns, map[string]string{
			"date":   tx.Date,
			"type":   tx.Type,
			"status": tx.Status,
			"url":    baseURL(r) + txnPath(pay, tx),
			"amount": tx.Amount.String(),
		})
	}
	doc := map[string]any{
		"id":    pay.ID,
		"state": map[string]any{"id": t.State, "name": stateNames[t.State]},
		"amount": map[string]string{
			"total":     t.Total.String(),
			"charged":   t.Charged.String(),
			"canceled":  t.Canceled.String(),
			"remaining": t.Remaining.String(),
			"currency":  pay.Currency,
		},
		"currency":     pay.Currency,
		"resources":    pay.Refs,
		"transactions": txns,
	}
	if pay.OrderID != "" {
		doc["orderId"] = pay.OrderID
	}
	if pay.RedirectURL != "" {
		doc["redirectUrl"] = pay.RedirectURL
	}
	respondJSON(w, r, http.StatusOK, doc)
}
