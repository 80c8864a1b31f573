package mockgateway

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/punchamoorthee/paygate/internal/domain"
)

func (s *Server) CreateType(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	prefix, ok := domain.TypePrefix(name)
	if !ok {
		respondError(w, r, http.StatusNotFound, "API.500.100.100", "Unknown payment type "+name)
		return
	}
	doc := map[string]any{}
	if err := decodeBody(r, &doc); err != nil {
		respondError(w, r, http.StatusBadRequest, "API.000.000.010", "Malformed JSON body")
		return
	}
	if name == domain.TypeCard {
		if doc["number"] == nil || doc["expiryDate"] == nil {
			respondError(w, r, http.StatusUnprocessableEntity, "API.710.000.005", "Card number and expiry date are required")
			return
		}
		maskCard(doc)
	}
	delete(doc, "id")
	doc["id"] = newID(prefix)
	doc["method"] = name

	s.mu.Lock()
	s.types[doc["id"].(string)] = doc
	s.mu.Unlock()
	respondJSON(w, r, http.StatusOK, doc)
}

func maskCard(doc map[string]any) {
	number, _ := doc["number"].(string)
	if number == "" {
		return
	}
	switch number[0] {
	case '4':
		doc["brand"] = "VISA"
	case '5':
		doc["brand"] = "MASTER"
	default:
		doc["brand"] = "UNKNOWN"
	}
	if len(number) > 10 {
		doc["number"] = number[:6] + strings.Repeat("*", len(number)-10) + number[len(number)-4:]
	}
	if doc["cvc"] != nil {
		doc["cvc"] = "***"
	}
}

func (s *Server) GetType(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	doc, ok := s.types[vars["id"]]
	s.mu.Unlock()
	if !ok || doc["method"] != vars["name"] {
		respondError(w, r, http.StatusNotFound, "API.500.100.101", "Payment type not found")
		return
	}
	respondJSON(w, r, http.StatusOK, doc)
}

func (s *Server) UpdateType(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patch := map[string]any{}
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, r, http.StatusBadRequest, "API.000.000.010", "Malformed JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.types[vars["id"]]
	if !ok || doc["method"] != vars["name"] {
		respondError(w, r, http.StatusNotFound, "API.500.100.101", "Payment type not found")
		return
	}
	for k, v := range patch {
		if k != "id" && k != "method" {
			doc[k] = v
		}
	}
	if vars["name"] == domain.TypeCard {
		maskCard(doc)
	}
	respondJSON(w, r, http.StatusOK, doc)
}

// createDoc stores the request body as a new document of kind under a fresh
// id.
func (s *Server) createDoc(docs map[string]map[string]any, prefix, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{}
		if err := decodeBody(r, &doc); err != nil {
			respondError(w, r, http.StatusBadRequest, "API.000.000.010", "Malformed JSON body")
			return
		}
		delete(doc, "id")

		s.mu.Lock()
		defer s.mu.Unlock()
		if ext, _ := doc["customerId"].(string); kind == "customer" && ext != "" {
			if _, dup := s.customerByExternalID(ext); dup {
				respondError(w, r, http.StatusConflict, "API.410.200.010", "Customer id "+ext+" already exists")
				return
			}
		}
		doc["id"] = newID(prefix)
		docs[doc["id"].(string)] = doc
		respondJSON(w, r, http.StatusOK, doc)
	}
}

func (s *Server) getDoc(docs map[string]map[string]any, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		doc, ok := docs[mux.Vars(r)["id"]]
		s.mu.Unlock()
		if !ok {
			respondError(w, r, http.StatusNotFound, "API.500.100.102", kind+" not found")
			return
		}
		respondJSON(w, r, http.StatusOK, doc)
	}
}

func (s *Server) updateDoc(docs map[string]map[string]any, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patch := map[string]any{}
		if err := decodeBody(r, &patch); err != nil {
			respondError(w, r, http.StatusBadRequest, "API.000.000.010", "Malformed JSON body")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		doc, ok := docs[mux.Vars(r)["id"]]
		if !ok {
			respondError(w, r, http.StatusNotFound, "API.500.100.102", kind+" not found")
			return
		}
		for k, v := range patch {
			if k != "id" {
				doc[k] = v
			}
		}
		respondJSON(w, r, http.StatusOK, doc)
	}
}

func (s *Server) deleteDoc(docs map[string]map[string]any, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		s.mu.Lock()
		_, ok := docs[id]
		delete(docs, id)
		s.mu.Unlock()
		if !ok {
			respondError(w, r, http.StatusNotFound, "API.500.100.102", kind+" not found")
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{"id": id, "isSuccess": true})
	}
}

// GetCustomer finds a customer by gateway id or by the merchant's customer
// number.
func (s *Server) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	doc, ok := s.customers[id]
	if !ok {
		doc, ok = s.customerByExternalID(id)
	}
	s.mu.Unlock()
	if !ok {
		respondError(w, r, http.StatusNotFound, "API.500.100.102", "customer not found")
		return
	}
	respondJSON(w, r, http.StatusOK, doc)
}

// customerByExternalID must be called with s.mu held.
func (s *Server) customerByExternalID(ext string) (map[string]any, bool) {
	for _, doc := range s.customers {
		if doc["customerId"] == ext {
			return doc, true
		}
	}
	return nil, false
}

func (s *Server) CreatePaypage(w http.ResponseWriter, r *http.Request) {
	var req txnRequest
	if !readRequest(w, r, &req, paypageLoader) {
		return
	}

	pay := &paymentRecord{
		ID:       newID("pay"),
		OrderID:  req.OrderID,
		Currency: req.Currency,
		Refs:     req.Resources,
		Planned:  toCents(req.Amount),
	}
	id := newID("ppg")
	pay.Refs.PaymentID = pay.ID
	pay.Refs.PaypageID = id
	pay.RedirectURL = baseURL(r) + "/paypage/" + id

	doc := map[string]any{
		"id":          id,
		"action":      mux.Vars(r)["action"],
		"amount":      toCents(req.Amount).String(),
		"currency":    req.Currency,
		"returnUrl":   req.ReturnURL,
		"redirectUrl": pay.RedirectURL,
		"resources":   map[string]string{"paymentId": pay.ID},
	}

	s.mu.Lock()
	s.payments[pay.ID] = pay
	s.paypages[id] = doc
	s.mu.Unlock()
	respondJSON(w, r, http.StatusOK, doc)
}

func (s *Server) GetPaypage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	doc, ok := s.paypages[vars["id"]]
	s.mu.Unlock()
	if !ok || doc["action"] != vars["action"] {
		respondError(w, r, http.StatusNotFound, "API.500.100.102", "paypage not found")
		return
	}
	respondJSON(w, r, http.StatusOK, doc)
}
