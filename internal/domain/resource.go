// Package domain holds the typed resources exchanged with the payment API and
// the rules for turning them into request payloads and back.
//
// Every resource embeds an Envelope carrying its remote identity. A resource
// with an empty id has never been persisted remotely. Responses are merged
// into resources through explicit field mappings: fields present in a
// response replace local values, absent fields are left untouched and unknown
// fields are ignored.
package domain

import (
	"encoding/json"
	"time"
)

// Method is the HTTP verb a resource operation is sent with.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// API selects one of the remote API surfaces.
type API int

const (
	APIPayment API = iota
	APIPaypage
	APIToken
)

func (a API) String() string {
	switch a {
	case APIPaypage:
		return "paypage"
	case APIToken:
		return "token"
	default:
		return "payment"
	}
}

// Resource is the create/fetch/update/delete contract shared by all remote
// backed objects.
type Resource interface {
	json.Marshaler

	// Kind names the resource in errors and journal records.
	Kind() string
	ResourceID() string
	SetResourceID(id string)
	API() API
	// CollectionPath is the path the resource is created under. Fetch,
	// update and delete append the id.
	CollectionPath() string
	// LinkedResources returns the dependent resources whose ids must be
	// attached to the payload. It fails with a MissingResource error when a
	// required link is absent.
	LinkedResources() (Links, error)
	HandleResponse(body []byte, m Method) error
}

// Links maps a link name (customer, type, basket, metadata) to a resource.
type Links map[string]Resource

// Envelope carries the remote identity of a resource.
type Envelope struct {
	ID         string    `json:"id,omitempty"`
	ExternalID string    `json:"-"`
	FetchedAt  time.Time `json:"-"`
}

func (e *Envelope) ResourceID() string      { return e.ID }
func (e *Envelope) SetResourceID(id string) { e.ID = id }

// MarkFetched records the time of the last successful fetch.
func (e *Envelope) MarkFetched(t time.Time) { e.FetchedAt = t }

// Persisted reports whether the resource has a remote id.
func (e *Envelope) Persisted() bool { return e.ID != "" }

// References are the ids of linked resources as carried in the "resources"
// object of requests and responses.
type References struct {
	PaymentID  string `json:"paymentId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
	TypeID     string `json:"typeId,omitempty"`
	BasketID   string `json:"basketId,omitempty"`
	MetadataID string `json:"metadataId,omitempty"`
	PaypageID  string `json:"payPageId,omitempty"`
	TraceID    string `json:"traceId,omitempty"`
}

// merge copies every non-empty id of o into r.
func (r *References) merge(o References) {
	if o.PaymentID != "" {
		r.PaymentID = o.PaymentID
	}
	if o.CustomerID != "" {
		r.CustomerID = o.CustomerID
	}
	if o.TypeID != "" {
		r.TypeID = o.TypeID
	}
	if o.BasketID != "" {
		r.BasketID = o.BasketID
	}
	if o.MetadataID != "" {
		r.MetadataID = o.MetadataID
	}
	if o.PaypageID != "" {
		r.PaypageID = o.PaypageID
	}
	if o.TraceID != "" {
		r.TraceID = o.TraceID
	}
}

func (r References) empty() bool {
	return r == References{}
}

// Message is the dual text attached to transactions: Customer is safe to show
// to the end customer, Merchant is diagnostic.
type Message struct {
	Code     string `json:"code,omitempty"`
	Customer string `json:"customer,omitempty"`
	Merchant string `json:"merchant,omitempty"`
}

// idOf returns the id of r, tolerating nil resources.
func idOf(r Resource) string {
	if r == nil {
		return ""
	}
	return r.ResourceID()
}
