package domain

import (
	"encoding/json"
	"fmt"
)

// Address is a postal address of a customer.
type Address struct {
	Name    string `json:"name,omitempty"`
	Street  string `json:"street,omitempty"`
	State   string `json:"state,omitempty"`
	ZIP     string `json:"zip,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Salutations accepted by the gateway.
const (
	SalutationMr      = "mr"
	SalutationMrs     = "mrs"
	SalutationUnknown = "unknown"
)

// Customer is the buyer behind a payment. ExternalID is the merchant's own
// customer number ("customerId" on the wire) and can be used to fetch the
// customer instead of the gateway id.
type Customer struct {
	Envelope

	Firstname       string   `json:"firstname,omitempty"`
	Lastname        string   `json:"lastname,omitempty"`
	Salutation      string   `json:"salutation,omitempty"`
	Company         string   `json:"company,omitempty"`
	BirthDate       string   `json:"birthDate,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Mobile          string   `json:"mobile,omitempty"`
	BillingAddress  *Address `json:"billingAddress,omitempty"`
	ShippingAddress *Address `json:"shippingAddress,omitempty"`
}

func NewCustomer(firstname, lastname string) *Customer {
	return &Customer{Firstname: firstname, Lastname: lastname}
}

func (c *Customer) Kind() string                    { return "customer" }
func (c *Customer) API() API                        { return APIPayment }
func (c *Customer) CollectionPath() string          { return "customers" }
func (c *Customer) LinkedResources() (Links, error) { return Links{}, nil }

type customerFields Customer

type customerWire struct {
	*customerFields
	CustomerID string `json:"customerId,omitempty"`
}

func (c *Customer) MarshalJSON() ([]byte, error) {
	return json.Marshal(customerWire{(*customerFields)(c), c.ExternalID})
}

func (c *Customer) HandleResponse(body []byte, _ Method) error {
	w := struct {
		*customerFields
		CustomerID *string `json:"customerId"`
	}{customerFields: (*customerFields)(c)}
	if err := json.Unmarshal(body, &w); err != nil {
		return fmt.Errorf("decode customer: %w", err)
	}
	if w.CustomerID != nil {
		c.ExternalID = *w.CustomerID
	}
	return nil
}
