package domain

import (
	"encoding/json"
	"fmt"
)

// Metadata is a free key/value map stored with a payment.
type Metadata struct {
	Envelope
	Values map[string]string
}

func NewMetadata() *Metadata { return &Metadata{Values: map[string]string{}} }

func (m *Metadata) Kind() string                    { return "metadata" }
func (m *Metadata) API() API                        { return APIPayment }
func (m *Metadata) CollectionPath() string          { return "metadata" }
func (m *Metadata) LinkedResources() (Links, error) { return Links{}, nil }

func (m *Metadata) Set(key, value string) *Metadata {
	if m.Values == nil {
		m.Values = map[string]string{}
	}
	m.Values[key] = value
	return m
}

func (m *Metadata) Get(key string) (string, bool) {
	v, ok := m.Values[key]
	return v, ok
}

// MarshalJSON renders the values as a flat object. The id is never sent.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	if m.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.Values)
}

// HandleResponse merges the response keys into Values. Non-string values
// are kept in their JSON text form.
func (m *Metadata) HandleResponse(body []byte, _ Method) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	for k, v := range raw {
		var s string
		isString := json.Unmarshal(v, &s) == nil
		switch k {
		case "id":
			if isString {
				m.ID = s
			}
		case "isError", "isSuccess", "isPending":
		default:
			if !isString {
				s = string(v)
			}
			m.Set(k, s)
		}
	}
	return nil
}
