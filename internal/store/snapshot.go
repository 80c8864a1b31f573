// Package store keeps a journal of the resource bodies exchanged with the
// gateway, either in an embedded bolt file or in Postgres.
package store

import (
	"errors"
	"time"
)

// Snapshot is one recorded response body.
type Snapshot struct {
	Kind       string    `json:"kind"`
	ID         string    `json:"id"`
	PaymentID  string    `json:"paymentId,omitempty"`
	Method     string    `json:"method"`
	Body       []byte    `json:"body"`
	RecordedAt time.Time `json:"recordedAt"`
}

var ErrNotFound = errors.New("no snapshots recorded")

// Columns lists the snapshot columns in table order.
var Columns = []string{"kind", "resource_id", "payment_id", "method", "body", "recorded_at"}

// Row returns s as a row matching Columns. An empty body becomes NULL.
func (s Snapshot) Row() []any {
	var body []byte
	if len(s.Body) > 0 {
		body = s.Body
	}
	return []any{s.Kind, s.ID, s.PaymentID, s.Method, body, s.RecordedAt}
}
