// Package transport performs the HTTP round trips of the SDK. It knows nothing
// about resources: it sends a prepared request and returns status, headers
// and body.
package transport

import (
	"context"
	"net/http"
)

// Request is one outbound call. API labels the call in metrics.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	API    string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport sends requests. Implementations return a *payerr.TransportError
// when no response was received.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Send(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }

func (f Func) Close() error { return nil }
