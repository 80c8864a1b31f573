// Package payerr holds the error taxonomy of the SDK: errors reported by the
// gateway (APIError), usage errors detected before any request is sent
// (LocalError), network failures (TransportError) and failed cascading
// payment refreshes (RefreshError).
package payerr

import (
	"errors"
	"fmt"
)

const (
	DefaultMerchantMessage = "The payment api returned an error!"
	DefaultClientMessage   = "The payment could not be processed."
	NoCode                 = "No error code provided"
	NoErrorID              = "No error id provided"
)

// APIError is an error returned by the remote API. MerchantMessage is meant
// for logs, ClientMessage may be shown to the end customer.
type APIError struct {
	MerchantMessage string
	ClientMessage   string
	Code            string
	ErrorID         string
	StatusCode      int
}

// NewAPIError fills in defaults for every empty field.
func NewAPIError(merchant, client, code, errorID string) *APIError {
	e := &APIError{
		MerchantMessage: merchant,
		ClientMessage:   client,
		Code:            code,
		ErrorID:         errorID,
	}
	if e.MerchantMessage == "" {
		e.MerchantMessage = DefaultMerchantMessage
	}
	if e.ClientMessage == "" {
		e.ClientMessage = DefaultClientMessage
	}
	if e.Code == "" {
		e.Code = NoCode
	}
	if e.ErrorID == "" {
		e.ErrorID = NoErrorID
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (%s): %s", e.Code, e.ErrorID, e.MerchantMessage)
}

// Kind classifies a LocalError.
type Kind int

const (
	KindIDRequired Kind = iota + 1
	KindMissingResource
	KindIllegalTransactionType
	KindIllegalResourceType
	KindReferenceMismatch
	KindAlreadyPersisted
	KindDuplicateReference
)

func (k Kind) String() string {
	switch k {
	case KindIDRequired:
		return "id required"
	case KindMissingResource:
		return "missing resource"
	case KindIllegalTransactionType:
		return "illegal transaction type"
	case KindIllegalResourceType:
		return "illegal resource type"
	case KindReferenceMismatch:
		return "reference mismatch"
	case KindAlreadyPersisted:
		return "already persisted"
	case KindDuplicateReference:
		return "duplicate reference"
	default:
		return "local error"
	}
}

// Sentinels for errors.Is matching against a LocalError of the same kind.
var (
	ErrIDRequired             = &LocalError{Kind: KindIDRequired}
	ErrMissingResource        = &LocalError{Kind: KindMissingResource}
	ErrIllegalTransactionType = &LocalError{Kind: KindIllegalTransactionType}
	ErrIllegalResourceType    = &LocalError{Kind: KindIllegalResourceType}
	ErrReferenceMismatch      = &LocalError{Kind: KindReferenceMismatch}
	ErrAlreadyPersisted       = &LocalError{Kind: KindAlreadyPersisted}
	ErrDuplicateReference     = &LocalError{Kind: KindDuplicateReference}
)

// LocalError signals a usage error in the calling code. It is always raised
// before a request is sent.
type LocalError struct {
	Kind     Kind
	Resource string
	Detail   string
}

func (e *LocalError) Error() string {
	msg := e.Kind.String()
	if e.Resource != "" {
		msg += ": " + e.Resource
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *LocalError) Is(target error) bool {
	t, ok := target.(*LocalError)
	return ok && t.Kind == e.Kind
}

func IDRequired(resource string) error {
	return &LocalError{Kind: KindIDRequired, Resource: resource}
}

func MissingResource(resource, detail string) error {
	return &LocalError{Kind: KindMissingResource, Resource: resource, Detail: detail}
}

// IllegalTransactionType names the attempted transaction and the payment type
// that does not support it.
func IllegalTransactionType(transaction, paymentType string) error {
	return &LocalError{
		Kind:     KindIllegalTransactionType,
		Resource: paymentType,
		Detail:   fmt.Sprintf("%s is not supported", transaction),
	}
}

func IllegalResourceType(resource, detail string) error {
	return &LocalError{Kind: KindIllegalResourceType, Resource: resource, Detail: detail}
}

func ReferenceMismatch(resource, detail string) error {
	return &LocalError{Kind: KindReferenceMismatch, Resource: resource, Detail: detail}
}

func AlreadyPersisted(resource, id string) error {
	return &LocalError{Kind: KindAlreadyPersisted, Resource: resource, Detail: "id " + id + " already set, use update"}
}

func DuplicateReference(resource, ref string) error {
	return &LocalError{Kind: KindDuplicateReference, Resource: resource, Detail: ref}
}

// TransportError wraps a failure of the HTTP round trip itself.
type TransportError struct {
	Method  string
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	kind := "transport error"
	if e.Timeout {
		kind = "transport timeout"
	}
	return fmt.Sprintf("%s: %s %s: %v", kind, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a TransportError of the timeout kind.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}

// RefreshError reports that the payment re-fetch following a transaction
// failed. The transaction result itself is unaffected.
type RefreshError struct {
	PaymentID string
	Err       error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh payment %s: %v", e.PaymentID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
