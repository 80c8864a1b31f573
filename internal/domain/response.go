package domain

import (
	"encoding/json"
	"fmt"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

// Response is the envelope common to all API replies. Resource specific
// fields stay in Body and are read by the resource's HandleResponse.
type Response struct {
	ID          string      `json:"id"`
	IsSuccess   bool        `json:"isSuccess"`
	IsPending   bool        `json:"isPending"`
	IsError     bool        `json:"isError"`
	RedirectURL string      `json:"redirectUrl"`
	Message     Message     `json:"message"`
	Resources   References  `json:"resources"`
	Errors      []ErrorItem `json:"errors"`

	StatusCode int    `json:"-"`
	Body       []byte `json:"-"`
}

// ErrorItem is one entry of the "errors" array of a failed request.
type ErrorItem struct {
	Code            string `json:"code"`
	MerchantMessage string `json:"merchantMessage"`
	CustomerMessage string `json:"customerMessage"`
}

// ParseResponse decodes the common envelope of body. An empty body yields an
// empty response.
func ParseResponse(status int, body []byte) (*Response, error) {
	r := &Response{StatusCode: status, Body: body}
	if len(body) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(body, r); err != nil {
		return r, fmt.Errorf("decode response (status %d): %w", status, err)
	}
	return r, nil
}

// Failed reports whether the request itself was rejected by the API, as
// opposed to a processed transaction that ended in an error state.
func (r *Response) Failed() bool {
	return r.StatusCode >= 400 || len(r.Errors) > 0
}

// APIError converts the response into an APIError. The first entry of the
// errors array wins; otherwise the transaction message is used.
func (r *Response) APIError() *payerr.APIError {
	var e *payerr.APIError
	if len(r.Errors) > 0 {
		first := r.Errors[0]
		e = payerr.NewAPIError(first.MerchantMessage, first.CustomerMessage, first.Code, r.ID)
	} else {
		e = payerr.NewAPIError(r.Message.Merchant, r.Message.Customer, r.Message.Code, r.ID)
	}
	e.StatusCode = r.StatusCode
	return e
}
