package scanner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Response is an explorer API response. Account/transaction/stats modules answer with
// status/message/result; the proxy module answers JSON-RPC style.
type Response struct {
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object of a proxy-module response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	statusOK   = "1"
	statusFail = "0"
)

// Texts the provider uses for an empty history; these are not failures
var emptyResultTexts = []string{
	"no transactions found",
	"no records found",
}

// ParseResponse decodes a raw explorer response
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if resp.Status == "" && resp.JSONRPC == "" && resp.Error == nil && resp.Result == nil {
		return nil, fmt.Errorf("%w: no status or result", ErrBadResponse)
	}
	return &resp, nil
}

// ErrorText returns the provider's failure text: the result when it is a string,
// otherwise the message
func (r *Response) ErrorText() string {
	if r.Error != nil {
		return r.Error.Message
	}
	var s string
	if len(r.Result) > 0 && json.Unmarshal(r.Result, &s) == nil && s != "" {
		return s
	}
	return r.Message
}

// IsEmptyResult reports a failure status that only means "nothing to list"
func (r *Response) IsEmptyResult() bool {
	if r.Status != statusFail {
		return false
	}
	msg := strings.ToLower(r.Message)
	text := strings.ToLower(r.ErrorText())
	for _, t := range emptyResultTexts {
		if strings.Contains(msg, t) || strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// IsSuccess reports whether the response carries a usable result
func (r *Response) IsSuccess() bool {
	if r.Error != nil {
		return false
	}
	switch r.Status {
	case statusOK:
		return true
	case "":
		// proxy module
		return r.JSONRPC != "" || r.Result != nil
	}
	return false
}

// Err classifies a failed response. It returns nil for successful and empty results.
func (r *Response) Err() error {
	if r.IsSuccess() || r.IsEmptyResult() {
		return nil
	}

	perr := &ProviderError{
		Kind:    KindGeneral,
		Message: r.Message,
		Result:  r.ErrorText(),
	}

	text := strings.ToLower(r.ErrorText())
	switch {
	case strings.Contains(text, "rate limit reached"):
		perr.Kind = KindRateLimit
	case strings.Contains(text, "invalid api key"), strings.Contains(text, "missing/invalid api key"):
		perr.Kind = KindInvalidAPIKey
	case strings.Contains(text, "invalid address"):
		perr.Kind = KindInvalidAddress
	}
	return perr
}

// DecodeResult unmarshals the result into v. An empty result leaves v untouched.
func (r *Response) DecodeResult(v interface{}) error {
	if r.IsEmptyResult() || len(r.Result) == 0 || string(r.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("%w: decode result: %v", ErrBadResponse, err)
	}
	return nil
}

// ResultString returns the result as a string (balances, hex quantities)
func (r *Response) ResultString() (string, error) {
	var s string
	if err := r.DecodeResult(&s); err != nil {
		return "", err
	}
	return s, nil
}
