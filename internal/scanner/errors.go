package scanner

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when the client has no usable primary credential
var ErrNotInitialized = errors.New("client not initialized")

// ErrTimeout is returned when an attempt exceeds the request timeout
var ErrTimeout = errors.New("request timeout")

// errLimiterDeadline is wrapped with ErrTimeout when the rate limiter cannot grant a
// slot before the context deadline
var errLimiterDeadline = errors.New("rate limiter slot exceeds context deadline")

// ErrNetwork is returned for transport failures (connection errors, 429/5xx statuses)
var ErrNetwork = errors.New("network error")

// ErrBadResponse is returned when the provider answers with something that is not a
// decodable explorer response
var ErrBadResponse = errors.New("malformed provider response")

// ErrProviderRejected matches every *ProviderError
var ErrProviderRejected = errors.New("provider rejected request")

// ErrRateLimited matches a *ProviderError caused by the provider-side rate limit
var ErrRateLimited = errors.New("provider rate limit reached")

// ErrorKind classifies a provider failure payload
type ErrorKind string

const (
	KindGeneral        ErrorKind = "general"
	KindRateLimit      ErrorKind = "rate_limit"
	KindInvalidAPIKey  ErrorKind = "invalid_api_key"
	KindInvalidAddress ErrorKind = "invalid_address"
)

// ProviderError is a failure reported inside a well-formed explorer response
type ProviderError struct {
	Kind    ErrorKind
	Message string // "message" field, e.g. NOTOK
	Result  string // provider's error text
}

func (e *ProviderError) Error() string {
	text := e.Result
	if text == "" {
		text = e.Message
	}
	return fmt.Sprintf("%s: %s", ErrProviderRejected.Error(), text)
}

// Is lets errors.Is match the sentinel errors for this failure class
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrProviderRejected:
		return true
	case ErrRateLimited:
		return e.Kind == KindRateLimit
	}
	return false
}

// Retryable reports whether the same request may succeed if sent again
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindInvalidAPIKey, KindInvalidAddress:
		return false
	}
	return true
}

// StatusError is returned for non-2xx HTTP statuses
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.StatusCode)
}

// Is maps retryable statuses onto ErrNetwork
func (e *StatusError) Is(target error) bool {
	return target == ErrNetwork && e.retryable()
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsRetryable reports whether err describes a transient failure
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork)
}
