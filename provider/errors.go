package provider

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// ErrProviderNotFound is returned by registry lookups for a name that was
// never registered. It is a registry answer, not a backend failure, so it
// does not use the Error taxonomy.
var ErrProviderNotFound = errors.New("provider not found")

// Code classifies a backend failure. The set is closed; every error a
// provider returns carries exactly one of these.
type Code string

const (
	CodeNotConfigured      Code = "NOT_CONFIGURED"
	CodeInvalidAPIKey      Code = "INVALID_API_KEY"
	CodeModelNotFound      Code = "MODEL_NOT_FOUND"
	CodeValidationError    Code = "VALIDATION_ERROR"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeEmptyResponse      Code = "EMPTY_RESPONSE"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeNetworkError       Code = "NETWORK_ERROR"
	CodeAPIError           Code = "API_ERROR"
	CodeNoProvider         Code = "NO_PROVIDER_AVAILABLE"
)

// Retryable reports whether re-issuing the same request without changing any
// configuration could plausibly succeed.
func (c Code) Retryable() bool {
	switch c {
	case CodeRateLimited, CodeEmptyResponse, CodeServiceUnavailable, CodeNetworkError, CodeAPIError:
		return true
	}
	return false
}

// Error is the one failure type that crosses the routing boundary. The code
// determines Retryable unless the raising site overrides it.
type Error struct {
	Code      Code
	Provider  string // backend name; empty for registry-raised errors
	Message   string
	Retryable bool
	Err       error // underlying cause, may be nil
}

func New(provider string, code Code, message string) *Error {
	return &Error{
		Code:      code,
		Provider:  provider,
		Message:   message,
		Retryable: code.Retryable(),
	}
}

func Errorf(provider string, code Code, format string, args ...any) *Error {
	e := New(provider, code, fmt.Sprintf(format, args...))
	for _, a := range args {
		if err, ok := a.(error); ok {
			e.Err = err
		}
	}
	return e
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// classifyStatus maps a non-2xx backend response onto the taxonomy. The body
// is included in the message, truncated, because backends put the useful part
// there.
func classifyStatus(provider string, status int, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	if msg == "" {
		msg = fmt.Sprintf("backend returned status %d", status)
	}
	switch {
	case status == 401 || status == 403:
		return New(provider, CodeInvalidAPIKey, "the API key was rejected: "+msg)
	case status == 404:
		if strings.Contains(strings.ToLower(msg), "model") {
			return New(provider, CodeModelNotFound, msg)
		}
		return New(provider, CodeAPIError, msg)
	case status == 400 || status == 422:
		return New(provider, CodeValidationError, msg)
	case status == 429:
		return New(provider, CodeRateLimited, "rate limited: "+msg)
	case status == 503:
		return New(provider, CodeServiceUnavailable, msg)
	default:
		return New(provider, CodeAPIError, fmt.Sprintf("status %d: %s", status, msg))
	}
}

// classifyTransport maps a failed round trip onto the taxonomy. A refused or
// reset connection means the service is down; timeouts, DNS trouble and
// everything else are network errors.
func classifyTransport(provider string, err error) *Error {
	code := CodeNetworkError
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		code = CodeServiceUnavailable
	}
	e := New(provider, code, err.Error())
	e.Err = err
	return e
}
