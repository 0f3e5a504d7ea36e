package llm

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind categorizes failures raised by the invocation layer.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindBackend       ErrorKind = "backend"
	KindParse         ErrorKind = "parse"
	KindProvisioning  ErrorKind = "provisioning"
)

// Sentinel targets for errors.Is; matching compares the kind only.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrBackend       = &Error{Kind: KindBackend}
	ErrParse         = &Error{Kind: KindParse}
	ErrProvisioning  = &Error{Kind: KindProvisioning}
)

// Error is the structured failure returned by backends and the retry envelope.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	// Code is a provider error code such as ThrottlingException.
	Code string
	// StatusCode is the HTTP status when the failure came from an HTTP exchange.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Kind) + " error")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// ConfigurationError reports invalid user input or an unusable model setup.
func ConfigurationError(op, message string) *Error {
	return NewError(KindConfiguration, op, message, nil)
}

// ParseError reports a model response that could not be decoded.
func ParseError(op, message string, err error) *Error {
	return NewError(KindParse, op, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var retryableCodes = map[string]bool{
	"ThrottlingException":         true,
	"TooManyRequestsException":    true,
	"ServiceUnavailableException": true,
	"ModelTimeoutException":       true,
	"ModelNotReadyException":      true,
	"InternalServerException":     true,
	"RequestTimeout":              true,
}

var retryableMarkers = []string{
	"throttl",
	"rate limit",
	"rate exceeded",
	"too many requests",
	"timeout",
	"timed out",
	"connection",
	"temporarily unavailable",
	"too many tokens",
}

// IsRetryable classifies err as transient (throttling, timeouts, connection
// failures, temporary unavailability, token-rate limits) or fatal. Parse,
// configuration and provisioning failures are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindConfiguration, KindParse, KindProvisioning:
			return false
		}
		if retryableCodes[e.Code] {
			return true
		}
		switch {
		case e.StatusCode == http.StatusRequestTimeout,
			e.StatusCode == http.StatusTooManyRequests,
			e.StatusCode >= http.StatusInternalServerError:
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// exhausted wraps the final failure once the retry budget is spent.
func exhausted(op string, attempts int, last error) *Error {
	return &Error{
		Kind:    KindBackend,
		Op:      op,
		Message: fmt.Sprintf("max retries exceeded after %d attempts, last error", attempts),
		Code:    codeOf(last),
		Err:     last,
	}
}

func codeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
