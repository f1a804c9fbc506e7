// Package apierrors defines the app server's error taxonomy (spec.md §7):
// NotFound, Unauthorized, InternalServer, SuggestionUnavailable, plus
// infra-wrapped errors that collapse to InternalServer after logging.
package apierrors

import "net/http"

// Kind enumerates the app server's error taxonomy.
type Kind int

const (
	KindNotFound Kind = iota
	KindUnauthorized
	KindInternalServer
	KindSuggestionUnavailable
	KindBadRequest
)

// Error is the app server's uniform error type.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a default message.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: defaultMessage[kind], Cause: cause}
}

// Wrap builds an Error with a caller-supplied message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

var defaultMessage = map[Kind]string{
	KindNotFound:              "not found",
	KindUnauthorized:          "invalid credentials",
	KindInternalServer:        "internal server error",
	KindSuggestionUnavailable: "suggestion unavailable",
	KindBadRequest:            "bad request",
}

// Status maps a Kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindSuggestionUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON envelope returned to clients: {"error": "<message>"}.
type Body struct {
	Error string `json:"error"`
}

// AsError extracts an *Error from err, wrapping it as InternalServer otherwise.
// Infra errors (DB, bus, crypto, transport) collapse to InternalServer here.
func AsError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(KindInternalServer, err)
}
