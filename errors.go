package cloudruntimes

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared between the client and the sidecar daemon. The sidecar
// returns them in the JSON error envelope; the client reconstructs them from
// HTTP responses and transport failures.
const (
	CodeNetwork        = "CR_NETWORK_ERROR"
	CodeAuth           = "CR_AUTH_ERROR"
	CodeParam          = "CR_PARAM_ERROR"
	CodeResource       = "CR_RESOURCE_ERROR"
	CodeSystem         = "CR_SYSTEM_ERROR"
	CodeTimeout        = "CR_TIMEOUT_ERROR"
	CodeNotFound       = "CR_NOT_FOUND_ERROR"
	CodeConflict       = "CR_CONFLICT_ERROR"
	CodeNotImplemented = "CR_NOT_IMPLEMENTED"
)

// ErrNotImplemented is returned by every operation of a capability namespace
// that has not been configured. Callers must never observe a silent success
// or a zero value from an unimplemented capability.
var ErrNotImplemented = &Error{Code: CodeNotImplemented, Message: "runtime capability not implemented"}

// Error is the coded error carried across the Cloud Runtimes API boundary.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cloudruntimes [%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is treats two coded errors as equal when their codes match, so sentinel
// comparisons like errors.Is(err, ErrNotImplemented) work regardless of the
// message attached by a particular operation.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of e carrying an additional detail entry.
func (e *Error) WithDetail(key, value string) *Error {
	out := *e
	out.Details = make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

// NewError builds a coded error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf builds a coded error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a coded classification to an underlying error. The cause
// remains reachable through errors.Unwrap.
func Wrap(code string, err error, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NotImplementedf builds the not-implemented error for a named capability.
func NotImplementedf(capability string) *Error {
	return &Error{
		Code:    CodeNotImplemented,
		Message: fmt.Sprintf("%s runtime not implemented", capability),
	}
}

// Code extracts the error code, or CodeSystem for uncoded errors.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeSystem
}

// HTTPStatus maps an error code to the HTTP status the daemon responds with.
func HTTPStatus(code string) int {
	switch code {
	case CodeParam:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeConflict:
		return http.StatusConflict
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeResource:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// CodeFromHTTPStatus maps an HTTP status back to an error code. It is the
// inverse of HTTPStatus for the statuses the daemon emits, and a best-effort
// classification for anything else a proxy in between might produce.
func CodeFromHTTPStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return CodeParam
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return CodeAuth
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return CodeTimeout
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusNotImplemented:
		return CodeNotImplemented
	case status == http.StatusInsufficientStorage:
		return CodeResource
	case status >= 500:
		return CodeSystem
	default:
		return CodeSystem
	}
}
