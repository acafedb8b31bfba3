// Package apperr defines the application error taxonomy.
//
// Every failure that crosses a layer boundary is represented as an *Error
// carrying a stable machine-readable kind, a fixed HTTP status and an
// operational flag. Business code raises typed errors and never formats
// responses; the HTTP error middleware is the single place that turns an
// *Error into a response body.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable machine-readable error code. It doubles as the
// wire-level "code" field of the error envelope.
type Kind string

const (
	KindBadRequest             Kind = "BAD_REQUEST"
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindInvalidSession         Kind = "INVALID_SESSION"
	KindSessionRefreshRequired Kind = "SESSION_REFRESH_REQUIRED"
	KindForbidden              Kind = "FORBIDDEN"
	KindNotFound               Kind = "NOT_FOUND"
	KindUserNotFound           Kind = "USER_NOT_FOUND"
	KindConflict               Kind = "CONFLICT"
	KindUserAlreadyExists      Kind = "USER_ALREADY_EXISTS"
	KindValidationFailed       Kind = "VALIDATION_FAILED"
	KindInternal               Kind = "INTERNAL_SERVER_ERROR"
	KindDatabase               Kind = "DATABASE_ERROR"
	KindUnavailable            Kind = "SERVICE_UNAVAILABLE"
	KindExternalService        Kind = "EXTERNAL_SERVICE_ERROR"
)

// descriptor binds a kind to its immutable metadata. The table is the single
// source of truth: callers never supply status or the operational flag.
type descriptor struct {
	status      int
	operational bool
}

var descriptors = map[Kind]descriptor{
	KindBadRequest:             {http.StatusBadRequest, true},
	KindUnauthorized:           {http.StatusUnauthorized, true},
	KindInvalidSession:         {http.StatusUnauthorized, true},
	KindSessionRefreshRequired: {http.StatusUnauthorized, true},
	KindForbidden:              {http.StatusForbidden, true},
	KindNotFound:               {http.StatusNotFound, true},
	KindUserNotFound:           {http.StatusNotFound, true},
	KindConflict:               {http.StatusConflict, true},
	KindUserAlreadyExists:      {http.StatusConflict, true},
	KindValidationFailed:       {http.StatusUnprocessableEntity, true},
	KindInternal:               {http.StatusInternalServerError, false},
	KindDatabase:               {http.StatusInternalServerError, false},
	KindUnavailable:            {http.StatusServiceUnavailable, false},
	KindExternalService:        {http.StatusServiceUnavailable, false},
}

// Error is the root application error type.
//
// Kind, HTTP status and the operational flag are fixed per kind; message and
// context are supplied at the raise site. The wrapped cause is for logs only
// and never reaches a client.
type Error struct {
	kind    Kind
	message string
	context map[string]any
	cause   error
}

func newError(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the stable error code.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the human-readable description supplied at the raise site.
func (e *Error) Message() string { return e.message }

// HTTPStatus returns the status bound to the kind.
func (e *Error) HTTPStatus() int {
	if d, ok := descriptors[e.kind]; ok {
		return d.status
	}
	return http.StatusInternalServerError
}

// Operational reports whether the error is an expected, client-attributable
// failure. It drives log severity, never the response shape.
func (e *Error) Operational() bool {
	if d, ok := descriptors[e.kind]; ok {
		return d.operational
	}
	return false
}

// Context returns the diagnostic key-value pairs attached to the error.
// The returned map is the error's own; callers must not mutate it.
func (e *Error) Context() map[string]any { return e.context }

// With attaches a diagnostic key-value pair and returns the error for
// chaining. Context always reaches logs and reaches clients only outside
// production.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any, 2)
	}
	e.context[key] = value
	return e
}

// WithCause wraps an underlying error for server-side logging.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// Payload is the serializable form of an Error: `{code, message, context?}`.
// It never includes the cause or a stack trace.
type Payload struct {
	Code    Kind           `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Payload returns the wire form of the error. Context is stripped when
// redact is true (production).
func (e *Error) Payload(redact bool) Payload {
	p := Payload{Code: e.kind, Message: e.message}
	if !redact && len(e.context) > 0 {
		p.Context = e.context
	}
	return p
}

// Constructors. Each fixes kind, status and the operational flag; callers
// only choose the message and optional context.

// BadRequest signals a malformed request (400).
func BadRequest(message string) *Error { return newError(KindBadRequest, message) }

// Unauthorized signals a request lacking valid authentication (401).
func Unauthorized(message string) *Error { return newError(KindUnauthorized, message) }

// InvalidSession signals an absent or unverifiable session (401).
func InvalidSession(message string) *Error { return newError(KindInvalidSession, message) }

// SessionRefreshRequired signals an expired session that the client can
// refresh (401).
func SessionRefreshRequired(message string) *Error {
	return newError(KindSessionRefreshRequired, message)
}

// Forbidden signals an authenticated but disallowed request (403).
func Forbidden(message string) *Error { return newError(KindForbidden, message) }

// NotFound signals a missing resource (404).
func NotFound(message string) *Error { return newError(KindNotFound, message) }

// UserNotFound signals a missing user record (404).
func UserNotFound(message string) *Error { return newError(KindUserNotFound, message) }

// Conflict signals a request conflicting with current state (409).
func Conflict(message string) *Error { return newError(KindConflict, message) }

// UserAlreadyExists signals a duplicate user registration (409).
func UserAlreadyExists(message string) *Error { return newError(KindUserAlreadyExists, message) }

// ValidationFailed signals semantically invalid input (422).
func ValidationFailed(message string) *Error { return newError(KindValidationFailed, message) }

// Internal signals an unexpected server-side failure (500, non-operational).
func Internal(message string, cause error) *Error {
	return newError(KindInternal, message).WithCause(cause)
}

// Database signals a data-store failure (500, non-operational).
func Database(message string, cause error) *Error {
	return newError(KindDatabase, message).WithCause(cause)
}

// Unavailable signals that the service cannot currently serve requests
// (503, non-operational).
func Unavailable(message string) *Error { return newError(KindUnavailable, message) }

// ExternalService signals a failure of a named upstream dependency
// (503, non-operational). The service name lands in the error context.
func ExternalService(service, message string, cause error) *Error {
	return newError(KindExternalService, message).With("service", service).WithCause(cause)
}

// RequiredField is a factory for the common "field is required" validation
// failure, carrying the field name in context.
func RequiredField(field string) *Error {
	return ValidationFailed(fmt.Sprintf("Field %q is required", field)).With("field", field)
}

// From classifies an arbitrary error into the taxonomy. An *Error anywhere
// in the chain is returned as-is; anything else defaults to
// INTERNAL_SERVER_ERROR with the original error as cause.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err.Error(), err)
}

// As extracts the *Error from err's chain, or nil.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	if ae := As(err); ae != nil {
		return ae.kind == kind
	}
	return false
}

// IsOperational reports whether err is a classified operational error.
// Unclassified errors are never operational.
func IsOperational(err error) bool {
	if ae := As(err); ae != nil {
		return ae.Operational()
	}
	return false
}
