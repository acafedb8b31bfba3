package auth

import (
	"context"
	"errors"
	"time"
)

// Verifier signals, reported as sentinel errors so implementations stay
// framework- and transport-agnostic.
var (
	// ErrNoSession indicates the request carries no session material.
	ErrNoSession = errors.New("no session")

	// ErrSessionInvalid indicates session material was present but failed
	// verification.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrRefreshRequired indicates the session expired but can be refreshed
	// by the client.
	ErrRefreshRequired = errors.New("session refresh required")
)

// Session is the raw material returned by a successful verification.
type Session struct {
	// Handle identifies the session at the provider (token ID or opaque
	// session key).
	Handle string

	// UserID is the provider's stable user identifier.
	UserID string

	// Claims carries provider-supplied metadata verbatim.
	Claims map[string]any

	// ExpiresAt is when the session stops being valid, zero if unknown.
	ExpiresAt time.Time
}

// Carrier exposes the current request and response to a Verifier without
// assuming a specific web framework. HTTP adapters implement it over their
// native request objects.
type Carrier interface {
	GetHeader(name string) string
	GetCookie(name string) (string, bool)
	Method() string
	URL() string
	SetHeader(name, value string)
	SetCookie(name, value string, maxAge int)
}

// Verifier is the port to the external session-verification service.
//
// Implementations return the Session on success, or one of ErrNoSession,
// ErrSessionInvalid, ErrRefreshRequired; any other error is treated as a
// provider outage.
type Verifier interface {
	Verify(ctx context.Context, c Carrier) (Session, error)
}
