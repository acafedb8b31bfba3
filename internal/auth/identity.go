// Package auth resolves the authenticated principal for a request.
//
// Session verification itself is delegated to an external provider behind
// the Verifier port; this package maps provider signals onto the application
// error taxonomy and hydrates an Identity from the user store.
package auth

import (
	"strings"
	"time"
)

// Identity is the authenticated principal resolved for one request.
// It is constructed fresh per request and never mutated; derived values
// produce copies.
type Identity struct {
	UserID     string
	Email      string
	JoinedAt   time.Time
	attributes map[string]any
}

// NewIdentity builds an immutable Identity. The attribute map is copied so
// later mutation of the source cannot leak in.
func NewIdentity(userID, email string, joinedAt time.Time, attributes map[string]any) *Identity {
	attrs := make(map[string]any, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	return &Identity{UserID: userID, Email: email, JoinedAt: joinedAt, attributes: attrs}
}

// Attribute returns a provider-supplied metadata value.
func (id *Identity) Attribute(key string) (any, bool) {
	v, ok := id.attributes[key]
	return v, ok
}

// Attributes returns a copy of the provider metadata.
func (id *Identity) Attributes() map[string]any {
	out := make(map[string]any, len(id.attributes))
	for k, v := range id.attributes {
		out[k] = v
	}
	return out
}

// DisplayName returns the explicit display-name attribute when present,
// otherwise the local part of the email address.
func (id *Identity) DisplayName() string {
	if v, ok := id.attributes["displayName"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return id.Email[:at]
	}
	return id.Email
}
