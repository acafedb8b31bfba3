package auth

import (
	"context"
	"errors"
	"log/slog"

	"webapi-template/internal/domain/user"
	"webapi-template/internal/shared/apperr"
)

// Request-scoped keys written by the Resolver on success.
const (
	BagIdentity      = "identity"
	BagSessionHandle = "sessionHandle"
	BagUserID        = "userId"
)

// Bag is the per-request key-value store populated by middleware and read
// by handlers. *gin.Context satisfies it directly.
type Bag interface {
	Set(key string, value any)
	Get(key string) (any, bool)
}

// Resolver turns session material on an inbound request into an Identity.
type Resolver struct {
	verifier Verifier
	users    user.Store
	log      *slog.Logger
}

// NewResolver wires the resolver with its verifier, user store and logger.
func NewResolver(verifier Verifier, users user.Store, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{verifier: verifier, users: users, log: log}
}

// Resolve determines whether the request carries a valid session and, if so,
// returns the Identity, caching it in the bag.
//
// With required=true a missing or invalid session raises INVALID_SESSION, an
// expired-but-refreshable one raises SESSION_REFRESH_REQUIRED, a verified
// session whose user record is gone raises USER_NOT_FOUND, and any other
// provider failure raises EXTERNAL_SERVICE_ERROR for the auth provider.
//
// With required=false the same resolution runs but every failure is
// swallowed and nil is returned; this path never produces an error.
//
// Resolve is idempotent: a bag already holding an identity is answered from
// the bag without contacting the provider again.
func (r *Resolver) Resolve(ctx context.Context, c Carrier, bag Bag, required bool) (*Identity, error) {
	if cached, ok := bag.Get(BagIdentity); ok {
		if id, ok := cached.(*Identity); ok {
			return id, nil
		}
	}

	id, handle, err := r.resolve(ctx, c)
	if err != nil {
		if !required {
			r.log.Debug("optional session resolution failed",
				slog.String("method", c.Method()),
				slog.String("url", c.URL()),
				slog.Any("err", err))
			return nil, nil
		}
		return nil, err
	}

	// The bag is written only after the identity is fully hydrated, so a
	// cancelled resolution never leaves partial state behind.
	bag.Set(BagIdentity, id)
	bag.Set(BagSessionHandle, handle)
	bag.Set(BagUserID, id.UserID)
	return id, nil
}

func (r *Resolver) resolve(ctx context.Context, c Carrier) (*Identity, string, error) {
	sess, err := r.verifier.Verify(ctx, c)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSession), errors.Is(err, ErrSessionInvalid):
			return nil, "", apperr.InvalidSession("Not authenticated. Please log in.").WithCause(err)
		case errors.Is(err, ErrRefreshRequired):
			return nil, "", apperr.SessionRefreshRequired("Session expired. Please refresh.").WithCause(err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, "", err
		default:
			return nil, "", apperr.ExternalService("auth", "Session verification unavailable", err)
		}
	}

	u, err := r.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", apperr.UserNotFound("User not found").With("userId", sess.UserID)
		}
		return nil, "", apperr.Database("User lookup failed", err).With("userId", sess.UserID)
	}

	attrs := make(map[string]any, len(sess.Claims)+2)
	for k, v := range sess.Claims {
		attrs[k] = v
	}
	if u.DisplayName != "" {
		attrs["displayName"] = u.DisplayName
	}
	attrs["verified"] = u.Verified

	return NewIdentity(u.ID, u.Email, u.JoinedAt, attrs), sess.Handle, nil
}

// IdentityFrom reads a previously resolved Identity from the bag.
func IdentityFrom(bag Bag) (*Identity, bool) {
	v, ok := bag.Get(BagIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}
