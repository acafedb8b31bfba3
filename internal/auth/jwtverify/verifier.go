// Package jwtverify verifies signed session tokens locally, without a
// round trip to the auth provider.
package jwtverify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"webapi-template/internal/auth"
)

// Claims is the expected shape of a session token.
type Claims struct {
	Email    string         `json:"email,omitempty"`
	Provider string         `json:"provider,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	jwt.RegisteredClaims
}

// Options configures the verifier.
type Options struct {
	// Secret is the HMAC signing key shared with the token issuer.
	Secret []byte
	// CookieName is where the session token lives; Authorization: Bearer is
	// accepted as a fallback. Defaults to "app_session".
	CookieName string
	// Leeway tolerates small clock skew when checking expiry.
	Leeway time.Duration
}

// Verifier validates session tokens carried in a cookie or bearer header.
type Verifier struct {
	secret     []byte
	cookieName string
	leeway     time.Duration
}

var _ auth.Verifier = (*Verifier)(nil)

// New creates a Verifier. The secret is required.
func New(opts Options) (*Verifier, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("jwtverify: signing secret is required")
	}
	cookie := opts.CookieName
	if cookie == "" {
		cookie = "app_session"
	}
	return &Verifier{secret: opts.Secret, cookieName: cookie, leeway: opts.Leeway}, nil
}

// Verify implements auth.Verifier.
func (v *Verifier) Verify(ctx context.Context, c auth.Carrier) (auth.Session, error) {
	raw, ok := v.token(c)
	if !ok {
		return auth.Session{}, auth.ErrNoSession
	}

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(v.leeway))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.Session{}, fmt.Errorf("%w: %w", auth.ErrRefreshRequired, err)
		}
		return auth.Session{}, fmt.Errorf("%w: %w", auth.ErrSessionInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return auth.Session{}, auth.ErrSessionInvalid
	}

	sess := auth.Session{
		Handle: claims.ID,
		UserID: claims.Subject,
		Claims: map[string]any{},
	}
	if claims.Email != "" {
		sess.Claims["email"] = claims.Email
	}
	if claims.Provider != "" {
		sess.Claims["provider"] = claims.Provider
	}
	for k, val := range claims.Extra {
		sess.Claims[k] = val
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

func (v *Verifier) token(c auth.Carrier) (string, bool) {
	if raw, ok := c.GetCookie(v.cookieName); ok && raw != "" {
		return raw, true
	}
	h := c.GetHeader("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Issue signs a session token for the given user. It exists for tests and
// local development; production tokens come from the auth provider.
func (v *Verifier) Issue(userID, email, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
