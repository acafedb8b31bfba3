// Package authgate calls the external auth provider's session-verification
// API over HTTP.
package authgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"webapi-template/internal/auth"
	"webapi-template/internal/platform/httpclient"
)

// Client is the HTTP implementation of auth.Verifier.
type Client struct {
	hc         *httpclient.Client
	baseURL    string
	apiKey     string
	cookieName string
}

var _ auth.Verifier = (*Client)(nil)

// Options configures the provider client.
type Options struct {
	// BaseURL is the provider endpoint, e.g. https://auth.example.com.
	BaseURL string
	// APIKey authenticates this service to the provider.
	APIKey string
	// CookieName is where the session token lives on inbound requests;
	// Authorization: Bearer is the fallback. Defaults to "app_session".
	CookieName string
	// Logger is used by the underlying HTTP client.
	Logger *slog.Logger
	// Timeout bounds a single verification round trip.
	Timeout time.Duration
}

// New creates the provider client with retrying transport.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	cookie := opts.CookieName
	if cookie == "" {
		cookie = "app_session"
	}
	hc := httpclient.New(
		httpclient.WithLogger(opts.Logger),
		httpclient.WithTimeout(timeout),
		httpclient.WithRetries(2, 150*time.Millisecond),
		httpclient.WithRetryMethods(http.MethodPost),
	)
	return &Client{
		hc:         hc,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		cookieName: cookie,
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Claims    map[string]any `json:"claims"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type verifyFailure struct {
	Code string `json:"code"`
}

// Verify implements auth.Verifier. Provider verdicts are mapped onto the
// package auth sentinels; transport and 5xx failures surface as plain errors
// so the resolver classifies them as a provider outage.
func (c *Client) Verify(ctx context.Context, carrier auth.Carrier) (auth.Session, error) {
	token, ok := c.token(carrier)
	if !ok {
		return auth.Session{}, auth.ErrNoSession
	}

	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return auth.Session{}, fmt.Errorf("authgate: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/sessions/verify", bytes.NewReader(body))
	if err != nil {
		return auth.Session{}, fmt.Errorf("authgate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.hc.Do(ctx, req)
	if err != nil {
		return auth.Session{}, fmt.Errorf("authgate: verify call: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var vr verifyResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&vr); err != nil {
			return auth.Session{}, fmt.Errorf("authgate: decode session: %w", err)
		}
		if vr.UserID == "" {
			return auth.Session{}, fmt.Errorf("authgate: session without user id")
		}
		return auth.Session{
			Handle:    vr.SessionID,
			UserID:    vr.UserID,
			Claims:    vr.Claims,
			ExpiresAt: vr.ExpiresAt,
		}, nil
	case http.StatusUnauthorized:
		var vf verifyFailure
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&vf)
		if vf.Code == "REFRESH_REQUIRED" {
			return auth.Session{}, auth.ErrRefreshRequired
		}
		return auth.Session{}, auth.ErrSessionInvalid
	default:
		return auth.Session{}, fmt.Errorf("authgate: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) token(carrier auth.Carrier) (string, bool) {
	if raw, ok := carrier.GetCookie(c.cookieName); ok && raw != "" {
		return raw, true
	}
	h := carrier.GetHeader("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
		return parts[1], true
	}
	return "", false
}
