package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"webapi-template/internal/auth"
	"webapi-template/internal/shared/apperr"
)

// SessionHandler serves the endpoints that report on the caller's session.
type SessionHandler struct{}

// NewSessionHandler creates the handler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

type meResponse struct {
	UserID      string         `json:"userId"`
	Email       string         `json:"email"`
	DisplayName string         `json:"displayName"`
	JoinedAt    string         `json:"joinedAt"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// Me returns the authenticated principal. The route is guarded by the
// required-session middleware, so a missing identity here is a wiring bug.
func (h *SessionHandler) Me(c *gin.Context) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return apperr.Internal("identity missing after session middleware", nil)
	}

	c.JSON(http.StatusOK, meResponse{
		UserID:      id.UserID,
		Email:       id.Email,
		DisplayName: id.DisplayName(),
		JoinedAt:    id.JoinedAt.Format(time.RFC3339),
		Attributes:  id.Attributes(),
	})
	return nil
}

type introspectResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
	SessionHandle string `json:"sessionHandle,omitempty"`
}

// Introspect reports whether the request carries a valid session without
// failing when it does not. The route runs behind the optional-session
// middleware.
func (h *SessionHandler) Introspect(c *gin.Context) error {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusOK, introspectResponse{Authenticated: false})
		return nil
	}

	c.JSON(http.StatusOK, introspectResponse{
		Authenticated: true,
		UserID:        id.UserID,
		SessionHandle: c.GetString(auth.BagSessionHandle),
	})
	return nil
}
