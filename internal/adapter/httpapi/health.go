package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webapi-template/internal/domain/user"
	"webapi-template/internal/shared/apperr"
)

// HealthHandler serves the liveness/readiness probe.
type HealthHandler struct {
	users user.Store
}

// NewHealthHandler wires the probe with the store it checks.
func NewHealthHandler(users user.Store) *HealthHandler {
	return &HealthHandler{users: users}
}

// Check reports service health. A store that cannot be reached makes the
// probe fail with SERVICE_UNAVAILABLE.
func (h *HealthHandler) Check(c *gin.Context) error {
	if err := h.users.Ping(c.Request.Context()); err != nil {
		return apperr.Unavailable("Service is not ready").WithCause(err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
	return nil
}
