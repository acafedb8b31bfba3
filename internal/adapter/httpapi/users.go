package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"webapi-template/internal/domain/user"
	"webapi-template/internal/shared/apperr"
)

// UserHandler serves the user CRUD endpoints.
type UserHandler struct {
	users user.Store
}

// NewUserHandler wires the handler with its store.
func NewUserHandler(users user.Store) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName" binding:"required,min=1,max=64"`
}

type updateUserRequest struct {
	DisplayName string `json:"displayName" binding:"required,min=1,max=64"`
	Verified    *bool  `json:"verified"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
	Verified    bool      `json:"verified"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		JoinedAt:    u.JoinedAt,
		Verified:    u.Verified,
	}
}

// Create registers a new user.
func (h *UserHandler) Create(c *gin.Context) error {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return apperr.FromValidation(err)
	}

	created, err := h.users.Create(c.Request.Context(), user.User{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return apperr.UserAlreadyExists("A user with this email already exists").
				With("email", req.Email)
		}
		return apperr.Database("Failed to create user", err)
	}

	c.JSON(http.StatusCreated, toUserResponse(created))
	return nil
}

// Get returns one user by id.
func (h *UserHandler) Get(c *gin.Context) error {
	id := c.Param("id")

	u, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.UserNotFound("User not found").With("userId", id)
		}
		return apperr.Database("Failed to load user", err)
	}

	c.JSON(http.StatusOK, toUserResponse(u))
	return nil
}

// List returns all users ordered by join time.
func (h *UserHandler) List(c *gin.Context) error {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		return apperr.Database("Failed to list users", err)
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
	return nil
}

// Update changes a user's mutable fields.
func (h *UserHandler) Update(c *gin.Context) error {
	id := c.Param("id")

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return apperr.FromValidation(err)
	}

	current, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.UserNotFound("User not found").With("userId", id)
		}
		return apperr.Database("Failed to load user", err)
	}

	current.DisplayName = req.DisplayName
	if req.Verified != nil {
		current.Verified = *req.Verified
	}

	updated, err := h.users.Update(c.Request.Context(), current)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.UserNotFound("User not found").With("userId", id)
		}
		return apperr.Database("Failed to update user", err)
	}

	c.JSON(http.StatusOK, toUserResponse(updated))
	return nil
}

// Delete removes a user.
func (h *UserHandler) Delete(c *gin.Context) error {
	id := c.Param("id")

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.UserNotFound("User not found").With("userId", id)
		}
		return apperr.Database("Failed to delete user", err)
	}

	c.Status(http.StatusNoContent)
	return nil
}
