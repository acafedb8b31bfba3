package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webapi-template/internal/adapter/httpapi"
	"webapi-template/internal/adapter/repo/memory"
	"webapi-template/internal/auth"
	"webapi-template/internal/auth/jwtverify"
	"webapi-template/internal/domain/user"
)

type env struct {
	router   *gin.Engine
	store    *memory.Store
	verifier *jwtverify.Verifier
}

func newEnv(t *testing.T, production bool) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	verifier, err := jwtverify.New(jwtverify.Options{Secret: []byte("test-secret")})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter(httpapi.RouterOptions{
		Log:        log,
		Production: production,
		Resolver:   auth.NewResolver(verifier, store, log),
		Users:      store,
		Registry:   prometheus.NewRegistry(),
	})
	return &env{router: router, store: store, verifier: verifier}
}

func (e *env) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "app_session", Value: token})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) seedUser(t *testing.T, email, name string) user.User {
	t.Helper()
	u, err := e.store.Create(context.Background(), user.User{Email: email, DisplayName: name})
	require.NoError(t, err)
	return u
}

func (e *env) tokenFor(t *testing.T, u user.User) string {
	t.Helper()
	tok, err := e.verifier.Issue(u.ID, u.Email, "sess-1", time.Hour)
	require.NoError(t, err)
	return tok
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, true)

	rec := e.do(t, http.MethodGet, "/healthz", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateUser(t *testing.T) {
	e := newEnv(t, true)

	rec := e.do(t, http.MethodPost, "/v1/users",
		`{"email":"Ada@Example.com","displayName":"Ada"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ada@example.com", got["email"], "email is normalized")
	assert.Equal(t, "Ada", got["displayName"])
	assert.NotEmpty(t, got["id"])
}

func TestCreateUserDuplicate(t *testing.T) {
	e := newEnv(t, true)
	e.seedUser(t, "ada@example.com", "Ada")

	rec := e.do(t, http.MethodPost, "/v1/users",
		`{"email":"ada@example.com","displayName":"Ada"}`, "")

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER_ALREADY_EXISTS")
}

func TestCreateUserValidation(t *testing.T) {
	e := newEnv(t, false)

	rec := e.do(t, http.MethodPost, "/v1/users",
		`{"email":"not-an-email","displayName":""}`, "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Context map[string]any `json:"context"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Error.Context, "email")
	assert.Contains(t, body.Error.Context, "displayname")
}

func TestGetUserRequiresSession(t *testing.T) {
	e := newEnv(t, true)
	u := e.seedUser(t, "ada@example.com", "Ada")

	rec := e.do(t, http.MethodGet, "/v1/users/"+u.ID, "", "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t,
		`{"error":{"code":"INVALID_SESSION","message":"Not authenticated. Please log in."}}`,
		rec.Body.String())
}

func TestGetUserNotFound(t *testing.T) {
	e := newEnv(t, false)
	u := e.seedUser(t, "ada@example.com", "Ada")

	rec := e.do(t, http.MethodGet, "/v1/users/nope", "", e.tokenFor(t, u))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t,
		`{"error":{"code":"USER_NOT_FOUND","message":"User not found","context":{"userId":"nope"}}}`,
		rec.Body.String())
}

func TestUserCRUD(t *testing.T) {
	e := newEnv(t, true)
	admin := e.seedUser(t, "admin@example.com", "Admin")
	token := e.tokenFor(t, admin)

	target := e.seedUser(t, "bob@example.com", "Bob")

	rec := e.do(t, http.MethodGet, "/v1/users", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bob@example.com")

	rec = e.do(t, http.MethodPut, "/v1/users/"+target.ID,
		`{"displayName":"Bobby","verified":true}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"displayName":"Bobby"`)
	assert.Contains(t, rec.Body.String(), `"verified":true`)

	rec = e.do(t, http.MethodDelete, "/v1/users/"+target.ID, "", token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/users/"+target.ID, "", token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMe(t *testing.T) {
	e := newEnv(t, true)
	u := e.seedUser(t, "ada@example.com", "Ada")

	rec := e.do(t, http.MethodGet, "/v1/me", "", e.tokenFor(t, u))

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, u.ID, got["userId"])
	assert.Equal(t, "ada@example.com", got["email"])
	assert.Equal(t, "Ada", got["displayName"])
}

func TestSessionIntrospect(t *testing.T) {
	e := newEnv(t, true)
	u := e.seedUser(t, "ada@example.com", "Ada")

	t.Run("anonymous", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/v1/auth/session", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
	})

	t.Run("authenticated", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/v1/auth/session", "", e.tokenFor(t, u))

		require.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, true, got["authenticated"])
		assert.Equal(t, u.ID, got["userId"])
		assert.Equal(t, "sess-1", got["sessionHandle"])
	})
}

func TestExpiredTokenAsksForRefresh(t *testing.T) {
	e := newEnv(t, true)
	u := e.seedUser(t, "ada@example.com", "Ada")

	tok, err := e.verifier.Issue(u.ID, u.Email, "sess-1", -time.Minute)
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/v1/me", "", tok)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t,
		`{"error":{"code":"SESSION_REFRESH_REQUIRED","message":"Session expired. Please refresh."}}`,
		rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, true)

	e.do(t, http.MethodGet, "/healthz", "", "")
	rec := e.do(t, http.MethodGet, "/metrics", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
