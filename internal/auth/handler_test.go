package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/rbac"
	"github.com/taskdesk/taskdesk/internal/shared"
)

func newAuthRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(nil, f.svc, shared.NopAuditSink{})
	mw := rbac.Middleware{Tokens: f.svc}
	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) { h.MountRoutes(r, mw.Authenticate) })
	r.Route("/users", h.MountResetRoutes)
	return r, f
}

func post(h http.Handler, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func decode(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body
}

const registerBody = `{"username":"ivy","email":"ivy@example.com","password":"s3cret!","securityQuestion":"City?","securityQuestionAnswer":"Paris"}`

func TestRegisterAndLoginEndpoints(t *testing.T) {
	h, _ := newAuthRouter(t)

	res := post(h, "/auth/register", "", registerBody)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	userID := decode(t, res)["userId"]
	assert.NotEmpty(t, userID)

	res = post(h, "/auth/register", "", registerBody)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, decode(t, res)["message"], "already exists")

	res = post(h, "/auth/register", "", `{"username":"jo","email":"jo@example.com","password":"123","securityQuestion":"q","securityQuestionAnswer":"a"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = post(h, "/auth/login", "", `{"username":"ivy","password":"s3cret!"}`)
	require.Equal(t, http.StatusOK, res.Code)
	body := decode(t, res)
	assert.Equal(t, userID, body["userId"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	assert.Equal(t, http.StatusNoContent, post(h, "/auth/logout", token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, post(h, "/auth/logout", "", "").Code)
}

func TestLoginEndpointErrors(t *testing.T) {
	h, _ := newAuthRouter(t)
	require.Equal(t, http.StatusCreated, post(h, "/auth/register", "", registerBody).Code)

	assert.Equal(t, http.StatusUnauthorized, post(h, "/auth/login", "", `{"username":"ghost","password":"s3cret!"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(h, "/auth/login", "", `{"username":"ivy","password":"nope-nope"}`).Code)

	res := post(h, "/auth/login", "", `{"username":"ivy"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "password is required", decode(t, res)["message"])
}

func TestPasswordResetEndpoints(t *testing.T) {
	h, _ := newAuthRouter(t)
	require.Equal(t, http.StatusCreated, post(h, "/auth/register", "", registerBody).Code)

	res := post(h, "/users/request-password-reset", "", `{"username":"ivy"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "City?", decode(t, res)["securityQuestion"])
	assert.Equal(t, http.StatusNotFound, post(h, "/users/request-password-reset", "", `{"username":"ghost"}`).Code)

	assert.Equal(t, http.StatusBadRequest, post(h, "/users/verify-security-question", "", `{"username":"ivy","securityQuestionAnswer":"Rome"}`).Code)
	assert.Equal(t, http.StatusNotFound, post(h, "/users/verify-security-question", "", `{"username":"ghost","securityQuestionAnswer":"Paris"}`).Code)

	res = post(h, "/users/verify-security-question", "", `{"username":"ivy","securityQuestionAnswer":"paris "}`)
	require.Equal(t, http.StatusOK, res.Code)
	resetToken, _ := decode(t, res)["token"].(string)
	require.NotEmpty(t, resetToken)

	assert.Equal(t, http.StatusUnauthorized, post(h, "/users/reset-password", "", `{"password":"new-pass"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, "/users/reset-password", resetToken, `{"password":"123"}`).Code)

	res = post(h, "/users/reset-password", resetToken, `{"password":"new-pass"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "password has been reset", decode(t, res)["message"])

	assert.Equal(t, http.StatusUnauthorized, post(h, "/users/reset-password", resetToken, `{"password":"again-pass"}`).Code)

	assert.Equal(t, http.StatusOK, post(h, "/auth/login", "", `{"username":"ivy","password":"new-pass"}`).Code)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	h, _ := newAuthRouter(t)

	body := `{"username":"max","email":"max@example.com","password":"` + strings.Repeat("x", 80) +
		`","securityQuestion":"City?","securityQuestionAnswer":"Paris"}`
	res := post(h, "/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, res.Code, res.Body.String())
	assert.Contains(t, decode(t, res)["message"], "at most 72 bytes")
}

func TestResetFlowFieldNames(t *testing.T) {
	h, _ := newAuthRouter(t)
	require.Equal(t, http.StatusCreated, post(h, "/auth/register", "", registerBody).Code)

	res := post(h, "/users/verify-security-question", "", `{"username":"ivy","answer":"Paris"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, decode(t, res)["message"], "securityQuestionAnswer")
}
