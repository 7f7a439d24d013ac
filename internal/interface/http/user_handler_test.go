package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltauth/volt/internal/application"
	"github.com/voltauth/volt/internal/infrastructure/memory"
	"github.com/voltauth/volt/pkg/crypto"
	"github.com/voltauth/volt/pkg/validation"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestRouter(t *testing.T) (*gin.Engine, *memory.UsersDao) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := quietLogger()
	dao := memory.NewUsersDao()
	users := application.NewUserService(dao, crypto.NewHashService(crypto.AlgorithmSHA256), true, false, logger)
	verification := &application.VerificationService{
		Users:     users,
		AppName:   "volt",
		VerifyURL: "https://volt.example.com/api/verify",
		Logger:    logger,
	}

	uh := NewUserHandler(users, logger)
	vh := NewVerificationHandler(verification, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/users", uh.Create)
	api.GET("/users", uh.Get)
	api.PUT("/users", uh.Update)
	api.DELETE("/users", uh.Delete)
	api.POST("/verify", vh.SendEmail)
	api.GET("/verify", vh.Verify)
	api.POST("/verify/reset", vh.Reset)
	api.GET("/verify/success", vh.Success)
	return r, dao
}

func doJSON(t *testing.T, r *gin.Engine, method, target, body, password string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if password != "" {
		req.Header.Set("password", password)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

const aliceBody = `{
	"email": {"address": "alice@b.com"},
	"password": "pw",
	"properties": {"name": "alice"}
}`

func createAlice(t *testing.T, r *gin.Engine) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/users", aliceBody, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateUser(t *testing.T) {
	r, dao := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/users", aliceBody, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	envelope := decodeEnvelope(t, w)
	assert.Equal(t, true, envelope["success"])
	data := envelope["data"].(map[string]any)
	assert.NotEqual(t, "pw", data["password"], "password is hashed server-side")
	assert.NotZero(t, data["creationTime"])

	_, err := dao.FindByEmail(context.Background(), "alice@b.com")
	assert.NoError(t, err)
}

func TestCreateUserInvalidPayload(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing password", `{"email": {"address": "a@b.com"}}`},
		{"bad address", `{"email": {"address": "not-an-email"}, "password": "pw"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/users", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateDuplicateUser(t *testing.T) {
	r, _ := newTestRouter(t)
	createAlice(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/users", aliceBody, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, envelope["message"], "alice@b.com")
}

func TestGetUser(t *testing.T) {
	r, _ := newTestRouter(t)
	createAlice(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/users?email=alice@b.com", "", "pw")
	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]any)
	email := data["email"].(map[string]any)
	assert.Equal(t, "alice@b.com", email["address"])
}

func TestGetUserRequiresEmail(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/users", "", "pw")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserWrongPassword(t *testing.T) {
	r, _ := newTestRouter(t)
	createAlice(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/users?email=alice@b.com", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/users?email=ghost@b.com", "", "pw")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUser(t *testing.T) {
	r, _ := newTestRouter(t)
	createAlice(t, r)

	body := `{
		"email": {"address": "alice@b.com"},
		"password": "new-pw",
		"properties": {"name": "alice", "team": "core"}
	}`
	w := doJSON(t, r, http.MethodPut, "/api/users?email=alice@b.com", body, "pw")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The old password no longer authenticates.
	w = doJSON(t, r, http.MethodGet, "/api/users?email=alice@b.com", "", "pw")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/users?email=alice@b.com", "", "new-pw")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateUserChangesEmail(t *testing.T) {
	r, _ := newTestRouter(t)
	createAlice(t, r)

	body := `{
		"email": {"address": "alice@example.com"},
		"password": "pw",
		"properties": {"name": "alice"}
	}`
	w := doJSON(t, r, http.MethodPut, "/api/users?email=alice@b.com", body, "pw")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/users?email=alice@b.com", "", "pw")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/users?email=alice@example.com", "", "pw")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateUserEmailChangeConflict(t *testing.T) {
	r, _ := newTestRouter(t)
	createAlice(t, r)

	bobBody := `{"email": {"address": "bob@b.com"}, "password": "pw"}`
	w := doJSON(t, r, http.MethodPost, "/api/users", bobBody, "")
	require.Equal(t, http.StatusCreated, w.Code)

	// Alice tries to take bob's address.
	body := `{"email": {"address": "bob@b.com"}, "password": "pw", "properties": {"name": "alice"}}`
	w = doJSON(t, r, http.MethodPut, "/api/users?email=alice@b.com", body, "pw")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteUser(t *testing.T) {
	r, _ := newTestRouter(t)
	createAlice(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/users?email=alice@b.com", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/users?email=alice@b.com", "", "pw")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/users?email=alice@b.com", "", "pw")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerificationFlow(t *testing.T) {
	r, dao := newTestRouter(t)
	createAlice(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/verify?email=alice@b.com", "", "pw")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := dao.FindByEmail(context.Background(), "alice@b.com")
	require.NoError(t, err)
	token := stored.Email.VerificationToken
	require.NotEmpty(t, token)

	w = doJSON(t, r, http.MethodGet, "/api/verify?email=alice@b.com&token=bogus", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/verify?email=alice@b.com&token="+token, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]any)
	email := data["email"].(map[string]any)
	assert.Equal(t, true, email["verified"])

	w = doJSON(t, r, http.MethodPost, "/api/verify/reset?email=alice@b.com", "", "pw")
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err = dao.FindByEmail(context.Background(), "alice@b.com")
	require.NoError(t, err)
	assert.False(t, stored.Email.Verified)
	assert.Empty(t, stored.Email.VerificationToken)
}

func TestVerifyRedirectsBrowserFlows(t *testing.T) {
	r, dao := newTestRouter(t)
	createAlice(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/verify?email=alice@b.com", "", "pw")
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := dao.FindByEmail(context.Background(), "alice@b.com")
	require.NoError(t, err)

	target := "/api/verify?email=alice@b.com&token=" + stored.Email.VerificationToken + "&response_type=html"
	w = doJSON(t, r, http.MethodGet, target, "", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/api/verify/success", w.Header().Get("Location"))
}

func TestVerifySuccessPage(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/verify/success", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "verified")
}

func TestVerifyRequiresParameters(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/verify?email=alice@b.com", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
