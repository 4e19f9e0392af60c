package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/handler"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// MockAuthenticator records the credentials it was called with and returns
// whatever the test configured.
type MockAuthenticator struct {
	CapturedEmail    string
	CapturedPassword string
	ReturnRes        *service.AuthResult
	ReturnErr        error
}

func (m *MockAuthenticator) Register(_ context.Context, email, password string) (*service.AuthResult, error) {
	m.CapturedEmail, m.CapturedPassword = email, password
	return m.ReturnRes, m.ReturnErr
}

func (m *MockAuthenticator) Login(_ context.Context, email, password string) (*service.AuthResult, error) {
	m.CapturedEmail, m.CapturedPassword = email, password
	return m.ReturnRes, m.ReturnErr
}

func okResult() *service.AuthResult {
	return &service.AuthResult{User: &model.User{ID: "u1", Email: "a@a.com"}, Token: "tok.en.value"}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestAuthHandler_HandleRegister(t *testing.T) {
	logger := testLogger()

	t.Run("success sets token header", func(t *testing.T) {
		m := &MockAuthenticator{ReturnRes: okResult()}
		h := handler.NewAuthHandler(m, "", logger)

		req := httptest.NewRequest(http.MethodPost, "/register",
			bytes.NewBufferString(`{"email":"a@a.com","password":"password"}`))
		rr := httptest.NewRecorder()
		h.HandleRegister(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "tok.en.value", rr.Header().Get("Authorization"))
		assert.Equal(t, "User created", decodeBody(t, rr)["message"])
		assert.Equal(t, "a@a.com", m.CapturedEmail)
		assert.Equal(t, "password", m.CapturedPassword)
	})

	t.Run("custom header", func(t *testing.T) {
		m := &MockAuthenticator{ReturnRes: okResult()}
		h := handler.NewAuthHandler(m, "X-Auth-Token", logger)

		req := httptest.NewRequest(http.MethodPost, "/register",
			bytes.NewBufferString(`{"email":"a@a.com","password":"password"}`))
		rr := httptest.NewRecorder()
		h.HandleRegister(rr, req)

		assert.Equal(t, "tok.en.value", rr.Header().Get("X-Auth-Token"))
		assert.Empty(t, rr.Header().Get("Authorization"))
	})

	t.Run("duplicate email is 409", func(t *testing.T) {
		m := &MockAuthenticator{ReturnErr: apperror.Conflict("User", "already exists")}
		h := handler.NewAuthHandler(m, "", logger)

		req := httptest.NewRequest(http.MethodPost, "/register",
			bytes.NewBufferString(`{"email":"a@a.com","password":"password"}`))
		rr := httptest.NewRecorder()
		h.HandleRegister(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Empty(t, rr.Header().Get("Authorization"))
		assert.Equal(t, "conflict", decodeBody(t, rr)["error"])
	})

	t.Run("store failure is a generic 500", func(t *testing.T) {
		m := &MockAuthenticator{ReturnErr: errors.New("sqlite: disk I/O error at /var/lib/notes.db")}
		h := handler.NewAuthHandler(m, "", logger)

		req := httptest.NewRequest(http.MethodPost, "/register",
			bytes.NewBufferString(`{"email":"a@a.com","password":"password"}`))
		rr := httptest.NewRecorder()
		h.HandleRegister(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "sqlite")
		assert.Equal(t, "An internal error occurred", decodeBody(t, rr)["message"])
	})

	t.Run("invalid JSON is 400", func(t *testing.T) {
		m := &MockAuthenticator{}
		h := handler.NewAuthHandler(m, "", logger)

		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(`{"email":`))
		rr := httptest.NewRecorder()
		h.HandleRegister(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, m.CapturedEmail, "service should not be called")
	})
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	logger := testLogger()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"success", nil, http.StatusOK, ""},
		{"bad password", apperror.Forbidden("Bad password"), http.StatusForbidden, "forbidden"},
		{"unknown email", apperror.NotFound("User"), http.StatusNotFound, "not_found"},
		{"missing fields", apperror.ValidationFailed("email", "email is required"), http.StatusBadRequest, "validation_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &MockAuthenticator{ReturnErr: tc.err}
			if tc.err == nil {
				m.ReturnRes = okResult()
			}
			h := handler.NewAuthHandler(m, "", logger)

			req := httptest.NewRequest(http.MethodPost, "/login",
				bytes.NewBufferString(`{"email":"a@a.com","password":"password"}`))
			rr := httptest.NewRecorder()
			h.HandleLogin(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			body := decodeBody(t, rr)
			if tc.err == nil {
				assert.Equal(t, "OK", body["message"])
				assert.Equal(t, "tok.en.value", rr.Header().Get("Authorization"))
				return
			}
			assert.Equal(t, tc.wantError, body["error"])
			assert.Empty(t, rr.Header().Get("Authorization"))
		})
	}
}
