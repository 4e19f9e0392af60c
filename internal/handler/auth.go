package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/service"
)

// Authenticator is the slice of service.AuthService the handler needs.
// Tests pass a fake; production passes *service.AuthService.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
}

// AuthHandler serves registration and login.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account, return a token
//   - HandleLogin    → check credentials, return a fresh token
//
// TOKEN TRANSPORT:
// The token goes back in a response header (Authorization by default, see
// TOKEN_HEADER) and the client sends it back in the same header. The body
// only carries a short acknowledgement.
type AuthHandler struct {
	auth   Authenticator
	header string
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. An empty header means
// auth.DefaultHeader.
func NewAuthHandler(svc Authenticator, header string, logger *slog.Logger) *AuthHandler {
	if header == "" {
		header = auth.DefaultHeader
	}
	return &AuthHandler{
		auth:   svc,
		header: header,
		logger: logger,
	}
}

// credentialsRequest is the body of both register and login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /register (alias POST /auth/register)
// REQUEST BODY: {"email": "a@a.com", "password": "password"}
// RESPONSE: 200, token header set, {"message": "User created"}
// ERRORS: 400 invalid body, 409 email taken, 500 store failure
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("rejected request body", slog.String("path", r.URL.Path))
		writeError(w, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set(h.header, res.Token)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User created"})
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /login (alias POST /auth/login)
// REQUEST BODY: {"email": "a@a.com", "password": "password"}
// RESPONSE: 200, token header set, {"message": "OK"}
// ERRORS: 400 invalid body, 403 bad password, 404 unknown email
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("rejected request body", slog.String("path", r.URL.Path))
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set(h.header, res.Token)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "OK"})
}
