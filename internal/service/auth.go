// Package service: authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Register: validate credentials, hash the password once, store the user, issue a token
//   - Login: look the user up by email, verify the password, issue a fresh token
//   - Keep every auth rule in one place, away from HTTP concerns
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// AuthService handles registration and login.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - tokens     *auth.TokenService         → issue JWTs
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// AuthResult is returned by Register and Login.
// It bundles the user record and the issued JWT together so the handler
// can set the response header and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an account and returns a token for it.
//
// ORDER OF OPERATIONS:
//  1. Validate input (cheap, no I/O)
//  2. Hash the password: exactly once, before the insert
//  3. Insert; the store's UNIQUE(email) turns a taken email into ErrConflict
//  4. Issue a token whose subject is the new user's ID
//
// Step 2 runs even for an email that turns out to be taken. Checking first
// would need a second query and still race with a concurrent registration.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and returns a fresh token.
//
// OUTCOMES:
//   - unknown email   → apperror.ErrNotFound  ("User not found", 404)
//   - wrong password  → apperror.ErrForbidden ("Bad password", 403)
//   - success         → a new token; earlier tokens stay valid
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		s.logger.Info("login rejected: bad password", slog.String("userID", user.ID))
		return nil, apperror.Forbidden("Bad password")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// validateCredentials returns the normalised email.
//
// Emails are trimmed and lower-cased so "Alice@Example.com " and
// "alice@example.com" are one account. Passwords are used byte for byte.
func validateCredentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return "", apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return email, nil
}
