// Package auth provides credential hashing, token issuance and the request
// gate for the notes API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client calls POST /register (or /auth/register) with {email, password}
//  2. Server hashes the password (bcrypt), stores the user, issues a token
//  3. Client calls POST /login (or /auth/login) with the same credentials
//  4. Server verifies the password and returns a fresh token in a response header
//  5. On /notes requests the client sends that header back; RequireAuth
//     validates the token, loads the user it names, and puts the user ID in
//     the request context
//
// WHY JWT?
// JWT (JSON Web Token) is stateless; the server doesn't need to store session
// data. All the information needed (user ID, issuer, optional expiry) is
// inside the signed token. The signature ensures nobody can tamper with it
// without the secret key.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"<userID>","iss":"notes-api","iat":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is written into every token and required on validation, so tokens
// minted by another service sharing the secret are rejected.
const Issuer = "notes-api"

// MinSecretLength is the shortest JWT secret NewTokenService accepts.
const MinSecretLength = 16

// ErrInvalidToken is returned by Validate for every rejected token:
// bad signature, wrong algorithm, wrong issuer, expired, or no subject.
// Callers match it with errors.Is; the wrapped cause is for logs only.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations; keep it safe, rotate it
// periodically in production. Rotating the secret invalidates every token
// issued so far.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
//
// ttl controls the "exp" claim:
//   - ttl == 0 → tokens carry no expiry and stay valid until the secret changes
//   - ttl  > 0 → tokens expire ttl after issue
//
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	if ttl < 0 {
		return nil, errors.New("auth: token TTL must not be negative")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
//
// We use "sub" (Subject) to store the internal user ID, never the email.
// The ID is immutable, so a token keeps naming the same account even if
// the email it was registered with changes.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a new JWT for the given userID.
//
// Signing algorithm: HS256 (HMAC-SHA256)
//   - Symmetric: same key for signing and verifying
//   - Fast and simple: good for single-server deployments
func (s *TokenService) Generate(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a subject")
	}

	now := s.now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   Issuer,
		},
	}
	if s.ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string.
// Returns the userID (stored in the "sub" claim) if the token is valid.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//   - Issuer matches "notes-api"
//   - If an "exp" claim is present, it is in the future
//
// Validate does NOT check that the user still exists; that is the
// Resolver's job, done fresh on every request.
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. Passing jwt.WithValidMethods prevents this.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
	}
	if s.ttl > 0 {
		// A service configured with expiry must not accept expiry-less tokens
		// left over from a period when TTL was 0.
		opts = append(opts, jwt.WithExpirationRequired())
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		opts...,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	if c.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return c.Subject, nil
}
