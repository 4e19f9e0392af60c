package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/model"
)

// ErrIdentityNotFound means a token was genuinely signed by us but the user
// it names no longer exists (or never did). The gate treats it exactly like
// a bad signature: 401, no detail.
var ErrIdentityNotFound = errors.New("auth: identity not found")

// UserLookup is the slice of the user store the Resolver needs.
//
// Defined here, where it's consumed, rather than importing the repository
// package; auth stays free of storage concerns, and tests can pass a map.
// repository.UserRepository satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver turns a verified token subject into a live user ID.
//
// WHY A SEPARATE STEP?
// A valid signature only proves that WE issued the token at some point. It
// says nothing about whether the account still exists. Skipping this lookup
// would let a deleted user keep working with an old token, so the gate
// always runs it, on every request, with no caching between requests.
type Resolver struct {
	users UserLookup
}

// NewResolver creates a Resolver backed by the given user lookup.
func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// Resolve loads the user named by subject.
//
// Returns:
//   - (userID, nil) if the user exists
//   - ("", ErrIdentityNotFound) if the store has no such user
//   - ("", wrapped error) if the store itself failed; the gate reports that
//     as a 500, not a 401, because the caller did nothing wrong
func (r *Resolver) Resolve(ctx context.Context, subject string) (string, error) {
	if subject == "" {
		return "", ErrIdentityNotFound
	}

	user, err := r.users.GetUserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", ErrIdentityNotFound
		}
		return "", fmt.Errorf("auth: resolving identity: %w", err)
	}
	if user == nil || user.ID == "" {
		return "", ErrIdentityNotFound
	}

	return user.ID, nil
}
