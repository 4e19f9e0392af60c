// Package repository defines the storage interfaces the service layer
// depends on, plus helpers shared by every SQL backend.
//
// WHY INTERFACES HERE?
// The service layer talks to repository.NoteRepository, never to *sqlite.DB
// or *postgres.DB. That lets server.New pick a backend at startup, and lets
// service tests swap in a hand-written fake with no database at all.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sakif/notes-api/internal/model"
)

// UserRepository stores registered accounts.
//
// CreateUser returns an apperror.ErrConflict error if the email is taken.
// The two getters return apperror.ErrNotFound if no user matches.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// NoteRepository stores notes.
//
// OWNER SCOPING:
// Every method except CreateNote takes ownerID, and every query it runs has
// "owner_id = ?" in the same WHERE clause as the rest of its criteria. A note
// that exists under another owner is indistinguishable from one that doesn't
// exist: both return apperror.ErrNotFound.
type NoteRepository interface {
	// CreateNote assigns note.ID and timestamps. note.OwnerID must be set.
	CreateNote(ctx context.Context, note *model.Note) error

	// ListNotes returns the owner's notes in insertion order.
	ListNotes(ctx context.Context, ownerID string) ([]model.Note, error)

	GetNote(ctx context.Context, ownerID, id string) (*model.Note, error)

	// UpdateNote applies the non-nil fields of upd and returns the result.
	UpdateNote(ctx context.Context, ownerID, id string, upd model.NoteUpdate) (*model.Note, error)

	DeleteNote(ctx context.Context, ownerID, id string) error

	// SearchNotes returns the owner's notes matching any of the terms, in
	// insertion order. An empty terms slice returns no notes.
	SearchNotes(ctx context.Context, ownerID string, terms []string) ([]model.Note, error)
}

// Pinger is satisfied by both store backends; the health probe uses it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SearchTerms splits a free-text query into lowercase terms on whitespace.
// A blank query yields nil.
//
// Example: "  Go   Tips " → ["go", "tips"]
func SearchTerms(q string) []string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return nil
	}
	terms := make([]string, len(fields))
	for i, f := range fields {
		terms[i] = strings.ToLower(f)
	}
	return terms
}

// LikeEscape is the escape character used by LikePattern. Queries must
// declare it with ESCAPE '\'.
const LikeEscape = `\`

// LikePattern turns a term into a "contains" LIKE pattern, escaping the
// wildcard characters so "50%" matches the literal text "50%" and not
// "50 anything".
func LikePattern(term string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return "%" + r.Replace(term) + "%"
}

// EncodeTags serialises a tag list for the tags column. A nil slice is
// stored as "[]" so reads always produce a non-nil slice.
func EncodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

// DecodeTags is the inverse of EncodeTags. An empty column decodes to [].
func DecodeTags(raw string) ([]string, error) {
	tags := []string{}
	if strings.TrimSpace(raw) == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}
