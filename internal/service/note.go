// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// DEPENDENCY INJECTION:
// NoteService takes a repository.NoteRepository (interface), NOT a
// *sqlite.DB (concrete type). Tests pass an in-memory fake; production
// passes sqlite or postgres depending on DB_DRIVER.
//
// IDENTITY IS A PARAMETER:
// Every NoteService method takes the caller's userID explicitly. The handler
// gets it from auth.UserIDFromContext (which only RequireAuth can populate),
// and nothing here ever reads an owner from request data.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// NoteService handles business logic for notes.
type NoteService struct {
	repo   repository.NoteRepository
	logger *slog.Logger
}

// NewNoteService creates a new NoteService.
func NewNoteService(repo repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and saves a new note owned by userID.
//
// Title and body are required. Tags are optional; blank tags are dropped
// and a missing list is stored as [].
func (s *NoteService) Create(ctx context.Context, userID, title, body string, tags []string) (*model.Note, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperror.ValidationFailed("body", "body is required")
	}

	note := &model.Note{
		OwnerID: userID,
		Title:   title,
		Body:    body,
		Tags:    cleanTags(tags),
	}

	if err := s.repo.CreateNote(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created",
		slog.String("userID", userID),
		slog.String("noteID", note.ID),
	)

	return note, nil
}

// List returns all of userID's notes in insertion order.
func (s *NoteService) List(ctx context.Context, userID string) ([]model.Note, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}

	notes, err := s.repo.ListNotes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// Get returns one of userID's notes.
//
// A malformed id, an id that doesn't exist and an id that belongs to
// someone else all return the same apperror.NotFound("Note").
func (s *NoteService) Get(ctx context.Context, userID, id string) (*model.Note, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	if !validID(id) {
		return nil, apperror.NotFound("Note")
	}

	// NotFound from the repo is already a proper apperror; pass it through.
	return s.repo.GetNote(ctx, userID, id)
}

// Update applies a partial update to one of userID's notes.
//
// A nil field leaves the stored value alone. A present title or body must
// not be blank. An update with no fields at all returns the note unchanged.
func (s *NoteService) Update(ctx context.Context, userID, id string, upd model.NoteUpdate) (*model.Note, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	if !validID(id) {
		return nil, apperror.NotFound("Note")
	}

	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" {
			return nil, apperror.ValidationFailed("title", "title must not be empty")
		}
		upd.Title = &t
	}
	if upd.Body != nil && strings.TrimSpace(*upd.Body) == "" {
		return nil, apperror.ValidationFailed("body", "body must not be empty")
	}
	if upd.Tags != nil {
		tags := cleanTags(*upd.Tags)
		upd.Tags = &tags
	}

	if upd.IsEmpty() {
		return s.repo.GetNote(ctx, userID, id)
	}

	note, err := s.repo.UpdateNote(ctx, userID, id, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("note updated",
		slog.String("userID", userID),
		slog.String("noteID", id),
	)
	return note, nil
}

// Delete removes one of userID's notes.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return apperror.Unauthorized()
	}
	if !validID(id) {
		return apperror.NotFound("Note")
	}

	if err := s.repo.DeleteNote(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("note deleted",
		slog.String("userID", userID),
		slog.String("noteID", id),
	)
	return nil
}

// Search returns userID's notes matching at least one whitespace-separated
// term of query. A blank query matches nothing and returns an empty list.
func (s *NoteService) Search(ctx context.Context, userID, query string) ([]model.Note, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}

	terms := repository.SearchTerms(query)
	if len(terms) == 0 {
		return []model.Note{}, nil
	}

	notes, err := s.repo.SearchNotes(ctx, userID, terms)
	if err != nil {
		return nil, fmt.Errorf("searching notes: %w", err)
	}
	return notes, nil
}

// validID reports whether id is a structurally valid xid.
//
// Checking shape before querying means garbage never reaches SQL, and the
// caller gets the same NotFound a well-formed unknown id would produce.
func validID(id string) bool {
	_, err := xid.FromString(id)
	return err == nil
}

// cleanTags trims each tag and drops empty ones. Never returns nil.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
