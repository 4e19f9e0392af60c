package repository

import (
	"database/sql"
	"fmt"

	"github.com/sakif/notes-api/internal/model"
)

// RowScanner is satisfied by both *sql.Row and *sql.Rows, so one scan
// function serves single-row and multi-row queries.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanNote reads one note. Both backends select the columns in the order
// id, owner_id, title, body, tags, created_at, updated_at, with tags as
// JSON text.
func ScanNote(s RowScanner) (*model.Note, error) {
	var (
		n    model.Note
		tags string
	)
	if err := s.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &tags, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	decoded, err := DecodeTags(tags)
	if err != nil {
		return nil, err
	}
	n.Tags = decoded
	return &n, nil
}

// CollectNotes drains rows into a non-nil slice and closes them. op
// prefixes any error, e.g. "sqlite: listing notes".
// A non-nil empty slice encodes as [] in JSON, not null.
func CollectNotes(rows *sql.Rows, op string) ([]model.Note, error) {
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		n, err := ScanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scanning: %w", op, err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterating: %w", op, err)
	}
	return notes, nil
}

// Nullable binds a nil *string as SQL NULL.
func Nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
