package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops implementing repository.NoteRepository, this line fails to
// compile instead of failing later where *DB is passed to the service.
var _ repository.NoteRepository = (*DB)(nil)

const noteColumns = `id, owner_id, title, body, tags, created_at, updated_at`

// CreateNote inserts a note for note.OwnerID.
//
// ID GENERATION WITH xid:
// xid generates globally unique IDs that are 20 chars, URL-safe, and
// roughly sortable by creation time. Example: "cv37rs3pp9olc6atsptg".
// The service layer validates incoming ids with xid.FromString, so a
// request carrying anything that isn't an xid never reaches a query.
func (db *DB) CreateNote(ctx context.Context, note *model.Note) error {
	if note.OwnerID == "" {
		return errors.New("sqlite: creating note: owner is required")
	}

	tags, err := repository.EncodeTags(note.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	now := time.Now().UTC()
	id := xid.New().String()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		note.OwnerID,
		note.Title,
		note.Body,
		tags,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	note.ID = id
	note.CreatedAt = now
	note.UpdatedAt = now
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return nil
}

// ListNotes returns every note owned by ownerID in insertion order.
//
// ORDER BY rowid:
// SQLite gives every row of an ordinary table a hidden, monotonically
// assigned integer rowid. Ordering by it is exactly insertion order, which
// created_at can't guarantee (two inserts in the same clock tick tie).
func (db *DB) ListNotes(ctx context.Context, ownerID string) ([]model.Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE owner_id = ?
		 ORDER BY rowid`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes: %w", err)
	}
	return repository.CollectNotes(rows, "sqlite: listing notes")
}

// GetNote returns one note, only if ownerID owns it.
//
// WHERE id = ? AND owner_id = ?:
// Both conditions sit in the same WHERE clause. Someone else's note simply
// doesn't match, so it produces sql.ErrNoRows exactly like a missing note.
func (db *DB) GetNote(ctx context.Context, ownerID, id string) (*model.Note, error) {
	n, err := repository.ScanNote(db.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE id = ? AND owner_id = ?`,
		id,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Note")
		}
		return nil, fmt.Errorf("sqlite: getting note: %w", err)
	}
	return n, nil
}

// UpdateNote applies a partial update and returns the note as stored.
//
// COALESCE(?, column):
// A nil field in upd is bound as SQL NULL, and COALESCE(NULL, title) is
// just title, so omitted fields keep their value without a separate read.
//
// The UPDATE and the read-back run in one transaction, so the returned note
// is exactly what this update produced.
func (db *DB) UpdateNote(ctx context.Context, ownerID, id string, upd model.NoteUpdate) (*model.Note, error) {
	var tags any
	if upd.Tags != nil {
		encoded, err := repository.EncodeTags(*upd.Tags)
		if err != nil {
			return nil, fmt.Errorf("sqlite: updating note: %w", err)
		}
		tags = encoded
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	res, err := tx.ExecContext(ctx,
		`UPDATE notes
		 SET title      = COALESCE(?, title),
		     body       = COALESCE(?, body),
		     tags       = COALESCE(?, tags),
		     updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		repository.Nullable(upd.Title),
		repository.Nullable(upd.Body),
		tags,
		time.Now().UTC(),
		id,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("Note")
	}

	n, err := repository.ScanNote(tx.QueryRowContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE id = ? AND owner_id = ?`,
		id,
		ownerID,
	))
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading updated note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing update: %w", err)
	}
	return n, nil
}

// DeleteNote removes a note owned by ownerID.
//
// RowsAffected() == 0 means no row matched both id AND owner; either it
// never existed or belongs to someone else. Both are apperror.ErrNotFound.
func (db *DB) DeleteNote(ctx context.Context, ownerID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND owner_id = ?`,
		id,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("Note")
	}
	return nil
}

// SearchNotes returns the owner's notes where at least one term appears
// in the title, the body, or one of the tags.
//
// For terms ["go", "db"] the WHERE clause is:
//
//	owner_id = ?
//	AND ((title LIKE ? OR body LIKE ? OR EXISTS (... json_each(tags) ...))
//	  OR (title LIKE ? OR body LIKE ? OR EXISTS (... json_each(tags) ...)))
//
// The term groups are ORed inside one parenthesised clause, so the owner
// condition still applies to every match.
//
// SQLite's LIKE is case-insensitive for ASCII letters only; non-ASCII
// letters must match case exactly on this backend.
func (db *DB) SearchNotes(ctx context.Context, ownerID string, terms []string) ([]model.Note, error) {
	if len(terms) == 0 {
		return []model.Note{}, nil
	}

	var q strings.Builder
	q.WriteString(`SELECT ` + noteColumns + ` FROM notes WHERE owner_id = ?`)
	args := []any{ownerID}

	q.WriteString(` AND (`)
	for i, term := range terms {
		if i > 0 {
			q.WriteString(` OR `)
		}
		q.WriteString(`(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'` +
			` OR EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value LIKE ? ESCAPE '\'))`)
		p := repository.LikePattern(term)
		args = append(args, p, p, p)
	}
	q.WriteString(`) ORDER BY rowid`)

	rows, err := db.conn.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching notes: %w", err)
	}
	return repository.CollectNotes(rows, "sqlite: searching notes")
}
