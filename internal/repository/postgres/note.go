package postgres

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

var _ repository.NoteRepository = (*DB)(nil)

// tags is JSONB; casting to text lets it scan into a plain string.
const noteColumns = `id, owner_id, title, body, tags::text, created_at, updated_at`

func (db *DB) CreateNote(ctx context.Context, note *model.Note) error {
	if note.OwnerID == "" {
		return errors.New("postgres: creating note: owner is required")
	}

	tags, err := repository.EncodeTags(note.Tags)
	if err != nil {
		return fmt.Errorf("postgres: creating note: %w", err)
	}

	now := time.Now().UTC()
	id := xid.New().String()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO notes (id, owner_id, title, body, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
		id,
		note.OwnerID,
		note.Title,
		note.Body,
		tags,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating note: %w", err)
	}

	note.ID = id
	note.CreatedAt = now
	note.UpdatedAt = now
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return nil
}

// ListNotes orders by the seq column, which BIGSERIAL assigns in insert order.
func (db *DB) ListNotes(ctx context.Context, ownerID string) ([]model.Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE owner_id = $1
		 ORDER BY seq`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing notes: %w", err)
	}
	return repository.CollectNotes(rows, "postgres: listing notes")
}

func (db *DB) GetNote(ctx context.Context, ownerID, id string) (*model.Note, error) {
	n, err := repository.ScanNote(db.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE id = $1 AND owner_id = $2`,
		id,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Note")
		}
		return nil, fmt.Errorf("postgres: getting note: %w", err)
	}
	return n, nil
}

// UpdateNote applies a partial update in one statement.
//
// UPDATE ... RETURNING:
// Postgres hands back the updated row from the UPDATE itself, so there's no
// window between writing and reading. No row returned means no note matched
// id AND owner, which is apperror.ErrNotFound.
func (db *DB) UpdateNote(ctx context.Context, ownerID, id string, upd model.NoteUpdate) (*model.Note, error) {
	var tags any
	if upd.Tags != nil {
		encoded, err := repository.EncodeTags(*upd.Tags)
		if err != nil {
			return nil, fmt.Errorf("postgres: updating note: %w", err)
		}
		tags = encoded
	}

	n, err := repository.ScanNote(db.conn.QueryRowContext(ctx,
		`UPDATE notes
		 SET title      = COALESCE($1::text, title),
		     body       = COALESCE($2::text, body),
		     tags       = COALESCE($3::jsonb, tags),
		     updated_at = $4
		 WHERE id = $5 AND owner_id = $6
		 RETURNING `+noteColumns,
		repository.Nullable(upd.Title),
		repository.Nullable(upd.Body),
		tags,
		time.Now().UTC(),
		id,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Note")
		}
		return nil, fmt.Errorf("postgres: updating note: %w", err)
	}
	return n, nil
}

func (db *DB) DeleteNote(ctx context.Context, ownerID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND owner_id = $2`,
		id,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("Note")
	}
	return nil
}

// SearchNotes matches the terms against title, body and tags with ILIKE,
// which (unlike SQLite's LIKE) folds case for non-ASCII letters too. A note
// matches when any term does. Each term is bound once and referenced three
// times.
func (db *DB) SearchNotes(ctx context.Context, ownerID string, terms []string) ([]model.Note, error) {
	if len(terms) == 0 {
		return []model.Note{}, nil
	}

	var q strings.Builder
	q.WriteString(`SELECT ` + noteColumns + ` FROM notes WHERE owner_id = $1`)
	args := []any{ownerID}

	q.WriteString(` AND (`)
	for i, term := range terms {
		if i > 0 {
			q.WriteString(` OR `)
		}
		args = append(args, repository.LikePattern(term))
		p := fmt.Sprintf("$%d", len(args))
		q.WriteString(`(title ILIKE ` + p + ` ESCAPE '\' OR body ILIKE ` + p + ` ESCAPE '\'` +
			` OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(notes.tags) AS t(tag) WHERE t.tag ILIKE ` + p + ` ESCAPE '\'))`)
	}
	q.WriteString(`) ORDER BY seq`)

	rows, err := db.conn.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: searching notes: %w", err)
	}
	return repository.CollectNotes(rows, "postgres: searching notes")
}
