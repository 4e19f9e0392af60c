package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/model"
)

// The in-memory database can't be made to fail on demand. These tests put
// go-sqlmock behind the same *DB to check how driver errors are wrapped
// and which ones become domain errors.

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})
	return NewFromConn(conn), mock
}

var (
	errDriver = errors.New("disk I/O error")
	fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
)

func TestCreateUser_DriverError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO users`).WillReturnError(errDriver)

	err := db.CreateUser(context.Background(), &model.User{Email: "a@example.com", PasswordHash: "h"})
	if !errors.Is(err, errDriver) {
		t.Fatalf("CreateUser() error = %v, want wrapped driver error", err)
	}
	if errors.Is(err, apperror.ErrConflict) {
		t.Error("a generic driver error must not be reported as a conflict")
	}
	if !strings.HasPrefix(err.Error(), "sqlite: ") {
		t.Errorf("error %q should carry the sqlite: prefix", err.Error())
	}
}

func TestCreateUser_UniqueViolationMessage(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"))

	err := db.CreateUser(context.Background(), &model.User{Email: "a@example.com", PasswordHash: "h"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestGetUserByID_DriverError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \?`).
		WithArgs("u-1").
		WillReturnError(errDriver)

	_, err := db.GetUserByID(context.Background(), "u-1")
	if !errors.Is(err, errDriver) || errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetUserByID() error = %v, want wrapped driver error", err)
	}
}

func TestListNotes_ScanError(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "owner_id", "title", "body", "tags", "created_at", "updated_at"}).
		AddRow("n1", "u1", "t", "b", "{broken json", "not-a-time", "not-a-time")
	mock.ExpectQuery(`SELECT .+ FROM notes\s+WHERE owner_id = \?\s+ORDER BY rowid`).
		WithArgs("u1").
		WillReturnRows(rows)

	if _, err := db.ListNotes(context.Background(), "u1"); err == nil {
		t.Fatal("ListNotes() should fail when a row can't be scanned")
	}
}

func TestListNotes_RowsError(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id"}).AddRow("n1").RowError(0, errDriver)
	mock.ExpectQuery(`SELECT .+ FROM notes`).WillReturnRows(rows)

	if _, err := db.ListNotes(context.Background(), "u1"); err == nil {
		t.Fatal("ListNotes() should surface a row iteration error")
	}
}

func TestUpdateNote_RollsBackWhenNothingMatched(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE notes`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := db.UpdateNote(context.Background(), "u1", "n1", model.NoteUpdate{})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("UpdateNote() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateNote_CommitError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE notes`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM notes`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "title", "body", "tags", "created_at", "updated_at"}).
			AddRow("n1", "u1", "t", "b", "[]", fixedTime, fixedTime),
	)
	mock.ExpectCommit().WillReturnError(errDriver)

	_, err := db.UpdateNote(context.Background(), "u1", "n1", model.NoteUpdate{})
	if !errors.Is(err, errDriver) {
		t.Fatalf("UpdateNote() error = %v, want commit error", err)
	}
}

func TestDeleteNote_DriverError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM notes WHERE id = \? AND owner_id = \?`).
		WithArgs("n1", "u1").
		WillReturnError(errDriver)

	err := db.DeleteNote(context.Background(), "u1", "n1")
	if !errors.Is(err, errDriver) || errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("DeleteNote() error = %v, want wrapped driver error", err)
	}
}

// Every term adds one parenthesised group with three patterns, and the
// groups are ORed inside the owner condition.
func TestSearchNotes_BuildsOneGroupPerTerm(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`owner_id = \? AND \(\(title LIKE .+ OR \(title LIKE .+\)\)\) ORDER BY rowid`).
		WithArgs("u1", "%go%", "%go%", "%go%", "%db%", "%db%", "%db%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "body", "tags", "created_at", "updated_at"}))

	got, err := db.SearchNotes(context.Background(), "u1", []string{"go", "db"})
	if err != nil {
		t.Fatalf("SearchNotes() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("SearchNotes() = %#v, want empty non-nil slice", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPing(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	db := NewFromConn(conn)

	mock.ExpectPing().WillReturnError(errDriver)
	if err := db.Ping(context.Background()); !errors.Is(err, errDriver) {
		t.Errorf("Ping() error = %v, want %v", err, errDriver)
	}
}
