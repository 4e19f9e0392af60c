package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/handler"
	"github.com/sakif/notes-api/internal/model"
)

// MockNoteStore captures the arguments of the last call so tests can check
// that the handler passed the context identity through untouched.
type MockNoteStore struct {
	CapturedUserID string
	CapturedID     string
	CapturedQuery  string
	CapturedUpdate model.NoteUpdate
	CapturedTitle  string
	CapturedTags   []string

	ReturnNote  *model.Note
	ReturnNotes []model.Note
	ReturnErr   error
}

func (m *MockNoteStore) Create(_ context.Context, userID, title, _ string, tags []string) (*model.Note, error) {
	m.CapturedUserID, m.CapturedTitle, m.CapturedTags = userID, title, tags
	return m.ReturnNote, m.ReturnErr
}

func (m *MockNoteStore) List(_ context.Context, userID string) ([]model.Note, error) {
	m.CapturedUserID = userID
	return m.ReturnNotes, m.ReturnErr
}

func (m *MockNoteStore) Get(_ context.Context, userID, id string) (*model.Note, error) {
	m.CapturedUserID, m.CapturedID = userID, id
	return m.ReturnNote, m.ReturnErr
}

func (m *MockNoteStore) Update(_ context.Context, userID, id string, upd model.NoteUpdate) (*model.Note, error) {
	m.CapturedUserID, m.CapturedID, m.CapturedUpdate = userID, id, upd
	return m.ReturnNote, m.ReturnErr
}

func (m *MockNoteStore) Delete(_ context.Context, userID, id string) error {
	m.CapturedUserID, m.CapturedID = userID, id
	return m.ReturnErr
}

func (m *MockNoteStore) Search(_ context.Context, userID, query string) ([]model.Note, error) {
	m.CapturedUserID, m.CapturedQuery = userID, query
	return m.ReturnNotes, m.ReturnErr
}

// newNoteRouter mounts the handler on a chi router so {id} is resolved the
// same way it is in production. The gate is replaced by a middleware that
// puts a fixed user id in the context.
func newNoteRouter(store *MockNoteStore) http.Handler {
	h := handler.NewNoteHandler(store, testLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), "alice")))
		})
	})
	r.Post("/notes", h.HandleCreate)
	r.Get("/notes", h.HandleList)
	r.Get("/notes/search", h.HandleSearch)
	r.Get("/notes/{id}", h.HandleGet)
	r.Put("/notes/{id}", h.HandleUpdate)
	r.Delete("/notes/{id}", h.HandleDelete)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, rd))
	return rr
}

func TestNoteHandler_HandleCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := &MockNoteStore{ReturnNote: &model.Note{ID: "n1"}}
		rr := do(t, newNoteRouter(store), http.MethodPost, "/notes",
			`{"title":"t","body":"b","tags":["x"],"owner":"mallory"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"Created note","note":"n1"}`, rr.Body.String())
		assert.Equal(t, "alice", store.CapturedUserID, "owner must come from the context, not the body")
		assert.Equal(t, "t", store.CapturedTitle)
		assert.Equal(t, []string{"x"}, store.CapturedTags)
	})

	t.Run("validation error is 400", func(t *testing.T) {
		store := &MockNoteStore{ReturnErr: apperror.ValidationFailed("title", "title is required")}
		rr := do(t, newNoteRouter(store), http.MethodPost, "/notes", `{"body":"b"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"validation_error","message":"title is required"}`, rr.Body.String())
	})

	t.Run("store failure is 500", func(t *testing.T) {
		store := &MockNoteStore{ReturnErr: errors.New("database is locked")}
		rr := do(t, newNoteRouter(store), http.MethodPost, "/notes", `{"title":"t","body":"b"}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "locked")
	})

	t.Run("invalid JSON is 400", func(t *testing.T) {
		store := &MockNoteStore{}
		rr := do(t, newNoteRouter(store), http.MethodPost, "/notes", `not json`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, store.CapturedUserID, "service should not be called")
	})
}

func TestNoteHandler_HandleList(t *testing.T) {
	t.Run("returns title, body and tags only", func(t *testing.T) {
		store := &MockNoteStore{ReturnNotes: []model.Note{
			{ID: "n1", OwnerID: "alice", Title: "t1", Body: "b1", Tags: []string{"x"}},
			{ID: "n2", OwnerID: "alice", Title: "t2", Body: "b2", Tags: []string{}},
		}}
		rr := do(t, newNoteRouter(store), http.MethodGet, "/notes", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t,
			`[{"title":"t1","body":"b1","tags":["x"]},{"title":"t2","body":"b2","tags":[]}]`,
			rr.Body.String())
	})

	t.Run("empty list is [] not null", func(t *testing.T) {
		store := &MockNoteStore{ReturnNotes: nil}
		rr := do(t, newNoteRouter(store), http.MethodGet, "/notes", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})
}

func TestNoteHandler_HandleGet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := &MockNoteStore{ReturnNote: &model.Note{ID: "n1", Title: "t", Body: "b", Tags: []string{"x"}}}
		rr := do(t, newNoteRouter(store), http.MethodGet, "/notes/n1", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"title":"t","body":"b","tags":["x"]}`, rr.Body.String())
		assert.Equal(t, "n1", store.CapturedID)
	})

	t.Run("not found body carries no id", func(t *testing.T) {
		store := &MockNoteStore{ReturnErr: apperror.NotFound("Note")}
		rr := do(t, newNoteRouter(store), http.MethodGet, "/notes/c0ffee", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error":"not_found","message":"Note not found"}`, rr.Body.String())
		assert.NotContains(t, rr.Body.String(), "c0ffee")
	})
}

func TestNoteHandler_HandleUpdate(t *testing.T) {
	t.Run("omitted fields stay nil", func(t *testing.T) {
		store := &MockNoteStore{ReturnNote: &model.Note{ID: "n1", Title: "new", Body: "b", Tags: []string{}}}
		rr := do(t, newNoteRouter(store), http.MethodPut, "/notes/n1", `{"title":"new"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, store.CapturedUpdate.Title)
		assert.Equal(t, "new", *store.CapturedUpdate.Title)
		assert.Nil(t, store.CapturedUpdate.Body)
		assert.Nil(t, store.CapturedUpdate.Tags)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "n1", got["id"])
		assert.Equal(t, "new", got["title"])
		assert.NotContains(t, got, "OwnerID")
	})

	t.Run("empty tags list is passed through", func(t *testing.T) {
		store := &MockNoteStore{ReturnNote: &model.Note{ID: "n1"}}
		do(t, newNoteRouter(store), http.MethodPut, "/notes/n1", `{"tags":[]}`)

		require.NotNil(t, store.CapturedUpdate.Tags)
		assert.Empty(t, *store.CapturedUpdate.Tags)
	})

	t.Run("not found", func(t *testing.T) {
		store := &MockNoteStore{ReturnErr: apperror.NotFound("Note")}
		rr := do(t, newNoteRouter(store), http.MethodPut, "/notes/n1", `{"title":"x"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestNoteHandler_HandleDelete(t *testing.T) {
	store := &MockNoteStore{}
	rr := do(t, newNoteRouter(store), http.MethodDelete, "/notes/n1", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"OK"}`, rr.Body.String())
	assert.Equal(t, "n1", store.CapturedID)

	store.ReturnErr = apperror.NotFound("Note")
	rr = do(t, newNoteRouter(store), http.MethodDelete, "/notes/n1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNoteHandler_HandleSearch(t *testing.T) {
	store := &MockNoteStore{ReturnNotes: []model.Note{
		{ID: "n1", Title: "a", Body: "b", Tags: []string{"x"}},
	}}
	rr := do(t, newNoteRouter(store), http.MethodGet, "/notes/search?q=go+tips", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":"n1","title":"a","body":"b","tags":["x"]}]`, rr.Body.String())
	assert.Equal(t, "go tips", store.CapturedQuery)
	assert.Equal(t, "alice", store.CapturedUserID)
}
