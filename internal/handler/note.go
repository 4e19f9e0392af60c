// Package handler contains the HTTP request handlers for the notes API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc; a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query, JSON body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers contain no business rules. Validation and ownership live in
// internal/service; status codes live in writeError.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/model"
)

// NoteStore is the slice of service.NoteService the handler needs.
type NoteStore interface {
	Create(ctx context.Context, userID, title, body string, tags []string) (*model.Note, error)
	List(ctx context.Context, userID string) ([]model.Note, error)
	Get(ctx context.Context, userID, id string) (*model.Note, error)
	Update(ctx context.Context, userID, id string, upd model.NoteUpdate) (*model.Note, error)
	Delete(ctx context.Context, userID, id string) error
	Search(ctx context.Context, userID, query string) ([]model.Note, error)
}

// NoteHandler serves the /notes routes. Every route sits behind
// auth.RequireAuth, so the caller's id is always in the request context.
//
// WHO OWNS A NOTE?
// The handler reads the user id from the context and nowhere else. Request
// bodies have no owner field, and an "owner" key in the JSON is ignored.
type NoteHandler struct {
	notes  NoteStore
	logger *slog.Logger
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(notes NoteStore, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// noteBody is the list/get view of a note.
type noteBody struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// searchHit is the search view: the body view plus the id, so a client can
// follow up with GET /notes/{id}.
type searchHit struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type createNoteRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type createNoteResponse struct {
	Message string `json:"message"`
	Note    string `json:"note"`
}

// updateNoteRequest uses pointers so an omitted field (nil) can be told
// apart from one sent empty.
type updateNoteRequest struct {
	Title *string   `json:"title"`
	Body  *string   `json:"body"`
	Tags  *[]string `json:"tags"`
}

func toNoteBody(n model.Note) noteBody {
	return noteBody{Title: n.Title, Body: n.Body, Tags: n.Tags}
}

// userID returns the gate-assigned identity. An empty result makes every
// NoteService method return Unauthorized, so a route mounted without the
// gate still fails closed.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// HandleCreate creates a note owned by the caller.
//
// HTTP: POST /notes
// REQUEST BODY: {"title": "t", "body": "b", "tags": ["x"]}
// RESPONSE: 200 {"message": "Created note", "note": "<id>"}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("rejected request body", slog.String("path", r.URL.Path))
		writeError(w, err)
		return
	}

	note, err := h.notes.Create(r.Context(), userID(r), req.Title, req.Body, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createNoteResponse{Message: "Created note", Note: note.ID})
}

// HandleList returns the caller's notes in creation order.
//
// HTTP: GET /notes
// RESPONSE: 200 [{"title": ..., "body": ..., "tags": [...]}, ...]
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]noteBody, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteBody(n))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns one of the caller's notes.
//
// HTTP: GET /notes/{id}
// ERRORS: 404 for a malformed id, an unknown id, or someone else's id.
// All three produce the same body.
func (h *NoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteBody(*note))
}

// HandleUpdate applies a partial update and returns the full record.
//
// HTTP: PUT /notes/{id}
// REQUEST BODY: any subset of {"title", "body", "tags"}
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("rejected request body", slog.String("path", r.URL.Path))
		writeError(w, err)
		return
	}

	upd := model.NoteUpdate{Title: req.Title, Body: req.Body, Tags: req.Tags}
	note, err := h.notes.Update(r.Context(), userID(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleDelete removes one of the caller's notes.
//
// HTTP: DELETE /notes/{id}
// RESPONSE: 200 {"message": "OK"}; deleting twice is a 404 the second time.
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "OK"})
}

// HandleSearch returns the caller's notes matching ?q=.
//
// HTTP: GET /notes/search?q=go+tips (alias GET /search)
// A note matches when any whitespace-separated term appears in its title,
// body or tags.
// A missing or blank q returns [].
func (h *NoteHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.Search(r.Context(), userID(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]searchHit, 0, len(notes))
	for _, n := range notes {
		out = append(out, searchHit{ID: n.ID, Title: n.Title, Body: n.Body, Tags: n.Tags})
	}
	writeJSON(w, http.StatusOK, out)
}
