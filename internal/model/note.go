package model

import "time"

// Note is a single text note owned by exactly one user.
//
// OwnerID is set from the authenticated identity when the note is created and
// is never taken from a request body. Every store query filters on it.
type Note struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteUpdate carries a partial update. A nil field means "leave unchanged".
//
// WHY POINTERS?
// With plain strings there's no way to tell "client omitted title" from
// "client sent an empty title". A nil pointer is the omitted case.
type NoteUpdate struct {
	Title *string
	Body  *string
	Tags  *[]string
}

// IsEmpty reports whether the update changes nothing.
func (u NoteUpdate) IsEmpty() bool {
	return u.Title == nil && u.Body == nil && u.Tags == nil
}
