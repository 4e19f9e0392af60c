// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// WHY ID AND EMAIL BOTH?
// Email is the login-time lookup key and may in principle change. ID is an
// xid assigned once at registration and never changes; it's the only value
// that goes into an issued token, and every note's OwnerID points at it.
//
// PasswordHash is the bcrypt output, never the plaintext. The `json:"-"` tag
// keeps it out of any JSON response, even if a User is encoded by accident.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
