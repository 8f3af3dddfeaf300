// Package users owns the user credential lifecycle: validating registration
// input, issuing credential records, verifying login attempts, and exposing
// non-secret user views.
package users

import "time"

// User represents a stored user record.
// The `json:"-"` tag on PasswordHash keeps the encoded hash out of every
// marshalled representation; outward views go through UserResponse instead.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
