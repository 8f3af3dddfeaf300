// This file defines the request and response payloads for the user endpoints.
package users

import "time"

// RegisterRequest represents the registration request payload.
// The `validate` tags drive the structural checks in Validate; every violated
// rule is reported, not just the first.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required" example:"Ana"`
	Email    string `json:"email" validate:"required,email" example:"ana@example.com"`
	Password string `json:"password" validate:"required,min=8" example:"longenough1"`
}

// LoginRequest represents the login request payload.
type LoginRequest struct {
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password" example:"longenough1"`
}

// UserResponse is the outward view of a user record. It deliberately has no
// password hash field of any kind.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageResponse is a simple confirmation payload.
type MessageResponse struct {
	Message string `json:"message" example:"user registered successfully"`
}

// toResponse maps a stored record to its outward view.
func toResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
