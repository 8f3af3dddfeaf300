// This file contains the business logic for the user credential lifecycle.
package users

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/user/credstore-go/apperror"
	"github.com/user/credstore-go/password"
)

// invalidCredentials is the single outward failure for a failed login.
// Unknown email, wrong password, and an undecodable stored hash all surface
// identically so callers cannot probe which emails are registered.
const invalidCredentials = "invalid credentials"

// Service implements registration, login verification, and the read-only
// user queries. It is stateless; all shared mutable state lives in the Store.
type Service struct {
	store  Store
	hasher *password.Hasher
}

// NewService creates a new Service.
func NewService(store Store, hasher *password.Hasher) *Service {
	return &Service{store: store, hasher: hasher}
}

// Register validates the request, hashes the password, and persists a new
// user record. The plaintext password is not retained past the hashing step.
// A duplicate email surfaces as a ConflictError; the database constraint, not
// an application pre-check, decides the winner under concurrency.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if err := ValidateRegister(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
	}

	if err := s.store.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperror.NewConflictError("email already registered", nil)
		}
		return nil, apperror.NewDatabaseError("failed to create user", err)
	}

	resp := toResponse(user)
	return &resp, nil
}

// Login verifies a login attempt against the stored credential record.
// It returns nil on a match and an AuthError otherwise. Not-found and
// wrong-password are indistinguishable to the caller; internally they are
// logged differently.
func (s *Service) Login(ctx context.Context, req LoginRequest) error {
	if req.Email == "" || req.Password == "" {
		return apperror.NewAuthError(invalidCredentials, nil)
	}

	user, err := s.store.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.NewAuthError(invalidCredentials, nil)
		}
		return apperror.NewDatabaseError("failed to get user", err)
	}

	if err := s.hasher.Verify(ctx, req.Password, user.PasswordHash); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return apperror.NewAuthError(invalidCredentials, nil)
		}
		// A stored hash that no longer decodes is data corruption. Log the
		// detail server-side; the caller still sees invalid credentials.
		log.Printf("undecodable password hash for user %s: %v", user.ID, err)
		return apperror.NewAuthError(invalidCredentials, err)
	}
	return nil
}

// List returns the non-secret views of all users in insertion order.
func (s *Service) List(ctx context.Context) ([]UserResponse, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list users", err)
	}

	out := make([]UserResponse, 0, len(records))
	for i := range records {
		out = append(out, toResponse(&records[i]))
	}
	return out, nil
}

// GetByID returns the non-secret view of a single user. A missing id is a
// distinct not-found outcome, not a server failure.
func (s *Service) GetByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}

	resp := toResponse(user)
	return &resp, nil
}
