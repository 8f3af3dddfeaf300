package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// Sentinel errors a Store translates storage outcomes into. Uniqueness is the
// store's guarantee: two concurrent inserts with the same email must yield
// exactly one success and one ErrDuplicateEmail, which only the database's
// constraint can promise. The application never does a check-then-insert.
var (
	// ErrDuplicateEmail means the email already identifies a stored record.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound means no record matched the lookup.
	ErrNotFound = errors.New("user not found")
)

// Store defines the persistence operations the service needs.
type Store interface {
	Insert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// PGStore implements Store on PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a PGStore backed by the given pool.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

var _ Store = (*PGStore)(nil)

// Insert persists a new user record. The email-uniqueness constraint is
// enforced atomically by the database and surfaces as ErrDuplicateEmail.
func (s *PGStore) Insert(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, name, email, password_hash)
              VALUES ($1, $2, $3, $4)
              RETURNING created_at`
	err := s.db.QueryRow(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByEmail fetches the record identified by email, hash included.
func (s *PGStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, name, email, password_hash, created_at
              FROM users WHERE email = $1`
	var user User
	err := s.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID fetches the record identified by id.
func (s *PGStore) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, name, email, password_hash, created_at
              FROM users WHERE id = $1`
	var user User
	err := s.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns all records in insertion order.
func (s *PGStore) List(ctx context.Context) ([]User, error) {
	query := `SELECT id, name, email, password_hash, created_at
              FROM users ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}
