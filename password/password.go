// Package password is the credential engine: it turns plaintext secrets into
// storage-safe Argon2id hashes and checks login attempts against them.
// Plaintext never leaves this package in any form; the encoded hash string is
// self-describing (algorithm, parameters, salt, digest), so verification needs
// no side-channel parameter lookup.
package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// Errors returned by Verify. A malformed stored hash is data corruption, not
// a caller mistake; the service layer decides how to surface it.
var (
	// ErrMismatch means the plaintext does not match the stored hash.
	ErrMismatch = errors.New("password does not match")
	// ErrMalformedHash means the stored hash could not be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrIncompatibleVersion means the hash was produced by an unsupported
	// argon2 version.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// Params holds the Argon2id cost parameters. They are fixed at startup and
// embedded in every encoded hash, so changing them later only affects new
// registrations.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns the cost parameters used unless configuration
// overrides them: m=64 MiB, t=3, p=2, 16-byte salt, 32-byte key.
// These exceed the OWASP ASVS Level 2 minimums (m>=19 MiB, t>=2, p>=1).
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate rejects parameter sets that argon2 cannot run or that would
// produce trivially weak hashes. A failure here is a fatal configuration
// error: the process must not fall back to a weaker scheme.
func (p Params) Validate() error {
	if p.Iterations < 1 {
		return fmt.Errorf("argon2 iterations must be >= 1, got %d", p.Iterations)
	}
	if p.Parallelism < 1 {
		return fmt.Errorf("argon2 parallelism must be >= 1, got %d", p.Parallelism)
	}
	// argon2 requires at least 8 KiB per lane.
	if p.Memory < 8*uint32(p.Parallelism) {
		return fmt.Errorf("argon2 memory must be >= %d KiB for parallelism %d, got %d", 8*uint32(p.Parallelism), p.Parallelism, p.Memory)
	}
	if p.SaltLength < 8 {
		return fmt.Errorf("argon2 salt length must be >= 8 bytes, got %d", p.SaltLength)
	}
	if p.KeyLength < 16 {
		return fmt.Errorf("argon2 key length must be >= 16 bytes, got %d", p.KeyLength)
	}
	return nil
}

// Hasher derives and verifies Argon2id password hashes.
//
// Key derivation is CPU- and memory-bound by design. A weighted semaphore
// bounds how many derivations run at once so a burst of registrations cannot
// starve the scheduler for unrelated requests; callers block in Acquire with
// their request context and therefore stay cancellable while queued.
type Hasher struct {
	params Params
	slots  *semaphore.Weighted
}

// NewHasher constructs a Hasher with validated parameters.
func NewHasher(params Params) (*Hasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{
		params: params,
		slots:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}, nil
}

// Hash derives an Argon2id hash of the plaintext with a fresh random salt and
// returns it in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<base64-salt>$<base64-key>
//
// Two calls with the same plaintext produce different strings (distinct
// salts). The plaintext is not retained.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify re-derives the key from the plaintext using the parameters and salt
// embedded in the encoded hash and compares the result in constant time.
// It returns nil on a match, ErrMismatch on a clean non-match, and
// ErrMalformedHash if the stored string cannot be decoded.
func (h *Hasher) Verify(ctx context.Context, plaintext, encoded string) error {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return err
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.slots.Release(1)

	derived := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))
	if subtle.ConstantTimeCompare(derived, key) != 1 {
		return ErrMismatch
	}
	return nil
}

// decodeHash parses a PHC-format argon2id string into its parameters, salt,
// and derived key.
func decodeHash(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Params{}, nil, nil, ErrMalformedHash
	}
	if parts[1] != "argon2id" {
		return Params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return Params{}, nil, nil, ErrIncompatibleVersion
	}

	var params Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	// argon2.IDKey panics on zero iterations or parallelism; a stored hash
	// carrying them is corrupt, not verifiable.
	if params.Iterations < 1 || params.Parallelism < 1 {
		return Params{}, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	if len(salt) == 0 || len(key) == 0 {
		return Params{}, nil, nil, ErrMalformedHash
	}

	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(key))
	return params, salt, key, nil
}
