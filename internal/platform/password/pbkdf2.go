// Package password implements salted, iterated password hashing with PBKDF2.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"account_backend/internal/feature/account/domain/entity"
)

const (
	// DefaultIterations is the work factor applied to new credentials.
	DefaultIterations = 210_000
	// MinIterations is the lowest work factor accepted for new credentials.
	MinIterations = 10_000

	saltLength = 16
	keyLength  = 64
)

// Hasher derives and verifies PBKDF2-HMAC-SHA512 credentials.
// New credentials use the configured iteration count; verification always
// uses the count stored with the credential, so raising the cost does not
// invalidate existing accounts.
type Hasher struct {
	iterations int
}

// NewHasher creates a Hasher. Iteration counts below MinIterations are raised
// to MinIterations.
func NewHasher(iterations int) *Hasher {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return &Hasher{iterations: iterations}
}

// Iterations returns the work factor used for new credentials.
func (h *Hasher) Iterations() int {
	return h.iterations
}

// Derive generates a fresh random salt and derives credentials for password.
func (h *Hasher) Derive(password string) (entity.Credentials, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return entity.Credentials{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, h.iterations, keyLength, sha512.New)
	return entity.Credentials{
		Hash:       hex.EncodeToString(key),
		Salt:       hex.EncodeToString(salt),
		Iterations: h.iterations,
	}, nil
}

// Verify reports whether password matches c. It returns false for incomplete
// or undecodable credentials instead of failing.
func (h *Hasher) Verify(c entity.Credentials, password string) bool {
	if c.Hash == "" || c.Salt == "" || c.Iterations <= 0 {
		return false
	}
	salt, err := hex.DecodeString(c.Salt)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(c.Hash)
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, c.Iterations, len(want), sha512.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
