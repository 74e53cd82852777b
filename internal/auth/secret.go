package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for the seed secret.
const defaultCost = 12

// ErrSecretMismatch means the presented secret does not match the stored hash.
var ErrSecretMismatch = errors.New("auth: secret does not match")

// SecretHasher hashes and checks operator secrets such as the seed secret.
//
// Only the bcrypt hash lives in configuration, so a leaked config file does
// not reveal the secret itself. bcrypt's comparison is constant-time.
type SecretHasher struct {
	cost int
}

// NewSecretHasher returns a hasher using the default cost.
func NewSecretHasher() *SecretHasher {
	return &SecretHasher{cost: defaultCost}
}

// NewSecretHasherWithCost is for tests in other packages; cost 4 (the bcrypt
// minimum) keeps them fast.
func NewSecretHasherWithCost(cost int) *SecretHasher {
	return &SecretHasher{cost: cost}
}

// Hash returns the bcrypt hash of secret.
//
// bcrypt silently ignores input past 72 bytes, so longer secrets are rejected.
func (h *SecretHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("auth: secret must not be empty")
	}
	if len(secret) > 72 {
		return "", errors.New("auth: secret must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing secret: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when secret matches hash and ErrSecretMismatch when it
// does not. A malformed hash is reported as a separate error.
func (h *SecretHasher) Verify(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrSecretMismatch
		}
		return fmt.Errorf("auth: comparing secret hash: %w", err)
	}
	return nil
}
