package hasher

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptySecret is returned when attempting to hash an empty secret
var ErrEmptySecret = errors.New("secret cannot be empty")

// Hasher hashes and verifies short numeric secrets
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

// Config holds configuration for the bcrypt hasher
type Config struct {
	// Cost is the bcrypt work factor
	Cost int
}

// DefaultConfig returns default hasher configuration
func DefaultConfig() Config {
	return Config{
		Cost: 12,
	}
}

// BcryptHasher implements Hasher using bcrypt
type BcryptHasher struct {
	cost int
}

// Ensure BcryptHasher implements Hasher
var _ Hasher = (*BcryptHasher)(nil)

// New creates a new BcryptHasher, clamping the cost to bcrypt's bounds
func New(cfg Config) *BcryptHasher {
	cost := cfg.Cost
	switch {
	case cost == 0:
		cost = DefaultConfig().Cost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the work factor in use
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash produces a salted bcrypt hash of the secret
func (h *BcryptHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether secret matches hash. Malformed hashes never match.
func (h *BcryptHasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
