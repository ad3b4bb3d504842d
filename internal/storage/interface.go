package storage

import (
	"context"
	"time"

	"github.com/mcoot/pinauthority/internal/model"
)

// CredentialStore defines the interface for account persistence.
// Implementations enforce username uniqueness themselves and return
// model.ErrUsernameTaken on conflict.
type CredentialStore interface {
	// Account operations
	CreateAccount(ctx context.Context, username, secretHash string, profile model.Profile, createdAt time.Time) (*model.Account, error)
	FindActiveByUsername(ctx context.Context, username string) (*model.Account, error)
	TouchLastLogin(ctx context.Context, id model.AccountID, at time.Time) error
	Deactivate(ctx context.Context, id model.AccountID) error

	// Profile operations (active accounts only)
	GetProfile(ctx context.Context, id model.AccountID) (model.Profile, error)
	SetProfile(ctx context.Context, id model.AccountID, profile model.Profile) error

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}
