package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/pinauthority/internal/dependencies/clock"
	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/observability"
	"github.com/mcoot/pinauthority/internal/services/hasher"
	"github.com/mcoot/pinauthority/internal/services/token"
	"github.com/mcoot/pinauthority/internal/storage"
)

// Errors
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrStorageFailure     = errors.New("storage failure")
	ErrUsernameTaken      = model.ErrUsernameTaken
)

// Identity is the public view of an account
type Identity struct {
	AccountID model.AccountID
	Username  string
}

// Session is the result of a successful login
type Session struct {
	Token      string
	AccountID  model.AccountID
	Username   string
	Persistent bool
	TTL        time.Duration
	ExpiresAt  time.Time
}

// Status is the outcome of checking a token. Absence of auth is not an error.
type Status struct {
	Authenticated bool
	AccountID     model.AccountID
	Username      string
}

// ProfileView is the part of the profile document returned to its owner
type ProfileView struct {
	Username string
	Profile  map[string]any
	Settings map[string]any
}

// Config holds configuration for the auth service
type Config struct {
	// ShortTTL is the token lifetime for a normal login
	ShortTTL time.Duration
	// LongTTL is the token lifetime when the caller asks to be remembered
	LongTTL time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		ShortTTL: time.Hour,
		LongTTL:  7 * 24 * time.Hour,
	}
}

// Service handles signup, login and token-based identity checks
type Service struct {
	store    storage.CredentialStore
	hasher   hasher.Hasher
	codec    *token.Codec
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	validate *validator.Validate
	cfg      Config

	// compared against when the username is unknown
	decoyHash string
}

// New creates a new auth Service
func New(
	store storage.CredentialStore,
	h hasher.Hasher,
	codec *token.Codec,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
) (*Service, error) {
	defaults := DefaultConfig()
	if cfg.ShortTTL == 0 {
		cfg.ShortTTL = defaults.ShortTTL
	}
	if cfg.LongTTL == 0 {
		cfg.LongTTL = defaults.LongTTL
	}

	decoy, err := h.Hash("0000")
	if err != nil {
		return nil, fmt.Errorf("preparing decoy hash: %w", err)
	}

	return &Service{
		store:     store,
		hasher:    h,
		codec:     codec,
		clock:     clk,
		logger:    logger,
		metrics:   metrics,
		validate:  newValidator(),
		cfg:       cfg,
		decoyHash: decoy,
	}, nil
}

// Signup validates the credentials and creates an account with a default profile
func (s *Service) Signup(ctx context.Context, username, pin string) (*Identity, error) {
	if err := s.validateCredentials(username, pin); err != nil {
		s.metrics.RecordSignup(observability.OutcomeValidationFailed)
		return nil, err
	}

	hash, err := s.hasher.Hash(pin)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	now := s.clock.Now()
	account, err := s.store.CreateAccount(ctx, username, hash, model.DefaultProfile(username, now), now)
	if err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			s.metrics.RecordSignup(observability.OutcomeUsernameTaken)
			return nil, ErrUsernameTaken
		}
		s.metrics.RecordSignup(observability.OutcomeStorageFailure)
		return nil, s.storageFailure("create account", err)
	}

	s.metrics.RecordSignup(observability.OutcomeSuccess)
	s.logger.Info("account created",
		slog.Int64("account_id", int64(account.ID)),
		slog.String("username", account.Username),
	)

	return &Identity{AccountID: account.ID, Username: account.Username}, nil
}

// Login checks the PIN and mints a session token. An unknown username and a
// wrong PIN both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, pin string, persistent bool) (*Session, error) {
	if err := s.validateCredentials(username, pin); err != nil {
		s.metrics.RecordLogin(observability.OutcomeValidationFailed)
		return nil, err
	}

	account, err := s.store.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			// Spend a bcrypt comparison so unknown users cost the same as wrong PINs
			s.hasher.Verify(pin, s.decoyHash)
			s.metrics.RecordLogin(observability.OutcomeInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.metrics.RecordLogin(observability.OutcomeStorageFailure)
		return nil, s.storageFailure("find account", err)
	}

	if !s.hasher.Verify(pin, account.SecretHash) {
		s.metrics.RecordLogin(observability.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	now := s.clock.Now()
	if err := s.store.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("failed to record last login",
			slog.Int64("account_id", int64(account.ID)),
			slog.String("error", err.Error()),
		)
	}

	ttl := s.cfg.ShortTTL
	if persistent {
		ttl = s.cfg.LongTTL
	}

	raw, err := s.codec.Mint(account.ID, account.Username, ttl)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	s.metrics.RecordLogin(observability.OutcomeSuccess)

	return &Session{
		Token:      raw,
		AccountID:  account.ID,
		Username:   account.Username,
		Persistent: persistent,
		TTL:        ttl,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// Status reports who the token belongs to, if anyone. It never fails.
func (s *Service) Status(raw string) Status {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return Status{}
	}
	return Status{
		Authenticated: true,
		AccountID:     claims.AccountID,
		Username:      claims.Username,
	}
}

// Identify returns the token's claims or ErrNotAuthenticated
func (s *Service) Identify(raw string) (*token.Claims, error) {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	return claims, nil
}

// ActiveIdentity verifies the token and confirms its account is still
// active. Deactivated accounts are refused even while their token is unexpired.
func (s *Service) ActiveIdentity(ctx context.Context, raw string) (*Identity, error) {
	claims, err := s.Identify(raw)
	if err != nil {
		return nil, err
	}

	account, err := s.store.FindActiveByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, s.storageFailure("find account", err)
	}
	if account.ID != claims.AccountID {
		return nil, ErrNotAuthenticated
	}

	return &Identity{AccountID: account.ID, Username: account.Username}, nil
}

// GetProfile returns the caller's profile and settings
func (s *Service) GetProfile(ctx context.Context, raw string) (*ProfileView, error) {
	claims, err := s.Identify(raw)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.GetProfile(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, s.storageFailure("get profile", err)
	}

	return &ProfileView{
		Username: claims.Username,
		Profile:  doc.Section("profile"),
		Settings: doc.Section("settings"),
	}, nil
}

// UpdateProfile replaces the caller's whole profile document
func (s *Service) UpdateProfile(ctx context.Context, raw string, doc model.Profile) error {
	claims, err := s.Identify(raw)
	if err != nil {
		return err
	}
	if doc == nil {
		return &ValidationError{Field: "profile", Message: "Profile document is required"}
	}

	if err := s.store.SetProfile(ctx, claims.AccountID, doc); err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return ErrNotAuthenticated
		}
		return s.storageFailure("set profile", err)
	}
	return nil
}

// Deactivate disables the caller's account. The username stays reserved.
func (s *Service) Deactivate(ctx context.Context, raw string) error {
	claims, err := s.Identify(raw)
	if err != nil {
		return err
	}

	if err := s.store.Deactivate(ctx, claims.AccountID); err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return ErrNotAuthenticated
		}
		return s.storageFailure("deactivate account", err)
	}

	s.logger.Info("account deactivated", slog.Int64("account_id", int64(claims.AccountID)))
	return nil
}

// storageFailure logs a backend error and wraps it in ErrStorageFailure
func (s *Service) storageFailure(op string, err error) error {
	s.logger.Error("credential store failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}
