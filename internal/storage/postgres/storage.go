package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/storage"
)

// DB is the subset of pgxpool.Pool the store needs
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Storage is a PostgreSQL-backed implementation of the credential store
type Storage struct {
	db   DB
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, retrying until the server answers, and
// applies migrations when configured to
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	backoff := retry.WithMaxRetries(cfg.ConnectRetries, retry.NewExponential(cfg.ConnectBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := pool.Ping(pingCtx); err != nil {
			logger.Warn("postgres not ready", slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := Migrate(cfg.URL, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Storage{db: pool, pool: pool}, nil
}

// NewWithDB creates a store over an existing connection (for testing)
func NewWithDB(db DB) *Storage {
	return &Storage{db: db}
}

// Close releases the connection pool
func (s *Storage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ensure Storage implements the interface
var _ storage.CredentialStore = (*Storage)(nil)

// Account operations

const insertAccountSQL = `
INSERT INTO accounts (username, pin_hash, profile, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id`

func (s *Storage) CreateAccount(ctx context.Context, username, secretHash string, profile model.Profile, createdAt time.Time) (*model.Account, error) {
	if profile == nil {
		profile = model.Profile{}
	}
	doc, err := json.Marshal(profile)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.QueryRow(ctx, insertAccountSQL, username, secretHash, doc, createdAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrUsernameTaken
		}
		return nil, err
	}

	return &model.Account{
		ID:         model.AccountID(id),
		Username:   username,
		SecretHash: secretHash,
		Profile:    profile,
		CreatedAt:  createdAt,
		Active:     true,
	}, nil
}

const selectActiveByUsernameSQL = `
SELECT id, username, pin_hash, profile, created_at, last_login, is_active
FROM accounts
WHERE username = $1 AND is_active`

func (s *Storage) FindActiveByUsername(ctx context.Context, username string) (*model.Account, error) {
	var (
		id        int64
		account   model.Account
		doc       []byte
		lastLogin *time.Time
	)

	err := s.db.QueryRow(ctx, selectActiveByUsernameSQL, username).Scan(
		&id, &account.Username, &account.SecretHash, &doc, &account.CreatedAt, &lastLogin, &account.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(doc, &account.Profile); err != nil {
		return nil, fmt.Errorf("postgres: corrupt profile for account %d: %w", id, err)
	}
	account.ID = model.AccountID(id)
	account.LastLoginAt = lastLogin
	return &account, nil
}

const touchLastLoginSQL = `UPDATE accounts SET last_login = $2 WHERE id = $1`

func (s *Storage) TouchLastLogin(ctx context.Context, id model.AccountID, at time.Time) error {
	return s.execOne(ctx, touchLastLoginSQL, int64(id), at)
}

const deactivateSQL = `UPDATE accounts SET is_active = FALSE WHERE id = $1 AND is_active`

func (s *Storage) Deactivate(ctx context.Context, id model.AccountID) error {
	return s.execOne(ctx, deactivateSQL, int64(id))
}

// Profile operations

const selectProfileSQL = `SELECT profile FROM accounts WHERE id = $1 AND is_active`

func (s *Storage) GetProfile(ctx context.Context, id model.AccountID) (model.Profile, error) {
	var doc []byte
	if err := s.db.QueryRow(ctx, selectProfileSQL, int64(id)).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var profile model.Profile
	if err := json.Unmarshal(doc, &profile); err != nil {
		return nil, fmt.Errorf("postgres: corrupt profile for account %d: %w", id, err)
	}
	return profile, nil
}

const updateProfileSQL = `UPDATE accounts SET profile = $2 WHERE id = $1 AND is_active`

func (s *Storage) SetProfile(ctx context.Context, id model.AccountID, profile model.Profile) error {
	if profile == nil {
		profile = model.Profile{}
	}
	doc, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.execOne(ctx, updateProfileSQL, int64(id), doc)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// execOne runs an update that must touch exactly one row
func (s *Storage) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
