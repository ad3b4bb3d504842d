package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/storage"
)

// ErrTooMuchContention is returned when an update keeps losing its optimistic lock
var ErrTooMuchContention = errors.New("redis: account update contended too many times")

// Storage is a Redis-backed implementation of the credential store
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.CredentialStore = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, username, secretHash string, profile model.Profile, createdAt time.Time) (*model.Account, error) {
	if profile == nil {
		profile = model.Profile{}
	}

	seq, err := s.client.Incr(ctx, accountSequenceKey()).Result()
	if err != nil {
		return nil, err
	}
	id := model.AccountID(seq)

	// SETNX on the index is the uniqueness guard
	claimed, err := s.client.SetNX(ctx, usernameIndexKey(username), strconv.FormatInt(seq, 10), 0).Result()
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, model.ErrUsernameTaken
	}

	account := &model.Account{
		ID:         id,
		Username:   username,
		SecretHash: secretHash,
		Profile:    profile,
		CreatedAt:  createdAt,
		Active:     true,
	}

	data, err := json.Marshal(account)
	if err != nil {
		_ = s.client.Del(ctx, usernameIndexKey(username)).Err()
		return nil, err
	}

	if err := s.client.Set(ctx, accountKey(id), data, 0).Err(); err != nil {
		// Release the username so a retry can claim it
		_ = s.client.Del(ctx, usernameIndexKey(username)).Err()
		return nil, err
	}

	return s.getAccount(ctx, id)
}

func (s *Storage) FindActiveByUsername(ctx context.Context, username string) (*model.Account, error) {
	// Look up account ID from username index
	idStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	seq, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, err
	}

	account, err := s.getAccount(ctx, model.AccountID(seq))
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, model.ErrAccountNotFound
	}
	return account, nil
}

func (s *Storage) TouchLastLogin(ctx context.Context, id model.AccountID, at time.Time) error {
	return s.update(ctx, id, func(account *model.Account) error {
		account.LastLoginAt = &at
		return nil
	})
}

func (s *Storage) Deactivate(ctx context.Context, id model.AccountID) error {
	return s.update(ctx, id, func(account *model.Account) error {
		if !account.Active {
			return model.ErrAccountNotFound
		}
		account.Active = false
		return nil
	})
}

// Profile operations

func (s *Storage) GetProfile(ctx context.Context, id model.AccountID) (model.Profile, error) {
	account, err := s.getAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, model.ErrAccountNotFound
	}
	return account.Profile, nil
}

func (s *Storage) SetProfile(ctx context.Context, id model.AccountID, profile model.Profile) error {
	if profile == nil {
		profile = model.Profile{}
	}
	return s.update(ctx, id, func(account *model.Account) error {
		if !account.Active {
			return model.ErrAccountNotFound
		}
		account.Profile = profile
		return nil
	})
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// getAccount loads and decodes an account record
func (s *Storage) getAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// update applies fn to an account record under WATCH so concurrent
// read-modify-write cycles cannot overwrite each other.
func (s *Storage) update(ctx context.Context, id model.AccountID, fn func(*model.Account) error) error {
	key := accountKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrAccountNotFound
			}
			return err
		}

		var account model.Account
		if err := json.Unmarshal(data, &account); err != nil {
			return err
		}
		if err := fn(&account); err != nil {
			return err
		}

		updated, err := json.Marshal(&account)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTooMuchContention
}
