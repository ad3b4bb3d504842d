package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/storage"
)

// Storage is an in-memory implementation of the credential store
type Storage struct {
	mu sync.RWMutex

	nextID        model.AccountID
	accounts      map[model.AccountID]*model.Account
	usernameIndex map[string]model.AccountID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:      make(map[model.AccountID]*model.Account),
		usernameIndex: make(map[string]model.AccountID),
	}
}

// Ensure Storage implements the interface
var _ storage.CredentialStore = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, username, secretHash string, profile model.Profile, createdAt time.Time) (*model.Account, error) {
	doc, err := cloneProfile(profile)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Deactivated accounts keep their username reserved
	if _, exists := s.usernameIndex[username]; exists {
		return nil, model.ErrUsernameTaken
	}

	s.nextID++
	account := &model.Account{
		ID:         s.nextID,
		Username:   username,
		SecretHash: secretHash,
		Profile:    doc,
		CreatedAt:  createdAt,
		Active:     true,
	}
	s.accounts[account.ID] = account
	s.usernameIndex[username] = account.ID

	return copyAccount(account), nil
}

func (s *Storage) FindActiveByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	account := s.accounts[id]
	if !account.Active {
		return nil, model.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

func (s *Storage) TouchLastLogin(ctx context.Context, id model.AccountID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	account.LastLoginAt = &at
	return nil
}

func (s *Storage) Deactivate(ctx context.Context, id model.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || !account.Active {
		return model.ErrAccountNotFound
	}
	account.Active = false
	return nil
}

// Profile operations

func (s *Storage) GetProfile(ctx context.Context, id model.AccountID) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok || !account.Active {
		return nil, model.ErrAccountNotFound
	}
	return cloneProfile(account.Profile)
}

func (s *Storage) SetProfile(ctx context.Context, id model.AccountID, profile model.Profile) error {
	doc, err := cloneProfile(profile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || !account.Active {
		return model.ErrAccountNotFound
	}
	account.Profile = doc
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// cloneProfile deep-copies a document through JSON so callers never share
// nested maps with the store, and values come back typed as the other
// backends return them.
func cloneProfile(p model.Profile) (model.Profile, error) {
	if p == nil {
		return model.Profile{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out model.Profile
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func copyAccount(a *model.Account) *model.Account {
	cp := *a
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		cp.LastLoginAt = &t
	}
	cp.Profile, _ = cloneProfile(a.Profile)
	return &cp
}
