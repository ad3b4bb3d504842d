// Package storagetest holds the behaviour every CredentialStore backend must share.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/storage"
)

// CredentialStoreSuite runs the shared contract against a backend.
// Embedding suites set Store in their own SetupTest.
type CredentialStoreSuite struct {
	suite.Suite
	Store storage.CredentialStore
	Ctx   context.Context
}

var createdAt = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func (s *CredentialStoreSuite) create(username string) *model.Account {
	account, err := s.Store.CreateAccount(s.Ctx, username, "hash-"+username, model.DefaultProfile(username, createdAt), createdAt)
	s.Require().NoError(err)
	return account
}

// CreateAccount tests

func (s *CredentialStoreSuite) TestCreateAccountAssignsID() {
	account := s.create("alice")

	s.NotZero(account.ID)
	s.Equal("alice", account.Username)
	s.Equal("hash-alice", account.SecretHash)
	s.True(account.Active)
	s.Nil(account.LastLoginAt)
}

func (s *CredentialStoreSuite) TestCreateAccountIDsAreDistinct() {
	a := s.create("alice")
	b := s.create("bob")

	s.NotEqual(a.ID, b.ID)
}

func (s *CredentialStoreSuite) TestCreateAccountDuplicateUsername() {
	s.create("alice")

	_, err := s.Store.CreateAccount(s.Ctx, "alice", "other", model.Profile{}, createdAt)
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *CredentialStoreSuite) TestCreateAccountUsernameIsCaseSensitive() {
	s.create("alice")

	_, err := s.Store.CreateAccount(s.Ctx, "Alice", "other", model.Profile{}, createdAt)
	s.NoError(err)
}

func (s *CredentialStoreSuite) TestConcurrentCreateSameUsernameOneWins() {
	const attempts = 16

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Store.CreateAccount(s.Ctx, "racer", fmt.Sprintf("hash-%d", i), model.Profile{}, createdAt)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded, conflicted := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case s.ErrorIs(err, model.ErrUsernameTaken):
			conflicted++
		}
	}
	s.Equal(1, succeeded)
	s.Equal(attempts-1, conflicted)
}

// FindActiveByUsername tests

func (s *CredentialStoreSuite) TestFindActiveByUsername() {
	created := s.create("alice")

	found, err := s.Store.FindActiveByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.Equal("hash-alice", found.SecretHash)
	s.True(found.CreatedAt.Equal(createdAt))
}

func (s *CredentialStoreSuite) TestFindActiveByUsernameNotFound() {
	_, err := s.Store.FindActiveByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *CredentialStoreSuite) TestFindActiveByUsernameExcludesDeactivated() {
	account := s.create("alice")
	s.Require().NoError(s.Store.Deactivate(s.Ctx, account.ID))

	_, err := s.Store.FindActiveByUsername(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *CredentialStoreSuite) TestDeactivatedUsernameStaysReserved() {
	account := s.create("alice")
	s.Require().NoError(s.Store.Deactivate(s.Ctx, account.ID))

	_, err := s.Store.CreateAccount(s.Ctx, "alice", "other", model.Profile{}, createdAt)
	s.ErrorIs(err, model.ErrUsernameTaken)
}

// TouchLastLogin tests

func (s *CredentialStoreSuite) TestTouchLastLogin() {
	account := s.create("alice")
	at := createdAt.Add(time.Hour)

	s.Require().NoError(s.Store.TouchLastLogin(s.Ctx, account.ID, at))

	found, err := s.Store.FindActiveByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().NotNil(found.LastLoginAt)
	s.True(found.LastLoginAt.Equal(at))
}

func (s *CredentialStoreSuite) TestTouchLastLoginUnknownAccount() {
	err := s.Store.TouchLastLogin(s.Ctx, 9999, createdAt)
	s.ErrorIs(err, model.ErrAccountNotFound)
}

// Deactivate tests

func (s *CredentialStoreSuite) TestDeactivateUnknownAccount() {
	err := s.Store.Deactivate(s.Ctx, 9999)
	s.ErrorIs(err, model.ErrAccountNotFound)
}

// Profile tests

func (s *CredentialStoreSuite) TestGetProfileReturnsDefaultDocument() {
	account := s.create("alice")

	profile, err := s.Store.GetProfile(s.Ctx, account.ID)
	s.Require().NoError(err)
	s.Equal("alice", profile.Section("profile")["displayName"])
	s.Equal("retro-dark", profile.Section("settings")["theme"])
}

func (s *CredentialStoreSuite) TestSetProfileReplacesDocument() {
	account := s.create("alice")
	doc := model.Profile{"settings": map[string]any{"theme": "light"}}

	s.Require().NoError(s.Store.SetProfile(s.Ctx, account.ID, doc))

	profile, err := s.Store.GetProfile(s.Ctx, account.ID)
	s.Require().NoError(err)
	s.Equal("light", profile.Section("settings")["theme"])
	s.Nil(profile.Section("profile"))
}

func (s *CredentialStoreSuite) TestGetProfileUnknownAccount() {
	_, err := s.Store.GetProfile(s.Ctx, 9999)
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *CredentialStoreSuite) TestProfileHiddenAfterDeactivation() {
	account := s.create("alice")
	s.Require().NoError(s.Store.Deactivate(s.Ctx, account.ID))

	_, err := s.Store.GetProfile(s.Ctx, account.ID)
	s.ErrorIs(err, model.ErrAccountNotFound)

	err = s.Store.SetProfile(s.Ctx, account.ID, model.Profile{})
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *CredentialStoreSuite) TestPing() {
	s.NoError(s.Store.Ping(s.Ctx))
}
