package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.CredentialStoreSuite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Store = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestReturnedProfileIsACopy() {
	account, err := s.storage.CreateAccount(s.Ctx, "alice", "hash", model.DefaultProfile("alice", time.Now()), time.Now())
	s.Require().NoError(err)

	profile, err := s.storage.GetProfile(s.Ctx, account.ID)
	s.Require().NoError(err)
	profile.Section("settings")["theme"] = "mutated"

	again, err := s.storage.GetProfile(s.Ctx, account.ID)
	s.Require().NoError(err)
	s.Equal("retro-dark", again.Section("settings")["theme"])
}
