package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/pinauthority/internal/dependencies/mocks"
	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/observability"
	"github.com/mcoot/pinauthority/internal/services/hasher"
	"github.com/mcoot/pinauthority/internal/services/token"
	"github.com/mcoot/pinauthority/internal/storage"
	"github.com/mcoot/pinauthority/internal/storage/memory"
	"github.com/mcoot/pinauthority/internal/testutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// flakyStore fails selected operations of an otherwise working store
type flakyStore struct {
	storage.CredentialStore
	touchErr  error
	findErr   error
	createErr error
}

func (f *flakyStore) TouchLastLogin(ctx context.Context, id model.AccountID, at time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	return f.CredentialStore.TouchLastLogin(ctx, id, at)
}

func (f *flakyStore) FindActiveByUsername(ctx context.Context, username string) (*model.Account, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.CredentialStore.FindActiveByUsername(ctx, username)
}

func (f *flakyStore) CreateAccount(ctx context.Context, username, secretHash string, profile model.Profile, createdAt time.Time) (*model.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.CredentialStore.CreateAccount(ctx, username, secretHash, profile, createdAt)
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	store   *flakyStore
	clock   *mocks.MockClock
	metrics *observability.Metrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.store = &flakyStore{CredentialStore: s.storage}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.metrics = observability.NewMetrics(prometheus.NewRegistry())

	codec, err := token.New(testSecret, s.clock, token.DefaultIssuer)
	s.Require().NoError(err)

	s.service, err = New(
		s.store,
		hasher.New(hasher.Config{Cost: bcrypt.MinCost}),
		codec,
		s.clock,
		DefaultConfig(),
		testutil.NopLogger(),
		s.metrics,
	)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *ServiceSuite) signup(username, pin string) *Identity {
	id, err := s.service.Signup(s.ctx, username, pin)
	s.Require().NoError(err)
	return id
}

func (s *ServiceSuite) login(username, pin string) *Session {
	session, err := s.service.Login(s.ctx, username, pin, false)
	s.Require().NoError(err)
	return session
}

// Signup tests

func (s *ServiceSuite) TestSignupSucceeds() {
	id, err := s.service.Signup(s.ctx, "alice_01", "1234")
	s.Require().NoError(err)

	s.Equal(model.AccountID(1), id.AccountID)
	s.Equal("alice_01", id.Username)
}

func (s *ServiceSuite) TestSignupStoresHashNotPIN() {
	s.signup("alice", "1234")

	account, err := s.storage.FindActiveByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.NotEqual("1234", account.SecretHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(account.SecretHash), []byte("1234")))
}

func (s *ServiceSuite) TestSignupCreatesDefaultProfile() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")

	view, err := s.service.GetProfile(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal("alice", view.Username)
	s.Equal("alice", view.Profile["displayName"])
	s.Equal("retro-dark", view.Settings["theme"])
}

func (s *ServiceSuite) TestSignupDuplicateUsername() {
	s.signup("alice", "1234")

	_, err := s.service.Signup(s.ctx, "alice", "9999")
	s.ErrorIs(err, ErrUsernameTaken)
}

func (s *ServiceSuite) TestSignupUsernameIsCaseSensitive() {
	s.signup("alice", "1234")

	_, err := s.service.Signup(s.ctx, "Alice", "1234")
	s.NoError(err)
}

func (s *ServiceSuite) TestSignupValidation() {
	tests := []struct {
		name     string
		username string
		pin      string
		field    string
	}{
		{"empty username", "", "1234", "username"},
		{"short username", "ab", "1234", "username"},
		{"long username", "abcdefghijklmnopqrstu", "1234", "username"},
		{"bad characters", "bad-name", "1234", "username"},
		{"spaces", "al ice", "1234", "username"},
		{"short pin", "alice", "123", "pin"},
		{"long pin", "alice", "12345", "pin"},
		{"letters in pin", "alice", "12a4", "pin"},
		{"empty pin", "alice", "", "pin"},
		{"username reported first", "x", "x", "username"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Signup(s.ctx, tt.username, tt.pin)
			s.Require().ErrorIs(err, ErrValidationFailed)

			var vErr *ValidationError
			s.Require().True(errors.As(err, &vErr))
			s.Equal(tt.field, vErr.Field)
			s.NotEmpty(vErr.Message)
		})
	}
}

func (s *ServiceSuite) TestSignupBoundaryLengthsAccepted() {
	s.signup("abc", "0000")
	s.signup("abcdefghijklmnopqrst", "9999")
}

func (s *ServiceSuite) TestSignupStorageFailure() {
	backendErr := errors.New("connection reset")
	s.store.createErr = backendErr

	_, err := s.service.Signup(s.ctx, "alice", "1234")
	s.ErrorIs(err, ErrStorageFailure)
	s.ErrorIs(err, backendErr)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.SignupsTotal.WithLabelValues(observability.OutcomeStorageFailure)))
}

func (s *ServiceSuite) TestConcurrentSignupOneWinner() {
	const attempts = 12

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Signup(s.ctx, "racer", "1234")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrUsernameTaken):
				taken++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(attempts-1, taken)
}

func (s *ServiceSuite) TestSignupRecordsMetrics() {
	s.signup("alice", "1234")
	_, _ = s.service.Signup(s.ctx, "alice", "1234")
	_, _ = s.service.Signup(s.ctx, "a", "1234")

	s.Equal(1.0, promtest.ToFloat64(s.metrics.SignupsTotal.WithLabelValues(observability.OutcomeSuccess)))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.SignupsTotal.WithLabelValues(observability.OutcomeUsernameTaken)))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.SignupsTotal.WithLabelValues(observability.OutcomeValidationFailed)))
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	id := s.signup("alice", "1234")

	session, err := s.service.Login(s.ctx, "alice", "1234", false)
	s.Require().NoError(err)

	s.NotEmpty(session.Token)
	s.Equal(id.AccountID, session.AccountID)
	s.Equal("alice", session.Username)
	s.False(session.Persistent)
	s.Equal(time.Hour, session.TTL)
	s.Equal(s.clock.Now().Add(time.Hour), session.ExpiresAt)
}

func (s *ServiceSuite) TestLoginPersistentUsesLongTTL() {
	s.signup("alice", "1234")

	session, err := s.service.Login(s.ctx, "alice", "1234", true)
	s.Require().NoError(err)
	s.True(session.Persistent)
	s.Equal(7*24*time.Hour, session.TTL)
}

func (s *ServiceSuite) TestLoginWrongPIN() {
	s.signup("alice", "1234")

	_, err := s.service.Login(s.ctx, "alice", "4321", false)
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginUnknownUserIndistinguishable() {
	s.signup("alice", "1234")

	_, wrongPIN := s.service.Login(s.ctx, "alice", "0000", false)
	_, unknown := s.service.Login(s.ctx, "nobody", "0000", false)

	s.ErrorIs(wrongPIN, ErrInvalidCredentials)
	s.ErrorIs(unknown, ErrInvalidCredentials)
	s.Equal(wrongPIN.Error(), unknown.Error())
}

func (s *ServiceSuite) TestLoginValidatesInput() {
	_, err := s.service.Login(s.ctx, "alice", "12", false)
	s.ErrorIs(err, ErrValidationFailed)
}

func (s *ServiceSuite) TestLoginUpdatesLastLogin() {
	s.signup("alice", "1234")
	s.clock.Advance(5 * time.Minute)
	s.login("alice", "1234")

	account, err := s.storage.FindActiveByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().NotNil(account.LastLoginAt)
	s.Equal(s.clock.Now(), *account.LastLoginAt)
}

func (s *ServiceSuite) TestLoginSurvivesLastLoginFailure() {
	s.signup("alice", "1234")
	s.store.touchErr = errors.New("write timeout")

	session, err := s.service.Login(s.ctx, "alice", "1234", false)
	s.Require().NoError(err)
	s.NotEmpty(session.Token)
}

func (s *ServiceSuite) TestLoginStorageFailure() {
	s.store.findErr = errors.New("connection refused")

	_, err := s.service.Login(s.ctx, "alice", "1234", false)
	s.ErrorIs(err, ErrStorageFailure)
	s.NotErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginDeactivatedAccount() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")
	s.Require().NoError(s.service.Deactivate(s.ctx, session.Token))

	_, err := s.service.Login(s.ctx, "alice", "1234", false)
	s.ErrorIs(err, ErrInvalidCredentials)
}

// Status tests

func (s *ServiceSuite) TestStatusWithValidToken() {
	id := s.signup("alice", "1234")
	session := s.login("alice", "1234")

	status := s.service.Status(session.Token)
	s.True(status.Authenticated)
	s.Equal(id.AccountID, status.AccountID)
	s.Equal("alice", status.Username)
}

func (s *ServiceSuite) TestStatusWithoutToken() {
	status := s.service.Status("")
	s.False(status.Authenticated)
	s.Empty(status.Username)
}

func (s *ServiceSuite) TestStatusWithGarbageToken() {
	s.False(s.service.Status("not-a-token").Authenticated)
}

func (s *ServiceSuite) TestStatusAfterExpiry() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")

	s.clock.Advance(time.Hour - time.Second)
	s.True(s.service.Status(session.Token).Authenticated)

	s.clock.Advance(time.Second)
	s.False(s.service.Status(session.Token).Authenticated)
}

func (s *ServiceSuite) TestPersistentTokenOutlivesShortTTL() {
	s.signup("alice", "1234")
	session, err := s.service.Login(s.ctx, "alice", "1234", true)
	s.Require().NoError(err)

	s.clock.Advance(6 * 24 * time.Hour)
	s.True(s.service.Status(session.Token).Authenticated)

	s.clock.Advance(24 * time.Hour)
	s.False(s.service.Status(session.Token).Authenticated)
}

// Identify tests

func (s *ServiceSuite) TestIdentify() {
	id := s.signup("alice", "1234")
	session := s.login("alice", "1234")

	claims, err := s.service.Identify(session.Token)
	s.Require().NoError(err)
	s.Equal(id.AccountID, claims.AccountID)
	s.Equal("alice", claims.Username)
}

func (s *ServiceSuite) TestIdentifyRejectsInvalidToken() {
	_, err := s.service.Identify("")
	s.ErrorIs(err, ErrNotAuthenticated)
}

func (s *ServiceSuite) TestActiveIdentity() {
	id := s.signup("alice", "1234")
	session := s.login("alice", "1234")

	got, err := s.service.ActiveIdentity(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal(*id, *got)
}

func (s *ServiceSuite) TestActiveIdentityRefusesDeactivatedAccount() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")
	s.Require().NoError(s.service.Deactivate(s.ctx, session.Token))

	// The token itself is still unexpired
	s.True(s.service.Status(session.Token).Authenticated)

	_, err := s.service.ActiveIdentity(s.ctx, session.Token)
	s.ErrorIs(err, ErrNotAuthenticated)
}

func (s *ServiceSuite) TestActiveIdentityRejectsInvalidToken() {
	_, err := s.service.ActiveIdentity(s.ctx, "garbage")
	s.ErrorIs(err, ErrNotAuthenticated)
}

func (s *ServiceSuite) TestActiveIdentityStorageFailure() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")
	s.store.findErr = errors.New("connection refused")

	_, err := s.service.ActiveIdentity(s.ctx, session.Token)
	s.ErrorIs(err, ErrStorageFailure)
	s.NotErrorIs(err, ErrNotAuthenticated)
}

// Profile tests

func (s *ServiceSuite) TestUpdateProfileReplacesDocument() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")

	doc := model.Profile{
		"profile":  map[string]any{"displayName": "Alice A."},
		"settings": map[string]any{"theme": "light"},
	}
	s.Require().NoError(s.service.UpdateProfile(s.ctx, session.Token, doc))

	view, err := s.service.GetProfile(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal("Alice A.", view.Profile["displayName"])
	s.Equal("light", view.Settings["theme"])
}

func (s *ServiceSuite) TestUpdateProfileRequiresDocument() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")

	err := s.service.UpdateProfile(s.ctx, session.Token, nil)
	s.ErrorIs(err, ErrValidationFailed)
}

func (s *ServiceSuite) TestProfileRequiresAuthentication() {
	_, err := s.service.GetProfile(s.ctx, "")
	s.ErrorIs(err, ErrNotAuthenticated)

	err = s.service.UpdateProfile(s.ctx, "bogus", model.Profile{})
	s.ErrorIs(err, ErrNotAuthenticated)
}

// Deactivate tests

func (s *ServiceSuite) TestDeactivateHidesProfile() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")

	s.Require().NoError(s.service.Deactivate(s.ctx, session.Token))

	_, err := s.service.GetProfile(s.ctx, session.Token)
	s.ErrorIs(err, ErrNotAuthenticated)
}

func (s *ServiceSuite) TestDeactivatedUsernameStaysReserved() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")
	s.Require().NoError(s.service.Deactivate(s.ctx, session.Token))

	_, err := s.service.Signup(s.ctx, "alice", "1234")
	s.ErrorIs(err, ErrUsernameTaken)
}

func (s *ServiceSuite) TestDeactivateTwice() {
	s.signup("alice", "1234")
	session := s.login("alice", "1234")
	s.Require().NoError(s.service.Deactivate(s.ctx, session.Token))

	err := s.service.Deactivate(s.ctx, session.Token)
	s.ErrorIs(err, ErrNotAuthenticated)
}

// brokenHasher cannot produce hashes
type brokenHasher struct{}

func (brokenHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }
func (brokenHasher) Verify(string, string) bool { return false }

func TestNewFailsWithoutDecoyHash(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	codec, err := token.New(testSecret, clk, token.DefaultIssuer)
	require.NoError(t, err)

	svc, err := New(memory.New(), brokenHasher{}, codec, clk, DefaultConfig(), testutil.NopLogger(), observability.NewMetrics(prometheus.NewRegistry()))
	require.ErrorContains(t, err, "entropy exhausted")
	require.Nil(t, svc)
}
