package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pinauthority/internal/dependencies/mocks"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type CodecSuite struct {
	suite.Suite
	clock *mocks.MockClock
	codec *Codec
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	codec, err := New([]byte(testSecret), s.clock, "")
	s.Require().NoError(err)
	s.codec = codec
}

// New tests

func (s *CodecSuite) TestNewRequiresSecret() {
	_, err := New(nil, s.clock, "")
	s.ErrorIs(err, ErrMissingSecret)
}

func (s *CodecSuite) TestNewRejectsShortSecret() {
	_, err := New([]byte("changeme"), s.clock, "")
	s.ErrorIs(err, ErrWeakSecret)
}

// Mint/Verify tests

func (s *CodecSuite) TestMintThenVerify() {
	raw, err := s.codec.Mint(42, "alice", time.Hour)
	s.Require().NoError(err)

	claims, err := s.codec.Verify(raw)
	s.Require().NoError(err)
	s.EqualValues(42, claims.AccountID)
	s.Equal("alice", claims.Username)
	s.Equal("42", claims.Subject)
	s.Equal(DefaultIssuer, claims.Issuer)
	s.NotEmpty(claims.ID)
	s.True(claims.ExpiresAt.Time.Equal(s.clock.Now().Add(time.Hour)))
}

func (s *CodecSuite) TestTokenIDsAreUnique() {
	first, err := s.codec.Mint(1, "alice", time.Hour)
	s.Require().NoError(err)
	second, err := s.codec.Mint(1, "alice", time.Hour)
	s.Require().NoError(err)

	s.NotEqual(first, second)
}

func (s *CodecSuite) TestVerifyAtExpiryBoundary() {
	raw, err := s.codec.Mint(1, "alice", time.Hour)
	s.Require().NoError(err)

	s.clock.Advance(time.Hour - time.Second)
	_, err = s.codec.Verify(raw)
	s.NoError(err, "token must verify one second before expiry")

	s.clock.Advance(time.Second)
	_, err = s.codec.Verify(raw)
	s.ErrorIs(err, ErrInvalidToken, "token must fail at the expiry instant")

	s.clock.Advance(time.Second)
	_, err = s.codec.Verify(raw)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *CodecSuite) TestVerifyRejectsTokenFromOtherSecret() {
	other, err := New([]byte(strings.Repeat("x", MinSecretLength)), s.clock, "")
	s.Require().NoError(err)
	raw, err := other.Mint(1, "alice", time.Hour)
	s.Require().NoError(err)

	_, err = s.codec.Verify(raw)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *CodecSuite) TestVerifyRejectsTamperedPayload() {
	raw, err := s.codec.Mint(1, "alice", time.Hour)
	s.Require().NoError(err)

	forged, err := s.codec.Mint(2, "mallory", time.Hour)
	s.Require().NoError(err)

	parts := strings.Split(raw, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = s.codec.Verify(spliced)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *CodecSuite) TestVerifyRejectsUnsignedToken() {
	claims := Claims{
		AccountID: 1,
		Username:  "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			IssuedAt:  jwt.NewNumericDate(s.clock.Now()),
			ExpiresAt: jwt.NewNumericDate(s.clock.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	_, err = s.codec.Verify(raw)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *CodecSuite) TestVerifyRejectsWrongIssuer() {
	other, err := New([]byte(testSecret), s.clock, "someone-else")
	s.Require().NoError(err)
	raw, err := other.Mint(1, "alice", time.Hour)
	s.Require().NoError(err)

	_, err = s.codec.Verify(raw)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *CodecSuite) TestVerifyRejectsGarbage() {
	for _, raw := range []string{"", "garbage", "a.b.c", "..."} {
		_, err := s.codec.Verify(raw)
		s.ErrorIs(err, ErrInvalidToken, "input %q", raw)
	}
}

func (s *CodecSuite) TestFailuresAreIndistinguishable() {
	raw, err := s.codec.Mint(1, "alice", time.Hour)
	s.Require().NoError(err)
	s.clock.Advance(2 * time.Hour)

	_, expiredErr := s.codec.Verify(raw)
	_, garbageErr := s.codec.Verify("garbage")

	s.Equal(expiredErr, garbageErr)
}
