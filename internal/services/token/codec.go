package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mcoot/pinauthority/internal/dependencies/clock"
	"github.com/mcoot/pinauthority/internal/model"
)

// MinSecretLength is the shortest accepted HS256 signing secret, in bytes
const MinSecretLength = 32

// DefaultIssuer is the iss claim stamped on every token
const DefaultIssuer = "pinauthority"

// Errors
var (
	ErrMissingSecret = errors.New("token signing secret is required")
	ErrWeakSecret    = errors.New("token signing secret must be at least 32 bytes")
	// ErrInvalidToken covers every verification failure: bad signature,
	// malformed input, wrong algorithm or issuer, and expiry.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the identity carried inside a session token
type Claims struct {
	AccountID model.AccountID `json:"uid"`
	Username  string          `json:"username"`
	jwt.RegisteredClaims
}

// Codec mints and verifies HS256 session tokens
type Codec struct {
	secret []byte
	clock  clock.Clock
	issuer string
	parser *jwt.Parser
}

// New creates a Codec. It refuses to run without a strong secret.
func New(secret []byte, clk clock.Clock, issuer string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Codec{
		secret: key,
		clock:  clk,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

// Mint signs a token for the account that expires ttl from now
func (c *Codec) Mint(accountID model.AccountID, username string, ttl time.Duration) (string, error) {
	now := c.clock.Now()

	claims := Claims{
		AccountID: accountID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(accountID), 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature and then expiry. Any failure yields ErrInvalidToken.
func (c *Codec) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	tok, err := c.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	if claims.AccountID <= 0 || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
