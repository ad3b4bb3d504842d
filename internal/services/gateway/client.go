package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/observability"
)

// Errors
var (
	ErrUpstreamUnavailable = errors.New("authority unavailable")
	ErrUpstreamTimeout     = errors.New("authority timed out")
)

// CookieName is the cookie carrying the session token
const CookieName = "auth_token"

// IdentityPath is the authority endpoint that answers identity checks
const IdentityPath = "/api/me"

const maxIdentityBody = 64 << 10

// Identity is the authority's answer for a token
type Identity struct {
	Authenticated bool            `json:"authenticated"`
	Username      string          `json:"username,omitempty"`
	AccountID     model.AccountID `json:"userId,omitempty"`
}

// Config holds configuration for the authority client
type Config struct {
	Endpoint Endpoint
	Timeout  time.Duration
}

// DefaultTimeout bounds each identity check
const DefaultTimeout = 5 * time.Second

// Client asks the authority who a token belongs to
type Client struct {
	endpoint Endpoint
	http     *http.Client
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a new Client
func New(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		metrics:  metrics,
	}
}

// Endpoint returns the authority address the client talks to
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Close releases idle connections to the authority
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Status resolves a token to an identity. An empty token is anonymous and
// makes no request. A rejected token is a normal anonymous answer, while
// failures to get an answer return ErrUpstreamTimeout or ErrUpstreamUnavailable.
func (c *Client) Status(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		c.metrics.RecordUpstreamCheck(observability.UpstreamSkipped)
		return Identity{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.URL(IdentityPath), nil)
	if err != nil {
		return Identity{}, c.infraFailure(observability.UpstreamUnavailable, ErrUpstreamUnavailable, err)
	}
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Identity{}, c.infraFailure(observability.UpstreamTimeout, ErrUpstreamTimeout, err)
		}
		return Identity{}, c.infraFailure(observability.UpstreamUnavailable, ErrUpstreamUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxIdentityBody))
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		var identity Identity
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxIdentityBody)).Decode(&identity); err != nil {
			if isTimeout(err) {
				return Identity{}, c.infraFailure(observability.UpstreamTimeout, ErrUpstreamTimeout, err)
			}
			return Identity{}, c.infraFailure(observability.UpstreamUnavailable, ErrUpstreamUnavailable,
				fmt.Errorf("decode identity: %w", err))
		}
		if !identity.Authenticated || identity.Username == "" {
			c.metrics.RecordUpstreamCheck(observability.UpstreamAnonymous)
			return Identity{}, nil
		}
		c.metrics.RecordUpstreamCheck(observability.UpstreamAuthenticated)
		return identity, nil

	case http.StatusUnauthorized, http.StatusForbidden:
		c.metrics.RecordUpstreamCheck(observability.UpstreamAnonymous)
		return Identity{}, nil

	default:
		return Identity{}, c.infraFailure(observability.UpstreamUnavailable, ErrUpstreamUnavailable,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (c *Client) infraFailure(result string, sentinel, cause error) error {
	c.metrics.RecordUpstreamCheck(result)
	c.logger.Error("authority check failed",
		slog.String("kind", "infra"),
		slog.String("authority", c.endpoint.String()),
		slog.String("result", result),
		slog.String("error", cause.Error()),
	)
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// UpstreamError wraps a failed exchange with the authority in
// ErrUpstreamTimeout or ErrUpstreamUnavailable
func UpstreamError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
