package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/observability"
	"github.com/mcoot/pinauthority/internal/testutil"
)

func newTestClient(t *testing.T, rawURL string, timeout time.Duration) (*Client, *observability.Metrics) {
	t.Helper()
	endpoint, err := ParseEndpoint(rawURL)
	require.NoError(t, err)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client := New(Config{Endpoint: endpoint, Timeout: timeout}, testutil.NopLogger(), metrics)
	t.Cleanup(client.Close)
	return client, metrics
}

func checks(m *observability.Metrics, result string) float64 {
	return promtest.ToFloat64(m.UpstreamChecksTotal.WithLabelValues(result))
}

func TestStatusWithoutTokenMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client, metrics := newTestClient(t, srv.URL, time.Second)

	identity, err := client.Status(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, identity.Authenticated)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 1.0, checks(metrics, observability.UpstreamSkipped))
}

func TestStatusForwardsCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, IdentityPath, r.URL.Path)
		cookie, err := r.Cookie(CookieName)
		if !assert.NoError(t, err) || cookie.Value != "tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"authenticated":true,"username":"alice","userId":7}`))
	}))
	defer srv.Close()

	client, metrics := newTestClient(t, srv.URL, time.Second)

	identity, err := client.Status(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, Identity{Authenticated: true, Username: "alice", AccountID: model.AccountID(7)}, identity)
	assert.Equal(t, 1.0, checks(metrics, observability.UpstreamAuthenticated))
}

func TestStatusRejectedTokenIsAnonymous(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			client, metrics := newTestClient(t, srv.URL, time.Second)

			identity, err := client.Status(context.Background(), "expired")
			require.NoError(t, err)
			assert.False(t, identity.Authenticated)
			assert.Equal(t, 1.0, checks(metrics, observability.UpstreamAnonymous))
		})
	}
}

func TestStatusServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, metrics := newTestClient(t, srv.URL, time.Second)

	_, err := client.Status(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 1.0, checks(metrics, observability.UpstreamUnavailable))
}

func TestStatusMalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, time.Second)

	_, err := client.Status(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestStatusConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client, metrics := newTestClient(t, "http://"+addr, time.Second)

	_, err = client.Status(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrUpstreamTimeout)
	assert.Equal(t, 1.0, checks(metrics, observability.UpstreamUnavailable))
}

func TestStatusTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	endpoint, err := ParseEndpoint(srv.URL)
	require.NoError(t, err)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client := New(Config{Endpoint: endpoint, Timeout: 50 * time.Millisecond}, testutil.NopLogger(), metrics)
	defer client.Close()

	start := time.Now()
	_, err = client.Status(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1.0, checks(metrics, observability.UpstreamTimeout))
}

func TestStatusHonoursCallerDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Status(ctx, "tok")
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
}

func TestConcurrentStatusChecks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, _ := r.Cookie(CookieName)
		_, _ = w.Write([]byte(`{"authenticated":true,"username":"` + cookie.Value + `","userId":1}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, time.Second)

	users := []string{"alice", "bob", "carol", "dave"}
	results := make(chan string, len(users))
	for _, u := range users {
		go func() {
			identity, err := client.Status(context.Background(), u)
			if err != nil {
				results <- "error"
				return
			}
			results <- identity.Username
		}()
	}

	got := make([]string, 0, len(users))
	for range users {
		got = append(got, <-results)
	}
	assert.ElementsMatch(t, users, got)
}

func TestUpstreamError(t *testing.T) {
	assert.ErrorIs(t, UpstreamError(context.DeadlineExceeded), ErrUpstreamTimeout)
	assert.ErrorIs(t, UpstreamError(errors.New("connection reset")), ErrUpstreamUnavailable)
}
