package gateway

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidEndpoint is returned when the authority address cannot be used
var ErrInvalidEndpoint = errors.New("invalid authority endpoint")

// Endpoint is the resolved address of the authority
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// ParseEndpoint resolves an authority URL such as "http://localhost:3001".
// Only http and https are accepted. A missing port defaults from the scheme.
// The authority serves its API from the root, so a path, query or fragment
// is rejected.
func ParseEndpoint(raw string) (Endpoint, error) {
	if strings.TrimSpace(raw) == "" {
		return Endpoint{}, fmt.Errorf("%w: empty address", ErrInvalidEndpoint)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}

	var defaultPort int
	switch u.Scheme {
	case "http":
		defaultPort = 80
	case "https":
		defaultPort = 443
	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}

	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return Endpoint{}, fmt.Errorf("%w: unexpected path or query in %q", ErrInvalidEndpoint, raw)
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Endpoint{}, fmt.Errorf("%w: bad port %q", ErrInvalidEndpoint, p)
		}
	}

	return Endpoint{Scheme: u.Scheme, Host: host, Port: port}, nil
}

// String returns the base URL of the endpoint
func (e Endpoint) String() string {
	return e.Scheme + "://" + net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the absolute URL for path on the endpoint
func (e Endpoint) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.String() + path
}

// BaseURL returns the endpoint as a *url.URL
func (e Endpoint) BaseURL() *url.URL {
	return &url.URL{Scheme: e.Scheme, Host: net.JoinHostPort(e.Host, strconv.Itoa(e.Port))}
}
