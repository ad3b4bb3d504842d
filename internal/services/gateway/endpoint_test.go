package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Endpoint
	}{
		{"http with port", "http://localhost:3001", Endpoint{Scheme: "http", Host: "localhost", Port: 3001}},
		{"http default port", "http://auth.internal", Endpoint{Scheme: "http", Host: "auth.internal", Port: 80}},
		{"https default port", "https://auth.example.com/", Endpoint{Scheme: "https", Host: "auth.example.com", Port: 443}},
		{"ipv6", "http://[::1]:8080", Endpoint{Scheme: "http", Host: "::1", Port: 8080}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEndpointRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "ftp://host", "localhost:3001", "http://", "http://host:0", "http://host:99999", "http://host:abc",
		"http://auth.internal:8080/authority", "http://host/api/", "http://host?x=1", "http://host/#frag", "http://user:pw@host",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseEndpoint(raw)
			assert.ErrorIs(t, err, ErrInvalidEndpoint)
		})
	}
}

func TestEndpointURL(t *testing.T) {
	e := Endpoint{Scheme: "http", Host: "localhost", Port: 3001}

	assert.Equal(t, "http://localhost:3001", e.String())
	assert.Equal(t, "http://localhost:3001/api/me", e.URL("/api/me"))
	assert.Equal(t, "http://localhost:3001/api/me", e.URL("api/me"))
	assert.Equal(t, "localhost:3001", e.BaseURL().Host)

	v6 := Endpoint{Scheme: "http", Host: "::1", Port: 80}
	assert.Equal(t, "http://[::1]:80", v6.String())
}
