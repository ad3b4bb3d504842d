package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// Content-Security-Policy values
const (
	// APIContentSecurityPolicy suits JSON responses, which load nothing
	APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"
	// DocumentContentSecurityPolicy lets pages load same-origin scripts,
	// styles and images and call same-origin APIs
	DocumentContentSecurityPolicy = "default-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"
)

// SecurityConfig holds options for the security header middleware
type SecurityConfig struct {
	// HSTS enables Strict-Transport-Security. Only set it when served over TLS.
	HSTS bool
	// ContentSecurityPolicy defaults to APIContentSecurityPolicy
	ContentSecurityPolicy string
}

// SecurityHeaders sets the standard hardening headers on every response
func SecurityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	csp := cfg.ContentSecurityPolicy
	if csp == "" {
		csp = APIContentSecurityPolicy
	}

	opts := secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: csp,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	}
	if cfg.HSTS {
		opts.STSSeconds = 31536000
		opts.STSIncludeSubdomains = true
		opts.ForceSTSHeader = true
	}
	return secure.New(opts).Handler
}
