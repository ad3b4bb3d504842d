package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/pinauthority/internal/api/apierr"
	"github.com/mcoot/pinauthority/internal/services/auth"
	"github.com/mcoot/pinauthority/internal/services/gateway"
	"github.com/mcoot/pinauthority/internal/services/token"
)

// CookieName is the cookie carrying the session token
const CookieName = gateway.CookieName

type contextKey string

const (
	claimsContextKey contextKey = "claims"
	tokenContextKey  contextKey = "token"
)

// Auth rejects requests without a valid session token
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ExtractToken(r)
			if raw == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			claims, err := authService.Identify(raw)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, claimsContextKey, claims)
			ctx = context.WithValue(ctx, tokenContextKey, raw)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken returns the session token from the auth cookie, falling back
// to a bearer Authorization header
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// GetClaims returns the verified claims from the request context
func GetClaims(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*token.Claims)
	return claims
}

// GetToken returns the raw verified token from the request context
func GetToken(ctx context.Context) string {
	raw, _ := ctx.Value(tokenContextKey).(string)
	return raw
}
