package middleware

import (
	"context"
	"net/http"

	"github.com/mcoot/pinauthority/internal/services/gateway"
)

type contextKey string

const (
	identityContextKey contextKey = "identity"
)

type identityResult struct {
	identity gateway.Identity
	err      error
}

// GetIdentity returns the identity resolved by Identify and any error the
// authority check produced
func GetIdentity(ctx context.Context) (gateway.Identity, error) {
	result, _ := ctx.Value(identityContextKey).(identityResult)
	return result.identity, result.err
}

// Identify returns middleware that asks the authority who the caller is.
// It never blocks the request; handlers decide what a failed check means.
func Identify(client *gateway.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := client.Status(r.Context(), tokenFromCookie(r))
			ctx := context.WithValue(r.Context(), identityContextKey, identityResult{identity, err})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(gateway.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
