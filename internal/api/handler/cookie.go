package handler

import (
	"net/http"

	"github.com/mcoot/pinauthority/internal/api/middleware"
	"github.com/mcoot/pinauthority/internal/services/auth"
)

// CookieConfig controls the attributes of the session cookie
type CookieConfig struct {
	Secure bool
}

func (c CookieConfig) set(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
