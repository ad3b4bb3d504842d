package handler

import (
	"net/http"

	"github.com/mcoot/pinauthority/internal/api/apierr"
	"github.com/mcoot/pinauthority/internal/api/response"
	"github.com/mcoot/pinauthority/internal/web/middleware"
)

// AuthHandler answers identity questions on behalf of the authority
type AuthHandler struct{}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Status handles GET /api/auth/status. An unreachable authority is reported
// as anonymous; the failure has already been logged by the client.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.GetIdentity(r.Context())
	if err != nil || !identity.Authenticated {
		response.JSON(w, http.StatusOK, response.Status{Authenticated: false})
		return
	}

	response.JSON(w, http.StatusOK, response.Status{
		Authenticated: true,
		Username:      identity.Username,
		UserID:        identity.AccountID,
	})
}

// Whoami handles GET /api/auth/whoami. Unlike Status it surfaces authority
// failures as 502 or 504.
func (h *AuthHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.GetIdentity(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if !identity.Authenticated {
		apierr.WriteError(w, apierr.NewUnauthorizedError())
		return
	}

	response.JSON(w, http.StatusOK, response.Status{
		Authenticated: true,
		Username:      identity.Username,
		UserID:        identity.AccountID,
	})
}
