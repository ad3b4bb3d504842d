package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/pinauthority/internal/api/middleware"
	"github.com/mcoot/pinauthority/internal/api/request"
	"github.com/mcoot/pinauthority/internal/api/response"
	"github.com/mcoot/pinauthority/internal/services/auth"
)

// AuthHandler handles signup, login and session status endpoints
type AuthHandler struct {
	errorWriter
	authService *auth.Service
	cookies     CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		errorWriter: errorWriter{logger: logger},
		authService: authService,
		cookies:     cookies,
	}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req request.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	identity, err := h.authService.Signup(r.Context(), req.Username, req.PIN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.Signup{
		Message:  "Account created successfully",
		Username: identity.Username,
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.PIN, req.RememberMe)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cookies.set(w, session)
	response.JSON(w, http.StatusOK, response.LoginFromSession(session))
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w)
	response.JSON(w, http.StatusOK, response.Message{Message: "Logged out successfully"})
}

// Status handles GET /api/auth/status
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.authService.Status(middleware.ExtractToken(r))
	response.JSON(w, http.StatusOK, response.StatusFromAuth(status))
}

// Me handles GET /api/me, the identity check used by gateways. Unlike Status
// it consults the store, so a deactivated account stops passing at once.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authService.ActiveIdentity(r.Context(), middleware.GetToken(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Status{
		Authenticated: true,
		Username:      identity.Username,
		UserID:        identity.AccountID,
	})
}
