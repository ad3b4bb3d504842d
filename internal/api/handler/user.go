package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/pinauthority/internal/api/middleware"
	"github.com/mcoot/pinauthority/internal/api/response"
	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/services/auth"
)

// UserHandler handles the signed-in user's own account
type UserHandler struct {
	errorWriter
	authService *auth.Service
	cookies     CookieConfig
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *auth.Service, cookies CookieConfig, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		errorWriter: errorWriter{logger: logger},
		authService: authService,
		cookies:     cookies,
	}
}

// GetProfile handles GET /api/user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	view, err := h.authService.GetProfile(r.Context(), middleware.GetToken(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromView(view))
}

// UpdateProfile handles PUT /api/user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var doc model.Profile
	if err := decodeJSON(w, r, &doc); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.authService.UpdateProfile(r.Context(), middleware.GetToken(r.Context()), doc); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Message{Message: "Profile updated"})
}

// Delete handles DELETE /api/user
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Deactivate(r.Context(), middleware.GetToken(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cookies.clear(w)
	response.JSON(w, http.StatusOK, response.Message{Message: "Account deactivated"})
}
