package response

import (
	"github.com/mcoot/pinauthority/internal/model"
	"github.com/mcoot/pinauthority/internal/services/auth"
)

// Message is a response carrying only a human-readable message
type Message struct {
	Message string `json:"message"`
}

// Signup is the response for a created account
type Signup struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// Login is the response for a successful login
type Login struct {
	Message  string          `json:"message"`
	Username string          `json:"username"`
	UserID   model.AccountID `json:"userId"`
}

// LoginFromSession creates a Login response from a session
func LoginFromSession(s *auth.Session) Login {
	return Login{
		Message:  "Login successful",
		Username: s.Username,
		UserID:   s.AccountID,
	}
}

// Status reports whether the caller is authenticated
type Status struct {
	Authenticated bool            `json:"authenticated"`
	Username      string          `json:"username,omitempty"`
	UserID        model.AccountID `json:"userId,omitempty"`
}

// StatusFromAuth converts an auth.Status
func StatusFromAuth(s auth.Status) Status {
	return Status{
		Authenticated: s.Authenticated,
		Username:      s.Username,
		UserID:        s.AccountID,
	}
}

// Profile is the caller's profile and settings
type Profile struct {
	Username string         `json:"username"`
	Profile  map[string]any `json:"profile"`
	Settings map[string]any `json:"settings"`
}

// ProfileFromView converts an auth.ProfileView
func ProfileFromView(v *auth.ProfileView) Profile {
	return Profile{
		Username: v.Username,
		Profile:  v.Profile,
		Settings: v.Settings,
	}
}

// Health is the response for health checks
type Health struct {
	Status string `json:"status"`
}
