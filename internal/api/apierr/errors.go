package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/pinauthority/internal/services/auth"
	"github.com/mcoot/pinauthority/internal/services/gateway"
)

// APIError is the body of every error response
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error codes
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeUsernameTaken       = "USERNAME_TAKEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeNotAuthenticated    = "NOT_AUTHENTICATED"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.apiError)
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ve *auth.ValidationError
	if errors.As(err, &ve) {
		return &httpError{http.StatusBadRequest, APIError{ve.Message, CodeValidationFailed}}
	}

	switch {
	case errors.Is(err, auth.ErrValidationFailed):
		return &httpError{http.StatusBadRequest, APIError{"Invalid request", CodeValidationFailed}}
	case errors.Is(err, auth.ErrUsernameTaken):
		return &httpError{http.StatusConflict, APIError{"Username already exists", CodeUsernameTaken}}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{"Invalid username or PIN", CodeInvalidCredentials}}
	case errors.Is(err, auth.ErrNotAuthenticated):
		return &httpError{http.StatusUnauthorized, APIError{"Not authenticated", CodeNotAuthenticated}}
	case errors.Is(err, gateway.ErrUpstreamTimeout):
		return &httpError{http.StatusGatewayTimeout, APIError{"Authentication service timed out", CodeUpstreamTimeout}}
	case errors.Is(err, gateway.ErrUpstreamUnavailable):
		return &httpError{http.StatusBadGateway, APIError{"Authentication service unavailable", CodeUpstreamUnavailable}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{"Internal server error", CodeInternalError}}
	}
}

// NewInvalidRequestError creates a validation error for a malformed request
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{message, CodeValidationFailed}}
}

// NewUnauthorizedError creates a not-authenticated error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{"Not authenticated", CodeNotAuthenticated}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{"Internal server error", CodeInternalError}}
}

// NewServiceUnavailableError creates an error for a failing dependency check
func NewServiceUnavailableError() error {
	return &httpError{http.StatusServiceUnavailable, APIError{"Service unavailable", CodeServiceUnavailable}}
}
