package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/pinauthority/internal/api/apierr"
	"github.com/mcoot/pinauthority/internal/middleware"
)

const maxBodyBytes = 64 << 10

// errorWriter writes API errors, logging those that are the server's fault
type errorWriter struct {
	logger *slog.Logger
}

func (e errorWriter) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		e.logger.Error("request failed",
			slog.String("request_id", middleware.RequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	apierr.WriteError(w, err)
}

// decodeJSON reads a single bounded JSON document from the request body
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierr.NewInvalidRequestError("Request body is required")
		}
		return apierr.NewInvalidRequestError("Invalid request body")
	}
	return nil
}
