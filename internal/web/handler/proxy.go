package handler

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/mcoot/pinauthority/internal/api/apierr"
	"github.com/mcoot/pinauthority/internal/middleware"
	"github.com/mcoot/pinauthority/internal/services/gateway"
)

// NewAuthorityProxy forwards requests unchanged to the authority, so browsers
// can reach it through the gateway's origin
func NewAuthorityProxy(endpoint gateway.Endpoint, timeout time.Duration, logger *slog.Logger) http.Handler {
	target := endpoint.BaseURL()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if id := middleware.RequestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(middleware.RequestIDHeader, id)
			}
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			upstreamErr := gateway.UpstreamError(err)
			logger.Error("authority proxy failed",
				slog.String("kind", "infra"),
				slog.String("authority", endpoint.String()),
				slog.String("path", r.URL.Path),
				slog.String("error", upstreamErr.Error()),
			)
			apierr.WriteError(w, upstreamErr)
		},
	}
}
