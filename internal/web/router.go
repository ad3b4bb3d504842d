package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/pinauthority/internal/middleware"
	"github.com/mcoot/pinauthority/internal/observability"
	"github.com/mcoot/pinauthority/internal/services/gateway"
	"github.com/mcoot/pinauthority/internal/web/handler"
	webmiddleware "github.com/mcoot/pinauthority/internal/web/middleware"
)

// RouterConfig holds configuration for the gateway router
type RouterConfig struct {
	Logger          *slog.Logger
	Client          *gateway.Client
	UpstreamTimeout time.Duration
	Registry        *prometheus.Registry
	HSTS            bool
	StaticDir       string // Path to static files directory (optional)
}

// NewRouter creates a new gateway router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create middleware
	identifyMiddleware := webmiddleware.Identify(cfg.Client)
	securityMiddleware := middleware.SecurityHeaders(middleware.SecurityConfig{HSTS: cfg.HSTS})

	// Apply global middleware to all routes
	r.Use(webmiddleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Create handlers
	authHandler := handler.NewAuthHandler()
	healthHandler := handler.NewHealthHandler()
	proxy := handler.NewAuthorityProxy(cfg.Client.Endpoint(), cfg.UpstreamTimeout, cfg.Logger)

	// Identity checks answered by the gateway itself
	identity := r.PathPrefix("/api/auth").Subrouter()
	identity.Use(securityMiddleware)
	identity.Use(identifyMiddleware)
	identity.HandleFunc("/status", authHandler.Status).Methods(http.MethodGet)
	identity.HandleFunc("/whoami", authHandler.Whoami).Methods(http.MethodGet)

	// Account routes forwarded to the authority
	r.Handle("/api/auth/{action:signup|login|logout}", proxy).Methods(http.MethodPost)
	r.PathPrefix("/api/user").Handler(proxy)

	// Gateway's own endpoints
	own := r.NewRoute().Subrouter()
	own.Use(securityMiddleware)
	own.HandleFunc("/api/health", healthHandler.Health).Methods(http.MethodGet)
	if cfg.Registry != nil {
		own.Handle("/metrics", observability.Handler(cfg.Registry)).Methods(http.MethodGet)
	}

	// Static files are documents, so they get a policy that allows same-origin assets
	if cfg.StaticDir != "" {
		static := r.NewRoute().Subrouter()
		static.Use(middleware.SecurityHeaders(middleware.SecurityConfig{
			HSTS:                  cfg.HSTS,
			ContentSecurityPolicy: middleware.DocumentContentSecurityPolicy,
		}))
		static.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}
