package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/pinauthority/internal/api/handler"
	apimiddleware "github.com/mcoot/pinauthority/internal/api/middleware"
	"github.com/mcoot/pinauthority/internal/middleware"
	"github.com/mcoot/pinauthority/internal/observability"
	"github.com/mcoot/pinauthority/internal/services/auth"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	AuthService  *auth.Service
	Health       handler.Pinger
	Registry     *prometheus.Registry
	CookieSecure bool
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	cookies := handler.CookieConfig{Secure: cfg.CookieSecure}

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cookies, cfg.Logger)
	userHandler := handler.NewUserHandler(cfg.AuthService, cookies, cfg.Logger)
	healthHandler := handler.NewHealthHandler(cfg.Health, cfg.Logger)

	// Create middleware
	authMiddleware := apimiddleware.Auth(cfg.AuthService)

	r.Use(apimiddleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(middleware.SecurityConfig{HSTS: cfg.CookieSecure}))

	api := r.PathPrefix("/api").Subrouter()

	// Auth routes (no session required)
	api.HandleFunc("/auth/signup", authHandler.Signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/status", authHandler.Status).Methods(http.MethodGet)

	// Identity check for gateways
	me := api.PathPrefix("/me").Subrouter()
	me.Use(authMiddleware)
	me.HandleFunc("", authHandler.Me).Methods(http.MethodGet)

	// Protected user routes
	user := api.PathPrefix("/user").Subrouter()
	user.Use(authMiddleware)
	user.HandleFunc("", userHandler.Delete).Methods(http.MethodDelete)
	user.HandleFunc("/profile", userHandler.GetProfile).Methods(http.MethodGet)
	user.HandleFunc("/profile", userHandler.UpdateProfile).Methods(http.MethodPut)

	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	if cfg.Registry != nil {
		r.Handle("/metrics", observability.Handler(cfg.Registry)).Methods(http.MethodGet)
	}

	return r
}
