// Package httpapi is the HTTP surface: routing, middleware, controllers and
// the error catalog every endpoint answers with.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/authgate/internal/auth"
)

// RouterConfig carries the HTTP layer knobs.
type RouterConfig struct {
	// RequireSecureTransport enables the permanent redirect of plain-HTTP
	// requests to https. Off for local development.
	RequireSecureTransport bool

	// DisableMetrics leaves /metrics unmounted.
	DisableMetrics bool
}

// NewRouter builds the full handler tree for the given strategy.
func NewRouter(registrar *auth.Registrar, strategy auth.Strategy, cfg RouterConfig) http.Handler {
	c := NewAuthController(registrar, strategy)

	r := chi.NewRouter()
	r.Use(WithMetrics())

	r.Post("/v1/auth/register", c.Register)
	r.Post("/v1/auth/login", c.Login)
	r.Post("/v1/auth/logout", c.Logout)
	if _, ok := strategy.(auth.Refresher); ok {
		r.Post("/v1/auth/refresh", c.Refresh)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequirePrincipal(strategy))
		r.Get("/v1/me", c.Me)
	})

	r.Get("/healthz", healthz)
	if !cfg.DisableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, ErrMethodNotAllowed)
	})

	return Chain(r,
		SecureTransport(cfg.RequireSecureTransport),
		WithRequestID(),
		WithLogging(),
		WithRecover(),
	)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
