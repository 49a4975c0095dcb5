package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/target/clinic-session/internal/guard"
	"github.com/target/clinic-session/internal/ports"
	"github.com/target/clinic-session/internal/routes"
	"github.com/target/clinic-session/internal/service"
	"github.com/target/clinic-session/internal/session"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Gateway   *service.Gateway
	Store     *session.Store
	Navigator *routes.Navigator
	Verifier  ports.ExternalVerifier // Optional: enables Google sign-in

	// Optional: guard decision counter and the /metrics handler
	Metrics        routes.DecisionRecorder
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter creates and configures the session host router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &SessionHandlers{
		Gateway:   services.Gateway,
		Store:     services.Store,
		Navigator: services.Navigator,
		Verifier:  services.Verifier,
		Logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, Recover(logger), Logging(logger))

	r.Get("/healthz", h.healthHandler)
	r.Head("/healthz", h.healthHandler)
	if services.MetricsHandler != nil {
		r.Handle("/metrics", services.MetricsHandler)
	}

	r.Route("/api/session", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/login/google", h.LoginGoogle)
		r.Post("/logout", h.Logout)
		r.With(RequireAccess(services.Store, services.Metrics, guard.RequireSession())).Get("/", h.Current)
	})

	r.Get("/*", h.Navigate)
	return r
}
