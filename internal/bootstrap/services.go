package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/target/clinic-session/config"
	"github.com/target/clinic-session/internal/adapters/authapi"
	"github.com/target/clinic-session/internal/adapters/oidc"
	httpx "github.com/target/clinic-session/internal/http"
	"github.com/target/clinic-session/internal/observability/metrics"
	"github.com/target/clinic-session/internal/ports"
	"github.com/target/clinic-session/internal/routes"
	"github.com/target/clinic-session/internal/service"
	"github.com/target/clinic-session/internal/session"
)

// ServiceDeps contains the inputs for BuildServices.
type ServiceDeps struct {
	Config config.AppConfig
	Logger *slog.Logger

	// Optional overrides, mostly for tests.
	Redis    redis.UniversalClient
	API      ports.AuthAPI
	Verifier ports.ExternalVerifier
}

// ServiceContainer holds the wired session components.
type ServiceContainer struct {
	Store     *session.Store
	Gateway   *service.Gateway
	Navigator *routes.Navigator
	Verifier  ports.ExternalVerifier // nil unless Google sign-in is configured
	Metrics   *metrics.Collector
	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry

	cfg     config.AppConfig
	logger  *slog.Logger
	closers []func() error
}

// BuildServices wires storage, the session store, the auth API client, the
// gateway and the navigator, and restores any persisted session.
func BuildServices(ctx context.Context, deps ServiceDeps) (*ServiceContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	c := &ServiceContainer{cfg: cfg, logger: logger}

	if err := c.buildMetrics(); err != nil {
		return nil, err
	}

	storage, closeStorage, err := BuildStorage(ctx, StorageConfig{
		Storage: cfg.Storage,
		Redis:   cfg.Redis,
		Client:  deps.Redis,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeStorage)

	c.Store, err = session.New(session.Options{Storage: storage, Logger: logger, Metrics: c.Metrics})
	if err != nil {
		return nil, c.fail(fmt.Errorf("build session store: %w", err))
	}

	api := deps.API
	if api == nil {
		client, clientErr := authapi.New(authapi.Config{BaseURL: cfg.Auth.APIURL, Timeout: cfg.Auth.Timeout, Logger: logger})
		if clientErr != nil {
			return nil, c.fail(fmt.Errorf("build auth API client: %w", clientErr))
		}
		api = client
	}

	c.Gateway, err = service.NewGateway(service.GatewayOptions{
		API:             api,
		Store:           c.Store,
		Logger:          logger,
		Metrics:         c.Metrics,
		ValidateTimeout: cfg.Auth.Timeout,
	})
	if err != nil {
		return nil, c.fail(fmt.Errorf("build gateway: %w", err))
	}
	c.Navigator = routes.NewNavigator(routes.NavigatorOptions{Session: c.Store, Metrics: c.Metrics, Logger: logger})

	c.Verifier = deps.Verifier
	if c.Verifier == nil && cfg.Auth.Google.Enabled() {
		v, verr := oidc.NewVerifier(ctx, oidc.VerifierConfig{ClientID: cfg.Auth.Google.ClientID, Issuer: cfg.Auth.Google.Issuer})
		if verr != nil {
			return nil, c.fail(fmt.Errorf("build google verifier: %w", verr))
		}
		c.Verifier = v
	}

	c.Store.Restore(ctx)
	return c, nil
}

func (c *ServiceContainer) buildMetrics() error {
	if !c.cfg.Observability.MetricsEnabled {
		collector, err := metrics.NewCollector(nil)
		c.Metrics = collector
		return err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	c.Metrics = collector
	c.Registry = reg
	return nil
}

// Router returns the portal HTTP handler for these services.
func (c *ServiceContainer) Router() http.Handler {
	var metricsHandler http.Handler
	if c.Registry != nil {
		metricsHandler = promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
	}
	return httpx.NewRouter(httpx.RouterServices{
		Gateway:        c.Gateway,
		Store:          c.Store,
		Navigator:      c.Navigator,
		Verifier:       c.Verifier,
		Metrics:        c.Metrics,
		MetricsHandler: metricsHandler,
		Logger:         c.logger,
	})
}

// Revalidator returns a runner that revalidates the session at the configured interval.
func (c *ServiceContainer) Revalidator() (*service.Revalidator, error) {
	return service.NewRevalidator(service.RevalidatorOptions{
		Gateway:  c.Gateway,
		Interval: c.cfg.Auth.RevalidateInterval,
		Logger:   c.logger,
	})
}

// Close releases connections opened by BuildServices.
func (c *ServiceContainer) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *ServiceContainer) fail(err error) error {
	if closeErr := c.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}
