package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/clinic-session/config"
	"github.com/target/clinic-session/internal/adapters/devauth"
	domainauth "github.com/target/clinic-session/internal/domain/auth"
	mocks "github.com/target/clinic-session/internal/mocks/auth"
	"github.com/target/clinic-session/internal/testutil"
)

func memoryConfig(apiURL string, metricsEnabled bool) config.AppConfig {
	cfg := config.AppConfig{
		Auth:          config.AuthConfig{APIURL: apiURL},
		Storage:       config.StorageConfig{Backend: config.StorageMemory},
		Observability: config.ObservabilityConfig{MetricsEnabled: metricsEnabled},
	}
	cfg.Sanitize()
	return cfg
}

func TestBuildServices_DemoLogin(t *testing.T) {
	_, baseURL := testutil.StartDevAuth(t, devauth.Config{})
	ctx := context.Background()

	svc, err := BuildServices(ctx, ServiceDeps{Config: memoryConfig(baseURL, true), Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })

	assert.True(t, svc.Store.Restored())
	assert.Nil(t, svc.Verifier)
	require.NotNil(t, svc.Registry)

	env, err := svc.Gateway.Login(ctx, "demo@site.test", devauth.DemoPassword)
	require.NoError(t, err)
	landing, err := svc.Gateway.CompleteLogin(ctx, env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "/patient/dashboard", landing)
	require.NoError(t, svc.Gateway.Revalidate(ctx))

	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `clinic_session_login_total{method="password",result="success"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestBuildServices_MetricsDisabled(t *testing.T) {
	svc, err := BuildServices(context.Background(), ServiceDeps{
		Config: memoryConfig("http://127.0.0.1:1/api", false),
		API:    &mocks.StubAuthAPI{},
		Logger: testLogger(),
	})
	require.NoError(t, err)
	defer svc.Close()

	assert.Nil(t, svc.Registry)
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	// Falls through to navigation, which sends anonymous users to the login page.
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestBuildServices_InjectedVerifier(t *testing.T) {
	v := mocks.StaticVerifier{Claims: domainauth.ExternalLogin{Provider: "Google", ExternalID: "g", Email: "g@site.test"}}
	svc, err := BuildServices(context.Background(), ServiceDeps{
		Config:   memoryConfig("http://127.0.0.1:1/api", false),
		API:      &mocks.StubAuthAPI{},
		Verifier: v,
	})
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, v, svc.Verifier)
}

func TestBuildServices_Errors(t *testing.T) {
	t.Run("bad api url", func(t *testing.T) {
		_, err := BuildServices(context.Background(), ServiceDeps{Config: memoryConfig("ftp://auth", false), Logger: testLogger()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth API client")
	})

	t.Run("redis unreachable", func(t *testing.T) {
		cfg := memoryConfig("http://127.0.0.1:1/api", false)
		cfg.Storage.Backend = config.StorageRedis
		cfg.Redis.URI = "127.0.0.1:1"
		_, err := BuildServices(context.Background(), ServiceDeps{Config: cfg, Logger: testLogger()})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "connect redis storage"))
	})
}

func TestServiceContainer_Revalidator(t *testing.T) {
	svc, err := BuildServices(context.Background(), ServiceDeps{
		Config: memoryConfig("http://127.0.0.1:1/api", false),
		API:    &mocks.StubAuthAPI{},
	})
	require.NoError(t, err)
	defer svc.Close()

	r, err := svc.Revalidator()
	require.NoError(t, err)
	assert.NotNil(t, r)
}
