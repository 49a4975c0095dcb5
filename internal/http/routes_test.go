package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/clinic-session/internal/adapters/memstore"
	domainauth "github.com/target/clinic-session/internal/domain/auth"
	apperrors "github.com/target/clinic-session/internal/errors"
	mocks "github.com/target/clinic-session/internal/mocks/auth"
	"github.com/target/clinic-session/internal/observability/metrics"
	"github.com/target/clinic-session/internal/ports"
	"github.com/target/clinic-session/internal/routes"
	"github.com/target/clinic-session/internal/service"
	"github.com/target/clinic-session/internal/session"
	"github.com/target/clinic-session/internal/testutil"
)

type hostFixture struct {
	handler http.Handler
	store   *session.Store
	api     *mocks.StubAuthAPI
	reg     *prometheus.Registry
}

func newHostFixture(t *testing.T, verifier ports.ExternalVerifier) *hostFixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	store, err := session.New(session.Options{Storage: memstore.New(), Metrics: collector})
	require.NoError(t, err)
	store.Restore(context.Background())

	api := &mocks.StubAuthAPI{}
	gw, err := service.NewGateway(service.GatewayOptions{API: api, Store: store, Metrics: collector})
	require.NoError(t, err)

	h := NewRouter(RouterServices{
		Gateway:        gw,
		Store:          store,
		Navigator:      routes.NewNavigator(routes.NavigatorOptions{Session: store, Metrics: collector}),
		Verifier:       verifier,
		Metrics:        collector,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &hostFixture{handler: h, store: store, api: api, reg: reg}
}

func (f *hostFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *hostFixture) loginAs(t *testing.T, role domainauth.Role) {
	t.Helper()
	f.api.LoginFunc = func(context.Context, string, string) (*domainauth.Envelope, error) {
		return testutil.NewPayload().WithRole(role).Envelope(), nil
	}
	rec := f.do(t, http.MethodPost, "/api/session/login", `{"email":"demo@site.test","password":"demo123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	f := newHostFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","session":false}`, rec.Body.String())

	rec = f.do(t, http.MethodHead, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	f.loginAs(t, domainauth.RolePatient)
	rec = f.do(t, http.MethodGet, "/healthz", "")
	assert.JSONEq(t, `{"status":"ok","session":true}`, rec.Body.String())
}

func TestHealthz_BeforeRestore(t *testing.T) {
	store, err := session.New(session.Options{Storage: memstore.New()})
	require.NoError(t, err)
	h := NewRouter(RouterServices{Store: store, Navigator: routes.NewNavigator(routes.NavigatorOptions{Session: store})})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogin_Success(t *testing.T) {
	f := newHostFixture(t, nil)
	f.loginAs(t, domainauth.RolePatient)

	require.NotNil(t, f.store.Current())
	assert.Equal(t, "demo@site.test", f.api.LastEmail())

	rec := f.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	identity := body["identity"].(map[string]any)
	assert.Equal(t, "Patient", identity["role"])
	assert.NotEmpty(t, body["expiresAt"])
}

func TestLogin_ResponseCarriesLanding(t *testing.T) {
	f := newHostFixture(t, nil)
	f.api.LoginFunc = func(context.Context, string, string) (*domainauth.Envelope, error) {
		return testutil.NewPayload().WithRole(domainauth.RoleScheduleManager).Envelope(), nil
	}
	rec := f.do(t, http.MethodPost, "/api/session/login", `{"email":"m@site.test","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/manager/dashboard", decodeBody(t, rec)["redirect"])
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		env     *domainauth.Envelope
		status  int
		code    string
		message string
	}{
		{name: "bad credentials", body: `{"email":"a@b.c","password":"x"}`, err: apperrors.Unauthorized("invalid credentials"), status: http.StatusUnauthorized, code: "unauthorized", message: "Invalid credentials"},
		{name: "unreachable", body: `{"email":"a@b.c","password":"x"}`, err: apperrors.Unreachable(errors.New("dial")), status: http.StatusServiceUnavailable, code: "unreachable", message: "Connection error. Check your network."},
		{name: "server rejected", body: `{"email":"a@b.c","password":"x"}`, env: testutil.RejectedEnvelope("Account locked"), status: http.StatusBadGateway, code: "server_rejected", message: "Account locked"},
		{name: "missing fields", body: `{"email":" ","password":""}`, status: http.StatusUnprocessableEntity, code: "validation"},
		{name: "unknown field", body: `{"user":"a"}`, status: http.StatusBadRequest, code: "invalid_json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHostFixture(t, nil)
			f.api.LoginFunc = func(context.Context, string, string) (*domainauth.Envelope, error) {
				return tt.env, tt.err
			}
			rec := f.do(t, http.MethodPost, "/api/session/login", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.code, body["error"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
			assert.Nil(t, f.store.Current())
		})
	}
}

func TestLoginGoogle(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newHostFixture(t, nil)
		rec := f.do(t, http.MethodPost, "/api/session/login/google", `{"idToken":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		f := newHostFixture(t, mocks.StaticVerifier{Err: apperrors.Authentication("verify id token")})
		rec := f.do(t, http.MethodPost, "/api/session/login/google", `{"idToken":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.EqualValues(t, 0, f.api.ExternalCalls.Load())
	})

	t.Run("success", func(t *testing.T) {
		claims := domainauth.ExternalLogin{Provider: "Google", ExternalID: "g-1", Email: "g@site.test", FullName: "G"}
		f := newHostFixture(t, mocks.StaticVerifier{Claims: claims})
		f.api.ExternalLoginFunc = func(context.Context, domainauth.ExternalLogin) (*domainauth.Envelope, error) {
			return testutil.NewPayload().WithRole(domainauth.RoleAdmin).Envelope(), nil
		}
		rec := f.do(t, http.MethodPost, "/api/session/login/google", `{"idToken":"raw"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/admin/dashboard", decodeBody(t, rec)["redirect"])
		assert.Equal(t, claims, f.api.LastExternal())
	})
}

func TestCurrent_WithoutSession(t *testing.T) {
	f := newHostFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/auth/login", decodeBody(t, rec)["redirect"])
}

func TestLogout(t *testing.T) {
	f := newHostFixture(t, nil)
	f.loginAs(t, domainauth.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/api/session/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/auth/login", decodeBody(t, rec)["redirect"])
	assert.Nil(t, f.store.Current())
}

func TestNavigate(t *testing.T) {
	tests := []struct {
		name     string
		role     domainauth.Role
		path     string
		status   int
		location string
	}{
		{name: "anonymous protected", path: "/patient/history", status: http.StatusFound, location: "/auth/login"},
		{name: "anonymous root", path: "/", status: http.StatusFound, location: "/auth/login"},
		{name: "anonymous login page", path: "/auth/login", status: http.StatusOK},
		{name: "manager into admin", role: domainauth.RoleScheduleManager, path: "/admin/users", status: http.StatusFound, location: "/unauthorized"},
		{name: "manager own area", role: domainauth.RoleScheduleManager, path: "/manager/reports", status: http.StatusOK},
		{name: "bare subtree", role: domainauth.RoleProfessional, path: "/professional", status: http.StatusFound, location: "/professional/dashboard"},
		{name: "unknown path", role: domainauth.RolePatient, path: "/nowhere", status: http.StatusFound, location: "/auth/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHostFixture(t, nil)
			if tt.role != "" {
				f.loginAs(t, tt.role)
			}
			rec := f.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newHostFixture(t, nil)
	f.loginAs(t, domainauth.RolePatient)
	f.do(t, http.MethodGet, "/admin/dashboard", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `clinic_session_login_total{method="password",result="success"} 1`)
	assert.Contains(t, body, `clinic_session_guard_decisions_total{outcome="deny_role"} 1`)
	assert.Contains(t, body, `clinic_session_changes_total{kind="commit"} 1`)
}

func TestRecover(t *testing.T) {
	h := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", decodeBody(t, rec)["error"])

	abort := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.Panics(t, func() {
		abort.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
