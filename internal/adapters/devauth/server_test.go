package devauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
)

type fakeClock struct{ ns atomic.Int64 }

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.ns.Store(t.UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.ns.Load()) }
func (c *fakeClock) Advance(d time.Duration) { c.ns.Add(int64(d)) }

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.SigningKey == nil {
		cfg.SigningKey = []byte("test-signing-key")
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

type testEnvelope struct {
	Succeeded bool                    `json:"isSuccess"`
	Message   string                  `json:"message"`
	Data      *domainauth.AuthPayload `json:"data"`
	ErrorCode string                  `json:"errorCode"`
}

func post(t *testing.T, url, body string) (int, testEnvelope) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var env testEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func validate(t *testing.T, url, token string) (int, testEnvelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url+"/auth/validate-token", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env testEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestNewServer_RequiresSigningKey(t *testing.T) {
	_, err := NewServer(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing key is required")
}

func TestLogin_DemoAccount(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	code, env := post(t, ts.URL+"/auth/login", `{"email":"demo@site.test","password":"demo123"}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Succeeded)
	require.NotNil(t, env.Data)
	assert.Equal(t, "u1", env.Data.UserID)
	assert.Equal(t, "Patient", env.Data.Role)
	assert.NotEmpty(t, env.Data.Token)

	exp, err := domainauth.ParseExpiry(env.Data.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))
}

func TestLogin_Failures(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "wrong password", body: `{"email":"demo@site.test","password":"nope"}`, code: http.StatusUnauthorized},
		{name: "unknown user", body: `{"email":"ghost@site.test","password":"demo123"}`, code: http.StatusUnauthorized},
		{name: "missing fields", body: `{"email":""}`, code: http.StatusBadRequest},
		{name: "malformed", body: `{`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := post(t, ts.URL+"/auth/login", tt.body)
			assert.Equal(t, tt.code, code)
			assert.False(t, env.Succeeded)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestLogin_RateLimited(t *testing.T) {
	_, ts := newTestServer(t, Config{LoginRate: 0.001, LoginBurst: 1})

	code, _ := post(t, ts.URL+"/auth/login", `{"email":"demo@site.test","password":"demo123"}`)
	require.Equal(t, http.StatusOK, code)

	code, env := post(t, ts.URL+"/auth/login", `{"email":"demo@site.test","password":"demo123"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RATE_LIMITED", env.ErrorCode)
}

func TestExternalLogin_ProvisionsOnce(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	body := `{"provider":"Google","externalId":"g-42","email":"new@site.test","fullName":"New Person"}`

	code, first := post(t, ts.URL+"/external-auth/login", body)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, first.Data)
	assert.Equal(t, "Patient", first.Data.Role)
	assert.Equal(t, "New Person", first.Data.FullName)

	_, second := post(t, ts.URL+"/external-auth/login", body)
	require.NotNil(t, second.Data)
	assert.Equal(t, first.Data.UserID, second.Data.UserID)
}

func TestExternalLogin_LinksExistingAccount(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	_, env := post(t, ts.URL+"/external-auth/login",
		`{"provider":"Google","externalId":"g-1","email":"admin@site.test","fullName":"Whoever"}`)
	require.NotNil(t, env.Data)
	assert.Equal(t, "admin-1", env.Data.UserID)
	assert.Equal(t, "Admin", env.Data.Role)
}

func TestExternalLogin_RequiresClaims(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	code, env := post(t, ts.URL+"/external-auth/login", `{"provider":"Google"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Succeeded)
}

func TestValidate(t *testing.T) {
	clock := newFakeClock(time.Now()).Now
	srv, ts := newTestServer(t, Config{Now: clock, TokenTTL: time.Minute})

	token, _, err := srv.IssueToken(DemoAccounts()[0])
	require.NoError(t, err)

	code, env := validate(t, ts.URL, token)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Succeeded)

	t.Run("missing bearer", func(t *testing.T) {
		code, _ := validate(t, ts.URL, "")
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("garbage token", func(t *testing.T) {
		code, env := validate(t, ts.URL, "not-a-jwt")
		assert.Equal(t, http.StatusOK, code)
		assert.False(t, env.Succeeded)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other, err := NewServer(Config{SigningKey: []byte("other-key"), Now: clock})
		require.NoError(t, err)
		foreign, _, err := other.IssueToken(DemoAccounts()[0])
		require.NoError(t, err)
		_, env := validate(t, ts.URL, foreign)
		assert.False(t, env.Succeeded)
	})

	t.Run("revoked", func(t *testing.T) {
		revoked, _, err := srv.IssueToken(DemoAccounts()[1])
		require.NoError(t, err)
		require.NoError(t, srv.Revoke(revoked))
		_, env := validate(t, ts.URL, revoked)
		assert.False(t, env.Succeeded)
	})
}

func TestValidate_Expired(t *testing.T) {
	clock := newFakeClock(time.Now())
	srv, ts := newTestServer(t, Config{Now: clock.Now, TokenTTL: time.Minute})

	token, _, err := srv.IssueToken(DemoAccounts()[0])
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, env := validate(t, ts.URL, token)
	assert.False(t, env.Succeeded)
}

func TestHandler_BasePath(t *testing.T) {
	_, ts := newTestServer(t, Config{BasePath: "/api/"})

	code, env := post(t, ts.URL+"/api/auth/login", `{"email":"admin@site.test","password":"demo123"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Succeeded)

	resp, err := http.Post(ts.URL+"/auth/login", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
