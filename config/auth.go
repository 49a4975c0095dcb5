package config

import (
	"strings"
	"time"
)

// GoogleConfig enables federated sign-in with Google ID tokens.
type GoogleConfig struct {
	// ClientID is the OAuth client the ID token audience must match. Empty disables Google sign-in.
	ClientID string `env:"CLIENT_ID"`
	Issuer   string `env:"ISSUER"    envDefault:"https://accounts.google.com"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != ""
}

// AuthConfig groups settings for talking to the auth server.
type AuthConfig struct {
	// APIURL is the auth server base URL, including any path prefix such as /api.
	APIURL  string        `env:"AUTH_API_URL"     envDefault:"http://localhost:5000/api"`
	Timeout time.Duration `env:"AUTH_API_TIMEOUT" envDefault:"10s"`

	// RevalidateInterval is how often a watching client re-checks its token. Zero disables it.
	RevalidateInterval time.Duration `env:"AUTH_REVALIDATE_INTERVAL" envDefault:"5m"`

	Google GoogleConfig `envPrefix:"AUTH_GOOGLE_"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	a.APIURL = strings.TrimRight(strings.TrimSpace(a.APIURL), "/")
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}
	if a.RevalidateInterval < 0 {
		a.RevalidateInterval = 0
	}
	a.Google.ClientID = strings.TrimSpace(a.Google.ClientID)
	a.Google.Issuer = strings.TrimSpace(a.Google.Issuer)
	if a.Google.Issuer == "" {
		a.Google.Issuer = "https://accounts.google.com"
	}
}

// DevAuthConfig controls the in-process development auth server.
type DevAuthConfig struct {
	Addr string `env:"ADDR" envDefault:":5000"`

	// SigningKey signs issued tokens. When empty a random key is generated at startup.
	SigningKey string        `env:"SIGNING_KEY"`
	TokenTTL   time.Duration `env:"TOKEN_TTL"   envDefault:"1h"`

	// LoginRate is the sustained number of login attempts per second the server accepts.
	LoginRate  float64 `env:"LOGIN_RATE"  envDefault:"5"`
	LoginBurst int     `env:"LOGIN_BURST" envDefault:"10"`
}

// Sanitize applies guardrails to dev auth configuration values.
func (d *DevAuthConfig) Sanitize() {
	d.Addr = strings.TrimSpace(d.Addr)
	if d.Addr == "" {
		d.Addr = ":5000"
	}
	if d.TokenTTL <= 0 {
		d.TokenTTL = time.Hour
	}
	if d.LoginRate < 0 {
		d.LoginRate = 0
	}
	if d.LoginBurst < 1 {
		d.LoginBurst = 1
	}
}
