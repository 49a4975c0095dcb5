package oidc

// Package oidc verifies federated ID tokens and extracts the claims the auth server needs
// for an external login.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/ports"
)

const (
	// GoogleIssuer is the issuer of Google ID tokens.
	GoogleIssuer = "https://accounts.google.com"
	// GoogleProvider is the provider name sent to the auth server.
	GoogleProvider = "Google"
)

var _ ports.ExternalVerifier = (*Verifier)(nil)

// VerifierConfig holds configuration for the ID token verifier.
type VerifierConfig struct {
	ClientID   string
	Issuer     string       // Optional, defaults to GoogleIssuer
	Provider   string       // Optional, defaults to GoogleProvider
	HTTPClient *http.Client // Optional, used for discovery and key fetches
	// KeySet skips discovery and verifies against fixed keys.
	KeySet gooidc.KeySet
	Now    func() time.Time
}

// Verifier checks ID token signature, issuer, audience and expiry.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
	provider string
}

// NewVerifier builds a verifier. Without a KeySet it performs OIDC discovery against the issuer.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	issuer := strings.TrimSuffix(cfg.Issuer, "/")
	if issuer == "" {
		issuer = GoogleIssuer
	}
	provider := cfg.Provider
	if provider == "" {
		provider = GoogleProvider
	}
	oc := &gooidc.Config{ClientID: cfg.ClientID, Now: cfg.Now}

	if cfg.KeySet != nil {
		return &Verifier{verifier: gooidc.NewVerifier(issuer, cfg.KeySet, oc), provider: provider}, nil
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	// The provider keeps this context for later key fetches.
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	return &Verifier{verifier: op.Verifier(oc), provider: provider}, nil
}

type idTokenClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// Verify validates rawToken and maps its claims to an external login.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (domainauth.ExternalLogin, error) {
	if strings.TrimSpace(rawToken) == "" {
		return domainauth.ExternalLogin{}, apperrors.Authentication("id token is required")
	}
	idTok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return domainauth.ExternalLogin{}, apperrors.Wrap(err, apperrors.ErrCodeAuthentication, "verify id token")
	}
	var c idTokenClaims
	if err := idTok.Claims(&c); err != nil {
		return domainauth.ExternalLogin{}, apperrors.Wrap(err, apperrors.ErrCodeAuthentication, "parse id token claims")
	}
	return mapClaims(v.provider, c)
}

func mapClaims(provider string, c idTokenClaims) (domainauth.ExternalLogin, error) {
	if c.Sub == "" {
		return domainauth.ExternalLogin{}, apperrors.Authentication("id token has no subject")
	}
	if c.Email == "" {
		return domainauth.ExternalLogin{}, apperrors.Authentication("id token has no email")
	}
	if c.EmailVerified != nil && !*c.EmailVerified {
		return domainauth.ExternalLogin{}, apperrors.Authentication("email is not verified")
	}
	return domainauth.ExternalLogin{
		Provider:   provider,
		ExternalID: c.Sub,
		Email:      c.Email,
		FullName:   firstNonEmpty(c.Name, strings.TrimSpace(c.GivenName+" "+c.FamilyName), c.Email),
	}, nil
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
