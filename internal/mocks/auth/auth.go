package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	"github.com/target/clinic-session/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthAPI          = (*StubAuthAPI)(nil)
	_ ports.ExternalVerifier = (*StaticVerifier)(nil)
)

// ErrNotConfigured is returned by a stub method that has no behavior set.
var ErrNotConfigured = errors.New("stub not configured")

// StubAuthAPI simulates the auth server with per-method functions and call counters.
type StubAuthAPI struct {
	LoginFunc         func(ctx context.Context, email, password string) (*domainauth.Envelope, error)
	ExternalLoginFunc func(ctx context.Context, in domainauth.ExternalLogin) (*domainauth.Envelope, error)
	ValidateTokenFunc func(ctx context.Context, token string) (bool, error)

	LoginCalls    atomic.Int32
	ExternalCalls atomic.Int32
	ValidateCalls atomic.Int32

	mu             sync.Mutex
	lastEmail      string
	lastExternal   domainauth.ExternalLogin
	validateTokens []string
}

func (s *StubAuthAPI) Login(ctx context.Context, email, password string) (*domainauth.Envelope, error) {
	s.LoginCalls.Add(1)
	s.mu.Lock()
	s.lastEmail = email
	s.mu.Unlock()
	if s.LoginFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.LoginFunc(ctx, email, password)
}

func (s *StubAuthAPI) ExternalLogin(ctx context.Context, in domainauth.ExternalLogin) (*domainauth.Envelope, error) {
	s.ExternalCalls.Add(1)
	s.mu.Lock()
	s.lastExternal = in
	s.mu.Unlock()
	if s.ExternalLoginFunc == nil {
		return nil, ErrNotConfigured
	}
	return s.ExternalLoginFunc(ctx, in)
}

func (s *StubAuthAPI) ValidateToken(ctx context.Context, token string) (bool, error) {
	s.ValidateCalls.Add(1)
	s.mu.Lock()
	s.validateTokens = append(s.validateTokens, token)
	s.mu.Unlock()
	if s.ValidateTokenFunc == nil {
		return false, ErrNotConfigured
	}
	return s.ValidateTokenFunc(ctx, token)
}

// LastEmail returns the email of the most recent Login call.
func (s *StubAuthAPI) LastEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEmail
}

// LastExternal returns the claims of the most recent ExternalLogin call.
func (s *StubAuthAPI) LastExternal() domainauth.ExternalLogin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExternal
}

// ValidatedTokens returns every token passed to ValidateToken, in call order.
func (s *StubAuthAPI) ValidatedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.validateTokens...)
}

// StaticVerifier returns fixed claims for any non-empty token.
type StaticVerifier struct {
	Claims domainauth.ExternalLogin
	Err    error
}

func (v StaticVerifier) Verify(_ context.Context, rawToken string) (domainauth.ExternalLogin, error) {
	if v.Err != nil {
		return domainauth.ExternalLogin{}, v.Err
	}
	if rawToken == "" {
		return domainauth.ExternalLogin{}, errors.New("id token is required")
	}
	return v.Claims, nil
}
