package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/ports"
	"github.com/target/clinic-session/internal/redirect"
	"github.com/target/clinic-session/internal/session"
)

// Login methods reported to metrics.
const (
	MethodPassword = "password"
	MethodExternal = "external"
)

// ErrLoginInProgress is returned when a login is attempted while another is outstanding.
var ErrLoginInProgress = apperrors.Conflict("a login is already in progress")

// GatewayRecorder receives login and validation outcomes. Optional.
type GatewayRecorder interface {
	RecordLogin(method, result string)
	RecordValidation(result string)
}

const defaultValidateTimeout = 10 * time.Second

// GatewayOptions groups dependencies for Gateway.
type GatewayOptions struct {
	API     ports.AuthAPI
	Store   *session.Store
	Logger  *slog.Logger
	Metrics GatewayRecorder
	// ValidateTimeout bounds one token validation round trip. Defaults to 10s.
	ValidateTimeout time.Duration
}

// Gateway performs login, token revalidation and logout against the auth server.
// It is the only component that turns a network result into a live session.
type Gateway struct {
	api     ports.AuthAPI
	store   *session.Store
	logger  *slog.Logger
	metrics GatewayRecorder

	validateTimeout time.Duration
	loginInFlight   atomic.Bool
	validation      singleflight.Group
}

// NewGateway constructs a Gateway.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if opts.API == nil {
		return nil, errors.New("auth API is required")
	}
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ValidateTimeout <= 0 {
		opts.ValidateTimeout = defaultValidateTimeout
	}
	return &Gateway{
		api:             opts.API,
		store:           opts.Store,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		validateTimeout: opts.ValidateTimeout,
	}, nil
}

// Login sends credentials to the auth server. It does not touch the session;
// pass the payload of a successful envelope to CompleteLogin.
func (g *Gateway) Login(ctx context.Context, email, password string) (*domainauth.Envelope, error) {
	return g.login(ctx, MethodPassword, func(ctx context.Context) (*domainauth.Envelope, error) {
		return g.api.Login(ctx, email, password)
	})
}

// LoginExternal sends already-verified federated claims to the auth server.
// Like Login, it does not touch the session.
func (g *Gateway) LoginExternal(ctx context.Context, in domainauth.ExternalLogin) (*domainauth.Envelope, error) {
	return g.login(ctx, MethodExternal, func(ctx context.Context) (*domainauth.Envelope, error) {
		return g.api.ExternalLogin(ctx, in)
	})
}

func (g *Gateway) login(
	ctx context.Context,
	method string,
	call func(context.Context) (*domainauth.Envelope, error),
) (*domainauth.Envelope, error) {
	if !g.loginInFlight.CompareAndSwap(false, true) {
		g.recordLogin(method, string(apperrors.ErrCodeConflict))
		return nil, ErrLoginInProgress
	}
	defer g.loginInFlight.Store(false)

	env, err := call(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "login failed", "method", method, "code", apperrors.GetCode(err), "error", err)
		g.recordLogin(method, failureLabel(err))
		return nil, err
	}
	if env == nil {
		g.recordLogin(method, string(apperrors.ErrCodeUnknown))
		return nil, apperrors.Unknown("empty login response")
	}
	if !env.Succeeded {
		g.logger.InfoContext(ctx, "login rejected by server", "method", method, "error_code", env.ErrorCode)
		g.recordLogin(method, string(apperrors.ErrCodeServerRejected))
		return env, apperrors.ServerRejected(env.Message)
	}
	if env.Payload == nil {
		g.recordLogin(method, string(apperrors.ErrCodeUnknown))
		return env, apperrors.Unknown("login response has no payload")
	}

	g.recordLogin(method, "success")
	return env, nil
}

// CompleteLogin commits the identity and credential carried by payload and
// returns the landing route for the new identity.
func (g *Gateway) CompleteLogin(ctx context.Context, payload *domainauth.AuthPayload) (string, error) {
	if payload == nil {
		return "", apperrors.Validation("login payload is required")
	}
	if payload.Token == "" {
		return "", apperrors.ValidationField("token", "token is required")
	}
	cred, err := payload.Credential()
	if err != nil {
		return "", apperrors.ValidationField("expiresAt", err.Error())
	}
	identity := payload.Identity()
	if !identity.Role.Valid() {
		g.logger.WarnContext(ctx, "login payload carries unrecognized role", "user_id", identity.UserID, "role", identity.Role)
	}

	if err := g.store.Commit(ctx, identity, cred); err != nil {
		return "", fmt.Errorf("complete login: %w", err)
	}
	return redirect.LandingRouteFor(&identity), nil
}

// Revalidate asks the auth server whether the held token is still accepted.
// Any outcome other than an explicit yes clears the session and returns an
// authentication error, including ctx reaching its deadline. A canceled ctx
// returns its error and leaves the session alone. Concurrent calls for the
// same token share one round trip, which runs detached from any single
// caller's cancellation and is bounded by the validate timeout.
func (g *Gateway) Revalidate(ctx context.Context) error {
	token := g.store.Token()
	if token == "" {
		g.recordValidation("no_session")
		return apperrors.Authentication("no session to validate")
	}
	if !g.store.IsLive() {
		if _, err := g.store.ClearIfExpired(ctx); err != nil {
			g.logger.WarnContext(ctx, "clear expired session", "error", err)
		}
		g.recordValidation("expired")
		return apperrors.Authentication("session expired")
	}

	ch := g.validation.DoChan(token, func() (any, error) {
		vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.validateTimeout)
		defer cancel()
		return nil, g.validate(vctx, token)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			g.recordValidation("canceled")
			return ctx.Err()
		}
		// ctx is spent; the erase still has to reach storage.
		return g.failClosed(context.WithoutCancel(ctx), token, "timeout", apperrors.Unreachable(ctx.Err()))
	}
}

func (g *Gateway) validate(ctx context.Context, token string) error {
	ok, err := g.api.ValidateToken(ctx, token)
	switch {
	case err == nil && ok:
		g.recordValidation("valid")
		return nil
	case err == nil:
		return g.failClosed(ctx, token, "rejected", nil)
	default:
		return g.failClosed(ctx, token, "error", err)
	}
}

// failClosed ends the session held under token. cause is nil when the server
// answered with an explicit no.
func (g *Gateway) failClosed(ctx context.Context, token, result string, cause error) error {
	authErr := apperrors.Authentication("token is no longer accepted")
	if cause != nil {
		authErr = apperrors.Wrap(cause, apperrors.ErrCodeAuthentication, "token validation failed")
		g.logger.WarnContext(ctx, "token validation failed", "result", result, "code", apperrors.GetCode(cause), "error", cause)
	}
	cleared, clearErr := g.store.ClearIfToken(ctx, token)
	if clearErr != nil {
		g.logger.WarnContext(ctx, "clear rejected session", "error", clearErr)
	}
	if cleared {
		g.logger.InfoContext(ctx, "session revoked after validation", "result", result)
	}
	g.recordValidation(result)
	return authErr
}

// Logout clears the session unconditionally and returns the anonymous entry route.
// The live session is cleared even when erasing persisted state fails.
func (g *Gateway) Logout(ctx context.Context) (string, error) {
	if err := g.store.Clear(ctx); err != nil {
		return redirect.AnonymousEntry, fmt.Errorf("logout: %w", err)
	}
	return redirect.AnonymousEntry, nil
}

func (g *Gateway) recordLogin(method, result string) {
	if g.metrics != nil {
		g.metrics.RecordLogin(method, result)
	}
}

func (g *Gateway) recordValidation(result string) {
	if g.metrics != nil {
		g.metrics.RecordValidation(result)
	}
}

func failureLabel(err error) string {
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return string(apperrors.ErrCodeUnknown)
}
