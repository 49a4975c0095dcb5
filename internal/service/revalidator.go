package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/target/clinic-session/internal/errors"
)

// Revalidating is the gateway capability the Revalidator drives.
type Revalidating interface {
	Revalidate(ctx context.Context) error
}

// RevalidatorOptions groups dependencies for Revalidator.
type RevalidatorOptions struct {
	Gateway  Revalidating
	Interval time.Duration
	Logger   *slog.Logger
}

// Revalidator periodically confirms the held token with the auth server.
type Revalidator struct {
	gateway  Revalidating
	interval time.Duration
	logger   *slog.Logger
}

// NewRevalidator constructs a Revalidator. A non-positive interval yields a
// runner whose Run returns immediately.
func NewRevalidator(opts RevalidatorOptions) (*Revalidator, error) {
	if opts.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Revalidator{gateway: opts.Gateway, interval: opts.Interval, logger: opts.Logger}, nil
}

// Run revalidates once per interval until ctx is canceled.
func (r *Revalidator) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.InfoContext(ctx, "token revalidation disabled")
		return nil
	}
	r.logger.InfoContext(ctx, "starting token revalidation", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "token revalidation stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Revalidator) tick(ctx context.Context) {
	err := r.gateway.Revalidate(ctx)
	switch {
	case err == nil:
		r.logger.DebugContext(ctx, "token still valid")
	case apperrors.IsAuthentication(err):
		r.logger.InfoContext(ctx, "session no longer valid", "reason", apperrors.GetMessage(err))
	case errors.Is(err, context.Canceled):
	default:
		r.logger.WarnContext(ctx, "token revalidation failed", "error", err)
	}
}
