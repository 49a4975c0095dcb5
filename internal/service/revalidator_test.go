package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/clinic-session/internal/errors"
)

type countingRevalidator struct {
	calls atomic.Int32
	err   error
}

func (c *countingRevalidator) Revalidate(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestNewRevalidator_RequiresGateway(t *testing.T) {
	_, err := NewRevalidator(RevalidatorOptions{})
	require.Error(t, err)
}

func TestRevalidator_DisabledReturnsImmediately(t *testing.T) {
	gw := &countingRevalidator{}
	r, err := NewRevalidator(RevalidatorOptions{Gateway: gw, Interval: 0})
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))
	assert.EqualValues(t, 0, gw.calls.Load())
}

func TestRevalidator_TicksUntilCanceled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "valid", err: nil},
		{name: "session gone", err: apperrors.Authentication("token is no longer accepted")},
		{name: "other failure", err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &countingRevalidator{err: tt.err}
			r, err := NewRevalidator(RevalidatorOptions{Gateway: gw, Interval: 5 * time.Millisecond})
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- r.Run(ctx) }()

			require.Eventually(t, func() bool { return gw.calls.Load() >= 3 }, 2*time.Second, time.Millisecond)
			cancel()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("revalidator did not stop after cancel")
			}
		})
	}
}
