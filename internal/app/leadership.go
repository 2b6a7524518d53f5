package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/codedrop/internal/domain"
)

const leaseReleaseTimeout = 2 * time.Second

// Leadership runs ingestion on exactly one instance. Every instance still serves its own
// subscribers; only the lease holder reads the upstream and publishes records.
type Leadership struct {
	lease           domain.Lease
	clock           clockwork.Clock
	renewInterval   time.Duration
	acquireInterval time.Duration
	leading         atomic.Bool
}

// NewLeadership creates a leadership loop over lease. A nil lease means a single instance,
// which always leads. The lease is renewed and contested every ttl/3.
func NewLeadership(lease domain.Lease, ttl time.Duration, clock clockwork.Clock) *Leadership {
	return &Leadership{
		lease:           lease,
		clock:           clock,
		renewInterval:   ttl / 3,
		acquireInterval: ttl / 3,
	}
}

// Leading reports whether this instance currently holds the lease.
func (l *Leadership) Leading() bool {
	return l.leading.Load()
}

// Run calls fn while this instance holds the lease. When the lease is lost, fn's context is
// cancelled and Run goes back to contesting it. Run returns when ctx is done or when fn
// returns for any other reason.
func (l *Leadership) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if l.lease == nil {
		l.leading.Store(true)
		defer l.leading.Store(false)
		return fn(ctx)
	}

	for {
		acquired, err := l.lease.TryAcquire(ctx)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				slog.Warn("Failed to contest ingestion lease", "error", err)
			}
		case acquired:
			err := l.lead(ctx, fn)
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, domain.ErrLeaseLost) {
				return err
			}
			slog.Warn("Ingestion lease lost, standing by")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.clock.After(l.acquireInterval):
		}
	}
}

func (l *Leadership) lead(ctx context.Context, fn func(ctx context.Context) error) error {
	leadCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	l.leading.Store(true)
	defer l.leading.Store(false)
	defer l.release(ctx)
	slog.Info("Acquired ingestion lease")

	renewDone := make(chan struct{})
	go func() {
		defer close(renewDone)
		l.renew(leadCtx, cancel)
	}()

	err := fn(leadCtx)
	cancel(nil)
	<-renewDone

	if cause := context.Cause(leadCtx); errors.Is(cause, domain.ErrLeaseLost) {
		return cause
	}
	return err
}

func (l *Leadership) renew(ctx context.Context, cancel context.CancelCauseFunc) {
	ticker := l.clock.NewTicker(l.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			err := l.lease.Renew(ctx)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			slog.Error("Failed to renew ingestion lease", "error", err)
			if !errors.Is(err, domain.ErrLeaseLost) {
				err = fmt.Errorf("%w: %w", domain.ErrLeaseLost, err)
			}
			cancel(err)
			return
		}
	}
}

func (l *Leadership) release(ctx context.Context) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaseReleaseTimeout)
	defer cancel()
	if err := l.lease.Release(releaseCtx); err != nil {
		slog.Warn("Failed to release ingestion lease", "error", err)
	}
}
