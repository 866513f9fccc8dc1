// Package table implements the whole-table store of the meeting service: a
// single flat table read as one snapshot and written back wholesale.
//
// Table composes a backend Store with the write cooldown, a circuit breaker
// around backend calls, schema normalization on read and metrics.
package table

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/observability"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/throttle"
)

// BreakerConfig holds circuit breaker settings for backend calls.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "meeting-table",
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Options configures a Table.
type Options struct {
	Limiter    *throttle.Limiter
	Optimistic bool
	Breaker    BreakerConfig
	Metrics    *observability.Collector
	Logger     *zap.SugaredLogger
}

// Table is the snapshot store used by the entity repository.
type Table struct {
	backend    Store
	limiter    *throttle.Limiter
	optimistic bool
	cb         *gobreaker.CircuitBreaker
	metrics    *observability.Collector
	logger     *zap.SugaredLogger
}

// New wraps backend. A nil limiter gets the default cooldown on the wall
// clock; a zero breaker config gets DefaultBreakerConfig.
func New(backend Store, opts Options) *Table {
	if opts.Limiter == nil {
		opts.Limiter = throttle.New(throttle.DefaultCooldown, nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	bc := opts.Breaker
	if bc.Name == "" {
		bc = DefaultBreakerConfig()
	}
	logger := opts.Logger
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        bc.Name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnw("table circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrStale) || errors.Is(err, context.Canceled)
		},
	})
	return &Table{
		backend:    backend,
		limiter:    opts.Limiter,
		optimistic: opts.Optimistic,
		cb:         cb,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

// Limiter returns the write gate of this table.
func (t *Table) Limiter() *throttle.Limiter { return t.limiter }

// Fetch reads the full table and normalizes it.
func (t *Table) Fetch(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	res, err := t.cb.Execute(func() (interface{}, error) {
		return t.backend.Fetch(ctx)
	})
	if err != nil {
		t.metrics.ObserveTable("fetch", "error", time.Since(start))
		t.logger.Warnw("table fetch failed", "err", err)
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	snap := res.(*Snapshot)
	snap.Rows = Normalize(snap.Rows)
	t.metrics.ObserveTable("fetch", "ok", time.Since(start))
	t.metrics.SetRows(len(snap.Rows))
	return snap, nil
}

// Replace overwrites the table with snap. It fails with throttle.ErrThrottled
// without touching the backend when the cooldown has not elapsed, with
// ErrStale when optimistic mode detects a concurrent write, and with a
// *TransportError when the backend call fails. On success snap.Version is
// advanced to the stored version.
func (t *Table) Replace(ctx context.Context, snap *Snapshot) error {
	reservation, err := t.limiter.Reserve()
	if err != nil {
		t.metrics.ObserveTable("replace", "throttled", 0)
		t.logger.Debugw("table write throttled", "retry_in", t.limiter.Remaining().String())
		return err
	}

	start := time.Now()
	res, err := t.cb.Execute(func() (interface{}, error) {
		return t.backend.Replace(ctx, snap, t.optimistic)
	})
	if err != nil {
		reservation.Cancel()
		if errors.Is(err, ErrStale) {
			t.metrics.ObserveTable("replace", "stale", time.Since(start))
			return ErrStale
		}
		t.metrics.ObserveTable("replace", "error", time.Since(start))
		t.logger.Warnw("table replace failed", "err", err, "rows", len(snap.Rows))
		return &TransportError{Op: "replace", Err: err}
	}
	snap.Version = res.(int64)
	t.metrics.ObserveTable("replace", "ok", time.Since(start))
	t.metrics.SetRows(len(snap.Rows))
	t.logger.Debugw("table replaced", "rows", len(snap.Rows), "version", snap.Version)
	return nil
}
