// Package throttle provides the write cooldown gate placed in front of the
// remote table's replace call. It limits call rate against the remote quota;
// it does not serialize writers.
package throttle

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultCooldown is the minimum interval between two accepted writes.
const DefaultCooldown = 2 * time.Second

// ErrThrottled is returned when a write is attempted inside the cooldown
// window. Callers should surface it as "try again later".
var ErrThrottled = errors.New("write throttled: try again later")

// Limiter tracks the last accepted write of one table instance.
type Limiter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	cooldown time.Duration
	last     time.Time
	seq      uint64
}

// New returns a Limiter. A nil clock means the wall clock; a cooldown <= 0
// disables throttling.
func New(cooldown time.Duration, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{clock: clock, cooldown: cooldown}
}

// Cooldown returns the configured window.
func (l *Limiter) Cooldown() time.Duration { return l.cooldown }

// Reservation is an accepted write slot. Cancel it when the write fails so
// the failed attempt does not count against the cooldown.
type Reservation struct {
	l    *Limiter
	seq  uint64
	prev time.Time
}

// Reserve claims the next write slot or fails with ErrThrottled without
// blocking.
func (l *Limiter) Reserve() (*Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if l.cooldown > 0 && !l.last.IsZero() && now.Sub(l.last) < l.cooldown {
		return nil, ErrThrottled
	}
	r := &Reservation{l: l, prev: l.last}
	l.seq++
	r.seq = l.seq
	l.last = now
	return r, nil
}

// Cancel restores the previous timestamp unless a later reservation has
// already replaced this one.
func (r *Reservation) Cancel() {
	if r == nil {
		return
	}
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if r.l.seq == r.seq {
		r.l.last = r.prev
	}
}

// Remaining returns how long until a write would be accepted.
func (l *Limiter) Remaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cooldown <= 0 || l.last.IsZero() {
		return 0
	}
	left := l.cooldown - l.clock.Since(l.last)
	if left < 0 {
		return 0
	}
	return left
}
