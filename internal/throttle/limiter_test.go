package throttle

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_RejectsInsideCooldown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(DefaultCooldown, clock)

	_, err := l.Reserve()
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = l.Reserve()
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, time.Second, l.Remaining())

	clock.Advance(time.Second)
	_, err = l.Reserve()
	assert.NoError(t, err)
}

func TestLimiter_CancelRestoresPreviousSlot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(DefaultCooldown, clock)

	r, err := l.Reserve()
	require.NoError(t, err)
	r.Cancel()

	_, err = l.Reserve()
	assert.NoError(t, err, "a cancelled write must not hold the cooldown")
}

func TestLimiter_StaleCancelIsIgnored(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(DefaultCooldown, clock)

	first, err := l.Reserve()
	require.NoError(t, err)
	clock.Advance(3 * time.Second)
	_, err = l.Reserve()
	require.NoError(t, err)

	first.Cancel()
	_, err = l.Reserve()
	assert.ErrorIs(t, err, ErrThrottled)
}

func TestLimiter_DisabledCooldown(t *testing.T) {
	l := New(0, clockwork.NewFakeClock())
	for i := 0; i < 5; i++ {
		_, err := l.Reserve()
		require.NoError(t, err)
	}
	assert.Zero(t, l.Remaining())
}

func TestLimiter_ConcurrentReserveAcceptsOne(t *testing.T) {
	l := New(DefaultCooldown, clockwork.NewFakeClock())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Reserve(); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}
