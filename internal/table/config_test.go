package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"TABLE_BACKEND", "TABLE_NAME", "TABLE_OPTIMISTIC", "REDIS_URL", "TABLE_BREAKER_FAILURES"} {
		t.Setenv(k, "")
	}
	cfg := ConfigFromEnv()
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "meeting_records", cfg.Name)
	assert.False(t, cfg.Optimistic)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, uint32(5), cfg.Breaker.ConsecutiveFailures)
}

func TestConfigFromEnv_Cooldown(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"1500ms", 1500 * time.Millisecond},
		{"2.5", 2500 * time.Millisecond},
		{"0", 0},
		{"junk", 0},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("WRITE_COOLDOWN", tt.value)
			assert.Equal(t, tt.want, ConfigFromEnv().Cooldown)
		})
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("TABLE_BACKEND", "Redis")
	t.Setenv("TABLE_OPTIMISTIC", "1")
	t.Setenv("TABLE_BREAKER_FAILURES", "2")
	t.Setenv("TABLE_BREAKER_TIMEOUT", "5s")
	cfg := ConfigFromEnv()
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.True(t, cfg.Optimistic)
	assert.Equal(t, uint32(2), cfg.Breaker.ConsecutiveFailures)
	assert.Equal(t, 5*time.Second, cfg.Breaker.Timeout)
}
