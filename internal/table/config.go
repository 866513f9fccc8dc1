package table

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/throttle"
)

// Backends understood by TABLE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite3"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config selects and tunes the table backend.
type Config struct {
	Backend      string
	Name         string
	Optimistic   bool
	Cooldown     time.Duration
	RedisURL     string
	RedisChannel string
	Breaker      BreakerConfig
}

// ConfigFromEnv reads table config from environment variables.
func ConfigFromEnv() Config {
	backend := strings.ToLower(os.Getenv("TABLE_BACKEND"))
	if backend == "" {
		backend = BackendPostgres
	}
	name := os.Getenv("TABLE_NAME")
	if name == "" {
		name = "meeting_records"
	}
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	bc := DefaultBreakerConfig()
	if v, err := strconv.ParseUint(os.Getenv("TABLE_BREAKER_FAILURES"), 10, 32); err == nil && v > 0 {
		bc.ConsecutiveFailures = uint32(v)
	}
	if d := parseDuration(os.Getenv("TABLE_BREAKER_TIMEOUT")); d > 0 {
		bc.Timeout = d
	}
	cooldown := throttle.DefaultCooldown
	if v, ok := os.LookupEnv("WRITE_COOLDOWN"); ok {
		cooldown = parseDuration(v)
	}
	return Config{
		Backend:      backend,
		Name:         name,
		Optimistic:   os.Getenv("TABLE_OPTIMISTIC") == "1",
		Cooldown:     cooldown,
		RedisURL:     redisURL,
		RedisChannel: os.Getenv("REDIS_CHANNEL"),
		Breaker:      bc,
	}
}

// parseDuration accepts Go durations ("1500ms") and plain seconds ("2.5").
func parseDuration(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	return 0
}
