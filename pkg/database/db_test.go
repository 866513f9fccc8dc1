package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'UTC'", quoteLiteral("UTC"))
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}

func TestConfigFromEnv_SQLiteDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", DriverSQLite)
	t.Setenv("DATABASE_URL", "")
	cfg := ConfigFromEnv()
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "meeting.db", cfg.DSN)
	assert.Equal(t, 1, cfg.MaxConns)
}

func TestConnect_SQLite(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "t.db")})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, DriverSQLite, db.DriverName())
}
