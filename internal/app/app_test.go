package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/session"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
	"github.com/ovaphlow/pitchfork/service-meeting/pkg/database"
)

func testConfig(backend string) Config {
	return Config{
		Table: table.Config{Backend: backend, Name: "meeting_records"},
		Meeting: meeting.Config{
			SweepOnList:  true,
			TimeZone:     "UTC",
			PasswordHash: "plain",
			AdminUser:    "GM",
		},
		Session: session.Config{Issuer: "test"},
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(table.BackendMemory), nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Service.RegisterUser(ctx, "alice", "pw123a"))
	ok, err := a.Service.AuthenticateUser(ctx, "alice", "pw123a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, a.Handler())
}

func TestNew_SQLiteBackendPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(table.BackendSQLite)
	cfg.Database = database.Config{DSN: filepath.Join(t.TempDir(), "meeting.db"), MaxConns: 1}

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Service.RegisterUser(ctx, "alice", "pw123a"))
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	u, err := b.Service.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.ID)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, testConfig("dynamo"), nil)
	assert.ErrorContains(t, err, "unknown table backend")

	cfg := testConfig(table.BackendMemory)
	cfg.Meeting.TimeZone = "Mars/Olympus"
	_, err = New(ctx, cfg, nil)
	assert.ErrorContains(t, err, "meeting timezone")
}

func TestConfigFromEnv_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://a.example, ,http://b.example")
	cfg := ConfigFromEnv()
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
}
