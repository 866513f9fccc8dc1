package repo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
)

// newTestRedisRepo connects to REDIS_TEST_URL or skips.
func newTestRedisRepo(t *testing.T) *RedisRepo {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedisRepo(ctx, url, "meeting_records_test_"+t.Name(), "")
	require.NoError(t, err)
	t.Cleanup(func() {
		r.client.Del(ctx, r.key)
		r.Close()
	})
	return r
}

func TestNewRedisRepo_InvalidURL(t *testing.T) {
	_, err := NewRedisRepo(context.Background(), "://nope", "k", "")
	assert.Error(t, err)
}

func TestRedisRepo_ReplaceAndFetch(t *testing.T) {
	ctx := context.Background()
	r := newTestRedisRepo(t)

	snap, err := r.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Rows)

	v, err := r.Replace(ctx, &table.Snapshot{Rows: []table.Row{{table.ColUserID: "alice"}}}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = r.Replace(ctx, &table.Snapshot{Rows: []table.Row{{table.ColUserID: "bob"}}}, true)
	assert.ErrorIs(t, err, table.ErrStale)

	snap, err = r.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "alice", snap.Rows[0].Get(table.ColUserID))
}
