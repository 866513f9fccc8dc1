package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
)

const redisMaxAttempts = 3

// redisDocument is the JSON value stored under the table key.
type redisDocument struct {
	Version int64       `json:"version"`
	Rows    []table.Row `json:"rows"`
}

// RedisRepo stores the whole table as one JSON document under a single key.
// When a channel is configured every successful replace publishes the new
// version, best effort, so pollers know to re-fetch.
type RedisRepo struct {
	client  *redis.Client
	key     string
	channel string
}

// NewRedisRepo parses url and verifies the connection.
func NewRedisRepo(ctx context.Context, url, key, channel string) (*RedisRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisRepo{client: client, key: key, channel: channel}, nil
}

// Close closes the Redis client.
func (r *RedisRepo) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RedisRepo) Fetch(ctx context.Context) (*table.Snapshot, error) {
	doc, err := readDocument(ctx, r.client, r.key)
	if err != nil {
		return nil, err
	}
	return &table.Snapshot{Rows: doc.Rows, Version: doc.Version}, nil
}

// Replace writes the document inside WATCH/MULTI so the version bump and the
// rows land together.
func (r *RedisRepo) Replace(ctx context.Context, snap *table.Snapshot, checkVersion bool) (int64, error) {
	var next int64
	txf := func(tx *redis.Tx) error {
		doc, err := readDocument(ctx, tx, r.key)
		if err != nil {
			return err
		}
		if checkVersion && doc.Version != snap.Version {
			next = doc.Version
			return table.ErrStale
		}
		next = doc.Version + 1
		payload, err := json.Marshal(redisDocument{Version: next, Rows: snap.Rows})
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			if checkVersion {
				return next, table.ErrStale
			}
			continue
		}
		if err != nil {
			return next, err
		}
		if r.channel != "" {
			// the write already landed; a lost notification only delays pollers
			_ = r.client.Publish(ctx, r.channel, strconv.FormatInt(next, 10)).Err()
		}
		return next, nil
	}
	return 0, fmt.Errorf("replace %s: too much contention", r.key)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readDocument(ctx context.Context, c getter, key string) (*redisDocument, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &redisDocument{}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc redisDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &doc, nil
}

var _ table.Store = (*RedisRepo)(nil)
