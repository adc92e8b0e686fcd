package like

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisMarkerStore keeps per-viewer markers in Redis. Keys have no TTL so
// markers survive restarts the way device storage would.
type RedisMarkerStore struct {
	client *redis.Client
	prefix string
	viewer string
}

func NewRedisMarkerStore(client *redis.Client, prefix string) *RedisMarkerStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "marker"
	}
	return &RedisMarkerStore{client: client, prefix: prefix}
}

// Viewer returns a store scoped to one viewer id.
func (s *RedisMarkerStore) Viewer(id string) *RedisMarkerStore {
	return &RedisMarkerStore{client: s.client, prefix: s.prefix, viewer: id}
}

func (s *RedisMarkerStore) key(key string) string {
	return s.prefix + ":" + s.viewer + ":" + key
}

func (s *RedisMarkerStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.viewer == "" {
		return "", false, nil
	}
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisMarkerStore) Set(ctx context.Context, key, value string) error {
	if s.viewer == "" {
		return errors.New("marker: viewer id required")
	}
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}
