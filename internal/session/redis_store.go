package session

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"moviesvault/catalog/internal/metrics"
)

const redisSessionPrefix = "moviesvault:session:"

// RedisStore resolves session ids to access tokens written by the
// authentication service.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = redisSessionPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Lookup returns the token for sessionID; ok is false when none is stored.
func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (token string, ok bool, err error) {
	sessionID = strings.TrimSpace(sessionID)
	if s == nil || s.client == nil || sessionID == "" {
		return "", false, nil
	}
	value, err := s.client.Get(ctx, s.prefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.SessionLookupsTotal.WithLabelValues("miss").Inc()
			return "", false, nil
		}
		metrics.SessionLookupsTotal.WithLabelValues("error").Inc()
		return "", false, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		metrics.SessionLookupsTotal.WithLabelValues("miss").Inc()
		return "", false, nil
	}
	metrics.SessionLookupsTotal.WithLabelValues("hit").Inc()
	return value, true, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
