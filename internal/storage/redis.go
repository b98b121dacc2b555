package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tudelft-ide/captioner/internal/models"
)

// sessionTTL expires abandoned sessions server-side. Sessions live
// for a full workshop day; anything older is reclaimed by Redis.
const sessionTTL = 24 * time.Hour

const keyPrefix = "session:"

// RedisStore persists sessions in Redis with a 24-hour expiry
type RedisStore struct {
	client *redis.Client
}

func newRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 5 * time.Second
	opts.WriteTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, session *models.Session) bool {
	data, err := json.Marshal(session)
	if err != nil {
		slog.Error("Unable to serialize session", "session_id", shortID(id), "err", err)
		return false
	}
	if err := s.client.Set(ctx, keyPrefix+id, data, sessionTTL).Err(); err != nil {
		slog.Error("Unable to save session to redis", "session_id", shortID(id), "err", err)
		return false
	}
	return true
}

func (s *RedisStore) Load(ctx context.Context, id string) *models.Session {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("Unable to load session from redis", "session_id", shortID(id), "err", err)
		}
		return nil
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Error("Unable to parse session from redis", "session_id", shortID(id), "err", err)
		return nil
	}
	return &session
}

func (s *RedisStore) Exists(ctx context.Context, id string) bool {
	n, err := s.client.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		slog.Error("Unable to check session in redis", "session_id", shortID(id), "err", err)
		return false
	}
	return n > 0
}

func (s *RedisStore) Delete(ctx context.Context, id string) bool {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		slog.Error("Unable to delete session from redis", "session_id", shortID(id), "err", err)
		return false
	}
	return true
}

func (s *RedisStore) Type() string {
	return "redis"
}
