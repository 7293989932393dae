package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ykvlv/report-bot/internal/domain"
)

const (
	prefsKeyPrefix   = "prefs:"
	sessionKeyPrefix = "session:"
)

// RedisRepo implements Repo on top of Redis, one JSON value per key.
type RedisRepo struct {
	client *redis.Client
}

// NewRedisRepo wraps an existing client.
func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

// OpenRedis connects using a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*RedisRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisRepo(client), nil
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}

func (r *RedisRepo) GetPreferences(ctx context.Context, userID int64) (domain.Preferences, error) {
	var p domain.Preferences
	err := r.getJSON(ctx, prefsKeyPrefix+strconv.FormatInt(userID, 10), &p)
	return p, err
}

func (r *RedisRepo) PutPreferences(ctx context.Context, userID int64, p domain.Preferences) error {
	if err := validatePreferences(p); err != nil {
		return err
	}
	return r.setJSON(ctx, prefsKeyPrefix+strconv.FormatInt(userID, 10), p)
}

func (r *RedisRepo) GetSession(ctx context.Context, userID int64) (domain.Session, error) {
	var s domain.Session
	err := r.getJSON(ctx, sessionKeyPrefix+strconv.FormatInt(userID, 10), &s)
	return s, err
}

func (r *RedisRepo) PutSession(ctx context.Context, userID int64, s domain.Session) error {
	return r.setJSON(ctx, sessionKeyPrefix+strconv.FormatInt(userID, 10), s)
}

func (r *RedisRepo) DeleteSession(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, sessionKeyPrefix+strconv.FormatInt(userID, 10)).Err()
}

func (r *RedisRepo) getJSON(ctx context.Context, key string, v any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *RedisRepo) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, 0).Err()
}
