package settings

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectionTimeout = 5 * time.Second

// RedisStore keeps the settings in redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the redis url and verifies the connection.
func NewRedisStore(ctx context.Context, dsn string) (*RedisStore, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err = client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (rs *RedisStore) Read(ctx context.Context, key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}

	val, err := rs.client.Get(ctx, remoteKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (rs *RedisStore) Write(ctx context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return rs.client.Set(ctx, remoteKeyPrefix+key, value, 0).Err()
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
