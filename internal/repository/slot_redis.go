package repository

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

type RedisSlotStore struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisSlotStore(rdb *redis.Client) *RedisSlotStore {
	return &RedisSlotStore{Redis: rdb, Prefix: "h2ala:slot:"}
}

func (r *RedisSlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.Redis.Get(ctx, r.Prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisSlotStore) Set(ctx context.Context, key, value string) error {
	return r.Redis.Set(ctx, r.Prefix+key, value, 0).Err()
}
