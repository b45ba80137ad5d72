package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"jukebox/playbackservice/internal/domain"
)

const redisKeyPrefix = "jukebox:playback:"

// RedisStore keeps records as JSON with an absolute expiry (SET ... EXAT).
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (r *RedisStore) Get(ctx context.Context, key string) (domain.PlaybackRecord, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PlaybackRecord{}, false, nil
		}
		return domain.PlaybackRecord{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var stored entry
	if err := json.Unmarshal(data, &stored); err != nil {
		return domain.PlaybackRecord{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return stored.record(), true, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, record domain.PlaybackRecord, expireAt time.Time) error {
	if !expireAt.After(r.now()) {
		return ErrExpired
	}
	data, err := json.Marshal(newEntry(key, record, expireAt))
	if err != nil {
		return err
	}
	return r.client.SetArgs(ctx, redisKeyPrefix+key, data, redis.SetArgs{ExpireAt: expireAt}).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
