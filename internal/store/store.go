package store

import (
	"context"
	"errors"
	"time"

	"jukebox/playbackservice/internal/domain"
)

var ErrExpired = errors.New("expiry is not in the future")

// Store persists playback records until their expiry. Implementations
// enforce the expiry themselves; callers never evict.
type Store interface {
	Get(ctx context.Context, key string) (domain.PlaybackRecord, bool, error)
	Put(ctx context.Context, key string, record domain.PlaybackRecord, expireAt time.Time) error
	Ping(ctx context.Context) error
}

// entry is the stored form of a record. Key and Expires are bookkeeping
// and are dropped before the record reaches a caller.
type entry struct {
	domain.PlaybackRecord
	Key     string `json:"key"`
	Expires int64  `json:"__expires"`
}

func newEntry(key string, record domain.PlaybackRecord, expireAt time.Time) entry {
	return entry{PlaybackRecord: record, Key: key, Expires: expireAt.Unix()}
}

func (e entry) record() domain.PlaybackRecord {
	return e.PlaybackRecord
}
