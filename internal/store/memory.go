package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"jukebox/playbackservice/internal/domain"
)

const memoryCleanupInterval = 10 * time.Minute

// MemoryStore is the in-process fallback used when no Redis is configured.
type MemoryStore struct {
	items *gocache.Cache
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: gocache.New(gocache.NoExpiration, memoryCleanupInterval),
		now:   time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (domain.PlaybackRecord, bool, error) {
	value, ok := m.items.Get(key)
	if !ok {
		return domain.PlaybackRecord{}, false, nil
	}
	stored, ok := value.(entry)
	if !ok {
		m.items.Delete(key)
		return domain.PlaybackRecord{}, false, nil
	}
	return stored.record(), true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, record domain.PlaybackRecord, expireAt time.Time) error {
	ttl := expireAt.Sub(m.now())
	if ttl <= 0 {
		return ErrExpired
	}
	m.items.Set(key, newEntry(key, record, expireAt), ttl)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) Len() int {
	return m.items.ItemCount()
}
