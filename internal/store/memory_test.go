package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	record := sampleRecord()

	if err := s.Put(ctx, record.VideoID, record, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, found, err := s.Get(ctx, record.VideoID)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if got != record {
		t.Fatalf("record mismatch: %+v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", s.Len())
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	record := sampleRecord()

	if err := s.Put(ctx, record.VideoID, record, time.Now().Add(30*time.Millisecond)); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if _, found, _ := s.Get(ctx, record.VideoID); found {
		t.Fatal("expected entry to be expired")
	}
}

func TestMemoryStoreRejectsPastExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	err := s.Put(context.Background(), "dQw4w9WgXcQ", sampleRecord(), now)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatal("expected nothing stored")
	}
}

func TestMemoryStoreMiss(t *testing.T) {
	s := NewMemoryStore()
	if _, found, err := s.Get(context.Background(), "missing"); found || err != nil {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
