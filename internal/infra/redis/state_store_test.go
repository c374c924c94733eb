package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"interview-rehearsal-service/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	store := NewStateStore(client, time.Hour)

	if _, ok, err := store.GetHistory(ctx, "u1", "hr-interview"); ok || err != nil {
		t.Fatalf("expected no history, ok=%v err=%v", ok, err)
	}

	want := domain.SelectionHistory{Indices: []int{3, 1, 4}, UpdatedAt: time.Now().UTC()}
	if err := store.PutHistory(ctx, "u1", "hr-interview", want); err != nil {
		t.Fatalf("put history: %v", err)
	}

	got, ok, err := store.GetHistory(ctx, "u1", "hr-interview")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if len(got.Indices) != 3 || got.Indices[0] != 3 {
		t.Fatalf("unexpected history %v", got.Indices)
	}
}

func TestProgressCarriesFreshnessTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewStateStore(client, time.Hour)

	p := domain.Progress{CurrentIndex: 1, Answers: []string{"a", ""}, SavedAt: time.Now()}
	if err := store.PutProgress(ctx, "u1", "hr-interview", p); err != nil {
		t.Fatalf("put progress: %v", err)
	}
	if ttl := mr.TTL("interview:progress:u1:hr-interview"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	// Past the freshness window the snapshot is simply gone.
	mr.FastForward(2 * time.Hour)
	if _, ok, err := store.GetProgress(ctx, "u1", "hr-interview"); ok || err != nil {
		t.Fatalf("expected expired progress, ok=%v err=%v", ok, err)
	}
}

func TestClearProgressRemovesKey(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewStateStore(client, time.Hour)

	p := domain.Progress{CurrentIndex: 0, Answers: []string{""}, SavedAt: time.Now()}
	if err := store.PutProgress(ctx, "u1", "topic", p); err != nil {
		t.Fatalf("put progress: %v", err)
	}
	if err := store.ClearProgress(ctx, "u1", "topic"); err != nil {
		t.Fatalf("clear progress: %v", err)
	}
	if mr.Exists("interview:progress:u1:topic") {
		t.Fatalf("expected progress key removed")
	}
}
