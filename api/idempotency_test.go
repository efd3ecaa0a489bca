package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newDeduperForTest(t *testing.T) *RedisDeduper {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})

	return NewRedisDeduper(client, time.Minute)
}

func TestRedisDeduperAddDetectsReplay(t *testing.T) {
	deduper := newDeduperForTest(t)
	ctx := context.Background()

	added, err := deduper.Add(ctx, "user", "key-1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Fatal("expected first add to succeed")
	}

	added, err = deduper.Add(ctx, "user", "key-1")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if added {
		t.Fatal("expected replayed key to be rejected")
	}
}

func TestRedisDeduperKeysAreScopedPerUser(t *testing.T) {
	deduper := newDeduperForTest(t)
	ctx := context.Background()

	if added, err := deduper.Add(ctx, "user-a", "key-1"); err != nil || !added {
		t.Fatalf("user-a add: added=%v err=%v", added, err)
	}
	if added, err := deduper.Add(ctx, "user-b", "key-1"); err != nil || !added {
		t.Fatalf("same key for another user must be new: added=%v err=%v", added, err)
	}
}

func TestRedisDeduperRemoveAllowsRetry(t *testing.T) {
	deduper := newDeduperForTest(t)
	ctx := context.Background()

	if _, err := deduper.Add(ctx, "user", "key-1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := deduper.Remove(ctx, "user", "key-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	added, err := deduper.Add(ctx, "user", "key-1")
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if !added {
		t.Fatal("expected key to be addable again after removal")
	}
}
