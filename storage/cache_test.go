package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"eventboard-api/domain"
)

type stubBackend struct {
	listFn    func(ctx context.Context) ([]domain.Event, error)
	getFn     func(ctx context.Context, id string) (domain.Event, error)
	insertFn  func(ctx context.Context, draft domain.Draft, ownerID string) (domain.Event, error)
	replaceFn func(ctx context.Context, id string, fields domain.Fields) error
	deleteFn  func(ctx context.Context, id string) error
	publishFn func(ctx context.Context, ch domain.Change) error
}

func (s *stubBackend) ListEvents(ctx context.Context) ([]domain.Event, error) {
	if s.listFn == nil {
		return nil, errors.New("unexpected ListEvents call")
	}
	return s.listFn(ctx)
}

func (s *stubBackend) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	if s.getFn == nil {
		return domain.Event{}, errors.New("unexpected GetEvent call")
	}
	return s.getFn(ctx, id)
}

func (s *stubBackend) InsertEvent(ctx context.Context, draft domain.Draft, ownerID string) (domain.Event, error) {
	if s.insertFn == nil {
		return domain.Event{}, errors.New("unexpected InsertEvent call")
	}
	return s.insertFn(ctx, draft, ownerID)
}

func (s *stubBackend) ReplaceEvent(ctx context.Context, id string, fields domain.Fields) error {
	if s.replaceFn == nil {
		return errors.New("unexpected ReplaceEvent call")
	}
	return s.replaceFn(ctx, id, fields)
}

func (s *stubBackend) DeleteEvent(ctx context.Context, id string) error {
	if s.deleteFn == nil {
		return errors.New("unexpected DeleteEvent call")
	}
	return s.deleteFn(ctx, id)
}

func (s *stubBackend) PublishChange(ctx context.Context, ch domain.Change) error {
	if s.publishFn == nil {
		return errors.New("unexpected PublishChange call")
	}
	return s.publishFn(ctx, ch)
}

func newCacheTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheListEventsMissThenHit(t *testing.T) {
	client := newCacheTestClient(t)

	ctx := context.Background()
	expected := []domain.Event{{ID: "ev-1", Title: "Gala", CreatedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}}

	var calls int
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Event, error) {
			calls++
			return expected, nil
		},
	}, client, time.Minute)

	got, err := cache.ListEvents(ctx)
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("unexpected events: %+v", got)
	}

	got, err = cache.ListEvents(ctx)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("unexpected cached events: %+v", got)
	}
	if calls != 1 {
		t.Fatalf("expected one backend call, got %d", calls)
	}
}

func TestCacheListEventsBackendError(t *testing.T) {
	client := newCacheTestClient(t)

	wantErr := errors.New("scan failed")
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Event, error) {
			return nil, wantErr
		},
	}, client, time.Minute)

	if _, err := cache.ListEvents(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestCacheMutationsEvictList(t *testing.T) {
	client := newCacheTestClient(t)
	ctx := context.Background()

	var listCalls int
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Event, error) {
			listCalls++
			return []domain.Event{{ID: "ev-1"}}, nil
		},
		insertFn: func(ctx context.Context, draft domain.Draft, ownerID string) (domain.Event, error) {
			return domain.Event{ID: "ev-2", OwnerID: ownerID}, nil
		},
		replaceFn: func(ctx context.Context, id string, fields domain.Fields) error { return nil },
		deleteFn:  func(ctx context.Context, id string) error { return nil },
	}, client, time.Minute)

	mutations := []func() error{
		func() error {
			_, err := cache.InsertEvent(ctx, domain.Draft{Title: "t"}, "user-1")
			return err
		},
		func() error { return cache.ReplaceEvent(ctx, "ev-1", domain.Fields{Title: "t"}) },
		func() error { return cache.DeleteEvent(ctx, "ev-1") },
	}

	for i, mutate := range mutations {
		if _, err := cache.ListEvents(ctx); err != nil {
			t.Fatalf("warm cache %d: %v", i, err)
		}
		if err := mutate(); err != nil {
			t.Fatalf("mutation %d: %v", i, err)
		}
		if _, err := cache.ListEvents(ctx); err != nil {
			t.Fatalf("list after mutation %d: %v", i, err)
		}
	}
	// First warm misses; afterwards only the list following each eviction
	// goes to the backend (the next warm is served from cache).
	if listCalls != len(mutations)+1 {
		t.Fatalf("expected %d backend calls, got %d", len(mutations)+1, listCalls)
	}
}

func TestCacheMutationErrorKeepsCache(t *testing.T) {
	client := newCacheTestClient(t)
	ctx := context.Background()

	var listCalls int
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Event, error) {
			listCalls++
			return []domain.Event{{ID: "ev-1"}}, nil
		},
		deleteFn: func(ctx context.Context, id string) error { return ErrNotFound },
	}, client, time.Minute)

	if _, err := cache.ListEvents(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if err := cache.DeleteEvent(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := cache.ListEvents(ctx); err != nil {
		t.Fatalf("list after failed delete: %v", err)
	}
	if listCalls != 1 {
		t.Fatalf("failed mutation must not evict; backend calls: %d", listCalls)
	}
}

func TestCacheCorruptPayloadFallsBack(t *testing.T) {
	client := newCacheTestClient(t)
	ctx := context.Background()

	if err := client.Set(ctx, listCacheKey, "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	expected := []domain.Event{{ID: "ev-1"}}
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Event, error) { return expected, nil },
	}, client, time.Minute)

	got, err := cache.ListEvents(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("unexpected events: %+v", got)
	}
}
