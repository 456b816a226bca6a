package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubDirectory struct {
	projectsFn func(ctx context.Context) (map[string]string, error)
	usersFn    func(ctx context.Context) (map[string]string, error)
}

func (s *stubDirectory) Projects(ctx context.Context) (map[string]string, error) {
	if s.projectsFn == nil {
		return nil, errors.New("unexpected Projects call")
	}
	return s.projectsFn(ctx)
}

func (s *stubDirectory) Users(ctx context.Context) (map[string]string, error) {
	if s.usersFn == nil {
		return nil, errors.New("unexpected Users call")
	}
	return s.usersFn(ctx)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestDirectoryCacheMissThenHit(t *testing.T) {
	mr, client := newRedis(t)
	var calls int
	cache := NewDirectoryCache(&stubDirectory{
		projectsFn: func(context.Context) (map[string]string, error) {
			calls++
			return map[string]string{"p1": "Harbour Tower"}, nil
		},
	}, client, "acme", time.Minute)

	for i := 0; i < 2; i++ {
		names, err := cache.Projects(context.Background())
		if err != nil {
			t.Fatalf("projects: %v", err)
		}
		if names["p1"] != "Harbour Tower" {
			t.Fatalf("unexpected names %#v", names)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", calls)
	}
	if ttl := mr.TTL("directory:acme:projects"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL %v", ttl)
	}
}

func TestDirectoryCacheCorruptEntryFallsBack(t *testing.T) {
	mr, client := newRedis(t)
	if err := mr.Set("directory:acme:users", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cache := NewDirectoryCache(&stubDirectory{
		usersFn: func(context.Context) (map[string]string, error) {
			return map[string]string{"u1": "Ana"}, nil
		},
	}, client, "acme", time.Minute)

	names, err := cache.Users(context.Background())
	if err != nil || names["u1"] != "Ana" {
		t.Fatalf("expected backend names, got %#v %v", names, err)
	}
}

func TestDirectoryCacheEvict(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewDirectoryCache(&stubDirectory{
		projectsFn: func(context.Context) (map[string]string, error) { return map[string]string{}, nil },
		usersFn:    func(context.Context) (map[string]string, error) { return map[string]string{}, nil },
	}, client, "acme", time.Minute)
	_, _ = cache.Projects(context.Background())
	_, _ = cache.Users(context.Background())

	cache.Evict(context.Background())
	if mr.Exists("directory:acme:projects") || mr.Exists("directory:acme:users") {
		t.Fatalf("expected keys evicted")
	}
}

func TestDirectoryCacheWithoutRedis(t *testing.T) {
	var calls int
	cache := NewDirectoryCache(&stubDirectory{
		usersFn: func(context.Context) (map[string]string, error) {
			calls++
			return map[string]string{}, nil
		},
	}, nil, "acme", time.Minute)
	_, _ = cache.Users(context.Background())
	_, _ = cache.Users(context.Background())
	if calls != 2 {
		t.Fatalf("expected pass-through without redis, got %d calls", calls)
	}
}
