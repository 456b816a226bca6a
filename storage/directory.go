package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"siteboard/domain"
)

const (
	projectsPath = "/api/projects"
	usersPath    = "/api/users"
)

// Directory resolves display names of projects and users.
type Directory interface {
	Projects(ctx context.Context) (map[string]string, error)
	Users(ctx context.Context) (map[string]string, error)
}

// Evicter is implemented by directories that cache their answers.
type Evicter interface {
	Evict(ctx context.Context)
}

// RemoteDirectory reads the directories from the REST backend.
type RemoteDirectory struct {
	client *Client
}

func NewRemoteDirectory(c *Client) *RemoteDirectory {
	return &RemoteDirectory{client: c}
}

func (d *RemoteDirectory) Projects(ctx context.Context) (map[string]string, error) {
	return d.fetch(ctx, projectsPath)
}

func (d *RemoteDirectory) Users(ctx context.Context) (map[string]string, error) {
	return d.fetch(ctx, usersPath)
}

func (d *RemoteDirectory) fetch(ctx context.Context, path string) (map[string]string, error) {
	var refs []domain.Ref
	if err := d.client.GetJSON(ctx, path, &refs); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(refs))
	for _, r := range refs {
		out[r.ID] = r.Name
	}
	return out, nil
}

// DirectoryCache wraps a Directory with Redis-backed caching. The
// directories change rarely, unlike board items, which are never cached.
type DirectoryCache struct {
	base  Directory
	redis *redis.Client
	ttl   time.Duration
	scope string
}

// NewDirectoryCache creates a caching wrapper. scope namespaces the keys,
// usually by tenant. A nil client disables caching.
func NewDirectoryCache(base Directory, client *redis.Client, scope string, ttl time.Duration) *DirectoryCache {
	if base == nil {
		panic("storage.NewDirectoryCache: base directory is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &DirectoryCache{base: base, redis: client, ttl: ttl, scope: scope}
}

func (c *DirectoryCache) Projects(ctx context.Context) (map[string]string, error) {
	return c.load(ctx, c.key("projects"), c.base.Projects)
}

func (c *DirectoryCache) Users(ctx context.Context) (map[string]string, error) {
	return c.load(ctx, c.key("users"), c.base.Users)
}

// Evict drops both cached directories.
func (c *DirectoryCache) Evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, c.key("projects"), c.key("users")).Result()
}

func (c *DirectoryCache) load(ctx context.Context, key string, fetch func(context.Context) (map[string]string, error)) (map[string]string, error) {
	if names, ok := c.fromCache(ctx, key); ok {
		return names, nil
	}
	names, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, names)
	return names, nil
}

func (c *DirectoryCache) fromCache(ctx context.Context, key string) (map[string]string, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backend without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return names, true
}

func (c *DirectoryCache) store(ctx context.Context, key string, names map[string]string) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(names)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *DirectoryCache) key(kind string) string {
	return "directory:" + c.scope + ":" + kind
}
