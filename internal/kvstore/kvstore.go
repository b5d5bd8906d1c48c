// Package kvstore is the local persistence adapter behind the post cache.
// The backend is chosen by platform: a durable SQLite file on devices, an
// in-process map in the browser build, Redis when state is shared.
package kvstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store is an asynchronous string key/value store. Set is idempotent.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	PlatformWeb    = "web"
	PlatformNative = "native"
	PlatformShared = "shared"
)

type Options struct {
	Platform string
	Path     string
	Redis    *redis.Client
}

// Open picks the backend for opts.Platform. Unknown platforms fall back to
// the in-process store.
func Open(opts Options) (Store, error) {
	switch opts.Platform {
	case PlatformNative:
		s, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case PlatformShared:
		if opts.Redis == nil {
			return nil, fmt.Errorf("kvstore: shared platform needs a redis client")
		}
		return NewRedis(opts.Redis, "umaklink:kv:"), nil
	default:
		return NewMemory(), nil
	}
}

type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
