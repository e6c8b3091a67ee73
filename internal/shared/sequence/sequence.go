// Package sequence issues monotonic per-scope numbers for protocol registries.
package sequence

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Memory keeps counters in process memory.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemory() *Memory {
	return &Memory{counters: make(map[string]int64)}
}

func (m *Memory) Next(_ context.Context, scope string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scope = strings.TrimSpace(scope)
	m.counters[scope]++
	return m.counters[scope], nil
}

// Redis shares counters across processes with INCR on one key per scope.
type Redis struct {
	Client *redis.Client
	Prefix string
}

func NewRedis(client *redis.Client, prefix string) Redis {
	if strings.TrimSpace(prefix) == "" {
		prefix = "eleitoral:seq"
	}
	return Redis{Client: client, Prefix: prefix}
}

func (r Redis) Next(ctx context.Context, scope string) (int64, error) {
	value, err := r.Client.Incr(ctx, r.Key(scope)).Result()
	if err != nil {
		return 0, fmt.Errorf("sequence incr %s: %w", scope, err)
	}
	return value, nil
}

func (r Redis) Key(scope string) string {
	return r.Prefix + ":" + strings.TrimSpace(scope)
}
