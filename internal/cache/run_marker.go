package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMarkerTTL keeps a day's marker past midnight for late-window runs.
const DefaultMarkerTTL = 36 * time.Hour

// RunMarker remembers which dates already had their scheduled checkout.
// It is a read shortcut in front of the execution ledger, never the authority.
type RunMarker interface {
	IsDone(ctx context.Context, date string) (bool, error)
	MarkDone(ctx context.Context, date string) error
}

type redisRunMarker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (m *redisRunMarker) key(date string) string {
	return m.prefix + ":" + date
}

func (m *redisRunMarker) IsDone(ctx context.Context, date string) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(date)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *redisRunMarker) MarkDone(ctx context.Context, date string) error {
	return m.client.SetNX(ctx, m.key(date), "1", m.ttl).Err()
}

type memoryRunMarker struct {
	mu     sync.Mutex
	done   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
}

func newMemoryRunMarker(ttl time.Duration) *memoryRunMarker {
	return &memoryRunMarker{
		done:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: time.Now().Add(ttl),
	}
}

func (m *memoryRunMarker) IsDone(_ context.Context, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.done[date]
	return ok && exp.After(time.Now()), nil
}

func (m *memoryRunMarker) MarkDone(_ context.Context, date string) error {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.done[date] = now.Add(m.ttl)
	if now.After(m.nextGC) {
		for d, exp := range m.done {
			if exp.Before(now) {
				delete(m.done, d)
			}
		}
		m.nextGC = now.Add(m.ttl)
	}
	return nil
}

// NewRunMarker builds a Redis marker and falls back to in-memory on failure.
// The returned error is informational; the marker is always usable.
func NewRunMarker(addr, pass string, db int, ttl time.Duration) (RunMarker, error) {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	if addr == "" {
		return newMemoryRunMarker(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return newMemoryRunMarker(ttl), err
	}

	return &redisRunMarker{
		client: client,
		prefix: "autocheckout:done",
		ttl:    ttl,
	}, nil
}
