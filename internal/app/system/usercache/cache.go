// Package usercache resolves user ids to summaries through an injectable,
// TTL-bounded cache with explicit invalidation.
package usercache

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cache stores user summaries keyed by id.
type Cache interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.UserSummary, bool, error)
	Set(ctx context.Context, s models.UserSummary) error
	Invalidate(ctx context.Context, id primitive.ObjectID) error
}

type entry struct {
	summary models.UserSummary
	expires time.Time
}

// Memory is an in-process Cache. A TTL of zero or less disables caching:
// Set becomes a no-op and every Get misses.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[primitive.ObjectID]entry
}

// NewMemory creates an in-process cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[primitive.ObjectID]entry),
	}
}

// WithClock replaces the time source. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *Memory) Get(_ context.Context, id primitive.ObjectID) (models.UserSummary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return models.UserSummary{}, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, id)
		return models.UserSummary{}, false, nil
	}
	return e.summary, true, nil
}

func (m *Memory) Set(_ context.Context, s models.UserSummary) error {
	if m.ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.entries[s.ID] = entry{summary: s, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
