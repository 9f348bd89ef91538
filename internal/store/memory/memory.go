// Package memory implements the store interfaces with process-local maps.
// Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"adhocdist/internal/store"

	"github.com/google/uuid"
)

var _ store.Store = (*Store)(nil)

// Store keeps testers, devices and builds in memory.
// Find-or-create runs under the write lock, so email and UDID uniqueness
// checks are atomic with the insert.
type Store struct {
	mu      sync.RWMutex
	testers map[uuid.UUID]*store.Tester
	devices map[uuid.UUID]*store.Device
	builds  map[uuid.UUID]*store.Build

	now func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		testers: make(map[uuid.UUID]*store.Tester),
		devices: make(map[uuid.UUID]*store.Device),
		builds:  make(map[uuid.UUID]*store.Build),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Clear purges every collection.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.testers = make(map[uuid.UUID]*store.Tester)
	s.devices = make(map[uuid.UUID]*store.Device)
	s.builds = make(map[uuid.UUID]*store.Build)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Counts returns the number of testers, devices and builds.
func (s *Store) Counts() (testers, devices, builds int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.testers), len(s.devices), len(s.builds)
}

// sortByCreated orders records by creation time, then id for a stable result.
func sortByCreated[T any](items []T, created func(T) time.Time, id func(T) uuid.UUID) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if ci.Equal(cj) {
			return id(items[i]).String() < id(items[j]).String()
		}
		return ci.Before(cj)
	})
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
