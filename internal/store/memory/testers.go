package memory

import (
	"context"
	"time"

	"adhocdist/internal/store"

	"github.com/google/uuid"
)

func (s *Store) CreateTester(ctx context.Context, email string) (*store.Tester, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.testerByEmail(email); existing != nil {
		return cloneTester(existing), false, nil
	}

	now := s.now()
	t := &store.Tester{
		ID:        uuid.New(),
		Email:     email,
		Status:    store.TesterStatusEmailCollected,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.testers[t.ID] = t
	return cloneTester(t), true, nil
}

func (s *Store) GetTesterByID(ctx context.Context, id uuid.UUID) (*store.Tester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.testers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTester(t), nil
}

func (s *Store) GetTesterByEmail(ctx context.Context, email string) (*store.Tester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.testerByEmail(email)
	if t == nil {
		return nil, store.ErrNotFound
	}
	return cloneTester(t), nil
}

func (s *Store) ListTesters(ctx context.Context) ([]*store.Tester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Tester, 0, len(s.testers))
	for _, t := range s.testers {
		out = append(out, cloneTester(t))
	}
	sortByCreated(out,
		func(t *store.Tester) time.Time { return t.CreatedAt },
		func(t *store.Tester) uuid.UUID { return t.ID })
	return out, nil
}

func (s *Store) UpdateTester(ctx context.Context, id uuid.UUID, patch store.TesterPatch) (*store.Tester, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.testers[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	updated := cloneTester(t)
	if patch.UDID != nil {
		updated.UDID = cloneString(patch.UDID)
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	updated.UpdatedAt = s.now()

	s.testers[id] = updated
	return cloneTester(updated), nil
}

func (s *Store) DeleteTester(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.testers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.testers, id)
	return nil
}

// testerByEmail returns the earliest tester with the email. Callers hold the lock.
func (s *Store) testerByEmail(email string) *store.Tester {
	var found *store.Tester
	for _, t := range s.testers {
		if t.Email != email {
			continue
		}
		if found == nil || t.CreatedAt.Before(found.CreatedAt) {
			found = t
		}
	}
	return found
}

func cloneTester(t *store.Tester) *store.Tester {
	c := *t
	c.UDID = cloneString(t.UDID)
	return &c
}
