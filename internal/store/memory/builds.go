package memory

import (
	"context"
	"time"

	"adhocdist/internal/store"

	"github.com/google/uuid"
)

func (s *Store) CreateBuild(ctx context.Context, in store.BuildInput) (*store.Build, error) {
	if len(in.DevicesIncluded) == 0 {
		return nil, store.ErrEmptyDevices
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := &store.Build{
		ID:              uuid.New(),
		TesterID:        in.TesterID,
		Status:          store.BuildStatusPending,
		DevicesIncluded: append([]string(nil), in.DevicesIncluded...),
		CreatedAt:       s.now(),
	}
	s.builds[b.ID] = b
	return cloneBuild(b), nil
}

func (s *Store) GetBuildByID(ctx context.Context, id uuid.UUID) (*store.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.builds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBuild(b), nil
}

func (s *Store) ListBuilds(ctx context.Context) ([]*store.Build, error) {
	return s.filterBuilds(func(*store.Build) bool { return true }), nil
}

func (s *Store) ListBuildsByTester(ctx context.Context, testerID uuid.UUID) ([]*store.Build, error) {
	return s.filterBuilds(func(b *store.Build) bool { return b.TesterID == testerID }), nil
}

func (s *Store) UpdateBuild(ctx context.Context, id uuid.UUID, patch store.BuildPatch) (*store.Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.builds[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	updated := cloneBuild(b)
	if patch.Status != nil {
		if err := store.CheckTransition(b.Status, *patch.Status); err != nil {
			return nil, err
		}
		updated.Status = *patch.Status
	}
	if patch.DownloadURL != nil {
		updated.DownloadURL = cloneString(patch.DownloadURL)
	}
	if patch.CompletedAt != nil {
		updated.CompletedAt = cloneTime(patch.CompletedAt)
	}

	s.builds[id] = updated
	return cloneBuild(updated), nil
}

func (s *Store) DeleteBuild(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.builds[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.builds, id)
	return nil
}

func (s *Store) filterBuilds(keep func(*store.Build) bool) []*store.Build {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Build, 0)
	for _, b := range s.builds {
		if keep(b) {
			out = append(out, cloneBuild(b))
		}
	}
	sortByCreated(out,
		func(b *store.Build) time.Time { return b.CreatedAt },
		func(b *store.Build) uuid.UUID { return b.ID })
	return out
}

func cloneBuild(b *store.Build) *store.Build {
	c := *b
	c.DevicesIncluded = append([]string(nil), b.DevicesIncluded...)
	c.DownloadURL = cloneString(b.DownloadURL)
	c.CompletedAt = cloneTime(b.CompletedAt)
	return &c
}
