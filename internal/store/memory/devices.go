package memory

import (
	"context"
	"time"

	"adhocdist/internal/store"

	"github.com/google/uuid"
)

func (s *Store) CreateDevice(ctx context.Context, in store.DeviceInput) (*store.Device, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.deviceByUDID(in.UDID); existing != nil {
		return cloneDevice(existing), false, nil
	}

	d := &store.Device{
		ID:        uuid.New(),
		UDID:      in.UDID,
		Product:   cloneString(in.Product),
		OSVersion: cloneString(in.OSVersion),
		CreatedAt: s.now(),
	}
	s.devices[d.ID] = d
	return cloneDevice(d), true, nil
}

func (s *Store) GetDeviceByID(ctx context.Context, id uuid.UUID) (*store.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneDevice(d), nil
}

func (s *Store) GetDeviceByUDID(ctx context.Context, udid string) (*store.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := s.deviceByUDID(udid)
	if d == nil {
		return nil, store.ErrNotFound
	}
	return cloneDevice(d), nil
}

func (s *Store) ListDevices(ctx context.Context) ([]*store.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, cloneDevice(d))
	}
	sortByCreated(out,
		func(d *store.Device) time.Time { return d.CreatedAt },
		func(d *store.Device) uuid.UUID { return d.ID })
	return out, nil
}

func (s *Store) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.devices, id)
	return nil
}

func (s *Store) deviceByUDID(udid string) *store.Device {
	for _, d := range s.devices {
		if d.UDID == udid {
			return d
		}
	}
	return nil
}

func cloneDevice(d *store.Device) *store.Device {
	c := *d
	c.Product = cloneString(d.Product)
	c.OSVersion = cloneString(d.OSVersion)
	return &c
}
