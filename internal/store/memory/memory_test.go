package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adhocdist/internal/store"

	"github.com/google/uuid"
)

func TestCreateTester_IdempotentByEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, created, err := s.CreateTester(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("CreateTester failed: %v", err)
	}
	if !created {
		t.Error("expected first call to create the tester")
	}
	if first.Status != store.TesterStatusEmailCollected {
		t.Errorf("got status %s, want %s", first.Status, store.TesterStatusEmailCollected)
	}

	second, created, err := s.CreateTester(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("CreateTester failed: %v", err)
	}
	if created {
		t.Error("expected second call to return the existing tester")
	}
	if second.ID != first.ID {
		t.Errorf("got ID %v, want %v", second.ID, first.ID)
	}

	// Email matching is case-sensitive as entered.
	other, created, _ := s.CreateTester(ctx, "A@x.com")
	if !created || other.ID == first.ID {
		t.Error("expected a different tester for a differently cased email")
	}

	all, _ := s.ListTesters(ctx)
	if len(all) != 2 {
		t.Errorf("got %d testers, want 2", len(all))
	}
}

func TestCreateTester_ConcurrentSameEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 32
	ids := make([]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tester, _, err := s.CreateTester(ctx, "race@x.com")
			if err != nil {
				t.Errorf("CreateTester failed: %v", err)
				return
			}
			ids[i] = tester.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent creates returned different ids: %v vs %v", ids[i], ids[0])
		}
	}
	if testers, _, _ := s.Counts(); testers != 1 {
		t.Errorf("got %d testers, want 1", testers)
	}
}

func TestUpdateTester(t *testing.T) {
	s := New()
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	tester, _, _ := s.CreateTester(ctx, "a@x.com")

	clock = clock.Add(time.Minute)
	udid := "00000000-0000-0000-0000-000000000001"
	updated, err := s.UpdateTester(ctx, tester.ID, store.TesterPatch{
		UDID:   &udid,
		Status: store.StatusPtr(store.TesterStatusDeviceRegistered),
	})
	if err != nil {
		t.Fatalf("UpdateTester failed: %v", err)
	}
	if updated.UDID == nil || *updated.UDID != udid {
		t.Errorf("got UDID %v, want %s", updated.UDID, udid)
	}
	if updated.Status != store.TesterStatusDeviceRegistered {
		t.Errorf("got status %s", updated.Status)
	}
	if !updated.UpdatedAt.Equal(clock) {
		t.Errorf("UpdatedAt not refreshed: got %v want %v", updated.UpdatedAt, clock)
	}
	if !updated.CreatedAt.Equal(tester.CreatedAt) {
		t.Error("CreatedAt must not change on update")
	}

	// A patch with only status keeps the UDID.
	again, _ := s.UpdateTester(ctx, tester.ID, store.TesterPatch{Status: store.StatusPtr(store.TesterStatusBuildPending)})
	if again.UDID == nil || *again.UDID != udid {
		t.Error("shallow merge dropped UDID")
	}
}

func TestUpdateTester_UnknownID(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.UpdateTester(ctx, uuid.New(), store.TesterPatch{Status: store.StatusPtr(store.TesterStatusEmailSent)})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if testers, _, _ := s.Counts(); testers != 0 {
		t.Error("update must not create a record")
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	tester, _, _ := s.CreateTester(ctx, "a@x.com")
	tester.Status = store.TesterStatusEmailSent

	stored, _ := s.GetTesterByID(ctx, tester.ID)
	if stored.Status != store.TesterStatusEmailCollected {
		t.Error("mutating a returned tester changed the stored record")
	}
}

func TestCreateDevice_IdempotentByUDID(t *testing.T) {
	s := New()
	ctx := context.Background()

	product := "iPhone14,2"
	first, created, err := s.CreateDevice(ctx, store.DeviceInput{UDID: "udid-1", Product: &product})
	if err != nil || !created {
		t.Fatalf("CreateDevice failed: created=%v err=%v", created, err)
	}

	second, created, err := s.CreateDevice(ctx, store.DeviceInput{UDID: "udid-1"})
	if err != nil {
		t.Fatalf("CreateDevice failed: %v", err)
	}
	if created {
		t.Error("expected existing device to be returned")
	}
	if second.ID != first.ID {
		t.Errorf("got ID %v, want %v", second.ID, first.ID)
	}
	if second.Product == nil || *second.Product != product {
		t.Error("existing device attributes must be preserved")
	}

	found, err := s.GetDeviceByUDID(ctx, "udid-1")
	if err != nil || found.ID != first.ID {
		t.Errorf("GetDeviceByUDID = %v, %v", found, err)
	}
	if _, err := s.GetDeviceByUDID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	testerID := uuid.New()

	if _, err := s.CreateBuild(ctx, store.BuildInput{TesterID: testerID}); !errors.Is(err, store.ErrEmptyDevices) {
		t.Errorf("expected ErrEmptyDevices, got %v", err)
	}

	b, err := s.CreateBuild(ctx, store.BuildInput{TesterID: testerID, DevicesIncluded: []string{"udid-1"}})
	if err != nil {
		t.Fatalf("CreateBuild failed: %v", err)
	}
	if b.Status != store.BuildStatusPending {
		t.Errorf("got status %s, want PENDING", b.Status)
	}

	url := "https://x/y.ipa"
	now := time.Now().UTC()
	done, err := s.UpdateBuild(ctx, b.ID, store.BuildPatch{
		Status:      store.BuildStatusPtr(store.BuildStatusCompleted),
		DownloadURL: &url,
		CompletedAt: &now,
	})
	if err != nil {
		t.Fatalf("UpdateBuild failed: %v", err)
	}
	if done.Status != store.BuildStatusCompleted || done.DownloadURL == nil || *done.DownloadURL != url {
		t.Errorf("unexpected build after update: %+v", done)
	}

	if _, err := s.UpdateBuild(ctx, b.ID, store.BuildPatch{Status: store.BuildStatusPtr(store.BuildStatusFailed)}); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	byTester, _ := s.ListBuildsByTester(ctx, testerID)
	if len(byTester) != 1 {
		t.Errorf("got %d builds for tester, want 1", len(byTester))
	}
	other, _ := s.ListBuildsByTester(ctx, uuid.New())
	if len(other) != 0 {
		t.Errorf("got %d builds for unknown tester, want 0", len(other))
	}
}

func TestClear(t *testing.T) {
	s := New()
	ctx := context.Background()

	tester, _, _ := s.CreateTester(ctx, "a@x.com")
	s.CreateDevice(ctx, store.DeviceInput{UDID: "udid-1"})
	s.CreateBuild(ctx, store.BuildInput{TesterID: tester.ID, DevicesIncluded: []string{"udid-1"}})

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	testers, devices, builds := s.Counts()
	if testers+devices+builds != 0 {
		t.Errorf("expected empty store, got %d/%d/%d", testers, devices, builds)
	}
}

func TestDelete_UnknownID(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.DeleteTester(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteTester: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteDevice(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteDevice: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteBuild(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteBuild: expected ErrNotFound, got %v", err)
	}
}
