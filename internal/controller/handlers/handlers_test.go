package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adhocdist/internal/appstore"
	"adhocdist/internal/lifecycle"
	"adhocdist/internal/logger"
	"adhocdist/internal/store"
	"adhocdist/internal/worker"
	"adhocdist/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Mock lifecycle
type mockApp struct {
	registerResp *lifecycle.Registration
	registerErr  error

	lookupResp *store.Tester
	lookupErr  error

	identifyErr error

	completeResp *lifecycle.Completion
	completeErr  error

	testers      []*store.Tester
	testerDetail *lifecycle.TesterDetail
	builds       []*store.Build
	build        *store.Build
	devices      []*store.Device
	vendor       []appstore.VendorDevice
	readErr      error
	purgeErr     error

	// Spies
	capturedEmail      string
	capturedTesterID   string
	capturedInfo       lifecycle.DeviceInfo
	capturedSource     lifecycle.Source
	capturedCompletion lifecycle.BuildCompletion
	capturedID         string
	purged             bool
}

func (m *mockApp) Register(ctx context.Context, email string) (*lifecycle.Registration, error) {
	m.capturedEmail = email
	return m.registerResp, m.registerErr
}

func (m *mockApp) LookupTester(ctx context.Context, rawID string) (*store.Tester, error) {
	m.capturedTesterID = rawID
	return m.lookupResp, m.lookupErr
}

func (m *mockApp) IdentifyDevice(ctx context.Context, rawTesterID string, info lifecycle.DeviceInfo, source lifecycle.Source) (*worker.Ticket, error) {
	m.capturedTesterID = rawTesterID
	m.capturedInfo = info
	m.capturedSource = source
	return nil, m.identifyErr
}

func (m *mockApp) CompleteBuild(ctx context.Context, in lifecycle.BuildCompletion) (*lifecycle.Completion, error) {
	m.capturedCompletion = in
	return m.completeResp, m.completeErr
}

func (m *mockApp) ListTesters(ctx context.Context) ([]*store.Tester, error) {
	return m.testers, m.readErr
}

func (m *mockApp) GetTester(ctx context.Context, rawID string) (*lifecycle.TesterDetail, error) {
	m.capturedID = rawID
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.testerDetail, nil
}

func (m *mockApp) ListBuilds(ctx context.Context) ([]*store.Build, error) {
	return m.builds, m.readErr
}

func (m *mockApp) GetBuild(ctx context.Context, rawID string) (*store.Build, error) {
	m.capturedID = rawID
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.build, nil
}

func (m *mockApp) ListDevices(ctx context.Context) ([]*store.Device, error) {
	return m.devices, m.readErr
}

func (m *mockApp) VendorDevices(ctx context.Context) ([]appstore.VendorDevice, error) {
	return m.vendor, m.readErr
}

func (m *mockApp) Purge(ctx context.Context) error {
	m.purged = m.purgeErr == nil
	return m.purgeErr
}

// Mock profile builder
type mockProfiles struct {
	err error
}

func (m *mockProfiles) EnrollmentProfile(testerID string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []byte("enroll:" + testerID), nil
}

func (m *mockProfiles) Acknowledgement(testerID string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []byte("ack:" + testerID), nil
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleTester() *store.Tester {
	return &store.Tester{
		ID:        uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Email:     "a@x.com",
		Status:    store.TesterStatusEmailCollected,
		CreatedAt: fixedTime,
		UpdatedAt: fixedTime,
	}
}

func sampleBuild() *store.Build {
	return &store.Build{
		ID:              uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		TesterID:        uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Status:          store.BuildStatusPending,
		DevicesIncluded: []string{"00000000-0000-0000-0000-000000000001"},
		CreatedAt:       fixedTime,
	}
}

// serve routes a single request through a chi router so URL params resolve.
func serve(h http.HandlerFunc, method, pattern, target string, body io.Reader) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func newHandlers(app *mockApp, profiles *mockProfiles, checks ...Check) *Handlers {
	if profiles == nil {
		profiles = &mockProfiles{}
	}
	return New(app, profiles, logger.Discard(), checks...)
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}
