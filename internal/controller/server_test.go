package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"adhocdist/internal/appstore"
	"adhocdist/internal/auth"
	"adhocdist/internal/controller/handlers"
	"adhocdist/internal/lifecycle"
	"adhocdist/internal/logger"
	"adhocdist/internal/profile"
	"adhocdist/internal/store"
	"adhocdist/internal/store/memory"
	"adhocdist/internal/worker"
	"adhocdist/pkg/api"
)

type okVendor struct{}

func (okVendor) RegisterDevice(ctx context.Context, udid, name string) (appstore.RegistrationResult, error) {
	return appstore.RegistrationResult{Outcome: appstore.OutcomeAlreadyRegistered}, nil
}

func (okVendor) ListDevices(ctx context.Context) ([]appstore.VendorDevice, error) {
	return nil, nil
}

type okTrigger struct{}

func (okTrigger) TriggerBuild(ctx context.Context, buildID, testerID string) error { return nil }

type okNotifier struct{ sent atomic.Int32 }

func (n *okNotifier) SendDownloadLink(ctx context.Context, recipient, appLabel, url string) error {
	n.sent.Add(1)
	return nil
}

type testServer struct {
	*httptest.Server
	store    *memory.Store
	notifier *okNotifier
	pool     *worker.Pool
}

func newTestServer(t *testing.T, callbackSecret string) *testServer {
	t.Helper()
	log := logger.Discard()

	pool := worker.New(worker.Config{Concurrency: 1}, log)
	ctx, cancel := context.WithCancel(context.Background())
	go pool.Run(ctx)

	s := memory.New()
	n := &okNotifier{}
	app := lifecycle.New(lifecycle.Deps{
		Store:    s,
		Vendor:   okVendor{},
		Trigger:  okTrigger{},
		Notifier: n,
		Executor: pool,
	}, lifecycle.Config{PublicBaseURL: "https://dist.example.com"}, log)

	profiles := profile.NewBuilder(profile.Config{PublicBaseURL: "https://dist.example.com", Organization: "Errakui"}, nil)
	creds, err := auth.NewStaticCredentials("admin", "pw", "")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}

	h := handlers.New(app, profiles, log, handlers.Check{Name: "store", Check: s.Ping})
	srv := httptest.NewServer(NewRouter(Config{
		AdminAuth:      creds,
		CallbackSecret: callbackSecret,
		Logger:         log,
	}, h))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-pool.Done()
	})
	return &testServer{Server: srv, store: s, notifier: n, pool: pool}
}

func (ts *testServer) do(t *testing.T, method, path, body string, setup func(*http.Request)) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if setup != nil {
		setup(req)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_EndToEnd(t *testing.T) {
	ts := newTestServer(t, "ci-secret")

	resp := ts.do(t, http.MethodPost, "/register", `{"email":"a@x.com"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: got status %d", resp.StatusCode)
	}
	var reg api.RegisterResponse
	json.NewDecoder(resp.Body).Decode(&reg)
	if !strings.HasPrefix(reg.NextURL, "https://dist.example.com/get-udid?testerId=") {
		t.Errorf("unexpected next url %q", reg.NextURL)
	}

	resp = ts.do(t, http.MethodGet, "/get-udid?testerId="+reg.TesterID, "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != profile.ContentType {
		t.Fatalf("get-udid: got status %d type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}

	resp = ts.do(t, http.MethodPost, "/udid/manual?testerId="+reg.TesterID, `{"udid":"00000000-0000-0000-0000-000000000001"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manual: got status %d", resp.StatusCode)
	}

	// Wait for the detached provisioning to reach BUILD_PENDING.
	var buildID string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		testers, _ := ts.store.ListTesters(context.Background())
		if len(testers) == 1 && testers[0].Status == store.TesterStatusBuildPending {
			builds, _ := ts.store.ListBuilds(context.Background())
			buildID = builds[0].ID.String()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if buildID == "" {
		t.Fatal("build was not provisioned")
	}

	body := `{"buildId":"` + buildID + `","downloadUrl":"https://x/y.ipa","testerId":"` + reg.TesterID + `"}`
	resp = ts.do(t, http.MethodPost, "/build-completed", body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("build-completed without secret: got status %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodPost, "/build-completed", body, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer ci-secret")
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("build-completed: got status %d", resp.StatusCode)
	}
	if n := ts.notifier.sent.Load(); n != 1 {
		t.Errorf("expected one notification, got %d", n)
	}

	resp = ts.do(t, http.MethodGet, "/testers/"+reg.TesterID, "", func(r *http.Request) {
		r.SetBasicAuth("admin", "pw")
	})
	var detail api.TesterDetail
	json.NewDecoder(resp.Body).Decode(&detail)
	if detail.Status != "EMAIL_SENT" || len(detail.Builds) != 1 || detail.Builds[0].Status != "COMPLETED" {
		t.Errorf("unexpected tester detail %+v", detail)
	}
}

func TestRouter_AdminRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t, "")

	for _, path := range []string{"/testers", "/builds", "/devices", "/vendor/devices"} {
		resp := ts.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: got status %d, want 401", path, resp.StatusCode)
		}
		if resp.Header.Get("WWW-Authenticate") == "" {
			t.Errorf("%s: missing challenge", path)
		}
	}

	resp := ts.do(t, http.MethodDelete, "/admin/data", "", func(r *http.Request) { r.SetBasicAuth("admin", "wrong") })
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("purge with wrong password: got status %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/testers", "", func(r *http.Request) { r.SetBasicAuth("admin", "pw") })
	if resp.StatusCode != http.StatusOK {
		t.Errorf("testers with credentials: got status %d", resp.StatusCode)
	}
}

func TestRouter_OpenCallbackWithoutSecret(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodPost, "/build-completed", `{"buildId":"x","downloadUrl":"https://x/y.ipa"}`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d, want 404 for unknown build", resp.StatusCode)
	}
}

func TestRouter_Probes(t *testing.T) {
	ts := newTestServer(t, "")

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := ts.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: got status %d", path, resp.StatusCode)
		}
	}
}
