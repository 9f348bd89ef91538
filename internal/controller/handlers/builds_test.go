package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"adhocdist/internal/lifecycle"
	"adhocdist/internal/store"
	"adhocdist/pkg/api"
)

func TestBuildCompleted(t *testing.T) {
	completed := sampleBuild()
	completed.Status = store.BuildStatusCompleted
	url := "https://x/y.ipa"
	completed.DownloadURL = &url

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*mockApp)
		expectedStatus int
		expectedCode   string
		check          func(t *testing.T, resp api.BuildCompletedResponse)
	}{
		{
			name: "Notified",
			body: `{"buildId":"b","downloadUrl":"https://x/y.ipa","testerId":"t"}`,
			mockSetup: func(m *mockApp) {
				m.completeResp = &lifecycle.Completion{Build: completed, Notified: true}
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp api.BuildCompletedResponse) {
				if !resp.Success || !resp.Notified || resp.NotificationError != "" {
					t.Errorf("unexpected response %+v", resp)
				}
				if resp.Build.Status != "COMPLETED" || resp.Build.DownloadURL != url {
					t.Errorf("unexpected build %+v", resp.Build)
				}
			},
		},
		{
			name: "Notification failed",
			body: `{"buildId":"b","downloadUrl":"https://x/y.ipa","testerId":"t"}`,
			mockSetup: func(m *mockApp) {
				m.completeResp = &lifecycle.Completion{Build: completed, NotificationError: errors.New("smtp down")}
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, resp api.BuildCompletedResponse) {
				if !resp.Success || resp.Notified || resp.NotificationError != "smtp down" {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name:           "Missing build id",
			body:           `{"downloadUrl":"https://x/y.ipa"}`,
			mockSetup:      func(m *mockApp) { m.completeErr = lifecycle.ErrMissingBuildID },
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_BUILD_ID",
		},
		{
			name:           "Missing download url",
			body:           `{"buildId":"b"}`,
			mockSetup:      func(m *mockApp) { m.completeErr = lifecycle.ErrMissingDownloadURL },
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_DOWNLOAD_URL",
		},
		{
			name:           "Unknown build",
			body:           `{"buildId":"b","downloadUrl":"https://x/y.ipa"}`,
			mockSetup:      func(m *mockApp) { m.completeErr = lifecycle.ErrBuildNotFound },
			expectedStatus: http.StatusNotFound,
			expectedCode:   "BUILD_NOT_FOUND",
		},
		{
			name:           "Invalid JSON",
			body:           `not json`,
			mockSetup:      func(m *mockApp) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeInvalidBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &mockApp{}
			tt.mockSetup(app)
			h := newHandlers(app, nil)

			rr := serve(h.BuildCompleted, http.MethodPost, "/build-completed", "/build-completed", strings.NewReader(tt.body))

			if rr.Code != tt.expectedStatus {
				t.Fatalf("got status %d, want %d (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedCode != "" {
				if resp := decodeError(t, rr); resp.Code != tt.expectedCode {
					t.Errorf("got code %q, want %q", resp.Code, tt.expectedCode)
				}
				return
			}

			var resp api.BuildCompletedResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			tt.check(t, resp)
			if app.capturedCompletion.TesterID != "t" || app.capturedCompletion.BuildID != "b" {
				t.Errorf("unexpected completion input %+v", app.capturedCompletion)
			}
		})
	}
}
