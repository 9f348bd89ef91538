// Package handlers contains HTTP handlers for the distribution API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"adhocdist/internal/appstore"
	"adhocdist/internal/lifecycle"
	"adhocdist/internal/logger"
	"adhocdist/internal/store"
	"adhocdist/internal/worker"
	"adhocdist/pkg/api"
)

// Lifecycle is the orchestrator surface the handlers drive.
type Lifecycle interface {
	Register(ctx context.Context, email string) (*lifecycle.Registration, error)
	LookupTester(ctx context.Context, rawID string) (*store.Tester, error)
	IdentifyDevice(ctx context.Context, rawTesterID string, info lifecycle.DeviceInfo, source lifecycle.Source) (*worker.Ticket, error)
	CompleteBuild(ctx context.Context, in lifecycle.BuildCompletion) (*lifecycle.Completion, error)

	ListTesters(ctx context.Context) ([]*store.Tester, error)
	GetTester(ctx context.Context, rawID string) (*lifecycle.TesterDetail, error)
	ListBuilds(ctx context.Context) ([]*store.Build, error)
	GetBuild(ctx context.Context, rawID string) (*store.Build, error)
	ListDevices(ctx context.Context) ([]*store.Device, error)
	VendorDevices(ctx context.Context) ([]appstore.VendorDevice, error)
	Purge(ctx context.Context) error
}

// ProfileBuilder renders the profiles served to devices.
type ProfileBuilder interface {
	EnrollmentProfile(testerID string) ([]byte, error)
	Acknowledgement(testerID string) ([]byte, error)
}

// Check is a named readiness dependency.
type Check struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	app      Lifecycle
	profiles ProfileBuilder
	checks   []Check
	logger   *slog.Logger
}

// New creates a new Handlers instance.
func New(app Lifecycle, profiles ProfileBuilder, log *slog.Logger, checks ...Check) *Handlers {
	return &Handlers{
		app:      app,
		profiles: profiles,
		checks:   checks,
		logger:   log.With("component", "http"),
	}
}

// Codes for request problems detected before the lifecycle is reached.
const (
	CodeInvalidBody      = "INVALID_BODY"
	CodeMalformedPayload = "MALFORMED_PAYLOAD"
	CodeMissingUDID      = "MISSING_UDID"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeUnavailable      = "UNAVAILABLE"
)

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message, code string, status int) {
	h.respondJson(w, status, api.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeLifecycleError maps orchestrator errors onto HTTP statuses. Errors
// without a code are logged and reported without detail.
func (h *Handlers) writeLifecycleError(w http.ResponseWriter, r *http.Request, err error) {
	var lerr *lifecycle.Error
	if !errors.As(err, &lerr) {
		logger.FromContext(r.Context(), h.logger).Error("request failed", "path", r.URL.Path, "error", err)
		h.httpError(w, "Internal server error", lifecycle.CodeInternal, http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch lerr.Kind {
	case lifecycle.KindValidation:
		status = http.StatusBadRequest
	case lifecycle.KindNotFound:
		status = http.StatusNotFound
	case lifecycle.KindUpstream:
		status = http.StatusBadGateway
		logger.FromContext(r.Context(), h.logger).Warn("upstream failure", "path", r.URL.Path, "error", err)
	}
	h.httpError(w, lerr.Message, lerr.Code, status)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.httpError(w, "Invalid request body", CodeInvalidBody, http.StatusBadRequest)
		return false
	}
	return true
}
