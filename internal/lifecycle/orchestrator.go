// Package lifecycle drives testers from email registration through device
// identification and build provisioning to the download-link notification.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"adhocdist/internal/appstore"
	"adhocdist/internal/logger"
	"adhocdist/internal/store"
	"adhocdist/internal/worker"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MinManualUDIDLength is the shortest identifier accepted from manual entry.
const MinManualUDIDLength = 20

const provisionTask = "provision"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Vendor registers and lists devices with the app distribution vendor.
type Vendor interface {
	RegisterDevice(ctx context.Context, udid, name string) (appstore.RegistrationResult, error)
	ListDevices(ctx context.Context) ([]appstore.VendorDevice, error)
}

// BuildTrigger starts a remote build for a tester.
type BuildTrigger interface {
	TriggerBuild(ctx context.Context, buildID, testerID string) error
}

// Notifier delivers the download link.
type Notifier interface {
	SendDownloadLink(ctx context.Context, recipient, appLabel, downloadURL string) error
}

// Executor runs detached work.
type Executor interface {
	Submit(ctx context.Context, task worker.Task) (*worker.Ticket, error)
}

// Deps are the collaborators of the orchestrator. Vendor may be nil, in
// which case vendor registration is skipped.
type Deps struct {
	Store    store.Store
	Vendor   Vendor
	Trigger  BuildTrigger
	Notifier Notifier
	Executor Executor
}

// Config holds values used to build links and messages.
type Config struct {
	PublicBaseURL string
	AppName       string
}

// Orchestrator owns the tester state machine.
type Orchestrator struct {
	store    store.Store
	vendor   Vendor
	trigger  BuildTrigger
	notifier Notifier
	executor Executor

	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics
	now     func() time.Time
}

func New(deps Deps, cfg Config, log *slog.Logger) *Orchestrator {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.AppName == "" {
		cfg.AppName = "App"
	}

	return &Orchestrator{
		store:    deps.Store,
		vendor:   deps.Vendor,
		trigger:  deps.Trigger,
		notifier: deps.Notifier,
		executor: deps.Executor,
		cfg:      cfg,
		logger:   log.With("component", "lifecycle"),
		tracer:   otel.Tracer(instrumentationName),
		metrics:  newMetrics(deps.Store),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Registration is the outcome of a registration event.
type Registration struct {
	Tester  *store.Tester
	NextURL string
	Created bool
}

// Register finds or creates the tester for email. Registering an existing
// email returns the same tester without changing its state.
func (o *Orchestrator) Register(ctx context.Context, email string) (*Registration, error) {
	ctx, span := o.tracer.Start(ctx, "lifecycle.register")
	defer span.End()

	if email == "" {
		return nil, ErrMissingEmail
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	tester, created, err := o.store.CreateTester(ctx, email)
	if err != nil {
		return nil, o.fail(span, fmt.Errorf("create tester: %w", err))
	}

	span.SetAttributes(attribute.String("tester.id", tester.ID.String()), attribute.Bool("tester.created", created))
	if created {
		o.metrics.add(ctx, o.metrics.registered)
		logger.FromContext(ctx, o.logger).Info("tester registered", "tester_id", tester.ID)
	}

	return &Registration{
		Tester:  tester,
		NextURL: o.NextURL(tester.ID),
		Created: created,
	}, nil
}

// NextURL is where a registered tester downloads the enrollment profile.
func (o *Orchestrator) NextURL(testerID uuid.UUID) string {
	return fmt.Sprintf("%s/get-udid?testerId=%s", o.cfg.PublicBaseURL, url.QueryEscape(testerID.String()))
}

// LookupTester resolves a raw tester id.
func (o *Orchestrator) LookupTester(ctx context.Context, rawID string) (*store.Tester, error) {
	if rawID == "" {
		return nil, ErrMissingTesterID
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrTesterNotFound
	}

	tester, err := o.store.GetTesterByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTesterNotFound
	}
	if err != nil {
		return nil, err
	}
	return tester, nil
}

// Source says how a device identifier reached us.
type Source string

const (
	SourceProfile Source = "profile"
	SourceManual  Source = "manual"
)

// DeviceInfo is what a device reported about itself.
type DeviceInfo struct {
	UDID      string
	Product   string
	OSVersion string
}

// IdentifyDevice records the device for a tester and schedules provisioning.
// The device upsert and tester update happen before it returns; provisioning
// runs detached and is tracked by the returned ticket. A nil ticket means
// provisioning could not be scheduled; the error is logged, not returned.
func (o *Orchestrator) IdentifyDevice(ctx context.Context, rawTesterID string, info DeviceInfo, source Source) (*worker.Ticket, error) {
	ctx, span := o.tracer.Start(ctx, "lifecycle.identify_device",
		trace.WithAttributes(attribute.String("device.source", string(source))))
	defer span.End()

	udid := strings.TrimSpace(info.UDID)
	if udid == "" || (source == SourceManual && len(udid) < MinManualUDIDLength) {
		return nil, ErrInvalidUDID
	}

	tester, err := o.LookupTester(ctx, rawTesterID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("tester.id", tester.ID.String()))

	device, created, err := o.store.CreateDevice(ctx, store.DeviceInput{
		UDID:      udid,
		Product:   optional(info.Product),
		OSVersion: optional(info.OSVersion),
	})
	if err != nil {
		return nil, o.fail(span, fmt.Errorf("upsert device: %w", err))
	}

	_, err = o.store.UpdateTester(ctx, tester.ID, store.TesterPatch{
		UDID:   &udid,
		Status: store.StatusPtr(store.TesterStatusDeviceRegistered),
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTesterNotFound
	}
	if err != nil {
		return nil, o.fail(span, fmt.Errorf("update tester: %w", err))
	}

	o.metrics.add(ctx, o.metrics.identified)
	log := logger.FromContext(ctx, o.logger).With("tester_id", tester.ID, "udid", udid)
	log.Info("device identified", "device_id", device.ID, "device_created", created, "source", source)

	testerID := tester.ID
	ticket, err := o.executor.Submit(ctx, worker.Task{
		Name: provisionTask,
		Run: func(ctx context.Context) error {
			_, err := o.Provision(ctx, testerID, udid)
			return err
		},
	})
	if err != nil {
		log.Error("failed to schedule provisioning", "error", err)
		return nil, nil
	}
	return ticket, nil
}

// ProvisionResult records what each provisioning step did.
type ProvisionResult struct {
	VendorOutcome appstore.Outcome
	VendorDetail  string
	Build         *store.Build
	TriggerErr    error
}

// VendorOutcomeSkipped is reported when no vendor client is configured.
const VendorOutcomeSkipped appstore.Outcome = "skipped"

// Provision registers the device with the vendor, creates a pending build and
// triggers the pipeline. Vendor failures are logged and do not stop the
// sequence. A trigger failure marks the build FAILED and the tester
// BUILD_FAILED; it is recorded in the result rather than returned.
func (o *Orchestrator) Provision(ctx context.Context, testerID uuid.UUID, udid string) (*ProvisionResult, error) {
	ctx, span := o.tracer.Start(ctx, "lifecycle.provision",
		trace.WithAttributes(attribute.String("tester.id", testerID.String())))
	defer span.End()

	log := logger.FromContext(ctx, o.logger).With("tester_id", testerID, "udid", udid)
	result := &ProvisionResult{}

	result.VendorOutcome, result.VendorDetail = o.registerWithVendor(ctx, log, udid)

	if _, err := o.store.GetTesterByID(ctx, testerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrTesterNotFound
		}
		log.Error("tester disappeared before build creation", "error", err)
		return result, o.fail(span, err)
	}

	build, err := o.store.CreateBuild(ctx, store.BuildInput{
		TesterID:        testerID,
		DevicesIncluded: []string{udid},
	})
	if err != nil {
		log.Error("failed to create build", "error", err)
		return result, o.fail(span, fmt.Errorf("create build: %w", err))
	}
	result.Build = build
	log = log.With("build_id", build.ID)
	span.SetAttributes(attribute.String("build.id", build.ID.String()))

	if _, err := o.store.UpdateTester(ctx, testerID, store.TesterPatch{
		Status: store.StatusPtr(store.TesterStatusBuildPending),
	}); err != nil {
		log.Error("failed to mark tester build pending", "error", err)
	}

	if err := o.trigger.TriggerBuild(ctx, build.ID.String(), testerID.String()); err != nil {
		result.TriggerErr = err
		o.metrics.add(ctx, o.metrics.triggered, outcome("failed"))
		span.RecordError(err)
		log.Error("build trigger failed", "error", err)

		failed, uerr := o.store.UpdateBuild(ctx, build.ID, store.BuildPatch{
			Status: store.BuildStatusPtr(store.BuildStatusFailed),
		})
		if uerr != nil {
			log.Error("failed to mark build failed", "error", uerr)
		} else {
			result.Build = failed
		}
		if _, uerr := o.store.UpdateTester(ctx, testerID, store.TesterPatch{
			Status: store.StatusPtr(store.TesterStatusBuildFailed),
		}); uerr != nil {
			log.Error("failed to mark tester build failed", "error", uerr)
		}
		return result, nil
	}

	o.metrics.add(ctx, o.metrics.triggered, outcome("dispatched"))
	log.Info("build triggered")
	return result, nil
}

func (o *Orchestrator) registerWithVendor(ctx context.Context, log *slog.Logger, udid string) (appstore.Outcome, string) {
	if o.vendor == nil {
		log.Warn("vendor registration skipped, no vendor client configured")
		o.metrics.add(ctx, o.metrics.vendor, outcome(string(VendorOutcomeSkipped)))
		return VendorOutcomeSkipped, ""
	}

	res, err := o.vendor.RegisterDevice(ctx, udid, "")
	switch {
	case err != nil:
		log.Warn("vendor registration failed, continuing", "error", err)
		if res.Outcome == "" {
			res.Outcome = appstore.OutcomeFailed
		}
		if res.Detail == "" {
			res.Detail = err.Error()
		}
	case res.Outcome == appstore.OutcomeAlreadyRegistered:
		log.Info("device already registered with vendor", "detail", res.Detail)
	default:
		log.Info("device registered with vendor", "vendor_device_id", res.DeviceID)
	}
	o.metrics.add(ctx, o.metrics.vendor, outcome(string(res.Outcome)))
	return res.Outcome, res.Detail
}

// BuildCompletion is the pipeline's report that a build finished.
type BuildCompletion struct {
	BuildID     string
	DownloadURL string
	TesterID    string
}

// Completion is the outcome of a build-completed event.
type Completion struct {
	Build             *store.Build
	Tester            *store.Tester
	Notified          bool
	NotificationError error
}

// CompleteBuild marks the build COMPLETED and notifies the tester. A failed
// notification does not fail the event; it is reported in the result and the
// tester is left at BUILD_COMPLETED.
func (o *Orchestrator) CompleteBuild(ctx context.Context, in BuildCompletion) (*Completion, error) {
	ctx, span := o.tracer.Start(ctx, "lifecycle.complete_build")
	defer span.End()

	if in.BuildID == "" {
		return nil, ErrMissingBuildID
	}
	if in.DownloadURL == "" {
		return nil, ErrMissingDownloadURL
	}

	buildID, err := uuid.Parse(in.BuildID)
	if err != nil {
		return nil, ErrBuildNotFound
	}
	span.SetAttributes(attribute.String("build.id", buildID.String()))

	completedAt := o.now()
	build, err := o.store.UpdateBuild(ctx, buildID, store.BuildPatch{
		Status:      store.BuildStatusPtr(store.BuildStatusCompleted),
		DownloadURL: &in.DownloadURL,
		CompletedAt: &completedAt,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBuildNotFound
	}
	if err != nil {
		return nil, o.fail(span, fmt.Errorf("complete build: %w", err))
	}

	log := logger.FromContext(ctx, o.logger).With("build_id", build.ID)
	log.Info("build completed", "download_url", in.DownloadURL)
	result := &Completion{Build: build}

	if in.TesterID == "" {
		log.Info("no tester supplied, skipping notification")
		result.Tester = o.markTester(ctx, log, build.TesterID, store.TesterStatusBuildCompleted)
		return result, nil
	}

	tester, err := o.LookupTester(ctx, in.TesterID)
	if err != nil {
		log.Warn("tester not resolved, skipping notification", "tester_id", in.TesterID, "error", err)
		return result, nil
	}

	if err := o.notifier.SendDownloadLink(ctx, tester.Email, o.cfg.AppName, in.DownloadURL); err != nil {
		o.metrics.add(ctx, o.metrics.notifications, outcome("failed"))
		span.RecordError(err)
		log.Error("download link notification failed", "tester_id", tester.ID, "error", err)
		result.NotificationError = err
		result.Tester = o.markTester(ctx, log, tester.ID, store.TesterStatusBuildCompleted)
		return result, nil
	}

	o.metrics.add(ctx, o.metrics.notifications, outcome("sent"))
	log.Info("download link sent", "tester_id", tester.ID)
	result.Notified = true
	result.Tester = o.markTester(ctx, log, tester.ID, store.TesterStatusEmailSent)
	return result, nil
}

func (o *Orchestrator) markTester(ctx context.Context, log *slog.Logger, id uuid.UUID, status store.TesterStatus) *store.Tester {
	tester, err := o.store.UpdateTester(ctx, id, store.TesterPatch{Status: &status})
	if err != nil {
		log.Warn("failed to update tester status", "tester_id", id, "status", status, "error", err)
		return nil
	}
	return tester
}

func (o *Orchestrator) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
