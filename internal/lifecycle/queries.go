package lifecycle

import (
	"context"
	"errors"

	"adhocdist/internal/appstore"
	"adhocdist/internal/store"

	"github.com/google/uuid"
)

// TesterDetail is a tester with the builds made for it.
type TesterDetail struct {
	Tester *store.Tester
	Builds []*store.Build
}

func (o *Orchestrator) ListTesters(ctx context.Context) ([]*store.Tester, error) {
	return o.store.ListTesters(ctx)
}

func (o *Orchestrator) GetTester(ctx context.Context, rawID string) (*TesterDetail, error) {
	tester, err := o.LookupTester(ctx, rawID)
	if err != nil {
		return nil, err
	}
	builds, err := o.store.ListBuildsByTester(ctx, tester.ID)
	if err != nil {
		return nil, err
	}
	return &TesterDetail{Tester: tester, Builds: builds}, nil
}

func (o *Orchestrator) ListBuilds(ctx context.Context) ([]*store.Build, error) {
	return o.store.ListBuilds(ctx)
}

func (o *Orchestrator) GetBuild(ctx context.Context, rawID string) (*store.Build, error) {
	if rawID == "" {
		return nil, ErrMissingBuildID
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrBuildNotFound
	}

	build, err := o.store.GetBuildByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBuildNotFound
	}
	return build, err
}

func (o *Orchestrator) ListDevices(ctx context.Context) ([]*store.Device, error) {
	return o.store.ListDevices(ctx)
}

// VendorDevices lists the devices the vendor knows about.
func (o *Orchestrator) VendorDevices(ctx context.Context) ([]appstore.VendorDevice, error) {
	if o.vendor == nil {
		return nil, ErrVendorUnavailable
	}
	devices, err := o.vendor.ListDevices(ctx)
	if err != nil {
		return nil, &wrappedVendorError{err: err}
	}
	return devices, nil
}

// Purge removes all testers, devices and builds.
func (o *Orchestrator) Purge(ctx context.Context) error {
	if err := o.store.Clear(ctx); err != nil {
		return err
	}
	o.logger.Warn("all data purged")
	return nil
}

// wrappedVendorError reports a vendor failure as ErrVendorUnavailable while
// keeping the cause reachable through errors.Unwrap.
type wrappedVendorError struct {
	err error
}

func (e *wrappedVendorError) Error() string {
	return ErrVendorUnavailable.Message + ": " + e.err.Error()
}

func (e *wrappedVendorError) Unwrap() []error {
	return []error{ErrVendorUnavailable, e.err}
}
