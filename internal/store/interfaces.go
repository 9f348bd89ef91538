package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidTransition is returned when a build status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrEmptyDevices is returned when a build is created without devices.
var ErrEmptyDevices = errors.New("build must include at least one device")

// TesterStore handles the persistence of testers.
type TesterStore interface {
	// CreateTester returns the tester registered with email, creating it at
	// EMAIL_COLLECTED if none exists. The bool reports whether it was created.
	CreateTester(ctx context.Context, email string) (*Tester, bool, error)

	// GetTesterByID returns a tester by its ID.
	GetTesterByID(ctx context.Context, id uuid.UUID) (*Tester, error)

	// GetTesterByEmail returns the first tester with the given email.
	GetTesterByEmail(ctx context.Context, email string) (*Tester, error)

	// ListTesters returns all testers ordered by creation time.
	ListTesters(ctx context.Context) ([]*Tester, error)

	// UpdateTester merges patch into the tester and refreshes UpdatedAt.
	// It never creates a record; unknown ids return ErrNotFound.
	UpdateTester(ctx context.Context, id uuid.UUID, patch TesterPatch) (*Tester, error)

	// DeleteTester removes a tester.
	DeleteTester(ctx context.Context, id uuid.UUID) error
}

// DeviceStore handles the persistence of devices.
type DeviceStore interface {
	// CreateDevice returns the device with the input's UDID, creating it if
	// none exists. The bool reports whether it was created.
	CreateDevice(ctx context.Context, in DeviceInput) (*Device, bool, error)

	// GetDeviceByID returns a device by its ID.
	GetDeviceByID(ctx context.Context, id uuid.UUID) (*Device, error)

	// GetDeviceByUDID returns a device by its hardware identifier.
	GetDeviceByUDID(ctx context.Context, udid string) (*Device, error)

	// ListDevices returns all devices ordered by creation time.
	ListDevices(ctx context.Context) ([]*Device, error)

	// DeleteDevice removes a device.
	DeleteDevice(ctx context.Context, id uuid.UUID) error
}

// BuildStore handles the persistence of builds.
type BuildStore interface {
	// CreateBuild inserts a new build at PENDING.
	CreateBuild(ctx context.Context, in BuildInput) (*Build, error)

	// GetBuildByID returns a build by its ID.
	GetBuildByID(ctx context.Context, id uuid.UUID) (*Build, error)

	// ListBuilds returns all builds ordered by creation time.
	ListBuilds(ctx context.Context) ([]*Build, error)

	// ListBuildsByTester returns the builds requested for a tester.
	ListBuildsByTester(ctx context.Context, testerID uuid.UUID) ([]*Build, error)

	// UpdateBuild merges patch into the build. Status changes are checked
	// against CanTransition. Unknown ids return ErrNotFound.
	UpdateBuild(ctx context.Context, id uuid.UUID, patch BuildPatch) (*Build, error)

	// DeleteBuild removes a build.
	DeleteBuild(ctx context.Context, id uuid.UUID) error
}

// Store combines all collections behind a single handle.
type Store interface {
	TesterStore
	DeviceStore
	BuildStore

	// Clear purges every collection.
	Clear(ctx context.Context) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// CheckTransition validates a build status change.
func CheckTransition(from, to BuildStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
