// Package store contains the persistence layer for adhocdist.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Tester is a person who registered an email to receive a build.
type Tester struct {
	ID        uuid.UUID    `json:"id"`
	Email     string       `json:"email"`
	UDID      *string      `json:"udid,omitempty"`
	Status    TesterStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// TesterStatus is the position of a tester in the distribution flow.
type TesterStatus string

const (
	TesterStatusEmailCollected   TesterStatus = "EMAIL_COLLECTED"
	TesterStatusDeviceRegistered TesterStatus = "DEVICE_REGISTERED"
	TesterStatusBuildPending     TesterStatus = "BUILD_PENDING"
	TesterStatusBuildFailed      TesterStatus = "BUILD_FAILED"
	TesterStatusBuildCompleted   TesterStatus = "BUILD_COMPLETED"
	TesterStatusEmailSent        TesterStatus = "EMAIL_SENT"
)

// Device is a physical iOS device identified by its UDID.
// Devices are immutable once created.
type Device struct {
	ID        uuid.UUID `json:"id"`
	UDID      string    `json:"udid"`
	Product   *string   `json:"product,omitempty"`   // e.g. "iPhone14,2"
	OSVersion *string   `json:"osVersion,omitempty"` // e.g. "17.1"
	CreatedAt time.Time `json:"createdAt"`
}

// Build is one ad-hoc package produced by the pipeline for a set of devices.
type Build struct {
	ID              uuid.UUID   `json:"id"`
	TesterID        uuid.UUID   `json:"testerId"`
	Status          BuildStatus `json:"status"`
	DevicesIncluded []string    `json:"devicesIncluded"`
	DownloadURL     *string     `json:"downloadUrl,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
}

// BuildStatus represents the state of a build.
type BuildStatus string

const (
	BuildStatusPending    BuildStatus = "PENDING"
	BuildStatusInProgress BuildStatus = "IN_PROGRESS"
	BuildStatusCompleted  BuildStatus = "COMPLETED"
	BuildStatusFailed     BuildStatus = "FAILED"
)

// buildTransitions lists the allowed build status changes.
// FAILED -> COMPLETED is kept open: the pipeline's completion callback is
// authoritative even when the dispatch call reported an error.
var buildTransitions = map[BuildStatus][]BuildStatus{
	BuildStatusPending:    {BuildStatusInProgress, BuildStatusCompleted, BuildStatusFailed},
	BuildStatusInProgress: {BuildStatusCompleted, BuildStatusFailed},
	BuildStatusFailed:     {BuildStatusCompleted},
	BuildStatusCompleted:  {},
}

// CanTransition reports whether a build may move from one status to another.
// Setting the same status again is always allowed.
func CanTransition(from, to BuildStatus) bool {
	if from == to {
		return true
	}
	for _, s := range buildTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TesterPatch is a shallow update of a tester. Nil fields are left unchanged.
type TesterPatch struct {
	UDID   *string
	Status *TesterStatus
}

// DeviceInput holds the attributes of a newly observed device.
type DeviceInput struct {
	UDID      string
	Product   *string
	OSVersion *string
}

// BuildInput holds the attributes of a new build.
type BuildInput struct {
	TesterID        uuid.UUID
	DevicesIncluded []string
}

// BuildPatch is a shallow update of a build. Nil fields are left unchanged.
type BuildPatch struct {
	Status      *BuildStatus
	DownloadURL *string
	CompletedAt *time.Time
}

// StatusPtr returns a pointer to the given tester status.
func StatusPtr(s TesterStatus) *TesterStatus { return &s }

// BuildStatusPtr returns a pointer to the given build status.
func BuildStatusPtr(s BuildStatus) *BuildStatus { return &s }
