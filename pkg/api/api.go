// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the server.
package api

import "time"

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Email string `json:"email"`
}

// RegisterResponse tells a tester where to fetch the enrollment profile.
type RegisterResponse struct {
	TesterID string `json:"testerId"`
	NextURL  string `json:"nextUrl"`
	Message  string `json:"message"`
}

// ManualUDIDRequest is the body of POST /udid/manual.
type ManualUDIDRequest struct {
	UDID string `json:"udid"`
}

// SuccessResponse is a bare acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BuildCompletedRequest is sent by the build pipeline when a package is ready.
type BuildCompletedRequest struct {
	BuildID     string `json:"buildId"`
	DownloadURL string `json:"downloadUrl"`
	TesterID    string `json:"testerId,omitempty"`
}

// BuildCompletedResponse reports the completed build. NotificationError is set
// when the download link could not be delivered.
type BuildCompletedResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	Build             Build  `json:"build"`
	Notified          bool   `json:"notified"`
	NotificationError string `json:"notificationError,omitempty"`
}

// Tester represents a tester in API responses.
type Tester struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UDID      string    `json:"udid,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TesterDetail is a tester together with its builds.
type TesterDetail struct {
	Tester
	Builds []Build `json:"builds"`
}

// Device represents a locally known device.
type Device struct {
	ID        string    `json:"id"`
	UDID      string    `json:"udid"`
	Product   string    `json:"product,omitempty"`
	OSVersion string    `json:"osVersion,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Build represents a build in API responses.
type Build struct {
	ID              string     `json:"id"`
	TesterID        string     `json:"testerId"`
	Status          string     `json:"status"`
	DevicesIncluded []string   `json:"devicesIncluded"`
	DownloadURL     string     `json:"downloadUrl,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// VendorDevice is a device as known to the vendor developer account.
type VendorDevice struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UDID      string `json:"udid"`
	Platform  string `json:"platform"`
	Status    string `json:"status"`
	Model     string `json:"model,omitempty"`
	AddedDate string `json:"addedDate,omitempty"`
}

// PurgeResponse confirms an administrative purge.
type PurgeResponse struct {
	Purged bool `json:"purged"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
