package lifecycle

import "errors"

// Kind groups errors by how callers should react to them.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUpstream
)

// Error is a lifecycle failure with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrMissingEmail       = &Error{Kind: KindValidation, Code: "MISSING_EMAIL", Message: "email is required"}
	ErrInvalidEmail       = &Error{Kind: KindValidation, Code: "INVALID_EMAIL", Message: "email format is invalid"}
	ErrMissingTesterID    = &Error{Kind: KindValidation, Code: "MISSING_TESTER_ID", Message: "testerId is required"}
	ErrInvalidUDID        = &Error{Kind: KindValidation, Code: "INVALID_UDID", Message: "udid is missing or too short"}
	ErrMissingBuildID     = &Error{Kind: KindValidation, Code: "MISSING_BUILD_ID", Message: "buildId is required"}
	ErrMissingDownloadURL = &Error{Kind: KindValidation, Code: "MISSING_DOWNLOAD_URL", Message: "downloadUrl is required"}
	ErrTesterNotFound     = &Error{Kind: KindNotFound, Code: "TESTER_NOT_FOUND", Message: "tester not found"}
	ErrBuildNotFound      = &Error{Kind: KindNotFound, Code: "BUILD_NOT_FOUND", Message: "build not found"}
	ErrVendorUnavailable  = &Error{Kind: KindUpstream, Code: "VENDOR_ERROR", Message: "vendor device service is unavailable"}
)

// CodeInternal is reported for errors that carry no code of their own.
const CodeInternal = "INTERNAL_ERROR"

// Code returns the machine-readable code of err, or CodeInternal.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// KindOf returns the kind of err, or zero for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
