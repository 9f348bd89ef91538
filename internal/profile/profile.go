// Package profile builds the configuration profiles served to iOS devices and
// parses the device attributes they post back.
package profile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"howett.net/plist"
)

// ContentType is the media type iOS expects for configuration profiles.
const ContentType = "application/x-apple-aspen-config"

// EnrollmentFilename is suggested to the browser when downloading the enrollment profile.
const EnrollmentFilename = "register-device.mobileconfig"

// DeviceAttributes requested from the device by the enrollment profile.
var DeviceAttributes = []string{"UDID", "IMEI", "ICCID", "VERSION", "PRODUCT", "SERIAL"}

// Config controls profile contents.
type Config struct {
	PublicBaseURL    string
	Organization     string
	IdentifierPrefix string
}

// Builder renders enrollment and acknowledgement profiles.
type Builder struct {
	cfg     Config
	signer  *Signer
	newUUID func() string
}

// NewBuilder creates a builder. A nil signer serves profiles unsigned.
func NewBuilder(cfg Config, signer *Signer) *Builder {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.IdentifierPrefix == "" {
		cfg.IdentifierPrefix = "dev.errakui"
	}
	if signer == nil {
		signer = &Signer{}
	}
	return &Builder{
		cfg:     cfg,
		signer:  signer,
		newUUID: func() string { return strings.ToUpper(uuid.NewString()) },
	}
}

type profileServiceContent struct {
	URL              string   `plist:"URL"`
	DeviceAttributes []string `plist:"DeviceAttributes"`
}

type enrollmentProfile struct {
	PayloadContent           profileServiceContent `plist:"PayloadContent"`
	PayloadDescription       string                `plist:"PayloadDescription"`
	PayloadDisplayName       string                `plist:"PayloadDisplayName"`
	PayloadIdentifier        string                `plist:"PayloadIdentifier"`
	PayloadOrganization      string                `plist:"PayloadOrganization"`
	PayloadRemovalDisallowed bool                  `plist:"PayloadRemovalDisallowed"`
	PayloadType              string                `plist:"PayloadType"`
	PayloadUUID              string                `plist:"PayloadUUID"`
	PayloadVersion           int                   `plist:"PayloadVersion"`
}

type acknowledgementProfile struct {
	PayloadContent           []any  `plist:"PayloadContent"`
	PayloadDescription       string `plist:"PayloadDescription"`
	PayloadDisplayName       string `plist:"PayloadDisplayName"`
	PayloadIdentifier        string `plist:"PayloadIdentifier"`
	PayloadOrganization      string `plist:"PayloadOrganization"`
	PayloadRemovalDisallowed bool   `plist:"PayloadRemovalDisallowed"`
	PayloadType              string `plist:"PayloadType"`
	PayloadUUID              string `plist:"PayloadUUID"`
	PayloadVersion           int    `plist:"PayloadVersion"`
}

// CallbackURL is where the device posts its attributes for testerID.
func (b *Builder) CallbackURL(testerID string) string {
	return fmt.Sprintf("%s/udid/callback?testerId=%s", b.cfg.PublicBaseURL, url.QueryEscape(testerID))
}

// EnrollmentProfile renders the Profile Service payload for testerID, signed
// when the signer is configured.
func (b *Builder) EnrollmentProfile(testerID string) ([]byte, error) {
	p := enrollmentProfile{
		PayloadContent: profileServiceContent{
			URL:              b.CallbackURL(testerID),
			DeviceAttributes: DeviceAttributes,
		},
		PayloadDescription:  "This profile registers your device so the app can be installed.",
		PayloadDisplayName:  "Device Registration",
		PayloadIdentifier:   b.cfg.IdentifierPrefix + ".device-registration." + testerID,
		PayloadOrganization: b.cfg.Organization,
		PayloadType:         "Profile Service",
		PayloadUUID:         b.newUUID(),
		PayloadVersion:      1,
	}

	data, err := plist.MarshalIndent(p, plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to render profile: %w", err)
	}
	return b.signer.Sign(data)
}

// Acknowledgement renders the empty Configuration profile returned to the
// device once its attributes were accepted.
func (b *Builder) Acknowledgement(testerID string) ([]byte, error) {
	p := acknowledgementProfile{
		PayloadContent:      []any{},
		PayloadDescription:  "Your device was registered. You can remove this profile.",
		PayloadDisplayName:  "Registration Complete",
		PayloadIdentifier:   b.cfg.IdentifierPrefix + ".registration-complete." + testerID,
		PayloadOrganization: b.cfg.Organization,
		PayloadType:         "Configuration",
		PayloadUUID:         b.newUUID(),
		PayloadVersion:      1,
	}

	data, err := plist.MarshalIndent(p, plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to render profile: %w", err)
	}
	return data, nil
}
