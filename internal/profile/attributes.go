package profile

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"go.mozilla.org/pkcs7"
	"howett.net/plist"
)

var (
	ErrMalformedPayload = errors.New("device payload could not be parsed")
	ErrMissingUDID      = errors.New("device payload has no UDID")
)

var embeddedPlist = regexp.MustCompile(`(?s)<\?xml.*?</plist>`)

// Attributes are the values a device reports to the profile service.
type Attributes struct {
	UDID    string
	Product string
	Version string
	Serial  string
	IMEI    string
	ICCID   string
}

// ParseDeviceAttributes reads the callback body. It accepts PKCS#7 wrapped
// content, a bare XML plist or an XML plist embedded in other bytes.
func ParseDeviceAttributes(body []byte) (Attributes, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Attributes{}, ErrMalformedPayload
	}

	content := body
	if body[0] == 0x30 {
		if p7, err := pkcs7.Parse(body); err == nil && len(p7.Content) > 0 {
			content = p7.Content
		}
	}
	if m := embeddedPlist.Find(content); m != nil {
		content = m
	}

	var values map[string]any
	if _, err := plist.Unmarshal(content, &values); err != nil {
		return Attributes{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	attrs := Attributes{
		UDID:    lookup(values, "UDID", "udid"),
		Product: lookup(values, "PRODUCT", "product"),
		Version: lookup(values, "VERSION", "version"),
		Serial:  lookup(values, "SERIAL", "serial"),
		IMEI:    lookup(values, "IMEI", "imei"),
		ICCID:   lookup(values, "ICCID", "iccid"),
	}
	if attrs.UDID == "" {
		return attrs, ErrMissingUDID
	}
	return attrs, nil
}

func lookup(values map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := values[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
