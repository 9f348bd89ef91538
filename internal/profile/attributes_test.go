package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devicePlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>IMEI</key>
	<string>35 123456 789012 3</string>
	<key>PRODUCT</key>
	<string>iPhone15,3</string>
	<key>SERIAL</key>
	<string>F2LXK0AAAAAA</string>
	<key>UDID</key>
	<string>00008120-001A2D3C0E12402E</string>
	<key>VERSION</key>
	<string>21E236</string>
</dict>
</plist>`

func TestParseDeviceAttributes_RawPlist(t *testing.T) {
	attrs, err := ParseDeviceAttributes([]byte(devicePlist))
	require.NoError(t, err)

	assert.Equal(t, "00008120-001A2D3C0E12402E", attrs.UDID)
	assert.Equal(t, "iPhone15,3", attrs.Product)
	assert.Equal(t, "21E236", attrs.Version)
	assert.Equal(t, "F2LXK0AAAAAA", attrs.Serial)
	assert.Equal(t, "35 123456 789012 3", attrs.IMEI)
}

func TestParseDeviceAttributes_EmbeddedPlist(t *testing.T) {
	body := append([]byte("\x00\x01garbage-prefix"), []byte(devicePlist)...)
	body = append(body, []byte("trailing\xff")...)

	attrs, err := ParseDeviceAttributes(body)
	require.NoError(t, err)
	assert.Equal(t, "00008120-001A2D3C0E12402E", attrs.UDID)
}

func TestParseDeviceAttributes_SignedPayload(t *testing.T) {
	certPEM, keyPEM := selfSigned(t)
	s, err := NewSigner(certPEM, keyPEM)
	require.NoError(t, err)

	signed, err := s.Sign([]byte(devicePlist))
	require.NoError(t, err)

	attrs, err := ParseDeviceAttributes(signed)
	require.NoError(t, err)
	assert.Equal(t, "00008120-001A2D3C0E12402E", attrs.UDID)
	assert.Equal(t, "iPhone15,3", attrs.Product)
}

func TestParseDeviceAttributes_LowercaseKeys(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict>
<key>udid</key><string>abc-lower</string>
<key>product</key><string>iPad13,1</string>
<key>version</key><string>17.0</string>
</dict></plist>`

	attrs, err := ParseDeviceAttributes([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "abc-lower", attrs.UDID)
	assert.Equal(t, "iPad13,1", attrs.Product)
	assert.Equal(t, "17.0", attrs.Version)
}

func TestParseDeviceAttributes_MissingUDID(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict><key>PRODUCT</key><string>iPhone15,3</string></dict></plist>`

	_, err := ParseDeviceAttributes([]byte(body))
	assert.ErrorIs(t, err, ErrMissingUDID)
}

func TestParseDeviceAttributes_Malformed(t *testing.T) {
	for _, body := range []string{"", "   ", `<?xml version="1.0"?><plist><dict><key>UDID</key></plist>`} {
		_, err := ParseDeviceAttributes([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedPayload, "body %q", body)
	}
}
