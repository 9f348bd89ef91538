package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultBaseURL = "https://api.appstoreconnect.apple.com"

// Client registers and lists devices. Every request carries a freshly issued token.
type Client struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
		HTTPClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// APIError is a non-success response from the vendor API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("app store connect error (%d): %s", e.StatusCode, e.Message)
}

// RegistrationResult describes what happened to a registration request.
type RegistrationResult struct {
	Outcome  Outcome
	Detail   string
	DeviceID string
}

// VendorDevice is a device as listed by the vendor.
type VendorDevice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UDID        string `json:"udid"`
	Platform    string `json:"platform"`
	Status      string `json:"status"`
	DeviceClass string `json:"deviceClass,omitempty"`
	Model       string `json:"model,omitempty"`
	AddedDate   string `json:"addedDate,omitempty"`
}

type deviceResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name        string `json:"name"`
		UDID        string `json:"udid"`
		Platform    string `json:"platform"`
		Status      string `json:"status"`
		DeviceClass string `json:"deviceClass"`
		Model       string `json:"model"`
		AddedDate   string `json:"addedDate"`
	} `json:"attributes"`
}

func (r deviceResource) toVendorDevice() VendorDevice {
	return VendorDevice{
		ID:          r.ID,
		Name:        r.Attributes.Name,
		UDID:        r.Attributes.UDID,
		Platform:    r.Attributes.Platform,
		Status:      r.Attributes.Status,
		DeviceClass: r.Attributes.DeviceClass,
		Model:       r.Attributes.Model,
		AddedDate:   r.Attributes.AddedDate,
	}
}

// DefaultDeviceName labels a device after the last four characters of its UDID.
func DefaultDeviceName(udid string) string {
	if len(udid) <= 4 {
		return "Tester-" + udid
	}
	return "Tester-" + udid[len(udid)-4:]
}

// RegisterDevice adds the UDID to the developer account. A duplicate is not an
// error. Any failure is reported both as OutcomeFailed and a non-nil error.
func (c *Client) RegisterDevice(ctx context.Context, udid, name string) (RegistrationResult, error) {
	if name == "" {
		name = DefaultDeviceName(udid)
	}

	payload := map[string]any{
		"data": map[string]any{
			"type": "devices",
			"attributes": map[string]string{
				"name":     name,
				"udid":     udid,
				"platform": "IOS",
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return failed(err)
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/v1/devices", body)
	if err != nil {
		return failed(err)
	}

	outcome, detail := ClassifyRegistration(status, respBody)
	result := RegistrationResult{Outcome: outcome, Detail: detail}

	switch outcome {
	case OutcomeRegistered:
		var doc struct {
			Data deviceResource `json:"data"`
		}
		if err := json.Unmarshal(respBody, &doc); err == nil {
			result.DeviceID = doc.Data.ID
		}
		return result, nil
	case OutcomeAlreadyRegistered:
		return result, nil
	default:
		return result, &APIError{StatusCode: status, Message: detail}
	}
}

// ListDevices returns the devices registered with the vendor.
func (c *Client) ListDevices(ctx context.Context) ([]VendorDevice, error) {
	status, respBody, err := c.do(ctx, http.MethodGet, "/v1/devices", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		_, detail := ClassifyRegistration(status, respBody)
		return nil, &APIError{StatusCode: status, Message: detail}
	}

	var doc struct {
		Data []deviceResource `json:"data"`
	}
	if err := json.Unmarshal(respBody, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	devices := make([]VendorDevice, 0, len(doc.Data))
	for _, r := range doc.Data {
		devices = append(devices, r.toVendorDevice())
	}
	return devices, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	token, err := c.Tokens.IssueToken()
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func failed(err error) (RegistrationResult, error) {
	return RegistrationResult{Outcome: OutcomeFailed, Detail: err.Error()}, err
}
