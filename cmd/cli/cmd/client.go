package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"adhocdist/pkg/api"

	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Client handles API calls to the adhocdist server.
type Client struct {
	BaseURL        string
	User           string
	Password       string
	CallbackSecret string
	HTTPClient     *http.Client
}

// NewClient creates a new client with the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type authMode int

const (
	authNone authMode = iota
	authAdmin
	authCallback
)

func (c *Client) do(method, path string, auth authMode, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch auth {
	case authAdmin:
		req.SetBasicAuth(c.User, c.Password)
	case authCallback:
		if c.CallbackSecret != "" {
			req.Header.Set("Authorization", "Bearer "+c.CallbackSecret)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp api.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// ListTesters sends GET /testers.
func (c *Client) ListTesters() ([]api.Tester, error) {
	var out []api.Tester
	return out, c.do(http.MethodGet, "/testers", authAdmin, nil, &out)
}

// GetTester sends GET /testers/{id}.
func (c *Client) GetTester(id string) (*api.TesterDetail, error) {
	var out api.TesterDetail
	if err := c.do(http.MethodGet, "/testers/"+url.PathEscape(id), authAdmin, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBuilds sends GET /builds.
func (c *Client) ListBuilds() ([]api.Build, error) {
	var out []api.Build
	return out, c.do(http.MethodGet, "/builds", authAdmin, nil, &out)
}

// GetBuild sends GET /builds/{id}.
func (c *Client) GetBuild(id string) (*api.Build, error) {
	var out api.Build
	if err := c.do(http.MethodGet, "/builds/"+url.PathEscape(id), authAdmin, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDevices sends GET /devices.
func (c *Client) ListDevices() ([]api.Device, error) {
	var out []api.Device
	return out, c.do(http.MethodGet, "/devices", authAdmin, nil, &out)
}

// VendorDevices sends GET /vendor/devices.
func (c *Client) VendorDevices() ([]api.VendorDevice, error) {
	var out []api.VendorDevice
	return out, c.do(http.MethodGet, "/vendor/devices", authAdmin, nil, &out)
}

// Purge sends DELETE /admin/data.
func (c *Client) Purge() error {
	return c.do(http.MethodDelete, "/admin/data", authAdmin, nil, nil)
}

// Register sends POST /register.
func (c *Client) Register(email string) (*api.RegisterResponse, error) {
	var out api.RegisterResponse
	if err := c.do(http.MethodPost, "/register", authNone, api.RegisterRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteBuild sends POST /build-completed.
func (c *Client) CompleteBuild(req api.BuildCompletedRequest) (*api.BuildCompletedResponse, error) {
	var out api.BuildCompletedResponse
	if err := c.do(http.MethodPost, "/build-completed", authCallback, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// readPassword prompts on the terminal. Tests replace it.
var readPassword = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no admin password configured: set --password or ADHOC_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Admin password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// newClientFromConfig builds a client from flags, environment and config file.
func newClientFromConfig() *Client {
	c := NewClient(viper.GetString("url"))
	c.User = viper.GetString("user")
	c.Password = viper.GetString("password")
	c.CallbackSecret = viper.GetString("callback_secret")
	return c
}

// newAdminClient is newClientFromConfig that also resolves the admin password.
func newAdminClient() (*Client, error) {
	c := newClientFromConfig()
	if c.User == "" {
		c.User = "admin"
	}
	if c.Password == "" {
		pw, err := readPassword()
		if err != nil {
			return nil, err
		}
		c.Password = pw
	}
	return c, nil
}
