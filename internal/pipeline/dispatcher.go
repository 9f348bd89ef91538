// Package pipeline triggers remote build workflows through the GitHub Actions API.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultAPIBase    = "https://api.github.com"
	DefaultRef        = "main"
	DefaultWorkflowID = "build-adhoc.yml"

	apiVersion = "2022-11-28"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrUnauthorized     = errors.New("pipeline credentials rejected")
	ErrDispatchRejected = errors.New("dispatch rejected")
)

// DispatchError carries the status and body of a failed dispatch.
// errors.Is matches its Cause.
type DispatchError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%v (status %d)", e.Cause, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *DispatchError) Unwrap() error { return e.Cause }

// Config identifies the workflow to dispatch.
type Config struct {
	Owner      string
	Repo       string
	WorkflowID string
	Token      string
	Ref        string
	APIBase    string
}

// Dispatcher starts build workflows.
type Dispatcher struct {
	cfg        Config
	HTTPClient *http.Client
}

// NewDispatcher fills defaults for ref, workflow and API base.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Ref == "" {
		cfg.Ref = DefaultRef
	}
	if cfg.WorkflowID == "" {
		cfg.WorkflowID = DefaultWorkflowID
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")

	return &Dispatcher{
		cfg: cfg,
		HTTPClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// TriggerBuild dispatches the workflow with the build and tester ids as inputs.
// Only 204 counts as success.
func (d *Dispatcher) TriggerBuild(ctx context.Context, buildID, testerID string) error {
	payload := map[string]any{
		"ref": d.cfg.Ref,
		"inputs": map[string]string{
			"buildId":  buildID,
			"testerId": testerID,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		d.cfg.APIBase,
		url.PathEscape(d.cfg.Owner),
		url.PathEscape(d.cfg.Repo),
		url.PathEscape(d.cfg.WorkflowID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	d.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return &DispatchError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(respBody)),
		Cause:      causeFor(resp.StatusCode),
	}
}

// RunStatus is the state of a single workflow run.
type RunStatus struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HTMLURL    string    `json:"html_url"`
	HeadBranch string    `json:"head_branch"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RunStatus looks up a workflow run by id.
func (d *Dispatcher) RunStatus(ctx context.Context, runID string) (*RunStatus, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%s",
		d.cfg.APIBase,
		url.PathEscape(d.cfg.Owner),
		url.PathEscape(d.cfg.Repo),
		url.PathEscape(runID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	d.setHeaders(req)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &DispatchError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
			Cause:      causeFor(resp.StatusCode),
		}
	}

	var run RunStatus
	if err := json.Unmarshal(respBody, &run); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &run, nil
}

func (d *Dispatcher) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
}

func causeFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrWorkflowNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrDispatchRejected
	}
}
