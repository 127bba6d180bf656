// Package client provides a Go client library for the claw API server.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

// Client communicates with the claw API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new claw API client pointing at the given base URL
// (e.g. "http://127.0.0.1:7117").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doRequest builds and executes an HTTP request.
// If body is non-nil it is JSON-encoded and sent as the request body.
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// doJSON executes a request, checks for a 2xx status, and JSON-decodes
// the response body into target (when target is non-nil).
func (c *Client) doJSON(method, path string, body interface{}, target interface{}) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if target != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

// newAPIError unwraps the server's {"error": "..."} envelope when present.
func newAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		msg = envelope.Error
	}
	return &APIError{StatusCode: status, Message: msg}
}

// taskPath builds a task URL with the project query parameter.
func taskPath(name, suffix, project string, extra url.Values) string {
	p := "/api/v1alpha1/tasks"
	if name != "" {
		p += "/" + url.PathEscape(name)
	}
	p += suffix

	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if project != "" {
		q.Set("project", project)
	}
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return p
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Healthz checks whether the API server is healthy.
func (c *Client) Healthz() error {
	resp, err := c.doRequest(http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("healthz failed (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// CreateTask submits a task. The server starts it in the background and
// returns it in Pending phase.
func (c *Client) CreateTask(task *v1alpha1.Task) (*v1alpha1.Task, error) {
	var out v1alpha1.Task
	if err := c.doJSON(http.MethodPost, taskPath("", "", task.Metadata.Project, nil), task, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask retrieves a task by project and name. An empty project selects
// the default project.
func (c *Client) GetTask(project, name string) (*v1alpha1.Task, error) {
	var out v1alpha1.Task
	if err := c.doJSON(http.MethodGet, taskPath(name, "", project, nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks lists the tasks of project, or of every project when empty.
func (c *Client) ListTasks(project string) ([]*v1alpha1.Task, error) {
	var out []*v1alpha1.Task
	if err := c.doJSON(http.MethodGet, taskPath("", "", project, nil), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTask deletes a task and its transcript. The server refuses to delete
// a running task.
func (c *Client) DeleteTask(project, name string) error {
	return c.doJSON(http.MethodDelete, taskPath(name, "", project, nil), nil, nil)
}

// TaskEvents returns the transcript entries after sequence number since.
func (c *Client) TaskEvents(project, name string, since int) ([]v1alpha1.Event, error) {
	var extra url.Values
	if since > 0 {
		extra = url.Values{"since": {fmt.Sprint(since)}}
	}
	var out []v1alpha1.Event
	if err := c.doJSON(http.MethodGet, taskPath(name, "/events", project, extra), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
