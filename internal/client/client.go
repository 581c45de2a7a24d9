// Package client provides the HTTP and websocket client for the TruthLens
// analysis server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
)

// Client talks to the TruthLens server REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client for the given server base URL.
// If baseURL is empty, uses TRUTHLENS_SERVER_URL env var or defaults to
// localhost:8000. Timeout can be configured via TRUTHLENS_CLIENT_TIMEOUT
// (default 5m; uploads of large video files can be slow).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("TRUTHLENS_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	timeout := 5 * time.Minute
	if t := os.Getenv("TRUTHLENS_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the server base URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// submitResponse is the /analyze response payload.
type submitResponse struct {
	JobID string `json:"job_id"`
}

// Analyze uploads the file at path for analysis and returns the job
// identifier used to address the live update channel. On failure the
// submission is abandoned and no session starts.
func (c *Client) Analyze(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return c.AnalyzeReader(ctx, filepath.Base(path), f)
}

// AnalyzeReader uploads media from r under the given filename.
func (c *Client) AnalyzeReader(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy file payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/analyze", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit upload: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server error: %s - %s", resp.Status, string(respBody))
	}

	var submit submitResponse
	if err := json.Unmarshal(respBody, &submit); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if submit.JobID == "" {
		return "", fmt.Errorf("server returned no job id")
	}

	return submit.JobID, nil
}

// JobSnapshot is the stored state of a job as returned by /results/{id}.
type JobSnapshot struct {
	Status string           `json:"status"`
	Result *analysis.Result `json:"result"`
	Error  string           `json:"error,omitempty"`
}

// Result fetches the stored snapshot for a job. A completed job carries the
// final result; a running job has Result == nil.
func (c *Client) Result(ctx context.Context, jobID string) (*JobSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/results/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("server error: %s - %s", resp.Status, string(body))
	}

	var snapshot JobSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Error != "" {
		return nil, fmt.Errorf("server: %s", snapshot.Error)
	}

	return &snapshot, nil
}
