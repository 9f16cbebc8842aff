package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/govjob-alerts/internal/types"
)

// DefaultTimeout bounds every remote catalog request.
const DefaultTimeout = 15 * time.Second

// RemoteError describes a failed catalog API call.
type RemoteError struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *RemoteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog request %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog request %s: %s", e.URL, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}

// HTTPRemote reads the public catalog API served by the admin server.
type HTTPRemote struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRemote creates a remote rooted at baseURL, e.g. https://api.example.com.
func NewHTTPRemote(baseURL string, client *http.Client) *HTTPRemote {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPRemote{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type jobsResponse struct {
	Jobs []types.Job `json:"jobs"`
}

type categoriesResponse struct {
	Categories []types.JobCategory `json:"categories"`
}

// Jobs implements Remote.
func (r *HTTPRemote) Jobs(ctx context.Context) ([]types.Job, error) {
	var resp jobsResponse
	if _, err := r.get(ctx, "/api/jobs", &resp); err != nil {
		return nil, err
	}
	if resp.Jobs == nil {
		resp.Jobs = []types.Job{}
	}
	return resp.Jobs, nil
}

// Job implements Remote.
func (r *HTTPRemote) Job(ctx context.Context, id string) (*types.Job, error) {
	var job types.Job
	found, err := r.get(ctx, "/api/jobs/"+url.PathEscape(id), &job)
	if err != nil || !found {
		return nil, err
	}
	return &job, nil
}

// Categories implements Remote.
func (r *HTTPRemote) Categories(ctx context.Context) ([]types.JobCategory, error) {
	var resp categoriesResponse
	if _, err := r.get(ctx, "/api/categories", &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// get decodes a JSON response into v. A 404 reports found=false without error.
func (r *HTTPRemote) get(ctx context.Context, path string, v any) (bool, error) {
	u := r.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, &RemoteError{URL: u, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, &RemoteError{URL: u, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, &RemoteError{URL: u, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, &RemoteError{URL: u, StatusCode: resp.StatusCode, Message: "invalid response body", Cause: err}
	}
	return true, nil
}
