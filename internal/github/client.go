package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"

	// labelsPerPage is the page size for label listings. The repository
	// label set is fetched fresh for every command, so pagination shows up
	// on repos with more labels than one page.
	labelsPerPage = 100
)

// Client is the label store: it reads a repository's label names and reads
// and replaces an issue's label set. It implements labels.Store.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokenSource TokenSource
	callTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURL points the client at a different API base URL. Used in tests.
func WithBaseURL(url string) ClientOption {
	return func(cl *Client) { cl.baseURL = strings.TrimSuffix(url, "/") }
}

// WithCallTimeout bounds each API call. Zero disables the per-call bound.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(cl *Client) { cl.callTimeout = d }
}

// NewClient creates a Client that authenticates every request through the
// given token source.
func NewClient(tokenSource TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     defaultBaseURL,
		tokenSource: tokenSource,
		callTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// label is the subset of the API's label object the bot reads.
type label struct {
	Name string `json:"name"`
}

// ListLabels returns the names of every label defined in the repository,
// following Link-header pagination.
func (c *Client) ListLabels(ctx context.Context, repo string) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/labels?per_page=%d", c.baseURL, repo, labelsPerPage)
	return c.collectLabels(ctx, url)
}

// GetIssueLabels returns the labels currently on the issue.
func (c *Client) GetIssueLabels(ctx context.Context, repo string, issue int) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/issues/%d/labels?per_page=%d", c.baseURL, repo, issue, labelsPerPage)
	return c.collectLabels(ctx, url)
}

// SetIssueLabels replaces the issue's entire label set in a single PUT.
// This is the bot's only write: callers compute the full resulting set, so
// the replace either lands whole or not at all.
func (c *Client) SetIssueLabels(ctx context.Context, repo string, issue int, names []string) error {
	if names == nil {
		names = []string{}
	}
	payload, err := json.Marshal(struct {
		Labels []string `json:"labels"`
	}{Labels: names})
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/issues/%d/labels", c.baseURL, repo, issue)
	if _, _, err := c.do(ctx, http.MethodPut, url, payload); err != nil {
		return err
	}
	return nil
}

// RateLimitRemaining returns how many core API requests remain in the
// current rate-limit window.
func (c *Client) RateLimitRemaining(ctx context.Context) (int, error) {
	body, _, err := c.do(ctx, http.MethodGet, c.baseURL+"/rate_limit", nil)
	if err != nil {
		return 0, err
	}

	var result struct {
		Rate struct {
			Remaining int `json:"remaining"`
		} `json:"rate"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("decode rate limit response: %w", err)
	}
	return result.Rate.Remaining, nil
}

// collectLabels fetches pages of label objects starting at url until the
// Link header stops advertising a next page.
func (c *Client) collectLabels(ctx context.Context, url string) ([]string, error) {
	var names []string
	for url != "" {
		body, header, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		var page []label
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode labels page: %w", err)
		}
		for _, l := range page {
			names = append(names, l.Name)
		}

		url = nextPageURL(header.Get("Link"))
	}
	return names, nil
}

// do performs one authenticated API call bounded by the client's call timeout.
func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, http.Header, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	token, err := c.tokenSource(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("obtain token: %w", err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Surface the deadline so the failure classifies as a timeout.
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", method, url, ctx.Err())
		}
		return nil, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, newAPIError(resp.StatusCode, body)
	}
	return body, resp.Header, nil
}

// nextPageURL extracts the rel="next" target from a Link header. Returns
// "" when there is no next page.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		target := strings.TrimSpace(section[0])
		target = strings.TrimPrefix(target, "<")
		target = strings.TrimSuffix(target, ">")
		return target
	}
	return ""
}

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitHub API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Message)
}

// HTTPStatus exposes the status code for failure classification.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// newAPIError decodes the API's error body when possible.
func newAPIError(statusCode int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: statusCode, Message: payload.Message}
}
