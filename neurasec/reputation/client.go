package reputation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.virustotal.com/api/v3"

// ReportClient is the vendor API surface the aggregator drives. Implemented
// by Client; tests substitute a fake.
type ReportClient interface {
	// SubmitURL posts the URL for analysis and returns the opaque analysis id.
	SubmitURL(ctx context.Context, target string) (string, error)
	// FetchAnalysis retrieves the analysis report by id. Returns ErrNotFound
	// on 404, ErrMalformed on an unusable body, *HTTPError otherwise.
	FetchAnalysis(ctx context.Context, id string) (*Attributes, error)
	// FetchURLReport retrieves the general URL report keyed by the SHA-256 of
	// the canonical URL string. Same error contract as FetchAnalysis.
	FetchURLReport(ctx context.Context, target string) (*Attributes, error)
}

// Client talks to the VirusTotal v3 API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a vendor API client with a 10s per-call timeout.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URLIdentifier computes the vendor's identifier for a URL report: the
// SHA-256 hex digest of the canonical URL string.
func URLIdentifier(target string) string {
	sum := sha256.Sum256([]byte(target))
	return hex.EncodeToString(sum[:])
}

type reportEnvelope struct {
	Data *struct {
		ID         string      `json:"id"`
		Attributes *Attributes `json:"attributes"`
	} `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SubmitURL implements ReportClient.
func (c *Client) SubmitURL(ctx context.Context, target string) (string, error) {
	form := url.Values{}
	form.Set("url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit URL: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read submit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Message: vendorMessage(body, resp.Status)}
	}

	var envelope reportEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data == nil || envelope.Data.ID == "" {
		return "", fmt.Errorf("submit response lacks an analysis id: %w", ErrMalformed)
	}
	return envelope.Data.ID, nil
}

// FetchAnalysis implements ReportClient.
func (c *Client) FetchAnalysis(ctx context.Context, id string) (*Attributes, error) {
	return c.fetchReport(ctx, c.baseURL+"/analyses/"+id)
}

// FetchURLReport implements ReportClient.
func (c *Client) FetchURLReport(ctx context.Context, target string) (*Attributes, error) {
	return c.fetchReport(ctx, c.baseURL+"/urls/"+URLIdentifier(target))
}

func (c *Client) fetchReport(ctx context.Context, reportURL string) (*Attributes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch report: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read report response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: vendorMessage(body, resp.Status)}
	}

	var envelope reportEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data == nil || envelope.Data.Attributes == nil {
		return nil, ErrMalformed
	}
	return envelope.Data.Attributes, nil
}

// vendorMessage extracts the vendor's error message, falling back to the
// HTTP status line.
func vendorMessage(body []byte, status string) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return status
}
