package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// maxBodySize bounds response bodies read into memory. The status
	// and version payloads are small; anything larger is a bad server.
	maxBodySize = 1 << 20
)

// Client queries a running fotad server's health and version endpoints.
// Used by operator tooling (`fotad check`); devices carry their own
// firmware-side client.
type Client struct {
	// BaseURL is the server base URL (e.g., "http://10.0.0.5:8070")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration
}

// New creates a client for the server at host:port.
func New(host string, port int) *Client {
	return NewWithURL(fmt.Sprintf("http://%s:%d", host, port))
}

// NewWithURL creates a client with a full base URL.
func NewWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:       baseURL,
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// Status is the parsed GET /status response.
type Status struct {
	Status            string `json:"status"`
	ActiveThreads     int64  `json:"active_threads"`
	FirmwareAvailable bool   `json:"firmware_available"`
	Timestamp         int64  `json:"timestamp"`
	FirmwareMD5       string `json:"firmware_md5"`
	FirmwareSize      int64  `json:"firmware_size"`
}

// Version is the parsed GET /version response.
type Version struct {
	Version   string `json:"version"`
	Size      int64  `json:"size"`
	Filename  string `json:"filename"`
	Timestamp int64  `json:"timestamp"`
}

// GetStatus retrieves the server's health summary.
func (c *Client) GetStatus() (*Status, error) {
	var status Status
	if err := c.getJSON("/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetVersion retrieves the current firmware version metadata.
// A 404 means no firmware artifact is staged on the server.
func (c *Client) GetVersion() (*Version, error) {
	var version Version
	if err := c.getJSON("/version", &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// getJSON fetches path and decodes the JSON body into v, retrying
// transport failures with exponential backoff. HTTP-level errors
// (non-200) are not retried: the server answered, it just said no.
func (c *Client) getJSON(path string, v any) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(currentDelay)

			// Exponential backoff
			currentDelay *= 2
			if currentDelay > c.MaxRetryDelay {
				currentDelay = c.MaxRetryDelay
			}
		}

		resp, err := c.HTTPClient.Get(c.BaseURL + path)
		if err != nil {
			lastErr = fmt.Errorf("server unreachable: %w", err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("GET %s: failed to parse response: %w", path, err)
		}
		return nil
	}

	return fmt.Errorf("GET %s failed after %d attempts: %w", path, c.MaxRetries+1, lastErr)
}
