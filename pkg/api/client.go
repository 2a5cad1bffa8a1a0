package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is where the backend listens in local setups.
const DefaultBaseURL = "http://localhost:8086"

// Client issues requests against the operations of a Contract.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	contract *Contract
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Timeouts are whatever the client
// carries; none are imposed here.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithContract swaps the embedded contract.
func WithContract(contract *Contract) Option {
	return func(c *Client) {
		if contract != nil {
			c.contract = contract
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Client rooted at baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, options ...Option) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", raw)
	}

	c := &Client{
		baseURL: parsed,
		http:    http.DefaultClient,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}

	if c.contract == nil {
		c.contract, err = DefaultContract()
		if err != nil {
			return nil, fmt.Errorf("api: load contract: %w", err)
		}
	}
	return c, nil
}

// BaseURL reports the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// NewRequest builds a request for operationID. The bearer header is attached
// when the operation is secured and token is non-empty.
func (c *Client) NewRequest(ctx context.Context, operationID, token string, body io.Reader) (*http.Request, error) {
	if c == nil {
		return nil, errors.New("api: client is nil")
	}
	op, err := c.contract.MustOperation(operationID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, c.baseURL.JoinPath(op.Path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("api: new request: %w", err)
	}
	if op.Secured && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// Do sends req with the configured HTTP client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.logger.Debug("api request", "method", req.Method, "url", req.URL.String())
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return nil, err
	}
	c.logger.Debug("api response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
	return resp, nil
}
