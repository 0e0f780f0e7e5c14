package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"event-desk/config"
	"event-desk/logging"
	"event-desk/validate"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
)

const defaultUserAgent = "event-desk"

// loggingTransport wraps an http.RoundTripper to log requests.
type loggingTransport struct {
	transport http.RoundTripper
}

// RoundTrip logs the request and delegates to the wrapped transport.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	logging.Debugf("API: %s %s", req.Method, req.URL.Redacted())
	return t.transport.RoundTrip(req)
}

// Client fetches pages from the configured feed endpoint.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	retries    int
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Token and timeout settings from the
// config are not applied to a caller-provided client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger injects a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBackOff overrides the retry schedule used when retries are configured.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) {
		if fn != nil {
			c.newBackOff = fn
		}
	}
}

// NewClient builds a feed client from configuration. A configured api_token is
// sent as a bearer token.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required to create a feed client")
	}
	if err := validate.ValidateAPIURL(cfg.APIURL); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimSpace(cfg.APIURL))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must not be negative, got %d", cfg.Retries)
	}

	c := &Client{
		baseURL:    base,
		userAgent:  defaultUserAgent,
		retries:    cfg.Retries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     logging.Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(cfg)
	}
	return c, nil
}

func newHTTPClient(cfg *config.Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = config.DefaultTimeout
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.APIToken != "" {
		// Use bearer token authentication
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken})
		transport = oauth2.NewClient(context.Background(), ts).Transport
	}
	if config.Debug {
		transport = &loggingTransport{transport: transport}
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// PageURL returns the request URL for a page: the base URL with page and
// per_page set on its query.
func (c *Client) PageURL(page, perPage int) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("per_page", fmt.Sprintf("%d", perPage))
	u.RawQuery = q.Encode()
	return u.String()
}

// Retries returns the configured retry count.
func (c *Client) Retries() int { return c.retries }

// Timeout returns the HTTP client timeout; zero means none.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }
