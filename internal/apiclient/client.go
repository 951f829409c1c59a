// Package apiclient is a typed client for the idea-ticketing REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ideaboard/internal/config"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

// maxResponseBytes caps how much of a response body the client will read
const maxResponseBytes = 10 << 20

// Authenticator supplies the bearer token for authenticated calls and receives every 401
// those calls produce. It is the only place a 401 is handled.
type Authenticator interface {
	Token() string
	HandleUnauthorized(ctx context.Context)
}

// Client talks to the REST backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *observability.Logger
	auth       Authenticator
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default traced http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithAuthenticator sets the token source and 401 handler
func WithAuthenticator(a Authenticator) Option {
	return func(cl *Client) { cl.auth = a }
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg *config.APIConfig, logger *observability.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	return newClient(cfg.BaseURL, timeout, logger, opts...)
}

// NewClientWithURL creates a client for an explicit base URL (for testing)
func NewClientWithURL(baseURL string, logger *observability.Logger, opts ...Option) *Client {
	return newClient(baseURL, config.DefaultHTTPTimeout, logger, opts...)
}

func newClient(baseURL string, timeout time.Duration, logger *observability.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: observability.HTTPTransport(http.DefaultTransport),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuthenticator installs the authenticator after construction, for when the session
// service itself depends on the client.
func (c *Client) SetAuthenticator(a Authenticator) {
	c.auth = a
}

// BaseURL returns the configured API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one API call
type request struct {
	method        string
	path          string // path relative to the base URL, e.g. "/ideas/4/react"
	route         string // templated path used for metrics, e.g. "/ideas/:id/react"
	query         url.Values
	body          interface{}
	authenticated bool
}

// Do sends req, attaching the bearer token when authenticated is set. A 401 on an
// authenticated request is reported to the Authenticator before the response is returned.
func (c *Client) Do(ctx context.Context, req *http.Request, authenticated bool) (*http.Response, error) {
	if authenticated && c.auth != nil {
		if token := c.auth.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			c.logger.Debug(ctx, "Attaching bearer token", map[string]interface{}{
				"path":  req.URL.Path,
				"token": contextutils.MaskToken(token),
			})
		}
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeTimeout, contextutils.SeverityWarn,
				"Request timed out", req.Method+" "+req.URL.Path, err)
		}
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"Could not reach the server", req.Method+" "+req.URL.Path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && authenticated && c.auth != nil {
		c.auth.HandleUnauthorized(ctx)
	}
	return resp, nil
}

// call performs r and decodes a JSON success body into out (when out is non-nil)
func (c *Client) call(ctx context.Context, r request, out interface{}) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
				"failed to encode request", r.route, err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return contextutils.WrapError(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req, r.authenticated)
	if err != nil {
		observability.RecordAPIRequest(ctx, r.method, r.route, 0)
		c.logger.Warn(ctx, "API request failed", map[string]interface{}{
			"method": r.method, "route": r.route, "error": err.Error(),
		})
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{"error": cerr.Error()})
		}
	}()

	observability.RecordAPIRequest(ctx, r.method, r.route, resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError,
			"failed to read response", r.route, err)
	}

	c.logger.Debug(ctx, "API request completed", map[string]interface{}{
		"method": r.method, "route": r.route, "status": resp.StatusCode,
	})

	isJSON := isJSONContent(resp.Header.Get("Content-Type"))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, isJSON, raw)
	}
	if out == nil {
		return nil
	}
	if !isJSON {
		// A 2xx that is not JSON is reported the same way as an error page
		return newAPIError(resp.StatusCode, false, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidFormat, contextutils.SeverityError,
			"Unexpected response from server", fmt.Sprintf("%s %s", r.method, r.route), err)
	}
	return nil
}

func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// messageResponse is the {message} / {error} envelope most mutations return
type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
