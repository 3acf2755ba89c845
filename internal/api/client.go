// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ragterm/internal/logging"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// UploadTimeout bounds multipart uploads, which can be large.
	UploadTimeout = 10 * time.Minute

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	userAgent = "ragterm/0.1"
)

// newTransport returns a pooled transport shared by one client's requests.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// =============================================================================
// ENVELOPE
// =============================================================================

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`

	// Detail is set by framework-level errors that bypass the envelope
	Detail json.RawMessage `json:"detail"`
}

// detailMessage flattens a "detail" field (string, object or list) to text.
func (e envelope) detailMessage() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(e.Detail, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if json.Unmarshal(e.Detail, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Msg
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(e.Detail, &list) == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(e.Detail)
}

// decodeEnvelope unwraps body into out. Bodies without an envelope are
// decoded directly.
func decodeEnvelope(status int, body []byte, out interface{}) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success != nil {
		if !*env.Success {
			return &APIError{Status: status, Code: env.Code, Message: env.Message, Data: env.Data}
		}
		if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
		return nil
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one backend.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	log          *log.Logger
}

// New creates a client for baseURL (for example http://localhost:8000).
func New(baseURL string) *Client {
	transport := newTransport()
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
		// No timeout for streaming - controlled via context
		streamClient: &http.Client{
			Transport: transport,
		},
		log: logging.Default(),
	}
}

// WithHTTPClient uses hc for all requests. Streaming requests keep no
// client timeout.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	stream := *hc
	stream.Timeout = 0
	c.streamClient = &stream
	return c
}

// WithTimeout sets the timeout for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	hc := *c.httpClient
	hc.Timeout = timeout
	c.httpClient = &hc
	return c
}

// WithRateLimit limits outgoing requests to perSecond with the given burst.
// A non-positive rate removes the limit.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithLogger sets the logger used for request tracing.
func (c *Client) WithLogger(l *log.Logger) *Client {
	c.log = l
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send executes req through the rate limiter and wraps network failures.
func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: err}
		}
	}

	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		// Cancellation is the caller's decision, not a transport failure
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Debug("api request failed", "method", req.Method, "path", req.URL.Path, "err", err)
		return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: err}
	}

	// Bodies are never logged
	c.log.Debug("api request", "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "dur", time.Since(start).Round(time.Millisecond))
	return resp, nil
}

// doJSON sends an optional JSON body and decodes the envelope into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.roundTrip(c.httpClient, req, out)
}

// roundTrip sends req and decodes its response.
func (c *Client) roundTrip(hc *http.Client, req *http.Request, out interface{}) error {
	resp, err := c.send(hc, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp.StatusCode, body)
	}
	return decodeEnvelope(resp.StatusCode, body, out)
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}

	return body, nil
}

// pathEscape escapes one path segment such as a document name.
func pathEscape(segment string) string {
	return url.PathEscape(segment)
}

// workspaceQuery returns ?workspace_id= when id is set.
func workspaceQuery(id string) url.Values {
	if id == "" {
		return nil
	}
	return url.Values{"workspace_id": {id}}
}
