// Package zetsubou is a Go client for the Zetsubou.life API v2.
//
// The client is organized into per-resource services:
//
//	c, err := zetsubou.New("ztb_live_...")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Execute a tool and wait for the job to finish.
//	job, err := c.Tools.Execute(ctx, "upscale", zetsubou.ExecuteOptions{
//		Files: []zetsubou.FileInput{file},
//	})
//	job, err = c.Jobs.WaitForCompletion(ctx, job.ID, zetsubou.PollConfig{})
//
//	// Upload to the encrypted file store.
//	node, err := c.VFS.Upload(ctx, zetsubou.UploadRequest{File: file, Encrypt: true})
package zetsubou

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Version is the SDK release version, sent in the User-Agent header.
const Version = "1.1.0"

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://zetsubou.life"

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// defaultRetryAttempts is the default number of retries for transient
// request failures.
const defaultRetryAttempts = 3

// maxResponseSize limits buffered response body reads to prevent memory
// exhaustion. Streamed downloads are exempt.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client is the Zetsubou.life API client. It is safe for concurrent use.
type Client struct {
	baseURL       string
	apiKey        string
	userAgent     string
	retryAttempts int
	httpClient    *http.Client

	// streamClient carries no timeout; downloads and event streams are
	// long-lived and bounded by their context instead.
	streamClient *http.Client

	logger *slog.Logger

	// Per-resource services.
	Jobs     *JobsService
	Tools    *ToolsService
	VFS      *VFSService
	Chat     *ChatService
	Webhooks *WebhooksService
	Account  *AccountService
	NFT      *NFTService
	GraphQL  *GraphQLService
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient supplies a custom *http.Client. Streamed requests reuse
// its transport but not its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = &http.Client{Transport: hc.Transport}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetryAttempts sets how many times transient request failures are
// retried. Zero disables retries.
func WithRetryAttempts(n int) Option {
	return func(c *Client) { c.retryAttempts = n }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the structured logger. Request traces log at Debug,
// retries at Warn.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client authenticated with the given API key.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "api key is required"}
	}
	c := &Client{
		baseURL:       DefaultBaseURL,
		apiKey:        apiKey,
		userAgent:     "zetsubou-sdk-go/" + Version,
		retryAttempts: defaultRetryAttempts,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		streamClient:  &http.Client{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Jobs = &JobsService{client: c}
	c.Tools = &ToolsService{client: c}
	c.VFS = &VFSService{client: c}
	c.Chat = &ChatService{client: c}
	c.Webhooks = &WebhooksService{client: c}
	c.Account = &AccountService{client: c}
	c.NFT = &NFTService{client: c}
	c.GraphQL = &GraphQLService{client: c}
	return c, nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// HealthStatus is the response from GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health checks API reachability via the unversioned /health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var resp HealthStatus
	if err := c.get(ctx, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// request describes one HTTP exchange. The body is held as bytes so that
// transient failures can replay it.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	accept      string

	// stream hands the undrained response back to the caller, bypassing
	// the size cap. The caller must close the body.
	stream bool
}

// do issues the request, retrying transient failures (5xx, connection
// errors, request timeouts) with an exponential 1s<<attempt sleep. Rate
// limits and other 4xx responses surface immediately.
func (c *Client) do(ctx context.Context, r *request) (*http.Response, []byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Warn("retrying request",
				slog.String("method", r.method),
				slog.String("path", r.path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			if err := sleepContext(ctx, delay); err != nil {
				return nil, nil, err
			}
		}

		var bodyReader io.Reader
		if r.body != nil {
			bodyReader = bytes.NewReader(r.body)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, u, bodyReader)
		if err != nil {
			return nil, nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("User-Agent", c.userAgent)
		if r.accept != "" {
			req.Header.Set("Accept", r.accept)
		} else {
			req.Header.Set("Accept", "application/json")
		}
		if r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}

		c.logger.Debug("api request", slog.String("method", r.method), slog.String("path", r.path))

		hc := c.httpClient
		if r.stream {
			hc = c.streamClient
		}
		resp, err := hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			lastErr = &Error{Kind: ErrorKindConnection, Message: err.Error()}
			if attempt < c.retryAttempts {
				continue
			}
			return nil, nil, lastErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if r.stream {
				return resp, nil, nil
			}
			respBody, err := readBody(resp)
			if err != nil {
				return nil, nil, err
			}
			return resp, respBody, nil
		}

		respBody, readErr := readBody(resp)
		if readErr != nil {
			respBody = nil
		}
		apiErr := apiError(resp.StatusCode, resp.Header, respBody)
		if apiErr.Kind == ErrorKindServer && attempt < c.retryAttempts {
			lastErr = apiErr
			continue
		}
		return nil, nil, apiErr
	}
	return nil, nil, lastErr
}

// readBody drains and closes the response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	// Read maxResponseSize+1 to detect oversized responses while still
	// accepting responses exactly at the limit.
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(b)) > maxResponseSize {
		return nil, fmt.Errorf("response exceeds maximum size of %d bytes", maxResponseSize)
	}
	return b, nil
}

// doJSON issues a request with an optional JSON body and decodes the JSON
// response into respBody when it is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody, respBody any) error {
	r := &request{method: method, path: path, query: query}
	if reqBody != nil {
		body, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		r.body = body
		r.contentType = "application/json"
	}

	_, respBytes, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if respBody == nil || len(respBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, respBody); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, respBody any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, respBody)
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, reqBody, respBody)
}

func (c *Client) put(ctx context.Context, path string, reqBody, respBody any) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, reqBody, respBody)
}

func (c *Client) patch(ctx context.Context, path string, reqBody, respBody any) error {
	return c.doJSON(ctx, http.MethodPatch, path, nil, reqBody, respBody)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values, respBody any) error {
	return c.doJSON(ctx, http.MethodDelete, path, query, nil, respBody)
}

// postMultipart issues a multipart/form-data POST built by buildMultipart
// and decodes the JSON response.
func (c *Client) postMultipart(ctx context.Context, path string, body []byte, contentType string, respBody any) error {
	r := &request{
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: contentType,
	}
	_, respBytes, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if respBody == nil || len(respBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, respBody); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// download streams a binary response into w and returns the bytes written.
// The copy itself is not retried once bytes have started to flow.
func (c *Client) download(ctx context.Context, path string, query url.Values, w io.Writer) (int64, error) {
	resp, _, err := c.do(ctx, &request{
		method: http.MethodGet,
		path:   path,
		query:  query,
		accept: "application/octet-stream",
		stream: true,
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &Error{Kind: ErrorKindConnection, Message: fmt.Sprintf("download interrupted: %v", err)}
	}
	return n, nil
}

// successEnvelope is the {"success": bool} reply shape used by mutation
// endpoints.
type successEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// check converts a false success flag into a typed error.
func (e *successEnvelope) check(op string) error {
	if e.Success {
		return nil
	}
	msg := e.Error
	if msg == "" {
		msg = op + " failed"
	}
	return &Error{Kind: ErrorKindAPI, Message: msg}
}

// sleepContext sleeps for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
