// Package client is the HTTP client for the WeRSS backend API. It attaches the
// session token and normalises the backend's response envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// APIPrefix is appended to the base URL for every API call.
const APIPrefix = "api/v1/"

const maxBodySize = 50 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token for a request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client talks to the backend. A Client is safe for concurrent use.
type Client struct {
	root    *url.URL
	api     *url.URL
	http    HTTPClient
	token   TokenSource
	metrics *Metrics
	log     *slog.Logger
	maxBody int64
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource sets the bearer token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithMetrics enables request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMaxBodySize caps the size of response bodies. Larger bodies fail with
// ErrBodyTooLarge.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// NewHTTPClient returns an *http.Client with the fixed request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, httpClient HTTPClient, opts ...Option) (*Client, error) {
	root, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if root.Scheme == "" || root.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(root.Path, "/") {
		root.Path += "/"
	}

	c := &Client{
		root:    root,
		api:     root.ResolveReference(&url.URL{Path: APIPrefix}),
		http:    httpClient,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBody: maxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithToken returns a copy of c that authenticates with ts.
func (c *Client) WithToken(ts TokenSource) *Client {
	cp := *c
	cp.token = ts
	return &cp
}

// HTTP returns the underlying transport.
func (c *Client) HTTP() HTTPClient {
	return c.http
}

// Token returns the current bearer token, or "" when none is configured.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.token == nil {
		return "", nil
	}
	tok, err := c.token.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return tok, nil
}

// RootURL resolves path against the backend root rather than the API prefix.
func (c *Client) RootURL(path string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}
	return c.root.ResolveReference(ref).String(), nil
}

// Get performs a JSON GET and decodes the unwrapped payload into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a JSON POST.
func (c *Client) Post(ctx context.Context, path string, query url.Values, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, query, in, out)
}

// Put performs a JSON PUT.
func (c *Client) Put(ctx context.Context, path string, query url.Values, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, query, in, out)
}

// Delete performs a DELETE, with an optional JSON body.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, in, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, query, in, out)
}

// PostForm performs a urlencoded form POST.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	body := strings.NewReader(form.Encode())
	resp, err := c.send(ctx, http.MethodPost, path, nil, body, "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.decodeResponse(resp, out)
}

// Upload sends r as the multipart form field "file".
func (c *Client) Upload(ctx context.Context, path, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, path, nil, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.decodeResponse(resp, out)
}

// Download fetches raw file bytes. JSON envelopes carrying an error code are
// reported as errors; anything else is returned as the file content.
func (c *Client) Download(ctx context.Context, path string, query url.Values) (*File, error) {
	resp, err := c.send(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := c.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || strings.HasPrefix(ct, "application/json") {
		if _, err := unwrap(resp.StatusCode, data); err != nil {
			return nil, err
		}
	}

	return &File{
		Name:        attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: ct,
		Data:        data,
	}, nil
}

// File is a downloaded payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		ct = "application/json"
	}

	resp, err := c.send(ctx, method, path, query, body, ct)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	u := c.api.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	tok, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(method, "error", elapsed)
		c.log.Debug("api request failed", "request_id", requestID, "method", method, "path", u.Path, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	c.metrics.observe(method, strconv.Itoa(resp.StatusCode), elapsed)
	c.log.Debug("api request", "request_id", requestID, "method", method, "path", u.Path,
		"status", resp.StatusCode, "duration", elapsed)
	return resp, nil
}

// readBody reads at most maxBody bytes and fails instead of truncating.
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, c.maxBody)
	}
	return data, nil
}

func (c *Client) decodeResponse(resp *http.Response, out any) error {
	data, err := c.readBody(resp.Body)
	if err != nil {
		return err
	}
	payload, err := unwrap(resp.StatusCode, data)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
	Detail  json.RawMessage `json:"detail"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// unwrap normalises a backend response into its payload or an error.
func unwrap(status int, body []byte) (json.RawMessage, error) {
	switch status {
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, &StatusError{Status: status, Body: body}
	}

	var env envelope
	isEnvelope := json.Unmarshal(body, &env) == nil

	if status < 200 || status >= 300 {
		apiErr := &APIError{Status: status, Code: status, Message: http.StatusText(status)}
		if isEnvelope {
			fillError(apiErr, env)
		}
		if apiErr.Code == CodeUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, apiErr
	}

	if !isEnvelope || env.Code == nil {
		return body, nil
	}

	switch *env.Code {
	case CodeOK, CodeHTTPOK:
		if present(env.Data) {
			return env.Data, nil
		}
		if present(env.Detail) {
			return env.Detail, nil
		}
		return body, nil
	case CodeUnauthorized:
		return nil, ErrUnauthorized
	}

	apiErr := &APIError{Status: status, Code: *env.Code, Message: "request failed"}
	fillError(apiErr, env)
	return nil, apiErr
}

// fillError copies code and message from the envelope, preferring the nested
// FastAPI "detail" envelope when it has one.
func fillError(e *APIError, env envelope) {
	src := env
	if present(env.Detail) {
		var inner envelope
		if err := json.Unmarshal(env.Detail, &inner); err == nil {
			src = inner
		} else {
			var s string
			if json.Unmarshal(env.Detail, &s) == nil && s != "" {
				e.Message = s
			}
		}
	}
	if src.Code != nil {
		e.Code = *src.Code
	} else if env.Code != nil {
		e.Code = *env.Code
	}
	if msg := src.text(); msg != "" {
		e.Message = msg
	} else if msg := env.text(); msg != "" {
		e.Message = msg
	}
}

func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
