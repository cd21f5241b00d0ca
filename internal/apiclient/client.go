// Package apiclient wraps the back-office REST API consumed by the console.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// UploadImagePath receives multipart product images.
	UploadImagePath = "/products/upload-image"
	// UploadImageField is the multipart field carrying the file.
	UploadImageField = "image"

	maxErrorBody = 4 << 10
)

// Observer receives one notification per API call.
type Observer interface {
	ObserveCall(resource, method, outcome string, elapsed time.Duration)
}

// Client performs JSON calls against the REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit throttles outbound calls. A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver installs a call observer, typically the metrics collector.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get decodes the resource at path into dest.
func (c *Client) Get(ctx context.Context, path string, dest any) error {
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

// Post sends body to path and decodes the response into dest when dest is non-nil.
func (c *Client) Post(ctx context.Context, path string, body, dest any) error {
	return c.do(ctx, http.MethodPost, path, body, dest)
}

// Put sends body to path and decodes the response into dest when dest is non-nil.
func (c *Client) Put(ctx context.Context, path string, body, dest any) error {
	return c.do(ctx, http.MethodPut, path, body, dest)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// UploadImage posts an image as multipart form data and returns the stored URL.
func (c *Client) UploadImage(ctx context.Context, filename string, content io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(UploadImageField, filename)
	if err != nil {
		return "", &Error{Kind: KindEncode, Method: http.MethodPost, Path: UploadImagePath, Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", &Error{Kind: KindEncode, Method: http.MethodPost, Path: UploadImagePath, Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &Error{Kind: KindEncode, Method: http.MethodPost, Path: UploadImagePath, Err: err}
	}

	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := c.send(ctx, http.MethodPost, UploadImagePath, body, writer.FormDataContentType(), &out); err != nil {
		return "", err
	}
	if out.ImageURL == "" {
		return "", &Error{Kind: KindDecode, Method: http.MethodPost, Path: UploadImagePath, Detail: "response missing imageUrl"}
	}
	return out.ImageURL, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindEncode, Method: method, Path: path, Err: err}
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, reader, contentType, dest)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, dest any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveCall(resourceOf(path), method, outcomeOf(err), time.Since(start))
		}
	}()

	if c.limiter != nil {
		if waitErr := c.limiter.Wait(ctx); waitErr != nil {
			return &Error{Kind: KindTransport, Method: method, Path: path, Err: waitErr}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", requestID(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Kind: KindStatus, Method: method, Path: path, StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Error{Kind: KindDecode, Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func errorDetail(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("%.200s", string(raw))
}

func resourceOf(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(trimmed, "/?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	if apiErr, ok := err.(*Error); ok {
		return string(apiErr.Kind)
	}
	return "error"
}
