package ocrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	recognizePath = "/api/ocr"
	healthPath    = "/api/health"

	// imageField is the multipart part name the backend reads.
	imageField = "image"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 8 << 20

	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// ErrMalformedResponse is returned when a 2xx body does not match the
// recognition response shape.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend status %d", e.Code)
	}
	return fmt.Sprintf("backend status %d: %s", e.Code, e.Message)
}

// Client talks to the recognition backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The timeout argument of
// New is ignored when this option is used.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the operator logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the backend at baseURL. A zero timeout leaves the
// request unbounded apart from ctx.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("ocrapi")
	return c, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeImage builds the multipart body with a single "image" part whose
// Content-Type is the image's own MIME type.
func encodeImage(name, mimeType string, blob []byte) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, imageField, quoteEscaper.Replace(name)))
	h.Set("Content-Type", mimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(blob); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &body, w.FormDataContentType(), nil
}

// Recognize uploads one image and returns the extracted text with its
// question/answer pairs. No retry is attempted.
func (c *Client) Recognize(ctx context.Context, name, mimeType string, blob []byte) (*Result, error) {
	body, contentType, err := encodeImage(name, mimeType, blob)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+recognizePath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	log := c.logger.With(zap.String("request_id", reqID))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("recognition request failed", zap.Error(err))
		return nil, fmt.Errorf("recognition request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Warn("failed to read recognition response", zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := statusError(resp.StatusCode, raw)
		log.Warn("recognition rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("message", serr.Message))
		return nil, serr
	}

	res, err := decodeResult(raw)
	if err != nil {
		log.Warn("malformed recognition response", zap.Error(err))
		return nil, err
	}

	log.Info("recognition complete",
		zap.Int("status", resp.StatusCode),
		zap.Int("text_len", len(res.Text)),
		zap.Int("qa_pairs", len(res.QAPairs)),
		zap.String("backend_time", res.ProcessingTime),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// statusError extracts the backend's error/message fields when present.
func statusError(code int, raw []byte) *StatusError {
	var w wireError
	if err := json.Unmarshal(raw, &w); err == nil {
		msg := w.Error
		if w.Message != "" {
			if msg != "" {
				msg += ": "
			}
			msg += w.Message
		}
		return &StatusError{Code: code, Message: msg}
	}
	return &StatusError{Code: code, Message: strings.TrimSpace(string(raw))}
}

// Health probes the backend's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, raw)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Status != "ok" {
		return fmt.Errorf("backend unhealthy: status %q", out.Status)
	}
	return nil
}
