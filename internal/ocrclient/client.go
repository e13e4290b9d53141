// Package ocrclient talks to a running ocrd service over HTTP.
package ocrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ocrd/internal/imageutil"
	"ocrd/pkg/types"
)

const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
	defaultBackoff    = 250 * time.Millisecond
	defaultMaxBackoff = 4 * time.Second
	healthTimeout     = 5 * time.Second
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	http       *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the total number of attempts per request.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the first retry delay and its cap. The delay doubles per attempt.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		if initial >= 0 {
			c.backoff = initial
		}
		if max >= initial {
			c.maxBackoff = max
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		http:       &http.Client{},
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) String() string { return fmt.Sprintf("ocrclient(%s)", c.baseURL) }

// OCRPage recognizes a whole page image. An empty prompt selects the layout prompt.
func (c *Client) OCRPage(ctx context.Context, image []byte, pageID int, mode types.Mode, prompt string) (Result, error) {
	if prompt == "" {
		prompt = types.PromptLayoutMarkdown
	}
	req := types.OCRRequest{
		Image:  imageutil.EncodeBase64(image),
		Mode:   string(modeOrBase(mode)),
		Prompt: prompt,
		PageID: pageID,
	}
	body, err := c.post(ctx, "/ocr/page", req)
	if err != nil {
		return Result{}, err
	}
	return ParseResponse(body, pageID)
}

// OCRImage recognizes a figure image. bbox is the figure's position on its page
// and may be nil; the service reports block boxes in page coordinates when it
// is set. An empty prompt selects the figure prompt.
func (c *Client) OCRImage(ctx context.Context, image []byte, pageID int, bbox []float64, mode types.Mode, prompt string) (Result, error) {
	if prompt == "" {
		prompt = types.PromptFigureParsing
	}
	req := types.OCRRequest{
		Image:  imageutil.EncodeBase64(image),
		Mode:   string(modeOrBase(mode)),
		Prompt: prompt,
		PageID: pageID,
	}
	if len(bbox) == 4 {
		req.BBox = bbox
	}
	body, err := c.post(ctx, "/ocr/figure", req)
	if err != nil {
		return Result{}, err
	}
	return ParseResponse(body, pageID)
}

// OCRRegion crops bbox out of a page image locally and recognizes only that
// region. Block boxes come back in page coordinates.
func (c *Client) OCRRegion(ctx context.Context, page []byte, pageID int, bbox []float64, mode types.Mode, prompt string) (Result, error) {
	img, _, err := imageutil.Decode(page)
	if err != nil {
		return Result{}, fmt.Errorf("crop region: %w", err)
	}
	region, origin, err := imageutil.Crop(img, bbox)
	if err != nil {
		return Result{}, fmt.Errorf("crop region: %w", err)
	}
	crop, err := imageutil.EncodePNG(region)
	if err != nil {
		return Result{}, fmt.Errorf("crop region: %w", err)
	}
	// the clamped rectangle, so the service offsets by where the crop really starts
	placed := []float64{
		float64(origin.X),
		float64(origin.Y),
		float64(origin.X + region.Bounds().Dx()),
		float64(origin.Y + region.Bounds().Dy()),
	}
	return c.OCRImage(ctx, crop, pageID, placed, mode, prompt)
}

func modeOrBase(m types.Mode) types.Mode {
	if m == "" {
		return types.ModeBase
	}
	return m
}

// post sends req with retries and returns the raw JSON body of the first
// successful attempt.
func (c *Client) post(ctx context.Context, endpoint string, req types.OCRRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	url := c.baseURL + endpoint

	var lastErr error
	delay := c.backoff
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, status, err := c.attempt(ctx, url, payload)
		switch {
		case err == nil:
			return body, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case status >= 400 && status < 500:
			return nil, &RequestError{StatusCode: status, Attempts: attempt, Err: err}
		}
		lastErr = err

		if attempt >= c.maxRetries {
			break
		}
		c.log.Warn().Str("endpoint", endpoint).Int("attempt", attempt).Int("max_attempts", c.maxRetries).
			Dur("retry_in", delay).Err(err).Msg("ocr request failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.maxBackoff {
			delay = c.maxBackoff
		}
	}
	return nil, &RequestError{StatusCode: 0, Attempts: c.maxRetries, Err: lastErr}
}

// attempt performs one POST. status is the HTTP status when one was received.
func (c *Client) attempt(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	hreq, err := http.NewRequestWithContext(actx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(hreq)
	if err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, 0, fmt.Errorf("timeout after %s", c.timeout)
		}
		return nil, 0, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, resp.StatusCode, fmt.Errorf("timeout after %s", c.timeout)
		}
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, resp.StatusCode, fmt.Errorf("server error %d: %s", resp.StatusCode, errorDetail(body, resp.Status))
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("%d: %s", resp.StatusCode, errorDetail(body, resp.Status))
	}
	if !json.Valid(body) {
		// Not a client error: the server may be mid-restart behind a proxy.
		return nil, 0, fmt.Errorf("malformed JSON response")
	}
	return body, resp.StatusCode, nil
}

func errorDetail(body []byte, fallback string) string {
	var e types.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 256 {
		return s
	}
	return fallback
}

// Health reports whether GET /health answers 200 within five seconds.
func (c *Client) Health(ctx context.Context) bool {
	_, status, err := c.health(ctx)
	return err == nil && status == http.StatusOK
}

// HealthDetails returns the decoded health payload. A 503 with a valid
// payload is returned together with an error.
func (c *Client) HealthDetails(ctx context.Context) (types.HealthResponse, error) {
	h, status, err := c.health(ctx)
	if err != nil {
		return h, err
	}
	if status != http.StatusOK {
		return h, fmt.Errorf("health: status %d (%s)", status, h.Status)
	}
	return h, nil
}

func (c *Client) health(ctx context.Context) (types.HealthResponse, int, error) {
	var h types.HealthResponse
	hctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return h, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return h, 0, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, resp.StatusCode, fmt.Errorf("decode health: %w", err)
	}
	return h, resp.StatusCode, nil
}
