package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/rs/zerolog"

	"github.com/user/dbbuddy/internal/types"
)

const (
	userAgent    = "dbbuddy/1.0"
	maxErrorBody = 1000
)

// StatusError is a non-success HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// RateLimitError is a 429 response. RetryAfter is zero when the server did
// not say how long to wait.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("429 Too Many Requests (retry after %s)", e.RetryAfter)
}

// Transport performs GET requests for one backend with optional throttling
// and the single 429 retry.
type Transport struct {
	backend types.Backend
	client  *http.Client
	limiter *Limiter
	retry   *RetryPolicy
	log     zerolog.Logger
}

// NewTransport creates a Transport. limiter may be nil.
func NewTransport(backend types.Backend, timeout time.Duration, limiter *Limiter, log zerolog.Logger) *Transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transport{
		backend: backend,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		retry:   DefaultRetryPolicy(),
		log:     log.With().Str("backend", string(backend)).Logger(),
	}
}

// Get fetches rawURL and returns the body and response headers.
func (t *Transport) Get(ctx context.Context, rawURL, accept string) ([]byte, http.Header, error) {
	var body []byte
	var header http.Header
	err := t.retry.Execute(ctx, func() error {
		var err error
		body, header, err = t.getOnce(ctx, rawURL, accept)
		var rl *RateLimitError
		if errors.As(err, &rl) {
			t.log.Warn().Str("url", rawURL).Dur("retry_after", rl.RetryAfter).Msg("rate limited")
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return body, header, nil
}

func (t *Transport) getOnce(ctx context.Context, rawURL, accept string) ([]byte, http.Header, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Warn().Str("url", rawURL).Err(err).Msg("request failed")
		return nil, nil, fmt.Errorf("%s request: %w", t.backend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	t.log.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("request")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Body:       cleanBody(resp.Header.Get("Content-Type"), body),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, nil, &StatusError{Code: resp.StatusCode, Body: cleanBody(resp.Header.Get("Content-Type"), body)}
	}
	return body, resp.Header, nil
}

// parseRetryAfter accepts either delay-seconds (fractions allowed) or an
// HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// cleanBody turns an error body into short readable text, converting HTML
// error pages to markdown.
func cleanBody(contentType string, body []byte) string {
	text := strings.TrimSpace(string(body))
	if strings.Contains(contentType, "html") || strings.HasPrefix(text, "<") {
		if md, err := htmltomarkdown.ConvertString(text); err == nil {
			text = strings.TrimSpace(md)
		}
	}
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}

// FailureFor converts a request error into a Failure for query.
func FailureFor(query string, err error) types.Failure {
	return types.NewFailure(query, err.Error())
}
