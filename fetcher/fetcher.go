// Package fetcher downloads feed payloads over HTTP with a bounded timeout.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single feed download
	DefaultTimeout = 15 * time.Second
	// DefaultUserAgent identifies the sync service to feed publishers
	DefaultUserAgent = "IOPPS-FeedSync/1.0"
	// DefaultAccept advertises the payload types feeds are expected to publish
	DefaultAccept = "application/rss+xml, application/xml, text/xml, */*"
	// DefaultMaxBodyBytes caps how much of a response body is read
	DefaultMaxBodyBytes int64 = 20 << 20
)

// Error is returned for every failed fetch: invalid URL, network failure,
// timeout, or a non-2xx response.
type Error struct {
	URL        string
	StatusCode int
	Status     string
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the fetch was cancelled by its deadline
func (e *Error) Timeout() bool {
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}

// IsHTTPStatus reports whether the server answered with a non-2xx status
func (e *Error) IsHTTPStatus() bool {
	return e.StatusCode != 0
}

// Result is a successfully downloaded payload
type Result struct {
	URL        string
	Body       string
	StatusCode int
	Duration   time.Duration
}

// Options configures a Fetcher
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Accept       string
	MaxBodyBytes int64
}

// DefaultOptions returns the production fetch settings
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		Accept:       DefaultAccept,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Fetcher performs feed downloads. It holds no per-request state and is safe for concurrent use.
type Fetcher struct {
	client *http.Client
	opts   Options
}

// New creates a Fetcher; zero-valued options fall back to the defaults
func New(opts *Options) *Fetcher {
	resolved := *DefaultOptions()
	if opts != nil {
		if opts.Timeout > 0 {
			resolved.Timeout = opts.Timeout
		}
		if opts.UserAgent != "" {
			resolved.UserAgent = opts.UserAgent
		}
		if opts.Accept != "" {
			resolved.Accept = opts.Accept
		}
		if opts.MaxBodyBytes > 0 {
			resolved.MaxBodyBytes = opts.MaxBodyBytes
		}
	}

	return &Fetcher{
		client: &http.Client{},
		opts:   resolved,
	}
}

// Timeout returns the per-fetch deadline
func (f *Fetcher) Timeout() time.Duration {
	return f.opts.Timeout
}

// Fetch issues a GET for rawURL. The timeout cancels only this request.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", f.opts.Accept)
	req.Header.Set("User-Agent", f.opts.UserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		message := "request failed"
		switch {
		case parent.Err() != nil:
			message = "request cancelled"
			err = parent.Err()
		case ctx.Err() == context.DeadlineExceeded:
			message = fmt.Sprintf("request timed out after %s", f.opts.Timeout)
			err = context.DeadlineExceeded
		}
		return nil, &Error{URL: rawURL, Message: message, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := statusReason(resp)
		return nil, &Error{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Status:     reason,
			Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, reason),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}

	return &Result{
		URL:        rawURL,
		Body:       string(body),
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}, nil
}

// statusReason returns the reason phrase the server sent, or the standard one
func statusReason(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
