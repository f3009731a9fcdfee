// Package fetch performs HTTP calls against the reporting API with a
// bounded, classified retry policy. It never touches the result caches;
// that is the caller's concern.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	applog "planfact/internal/log"
)

const (
	// DefaultRetries is the number of additional attempts after the first
	// failure.
	DefaultRetries = 1
	// DefaultDelay is the fixed pause between attempts.
	DefaultDelay = 700 * time.Millisecond
)

// Options configure the retry policy for a fetcher.
type Options struct {
	// Retries is the number of additional attempts after the first failure.
	Retries int

	// Delay is the pause before each retry.
	Delay time.Duration

	// Backoff multiplies the delay after every retry when greater than 1.
	// The default policy is a fixed delay, no exponential growth.
	Backoff float64
}

// DefaultOptions returns the policy the dashboard has always used: one
// retry after roughly 700ms, no backoff.
func DefaultOptions() Options {
	return Options{Retries: DefaultRetries, Delay: DefaultDelay, Backoff: 1.0}
}

// Fetcher issues HTTP requests with the configured retry policy.
type Fetcher struct {
	client  *http.Client
	opts    Options
	headers map[string]string
}

// New creates a Fetcher. A nil client falls back to a client with a
// reasonable overall timeout.
func New(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	return &Fetcher{client: client, opts: opts, headers: map[string]string{}}
}

// SetHeader sets a header sent on every request, e.g. the visitor
// correlation id. The upstream treats these as opaque pass-through.
func (f *Fetcher) SetHeader(key, value string) {
	f.headers[key] = value
}

// GetJSON fetches url and decodes the 2xx body into out, retrying
// transient failures per the fetcher's options.
func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	body, _, err := f.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &MalformedDataError{URL: url, Err: err}
	}
	return nil
}

// GetRaw fetches url with the given Accept header and returns the raw 2xx
// body and response headers. Used for the PDF passthrough.
func (f *Fetcher) GetRaw(ctx context.Context, url, accept string) ([]byte, http.Header, error) {
	return f.get(ctx, url, accept)
}

// get runs the retry loop: up to Retries additional attempts, only for
// errors classified retryable, with a fixed (or multiplicatively growing)
// delay in between. The last error surfaces unchanged when attempts are
// exhausted.
func (f *Fetcher) get(ctx context.Context, url, accept string) ([]byte, http.Header, error) {
	attempt := 0
	delay := f.opts.Delay
	for {
		body, header, err := f.once(ctx, url, accept)
		if err == nil {
			return body, header, nil
		}
		if ctx.Err() != nil {
			return nil, nil, err
		}
		if !Retryable(err) || attempt >= f.opts.Retries {
			return nil, nil, err
		}
		attempt++
		slog.WarnContext(ctx, "Fetch failed, retrying",
			applog.FieldComponent, applog.ComponentFetch,
			"url", url,
			applog.FieldAttempt, attempt,
			"total_attempts", f.opts.Retries+1,
			"delay", delay,
			applog.FieldError, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, nil, &NetworkError{URL: url, Err: ctx.Err()}
		}
		if f.opts.Backoff > 1.0 {
			delay = time.Duration(float64(delay) * f.opts.Backoff)
		}
	}
}

func (f *Fetcher) once(ctx context.Context, url, accept string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", accept)
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, nil, &HTTPError{Status: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &NetworkError{URL: url, Err: err}
	}
	return body, resp.Header, nil
}
