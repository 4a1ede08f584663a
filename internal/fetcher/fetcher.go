package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ErrorKind classifies a fetch failure for retry and logging decisions.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindConnection  ErrorKind = "connection"
	KindHTTPClient  ErrorKind = "http-4xx"
	KindHTTPServer  ErrorKind = "http-5xx"
	KindRateLimited ErrorKind = "rate-limited"
)

// Error is a typed fetch failure. It never escapes as a panic; callers
// inspect Kind to decide whether the cycle should retry.
type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s (status %d)", e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying within the same cycle.
func (e *Error) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindHTTPServer || e.Kind == KindRateLimited
}

// CacheToken carries the validators from the previous successful fetch.
type CacheToken struct {
	ETag         string
	LastModified string
	BodyHash     string
}

// Result is the outcome of a successful fetch. NotModified means the server
// (or the body hash) confirmed the payload has not changed; Body is nil then.
type Result struct {
	NotModified bool
	Body        []byte
	Token       CacheToken
}

// Client fetches the oil price payload with conditional requests.
type Client struct {
	URL        string
	HTTP       *http.Client
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient creates a fetch client with optional proxy support.
func NewClient(endpoint, proxyURL string, timeout time.Duration, maxRetries int) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		URL: endpoint,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		MaxRetries: maxRetries,
		RetryDelay: time.Second,
	}
}

// Fetch performs a conditional GET, retrying transient failures with linear
// backoff. Permanent failures (4xx other than 429) are returned immediately.
func (c *Client) Fetch(ctx context.Context, prior CacheToken) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.RetryDelay
			log.Printf("[WARN] fetch attempt %d/%d failed: %v, retrying in %v", attempt, c.MaxRetries+1, lastErr, backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		res, err := c.fetchOnce(ctx, prior)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var fe *Error
		if !errors.As(err, &fe) || !fe.Transient() {
			return nil, err
		}
	}
	return nil, fmt.Errorf("all %d fetch attempts exhausted: %w", c.MaxRetries+1, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, prior CacheToken) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Err: err}
	}
	req.Header.Set("User-Agent", "OilSentinel/1.0")
	req.Header.Set("Accept", "application/json")
	if prior.ETag != "" {
		req.Header.Set("If-None-Match", prior.ETag)
	}
	if prior.LastModified != "" {
		req.Header.Set("If-Modified-Since", prior.LastModified)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &Result{NotModified: true, Token: prior}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimited, Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindHTTPServer, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Kind: KindHTTPClient, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Err: err}
	}

	hash := HashBody(body)
	if prior.BodyHash != "" && hash == prior.BodyHash {
		// Server resent an identical payload; treat as unchanged.
		return &Result{NotModified: true, Token: prior}, nil
	}

	token := CacheToken{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		BodyHash:     hash,
	}
	return &Result{Body: body, Token: token}, nil
}

// HashBody returns a short content fingerprint used for change detection.
func HashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])[:16]
}

func classifyTransportError(err error) *Error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindConnection, Err: err}
}
