// Package transport executes HTTP exchanges for the load engine.
//
// The engine only depends on the Transport interface; the HTTP
// implementation here carries the connection-pool tuning a load
// generator needs. Transport-level failures (timeouts, refused
// connections) surface as errors, distinct from application status
// codes.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response is the outcome of a single exchange.
type Response struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// Transport executes one request/response exchange against the target
// system.
type Transport interface {
	Execute(ctx context.Context, method, path string, body []byte) (*Response, error)
}

// Config contains HTTP client tuning.
type Config struct {
	// Timeout bounds the whole exchange.
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle connections.
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections per host.
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits the total connections per host (0 = unlimited).
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept alive.
	IdleConnTimeout time.Duration

	// DisableKeepAlives disables HTTP keep-alives.
	DisableKeepAlives bool

	// InsecureSkipVerify skips TLS certificate verification.
	InsecureSkipVerify bool
}

// DefaultConfig returns sensible defaults for load generation.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     0,
		IdleConnTimeout:     90 * time.Second,
	}
}

// HTTPTransport is the production Transport. A single instance is
// shared by all virtual users so they draw from one connection pool.
type HTTPTransport struct {
	client  *http.Client
	baseURL string
}

// NewHTTP creates an HTTP transport targeting baseURL.
func NewHTTP(baseURL string, cfg Config) *HTTPTransport {
	t := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DisableKeepAlives:   cfg.DisableKeepAlives,
	}
	if cfg.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &HTTPTransport{
		client: &http.Client{
			Transport: t,
			Timeout:   cfg.Timeout,
		},
		baseURL: baseURL,
	}
}

// Execute performs the exchange and reads the full response body.
// A non-nil error means the exchange failed at the transport level; an
// application-level error status is reported through the Response.
func (t *HTTPTransport) Execute(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Elapsed:    elapsed,
	}, nil
}

// CloseIdleConnections releases pooled connections after a run.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}
