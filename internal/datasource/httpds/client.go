// Package httpds fetches the survey export over HTTP with basic
// authentication.
//
// The client makes exactly one attempt per call. A response outside the 2xx
// range is returned as *StatusError and the body is not used; the caller must
// abort the run before touching the database.
package httpds

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds one fetch when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Minute

// maxErrorBody is how much of a non-2xx body StatusError keeps.
const maxErrorBody = 512

// Config configures the HTTP datasource client.
//
// Zero values are given defaults:
//   - Timeout: DefaultTimeout
type Config struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// BaseHeaders are added to every request. Per-request headers take
	// precedence.
	BaseHeaders http.Header

	// Transport is an optional custom RoundTripper. When nil, a default
	// *http.Transport is constructed from the TLS setting.
	Transport http.RoundTripper
}

// Credentials are the basic-auth pair for the export endpoint. An empty
// username sends no Authorization header.
type Credentials struct {
	Username string
	Password string
}

// StatusError is returned for any response outside 2xx.
type StatusError struct {
	Code   int
	Status string
	URL    string
	// Body holds the first bytes of the response, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: %s", e.URL, e.Status)
}

// Client wraps an http.Client.
type Client struct {
	httpClient  *http.Client
	baseHeaders http.Header
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	hdr := http.Header{}
	for k, vs := range cfg.BaseHeaders {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseHeaders: hdr,
	}
}

// Do sends one HTTP request. Non-2xx responses are returned as *StatusError
// with the body already closed; otherwise the caller must close the body.
func (c *Client) Do(
	ctx context.Context,
	method, url string,
	body []byte,
	headers http.Header,
	creds Credentials,
) (*http.Response, error) {
	if method == "" {
		return nil, fmt.Errorf("httpds: method must not be empty")
	}
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}

	// Apply base headers, then per-request headers (which override).
	for k, vs := range c.baseHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if creds.Username != "" {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpds: %s %s: %w", method, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			URL:    url,
			Body:   string(snippet),
		}
	}
	return resp, nil
}

// Get is a convenience wrapper over Do for HTTP GET. The caller must close
// the response body.
func (c *Client) Get(ctx context.Context, url string, headers http.Header, creds Credentials) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers, creds)
}

func csvAccept() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
	return h
}

// Source binds a Client to one URL and credential pair. It satisfies
// datasource.Source.
type Source struct {
	Client *Client
	URL    string
	Creds  Credentials
}

// Open performs the GET and returns the response body.
func (s Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.Client.Get(ctx, s.URL, csvAccept(), s.Creds)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
