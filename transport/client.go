// Package transport sends prepared catalog requests over HTTP.
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/broady/restcat"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 1 << 20
)

// Client sends restcat requests to one API base URL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Auth       AuthStrategy
	// Timeout bounds each call. Zero uses the default of 30s; a negative
	// value disables the per-call timeout.
	Timeout time.Duration
	// MaxBodyBytes caps how much of a response body is kept. Zero uses the
	// default of 1MB.
	MaxBodyBytes int64
}

// Response is the raw result of one call.
type Response struct {
	Status    int           `json:"status"`
	Header    http.Header   `json:"-"`
	Body      []byte        `json:"-"`
	Duration  time.Duration `json:"duration"`
	Truncated bool          `json:"truncated,omitempty"`
}

// New returns a client for baseURL.
func New(baseURL string, auth AuthStrategy) *Client {
	return &Client{
		BaseURL: baseURL,
		Auth:    auth,
	}
}

// WithInsecureSkipVerify makes c skip TLS certificate verification.
func (c *Client) WithInsecureSkipVerify() *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	c.HTTPClient = &http.Client{Transport: tr}
	return c
}

// Do sends req. Errors from building or sending the request are returned
// unchanged; any HTTP status, including 4xx and 5xx, is a Response.
func (c *Client) Do(ctx context.Context, req *restcat.Request) (*Response, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := req.HTTPRequest(ctx, c.BaseURL)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.Auth != nil {
		c.Auth.Apply(httpReq)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	out := &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Duration: time.Since(start),
	}
	if int64(len(body)) > limit {
		body = body[:limit]
		out.Truncated = true
	}
	out.Body = body
	return out, nil
}
