// Package transport provides the outbound HTTP client used by the catalog
// adapters.
//
// Provider endpoints may be unreachable directly (CORS-restricted or
// geo-blocked), so the client can forward requests through an ordered
// chain of public proxy endpoints. The fallback policy is internal: the
// adapters just see a status and a body, and a call through the chain may
// take longer or fail outright.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Response is the raw result of one forwarded call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client issues provider requests, falling back across forwarding
// endpoints on transport failures and gateway errors.
type Client struct {
	httpClient *http.Client
	proxies    []string
}

// NewClient creates a Client. A nil httpClient uses [http.DefaultClient];
// an empty proxy list means direct requests.
func NewClient(httpClient *http.Client, proxies []string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, proxies: proxies}
}

// Do performs one request. With a proxy chain configured, each endpoint is
// tried in order until one yields a non-gateway response.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	if len(c.proxies) == 0 {
		return c.send(ctx, method, rawURL, header, body)
	}

	var lastErr error
	for i, proxy := range c.proxies {
		target := proxy + url.QueryEscape(rawURL)
		resp, err := c.send(ctx, method, target, header, body)
		if err != nil {
			lastErr = fmt.Errorf("proxy %d: %w", i+1, err)
			continue
		}
		// Gateway errors usually mean the proxy itself is broken; a 4xx is
		// a real provider answer and must be surfaced as-is.
		if resp.Status >= 500 && i < len(c.proxies)-1 {
			lastErr = fmt.Errorf("proxy %d: status %d", i+1, resp.Status)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("all forwarding endpoints failed: %w", lastErr)
}

func (c *Client) send(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
