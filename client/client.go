// Package client provides a typed Go SDK for the tenantguard REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Tenant binding headers. Every request carries the tenant identity the
// service binds its isolation context from.
const (
	tenantIDHeader   = "x-tenant-id"
	tenantSlugHeader = "x-tenant-slug"
	actorIDHeader    = "x-actor-id"
)

// Client is the top-level tenantguard API client. All requests are made on
// behalf of the tenant set via WithTenant.
type Client struct {
	baseURL    string
	tenantID   string
	tenantSlug string
	actorID    string
	httpClient *http.Client

	Provisioning *ProvisioningService
	Audit        *AuditService
}

// Option configures a Client.
type Option func(*Client)

// WithTenant sets the tenant ID bound to every request.
func WithTenant(tenantID string) Option {
	return func(c *Client) { c.tenantID = tenantID }
}

// WithTenantSlug sets the optional tenant slug header.
func WithTenantSlug(slug string) Option {
	return func(c *Client) { c.tenantSlug = slug }
}

// WithActor sets the acting user ID sent with every request.
func WithActor(actorID string) Option {
	return func(c *Client) { c.actorID = actorID }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a tenantguard client for the given base URL (e.g. "http://localhost:3040").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	c.Provisioning = &ProvisioningService{c: c}
	c.Audit = &AuditService{c: c}
	return c
}

// Health returns the liveness check response.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/api/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do executes an HTTP request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	u := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenantID != "" {
		req.Header.Set(tenantIDHeader, c.tenantID)
	}
	if c.tenantSlug != "" {
		req.Header.Set(tenantSlugHeader, c.tenantSlug)
	}
	if c.actorID != "" {
		req.Header.Set(actorIDHeader, c.actorID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// get is a convenience wrapper for GET requests with query parameters.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post is a convenience wrapper for POST requests.
func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// del is a convenience wrapper for DELETE requests.
func (c *Client) del(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodDelete, path, nil, result)
}
