package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
	"github.com/dejobratic/ticketboard/internal/dashboard/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the backend API root used when none is configured.
const DefaultBaseURL = "http://localhost:5000/api"

const maxErrorBody = 64 << 10

// Client calls the backend analytics REST API. It performs no retries and
// sets no timeout of its own; calls are bounded only by the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ProcessedOrders(ctx context.Context) (domain.ProcessResponse, error) {
	var out domain.ProcessResponse
	if err := c.get(ctx, "process orders", "/process", &out); err != nil {
		return domain.ProcessResponse{}, err
	}
	return out, nil
}

func (c *Client) TopCustomers(ctx context.Context) (domain.TopCustomersResponse, error) {
	var out domain.TopCustomersResponse
	if err := c.get(ctx, "get top customers", "/customers/top", &out); err != nil {
		return domain.TopCustomersResponse{}, err
	}
	return out, nil
}

func (c *Client) UnusedBarcodes(ctx context.Context) (domain.UnusedBarcodesResponse, error) {
	var out domain.UnusedBarcodesResponse
	if err := c.get(ctx, "get unused barcodes", "/barcodes/unused", &out); err != nil {
		return domain.UnusedBarcodesResponse{}, err
	}
	return out, nil
}

// CustomerOrders returns every processed order of one customer.
func (c *Client) CustomerOrders(ctx context.Context, customerID int64) (domain.CustomerOrdersResponse, error) {
	var out domain.CustomerOrdersResponse
	path := "/orders/" + strconv.FormatInt(customerID, 10)
	if err := c.get(ctx, "get customer orders", path, &out); err != nil {
		return domain.CustomerOrdersResponse{}, err
	}
	return out, nil
}

// Ping checks that the backend root answers with a 2xx status.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "ping backend", "/", nil)
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ports.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ports.HTTPError{Op: op, Status: resp.StatusCode, Body: body}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ports.DecodeError{Op: op, Err: err}
	}
	return nil
}
