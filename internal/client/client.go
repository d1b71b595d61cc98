// Package client is the HTTP transport to the ticket backend.
//
// Every call either succeeds or returns an error; nothing is retried.
// Generate carries no client-side timeout: the pipeline behind it can take
// minutes and only the transport's own limits apply.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// DefaultBaseURL is where the daemon listens unless configured otherwise.
const DefaultBaseURL = "http://localhost:8000"

var (
	// ErrNotFound is matched by a 404 StatusError.
	ErrNotFound = errors.New("not found")
	// ErrMalformed wraps response bodies that do not decode into the expected shape.
	ErrMalformed = errors.New("malformed response")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Client talks to the backend's /api endpoints.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the backend root, e.g. http://localhost:8000.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAPIKey sends key as a Bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{},
		baseURL: DefaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Generate submits a brain dump and returns the generated ticket.
func (c *Client) Generate(ctx context.Context, brainDump string) (*protocol.GenerateResult, error) {
	var res protocol.GenerateResult
	if err := c.do(ctx, http.MethodPost, "/api/generate", protocol.GenerateRequest{BrainDump: brainDump}, &res); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("client: generate: %w: %v", ErrMalformed, err)
	}
	return &res, nil
}

// ListTickets returns every ticket in backend order.
func (c *Client) ListTickets(ctx context.Context) ([]protocol.Ticket, error) {
	var tickets []protocol.Ticket
	if err := c.do(ctx, http.MethodGet, "/api/tickets", nil, &tickets); err != nil {
		return nil, err
	}
	for i := range tickets {
		if err := tickets[i].Validate(); err != nil {
			return nil, fmt.Errorf("client: list tickets: %w: entry %d: %v", ErrMalformed, i, err)
		}
	}
	if tickets == nil {
		tickets = []protocol.Ticket{}
	}
	return tickets, nil
}

// DeleteTicket removes the ticket identified by summary.
func (c *Client) DeleteTicket(ctx context.Context, summary string) error {
	return c.do(ctx, http.MethodDelete, "/api/tickets/"+url.PathEscape(summary), nil, nil)
}

// FetchTrace returns the provenance of one ticket. A missing trace
// yields an error matching ErrNotFound, an empty body ErrMalformed.
func (c *Client) FetchTrace(ctx context.Context, summary string) (*protocol.Trace, error) {
	var tr protocol.Trace
	if err := c.do(ctx, http.MethodGet, "/api/traces/"+url.PathEscape(summary), nil, &tr); err != nil {
		return nil, err
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("client: fetch trace: %w: %v", ErrMalformed, err)
	}
	return &tr, nil
}

// FetchContext returns the project context document.
func (c *Client) FetchContext(ctx context.Context) (*protocol.ContextDocument, error) {
	var doc protocol.ContextDocument
	if err := c.do(ctx, http.MethodGet, "/api/context", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveContext replaces the project context document wholesale.
func (c *Client) SaveContext(ctx context.Context, doc protocol.ContextDocument) error {
	return c.do(ctx, http.MethodPost, "/api/context", doc, nil)
}

// LogQuery selects daemon log records. Zero fields use the server defaults.
type LogQuery struct {
	Level    string
	Since    time.Time
	Limit    int
	Contains string
}

// Logs returns recent daemon log records, oldest first.
func (c *Client) Logs(ctx context.Context, q LogQuery) ([]protocol.LogEntry, error) {
	v := url.Values{}
	if q.Level != "" {
		v.Set("level", q.Level)
	}
	if !q.Since.IsZero() {
		v.Set("since", q.Since.Format(time.RFC3339))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Contains != "" {
		v.Set("q", q.Contains)
	}
	path := "/api/logs"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var entries []protocol.LogEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []protocol.LogEntry{}
	}
	return entries, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	c.logger.Debug("api response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("client: %s %s: %w: %v", method, path, ErrMalformed, err)
	}
	return nil
}
