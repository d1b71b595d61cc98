// Package provider adapts hosted LLM APIs to the chat interface the
// ticket pipeline speaks.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

const defaultTimeout = 120 * time.Second

// Provider is the abstraction over LLM APIs.
type Provider interface {
	Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error)
	Name() string
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error (status %d): %s", e.Provider, e.Status, e.Body)
}

// Option configures any of the providers in this package.
type Option func(*endpoint)

// WithBaseURL points the provider at a different API root, e.g. a proxy
// or an OpenAI-compatible host.
func WithBaseURL(u string) Option {
	return func(e *endpoint) { e.baseURL = strings.TrimRight(u, "/") }
}

// WithModel sets the model used when a request does not name one.
func WithModel(model string) Option {
	return func(e *endpoint) { e.model = model }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *endpoint) { e.client = c }
}

// endpoint is the connection state shared by every provider: where to send
// requests, how to authenticate them and which model to default to.
type endpoint struct {
	name    string
	client  *http.Client
	baseURL string
	model   string
	headers map[string]string
}

func newEndpoint(name, baseURL, model string, headers map[string]string, opts []Option) endpoint {
	e := endpoint{
		name:    name,
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: baseURL,
		model:   model,
		headers: headers,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e *endpoint) Name() string { return e.name }

// modelFor picks the request's model, falling back to the default.
func (e *endpoint) modelFor(req protocol.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return e.model
}

// post sends in as JSON to baseURL+path and decodes a 200 response into out.
func (e *endpoint) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", e.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", e.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http request: %w", e.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", e.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: e.name, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", e.name, err)
	}
	return nil
}

// splitSystem lifts system messages out of the conversation, joining them
// with blank lines.
func splitSystem(msgs []protocol.ChatMessage) (string, []protocol.ChatMessage) {
	var system []string
	rest := make([]protocol.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// temperature returns nil for the zero value so the API default applies.
func temperature(t float64) *float64 {
	if t > 0 {
		return &t
	}
	return nil
}
