package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LoadFromURL fetches the configuration over HTTP. YAML is detected from
// the Content-Type or a .yaml/.yml path; anything else is parsed as JSONC.
// apiKey, when set, is sent as a Bearer token.
func LoadFromURL(ctx context.Context, rawURL, apiKey string) (*Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("config: create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("config: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config: HTTP %d: %s", resp.StatusCode, string(body))
	}

	asYAML := strings.Contains(resp.Header.Get("Content-Type"), "yaml")
	if u, err := url.Parse(rawURL); err == nil && isYAML(u.Path) {
		asYAML = true
	}
	cfg, err := parse(body, asYAML)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", rawURL, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
