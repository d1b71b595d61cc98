// Package pagefetch downloads a web page and reduces it to readable text,
// for importing project documentation as the generation context.
package pagefetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	// MaxTextSize caps the extracted text.
	MaxTextSize  = 50 * 1024
	fetchTimeout = 30 * time.Second
	userAgent    = "guardianctl/1.0"
)

// ErrEmptyPage is returned when a page yields no text.
var ErrEmptyPage = errors.New("pagefetch: page has no readable text")

// Page is the readable content of a fetched URL.
type Page struct {
	URL       string
	Title     string
	Text      string
	Truncated bool
}

// Words counts whitespace-separated words in the text.
func (p *Page) Words() int {
	return len(strings.Fields(p.Text))
}

// Document renders the page as a context document: title and source
// followed by the text.
func (p *Page) Document() string {
	var sb strings.Builder
	if p.Title != "" {
		fmt.Fprintf(&sb, "# %s\n", p.Title)
	}
	fmt.Fprintf(&sb, "Source: %s\n\n%s", p.URL, strings.TrimSpace(p.Text))
	return sb.String()
}

// Fetcher retrieves pages.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher. A nil client gets a 30s-timeout default.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{client: client}
}

// Fetch downloads rawURL. HTML is run through readability; other text
// content is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("pagefetch: url is required")
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, fmt.Errorf("pagefetch: invalid URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("pagefetch: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pagefetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pagefetch: HTTP %d", resp.StatusCode)
	}

	page := &Page{URL: rawURL}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxTextSize+1))
		if err != nil {
			return nil, fmt.Errorf("pagefetch: read: %w", err)
		}
		page.Text = string(body)
	} else {
		article, err := readability.FromReader(resp.Body, parsedURL)
		if err != nil {
			return nil, fmt.Errorf("pagefetch: parse: %w", err)
		}
		var textBuf bytes.Buffer
		if err := article.RenderText(&textBuf); err != nil {
			return nil, fmt.Errorf("pagefetch: render: %w", err)
		}
		page.Title = strings.TrimSpace(article.Title())
		page.Text = textBuf.String()
	}

	if len(page.Text) > MaxTextSize {
		page.Text = page.Text[:MaxTextSize]
		page.Truncated = true
	}
	if strings.TrimSpace(page.Text) == "" {
		return nil, ErrEmptyPage
	}
	return page, nil
}
