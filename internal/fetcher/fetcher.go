package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pbaille/melune/internal/logging"
)

const (
	maxBodySize = 5 * 1024 * 1024
	maxTextSize = 10 * 1024
)

// Page is the readable part of a fetched web page
type Page struct {
	URL   string
	Title string
	Text  string
}

// Content formats the page as notebook entry content
func (p Page) Content() string {
	if p.Title == "" {
		return p.Text + "\n\n" + p.URL
	}
	return p.Title + "\n\n" + p.Text + "\n\n" + p.URL
}

// Fetcher downloads pages to save them as notebook entries
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// New creates a Fetcher with the given request timeout
func New(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch retrieves URL content and extracts readable text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "www.") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "melune/1.0 (notebook)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	title, text := extract(string(body))
	if text == "" {
		return nil, fmt.Errorf("no text content found")
	}

	f.logger.Debug("Fetched page",
		zap.String("url", u.String()),
		zap.String("title", logging.TruncateString(title, 80)),
		zap.Int("bytes", len(body)),
		zap.Int("text_len", len(text)),
	)
	return &Page{URL: u.String(), Title: title, Text: text}, nil
}

// IsURL checks if a string looks like a URL
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}

// extract parses HTML and returns the page title and readable body text
func extract(htmlContent string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", ""
	}

	var sb strings.Builder

	// non-content elements
	skipTags := map[string]bool{
		"script": true, "style": true, "nav": true,
		"header": true, "footer": true, "aside": true,
		"noscript": true, "iframe": true, "title": true,
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && title == "" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
		}
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	text = strings.Join(strings.Fields(sb.String()), " ")
	if len(text) > maxTextSize {
		text = text[:maxTextSize] + "..."
	}
	return title, strings.TrimSpace(text)
}
