package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// SearchResult is one scraped web search hit. Snippet holds the extracted
// page text, or an error note when that page could not be read.
type SearchResult struct {
	URL     string
	Snippet string
}

// searchEndpoint is the DuckDuckGo HTML (no-JS) frontend. Overridable in
// tests.
var searchEndpoint = "https://html.duckduckgo.com/html/"

// resultLinkPattern matches result anchors on the HTML frontend.
var resultLinkPattern = regexp.MustCompile(`class="result__a"[^>]*href="([^"]+)"`)

// Search runs a web search and scrapes the top results. A single result
// failing to scrape degrades to an error snippet instead of failing the
// whole search.
func (e *Extractor) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 3
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		searchEndpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; botti/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	links := extractResultLinks(string(body), maxResults)
	if len(links) == 0 {
		return nil, fmt.Errorf("no results for %q", query)
	}

	results := make([]SearchResult, 0, len(links))
	for _, link := range links {
		text, err := e.ScrapeURL(ctx, link)
		if err != nil {
			results = append(results, SearchResult{
				URL:     link,
				Snippet: fmt.Sprintf("Failed to scrape: %v", err),
			})
			continue
		}
		results = append(results, SearchResult{URL: link, Snippet: text})
	}
	return results, nil
}

// FormatSearchResults renders results as prompt-ready text.
func FormatSearchResults(results []SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%s]\n%s", r.URL, r.Snippet)
	}
	return sb.String()
}

// extractResultLinks pulls up to max result URLs out of the search page.
// The frontend wraps targets in a redirect with the real URL in the uddg
// parameter.
func extractResultLinks(page string, max int) []string {
	var links []string
	for _, m := range resultLinkPattern.FindAllStringSubmatch(page, -1) {
		link := resolveRedirect(m[1])
		if link == "" {
			continue
		}
		links = append(links, link)
		if len(links) >= max {
			break
		}
	}
	return links
}

func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return href
	}
	return ""
}
