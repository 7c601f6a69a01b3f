// Package extract turns links and document attachments into plain text the
// assistant can reason over.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

// maxFetchBytes bounds how much of a page is downloaded for extraction.
const maxFetchBytes = 8 << 20

// urlPattern matches the first http(s) URL inside a message body.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// FindFirstURL returns the first http(s) URL in text, or "".
func FindFirstURL(text string) string {
	raw := urlPattern.FindString(text)
	if raw == "" {
		return ""
	}
	// Trailing punctuation belongs to the sentence, not the link.
	raw = strings.TrimRight(raw, ".,;:!?)")
	if _, err := url.Parse(raw); err != nil {
		return ""
	}
	return raw
}

// Extractor fetches web pages and converts documents to text.
type Extractor struct {
	httpClient *http.Client
	logger     *slog.Logger

	// MaxContentLen caps extracted text so a single article cannot
	// flood the model context. Zero means no cap.
	MaxContentLen int
}

// New creates an Extractor with a bounded fetch timeout.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:        logger.With("component", "extract"),
		MaxContentLen: 20000,
	}
}

// ScrapeURL downloads the page and returns its readable text content.
func (e *Extractor) ScrapeURL(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.ParseRequestURI(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; botti/1.0)")

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxFetchBytes), parsed)
	if err != nil {
		return "", fmt.Errorf("extracting readable content from %s: %w", pageURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no readable content at %s", pageURL)
	}
	text = e.cap(text)

	e.logger.Debug("scraped page",
		"url", pageURL,
		"title", article.Title,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if article.Title != "" {
		return article.Title + "\n\n" + text, nil
	}
	return text, nil
}

// ConvertDocument turns a document attachment into text. Plain text and
// markdown pass through, HTML is converted to markdown, PDF and DOCX are
// unpacked to their text content, everything else is rejected with a
// descriptive error.
func (e *Extractor) ConvertDocument(filename, mimeType string, data []byte) (string, error) {
	kind := normalizeKind(filename, mimeType)
	switch kind {
	case "text", "markdown":
		return e.cap(strings.TrimSpace(string(data))), nil
	case "html":
		md, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("converting HTML document %q: %w", filename, err)
		}
		return e.cap(strings.TrimSpace(md)), nil
	case "pdf":
		text, err := convertPDF(data)
		if err != nil {
			return "", fmt.Errorf("converting PDF document %q: %w", filename, err)
		}
		return e.cap(text), nil
	case "docx":
		text, err := convertDOCX(data)
		if err != nil {
			return "", fmt.Errorf("converting DOCX document %q: %w", filename, err)
		}
		return e.cap(text), nil
	default:
		return "", fmt.Errorf("unsupported document type %q (%s)", mimeType, filename)
	}
}

// convertPDF extracts the plain text of all pages.
func convertPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading PDF: %w", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, text); err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("no extractable text in PDF")
	}
	return out, nil
}

// convertDOCX reads the main document part of the docx zip container and
// concatenates its text runs, one line per paragraph.
func convertDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening docx container: %w", err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx container has no word/document.xml")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("opening document part: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("no extractable text in docx")
	}
	return out, nil
}

func (e *Extractor) cap(s string) string {
	if e.MaxContentLen > 0 && len(s) > e.MaxContentLen {
		return s[:e.MaxContentLen] + "\n[content truncated]"
	}
	return s
}

func normalizeKind(filename, mimeType string) string {
	mt := mimeType
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	mt = strings.TrimSpace(strings.ToLower(mt))

	switch mt {
	case "text/plain":
		return "text"
	case "text/markdown":
		return "markdown"
	case "text/html", "application/xhtml+xml":
		return "html"
	case "application/pdf":
		return "pdf"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	}

	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".log"),
		strings.HasSuffix(lower, ".csv"):
		return "text"
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"):
		return "markdown"
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return "html"
	case strings.HasSuffix(lower, ".pdf"):
		return "pdf"
	case strings.HasSuffix(lower, ".docx"):
		return "docx"
	}
	return ""
}
