package fetch

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stashd/stash/core"
)

const wordsPerMinute = 200

// Parse extracts metadata and readable content from an HTML document.
// finalURL is the URL the document was actually served from, after
// redirects; relative links resolve against it.
func Parse(html, finalURL string) (*core.ParsedContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	base, _ := url.Parse(finalURL)

	content := extractMainText(doc)

	parsed := &core.ParsedContent{
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		Content:     content,
		HTML:        Sanitize(html),
		FaviconURL:  resolveURL(base, extractFavicon(doc)),
		OGImageURL:  resolveURL(base, metaContent(doc, "og:image")),
		Domain:      core.ExtractDomain(finalURL),
		Language:    extractLanguage(doc),
		PublishedAt: extractPublishedAt(doc),
		ReadingTime: readingTime(content),
	}

	return parsed, nil
}

// readingTime estimates minutes to read, never less than one.
func readingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func extractTitle(doc *goquery.Document) string {
	if title := metaContent(doc, "og:title"); title != "" {
		return title
	}
	if title := metaContent(doc, "twitter:title"); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractDescription(doc *goquery.Document) string {
	if desc := metaContent(doc, "og:description"); desc != "" {
		return desc
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		return strings.TrimSpace(desc)
	}
	return ""
}

func extractFavicon(doc *goquery.Document) string {
	selectors := []string{
		`link[rel="icon"]`,
		`link[rel="shortcut icon"]`,
		`link[rel="apple-touch-icon"]`,
	}
	for _, sel := range selectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && href != "" {
			return href
		}
	}
	return "/favicon.ico"
}

func extractLanguage(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		return strings.TrimSpace(lang)
	}
	return ""
}

func extractPublishedAt(doc *goquery.Document) time.Time {
	candidates := []string{
		metaContent(doc, "article:published_time"),
		metaContent(doc, "og:published_time"),
	}
	if datetime, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		candidates = append(candidates, datetime)
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// extractMainText finds the document's main content region and returns its
// text. Falls back to the whole body with boilerplate regions removed.
func extractMainText(doc *goquery.Document) string {
	for _, sel := range []string{"article", "main", `[role="main"]`} {
		region := doc.Find(sel).First()
		if region.Length() > 0 {
			if text := collapseWhitespace(region.Text()); text != "" {
				return text
			}
		}
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, nav, header, footer, aside, form").Remove()
	return collapseWhitespace(body.Text())
}

// metaContent reads the content attribute of a meta tag matched by property
// or name.
func metaContent(doc *goquery.Document, key string) string {
	sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)
	if content, ok := doc.Find(sel).First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return ""
}

// resolveURL makes a possibly-relative reference absolute against base.
func resolveURL(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	if base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

// collapseWhitespace normalizes runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
