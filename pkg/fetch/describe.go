package fetch

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const maxSnippetLen = 512

// Describe summarizes a response body for error messages. HTML pages (gateway
// errors, captive portals) are reduced to their title.
func Describe(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "<empty>"
	}
	if looksLikeHTML(trimmed) {
		if title := htmlTitle(trimmed); title != "" {
			return fmt.Sprintf("html document %q", title)
		}
	}
	return snippet(trimmed)
}

func looksLikeHTML(body []byte) bool {
	if body[0] != '<' {
		return false
	}
	head := strings.ToLower(string(body[:min(len(body), 256)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") || strings.Contains(head, "<head")
}

func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// snippet cuts body at maxSnippetLen bytes without splitting a rune. Invalid
// UTF-8 is replaced so the result is always printable.
func snippet(body []byte) string {
	if len(body) <= maxSnippetLen {
		return strings.ToValidUTF8(string(body), "\uFFFD")
	}
	cut := maxSnippetLen
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return strings.ToValidUTF8(string(body[:cut]), "\uFFFD") + "..."
}
