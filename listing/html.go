package listing

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExcerptFromHTML flattens a rich-text body into plain text so the free-text
// filter only ever matches words a visitor can actually see. Truncation lands
// on a word boundary.
func ExcerptFromHTML(body string, maxLen int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}

	cut := strings.LastIndex(text[:maxLen], " ")
	if cut <= 0 {
		cut = maxLen
	}
	return strings.TrimSpace(text[:cut]) + "…"
}
