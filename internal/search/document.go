// Package search keeps a Bleve index of content items. It answers two
// questions: which bodies may embed a given image (candidate narrowing for
// the alt-text tool) and free-text lookups for the content admin API.
package search

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/listenupapp/bulkmeta/internal/content"
)

// SearchDocument is the indexed form of a content item.
//
// Filenames and class tokens are pulled out of the body so that candidate
// lookups are exact term queries rather than substring scans.
type SearchDocument struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Title  string `json:"title"`
	URL    string `json:"url"`

	// Text is a plain-text rendering of the body for full-text search.
	Text string `json:"text,omitempty"`

	// Filenames of every image source in the body, plus the unsized
	// original for generated variants (cat-300x200.jpg adds cat.jpg).
	Filenames []string `json:"filenames,omitempty"`

	// ClassTokens are the wp-image-<id> tokens found on images.
	ClassTokens []string `json:"class_tokens,omitempty"`

	ThumbnailID string `json:"thumbnail_id,omitempty"`

	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to the field names used by the mapping.
func (d *SearchDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"kind":       d.Kind,
		"status":     d.Status,
		"title":      d.Title,
		"url":        d.URL,
		"updated_at": d.UpdatedAt,
	}
	if d.Text != "" {
		m["text"] = d.Text
	}
	if len(d.Filenames) > 0 {
		m["filenames"] = d.Filenames
	}
	if len(d.ClassTokens) > 0 {
		m["class_tokens"] = d.ClassTokens
	}
	if d.ThumbnailID != "" {
		m["thumbnail_id"] = d.ThumbnailID
	}
	return m
}

// ItemToSearchDocument builds the index document for an item.
func ItemToSearchDocument(item *content.Item) *SearchDocument {
	doc := &SearchDocument{
		ID:        item.ID.String(),
		Kind:      string(item.Kind),
		Status:    string(item.Status),
		Title:     item.Title,
		URL:       item.URL,
		UpdatedAt: item.UpdatedAt.UnixMilli(),
	}
	if item.ThumbnailID != 0 {
		doc.ThumbnailID = item.ThumbnailID.String()
	}
	if item.Body != "" {
		doc.Filenames, doc.ClassTokens = imageTerms(item.Body)
		doc.Text = bodyText(item.Body)
	}
	return doc
}

var sizeSuffix = regexp.MustCompile(`-(?:\d+x\d+|scaled)(\.[^.]+)$`)

// imageTerms walks the body's start tags and collects image filenames and
// class tokens. Malformed markup is tolerated by the tokenizer.
func imageTerms(body string) (filenames, tokens []string) {
	seenFile := map[string]bool{}
	seenToken := map[string]bool{}
	addFile := func(name string) {
		if name != "" && !seenFile[name] {
			seenFile[name] = true
			filenames = append(filenames, name)
		}
	}

	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return filenames, tokens
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if tok.Data != "img" {
			continue
		}
		for _, a := range tok.Attr {
			switch {
			case a.Key == "src" || strings.HasSuffix(a.Key, "-src"):
				name := content.FileName(a.Val)
				addFile(name)
				if m := sizeSuffix.FindStringSubmatchIndex(name); m != nil {
					addFile(name[:m[0]] + name[m[2]:m[3]])
				}
			case a.Key == "class":
				for _, f := range strings.Fields(a.Val) {
					f = strings.ToLower(f)
					if strings.HasPrefix(f, "wp-image-") && !seenToken[f] {
						seenToken[f] = true
						tokens = append(tokens, f)
					}
				}
			}
		}
	}
}

// bodyText renders a body as Markdown for the text field. Conversion
// failures fall back to the raw body.
func bodyText(body string) string {
	md, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return body
	}
	return strings.TrimSpace(md)
}
