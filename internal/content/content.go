// Package content defines the content-store model and the lookup contract
// the bulk tools consume.
package content

import (
	"context"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ID is the opaque numeric identifier assigned by the content store.
type ID int64

// String returns the decimal form of the identifier.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Kind distinguishes posts, pages and media attachments.
type Kind string

// Content kinds.
const (
	KindPost       Kind = "post"
	KindPage       Kind = "page"
	KindAttachment Kind = "attachment"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPost, KindPage, KindAttachment:
		return true
	}
	return false
}

// Status is the publication state of an item.
type Status string

// Publication states.
const (
	StatusPublish Status = "publish"
	StatusDraft   Status = "draft"
	StatusInherit Status = "inherit"
)

// Metadata keys written by the bulk tools. They match the keys the site's
// SEO plugin and media library read.
const (
	MetaImageAlt       = "_wp_attachment_image_alt"
	MetaSEOTitle       = "_yoast_wpseo_title"
	MetaSEODescription = "_yoast_wpseo_metadesc"
	MetaThumbnailID    = "_thumbnail_id"
)

// Item is a stored content item: a post, a page, or an attachment.
type Item struct {
	ID          ID
	Kind        Kind
	Status      Status
	Title       string
	Slug        string
	URL         string
	Body        string
	ThumbnailID ID
	Categories  []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Lookup is the set of content-store operations the bulk tools need.
// Resolve methods report found=false with a nil error when nothing matches.
type Lookup interface {
	ResolveAttachment(ctx context.Context, url string) (ID, bool, error)
	ResolvePage(ctx context.Context, url string) (ID, bool, error)
	ContentType(ctx context.Context, id ID) (Kind, error)
	ReadBody(ctx context.Context, id ID) (string, error)
	WriteBody(ctx context.Context, id ID, body string) error
	SetImageAlt(ctx context.Context, id ID, text string) error
	SetSEOTitle(ctx context.Context, id ID, text string) error
	SetSEODescription(ctx context.Context, id ID, text string) error
}

// ReferenceFinder narrows the set of bodies that may embed an attachment.
// The result is a heuristic bound, not a completeness guarantee.
type ReferenceFinder interface {
	FindReferencing(ctx context.Context, filename string, attachment ID) ([]ID, error)
}

// ClassToken returns the class token the editor stamps on embedded images.
func ClassToken(id ID) string {
	return "wp-image-" + id.String()
}

// FileName returns the normalised last path segment of a media URL, or ""
// when there is none. Search keys on it, so both sides must agree.
func FileName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return strings.ToLower(norm.NFC.String(base))
}
