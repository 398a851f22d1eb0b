package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/content"
)

// siteLookup resolves site-relative row URLs ("/about/") against the
// configured site URL before handing them to the store.
type siteLookup struct {
	content.Lookup
	base *url.URL
}

func newSiteLookup(lookup content.Lookup, siteURL string) content.Lookup {
	if siteURL == "" {
		return lookup
	}
	base, err := url.Parse(strings.TrimRight(siteURL, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return lookup
	}
	return &siteLookup{Lookup: lookup, base: base}
}

func (l *siteLookup) absolute(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return l.base.ResolveReference(ref).String()
}

func (l *siteLookup) ResolveAttachment(ctx context.Context, raw string) (content.ID, bool, error) {
	return l.Lookup.ResolveAttachment(ctx, l.absolute(raw))
}

func (l *siteLookup) ResolvePage(ctx context.Context, raw string) (content.ID, bool, error) {
	return l.Lookup.ResolvePage(ctx, l.absolute(raw))
}
