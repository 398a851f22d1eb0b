package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/listenupapp/bulkmeta/internal/content"
)

// maxCandidates bounds a single candidate lookup.
const maxCandidates = 10000

// FindReferencing returns published posts and pages whose body embeds an
// image with the given filename or the attachment's class token, plus posts
// that use the attachment as featured image. IDs are ascending.
//
// This is a narrowing step. A body that references the image only through a
// differently named URL is not returned.
func (s *SearchIndex) FindReferencing(ctx context.Context, filename string, attachment content.ID) ([]content.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []query.Query
	if name := content.FileName(filename); name != "" {
		refs = append(refs, termQuery("filenames", name))
	}
	if attachment != 0 {
		refs = append(refs,
			termQuery("class_tokens", strings.ToLower(content.ClassToken(attachment))),
			termQuery("thumbnail_id", attachment.String()),
		)
	}
	if len(refs) == 0 {
		return nil, nil
	}

	q := bleve.NewConjunctionQuery(
		bleve.NewDisjunctionQuery(refs...),
		termQuery("status", string(content.StatusPublish)),
		bleve.NewDisjunctionQuery(
			termQuery("kind", string(content.KindPost)),
			termQuery("kind", string(content.KindPage)),
		),
	)

	req := bleve.NewSearchRequestOptions(q, maxCandidates, 0, false)
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("find referencing: %w", err)
	}

	ids := make([]content.ID, 0, len(res.Hits))
	for _, hit := range res.Hits {
		n, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping non-numeric document id", "id", hit.ID)
			continue
		}
		ids = append(ids, content.ID(n))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if res.Total > uint64(len(res.Hits)) {
		s.logger.Warn("candidate lookup truncated",
			"filename", filename,
			"attachment_id", int64(attachment),
			"total", res.Total,
			"returned", len(res.Hits),
		)
	}
	return ids, nil
}

func termQuery(field, term string) *query.TermQuery {
	q := bleve.NewTermQuery(term)
	q.SetField(field)
	return q
}

// SearchParams configures a content search.
type SearchParams struct {
	Query  string         // Free text matched against title and body
	Kinds  []content.Kind // Kinds to include (empty = all)
	Limit  int
	Offset int
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is a single matching item.
type SearchHit struct {
	ID         content.ID        `json:"id"`
	Kind       content.Kind      `json:"kind"`
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search runs a free-text query over titles and bodies.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	req.Fields = []string{"id", "kind", "title", "url"}
	if params.Query != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
	} else {
		req.SortBy([]string{"-updated_at"})
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		n, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		h := SearchHit{ID: content.ID(n), Score: hit.Score}
		if v, ok := hit.Fields["kind"].(string); ok {
			h.Kind = content.Kind(v)
		}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["url"].(string); ok {
			h.URL = v
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if params.Query != "" {
		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		textMatch := bleve.NewMatchQuery(params.Query)
		textMatch.SetField("text")

		// Fuzzy matching for typo tolerance on titles
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(params.Query))
		fuzzy.SetField("title")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.5)

		queries = append(queries, bleve.NewDisjunctionQuery(titleMatch, textMatch, fuzzy))
	}

	if len(params.Kinds) > 0 {
		kinds := make([]query.Query, len(params.Kinds))
		for i, k := range params.Kinds {
			kinds[i] = termQuery("kind", string(k))
		}
		queries = append(queries, bleve.NewDisjunctionQuery(kinds...))
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}
