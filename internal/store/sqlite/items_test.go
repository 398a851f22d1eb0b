package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/store"
)

type recordingIndexer struct {
	indexed []*content.Item
}

func (r *recordingIndexer) IndexItem(_ context.Context, item *content.Item) error {
	r.indexed = append(r.indexed, item)
	return nil
}

func (r *recordingIndexer) DeleteItem(context.Context, content.ID) error { return nil }

func TestCreateAndGetItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := mustCreateItem(t, s, &content.Item{
		Kind: content.KindAttachment,
		URL:  "https://site.example/wp-content/uploads/cat.jpg",
	})
	post := mustCreateItem(t, s, &content.Item{
		Kind:        content.KindPost,
		Title:       "Cats",
		URL:         "https://site.example/cats/",
		Body:        `<img class="wp-image-1">`,
		ThumbnailID: img.ID,
		Categories:  []string{"Pets", "Animals", "pets"},
	})

	if img.Status != content.StatusInherit {
		t.Errorf("attachment status = %q, want inherit", img.Status)
	}

	got, err := s.GetItem(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Title != "Cats" || got.Status != content.StatusPublish || got.ThumbnailID != img.ID {
		t.Errorf("unexpected item: %+v", got)
	}
	if want := []string{"Animals", "Pets"}; !reflect.DeepEqual(got.Categories, want) {
		t.Errorf("categories = %v, want %v", got.Categories, want)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestCreateItem_DuplicateURL(t *testing.T) {
	s := newTestStore(t)

	mustCreateItem(t, s, &content.Item{Kind: content.KindPage, URL: "https://site.example/about/"})
	err := s.CreateItem(context.Background(), &content.Item{Kind: content.KindPage, URL: "https://site.example/about/"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Same URL under another kind is allowed.
	mustCreateItem(t, s, &content.Item{Kind: content.KindPost, URL: "https://site.example/about/"})
}

func TestCreateItem_InvalidKind(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateItem(context.Background(), &content.Item{Kind: "product", URL: "https://site.example/x"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetItem(context.Background(), 99); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveAttachment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := mustCreateItem(t, s, &content.Item{Kind: content.KindAttachment, URL: "https://site.example/img/cat.jpg"})
	mustCreateItem(t, s, &content.Item{Kind: content.KindPost, URL: "https://site.example/img/dog.jpg"})

	id, found, err := s.ResolveAttachment(ctx, " https://site.example/img/cat.jpg ")
	if err != nil || !found || id != img.ID {
		t.Errorf("ResolveAttachment = (%d, %v, %v), want (%d, true, nil)", id, found, err, img.ID)
	}

	// Posts are never attachments.
	if _, found, _ := s.ResolveAttachment(ctx, "https://site.example/img/dog.jpg"); found {
		t.Error("post resolved as attachment")
	}
	if _, found, _ := s.ResolveAttachment(ctx, "https://site.example/img/cat-300x200.jpg"); found {
		t.Error("resized variant should not resolve")
	}
}

func TestResolvePage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	page := mustCreateItem(t, s, &content.Item{Kind: content.KindPage, URL: "https://site.example/about/"})
	post := mustCreateItem(t, s, &content.Item{Kind: content.KindPost, URL: "https://site.example/2024/hello"})
	img := mustCreateItem(t, s, &content.Item{Kind: content.KindAttachment, URL: "https://site.example/logo.png"})

	tests := []struct {
		url   string
		want  content.ID
		found bool
	}{
		{"https://site.example/about/", page.ID, true},
		{"https://site.example/about", page.ID, true},
		{"https://site.example/about/#team", page.ID, true},
		{"https://site.example/2024/hello/", post.ID, true},
		{"https://site.example/2024/hello?utm_source=x", post.ID, true},
		{"https://site.example/?p=" + post.ID.String(), post.ID, true},
		{"https://site.example/?page_id=" + page.ID.String(), page.ID, true},
		{"https://site.example/?p=" + img.ID.String(), 0, false},
		{"https://site.example/?p=abc", 0, false},
		{"https://site.example/logo.png", 0, false},
		{"https://site.example/missing/", 0, false},
	}
	for _, tt := range tests {
		id, found, err := s.ResolvePage(ctx, tt.url)
		if err != nil {
			t.Errorf("ResolvePage(%q): %v", tt.url, err)
			continue
		}
		if found != tt.found || id != tt.want {
			t.Errorf("ResolvePage(%q) = (%d, %v), want (%d, %v)", tt.url, id, found, tt.want, tt.found)
		}
	}
}

func TestContentType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	page := mustCreateItem(t, s, &content.Item{Kind: content.KindPage, URL: "https://site.example/a"})

	kind, err := s.ContentType(ctx, page.ID)
	if err != nil || kind != content.KindPage {
		t.Errorf("ContentType = (%q, %v), want page", kind, err)
	}
	if _, err := s.ContentType(ctx, 1234); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadWriteBody_Reindexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	idx := &recordingIndexer{}
	s.SetSearchIndexer(idx)

	post := mustCreateItem(t, s, &content.Item{Kind: content.KindPost, URL: "https://site.example/p", Body: "old"})

	if err := s.WriteBody(ctx, post.ID, "new body"); err != nil {
		t.Fatalf("WriteBody: %v", err)
	}
	body, err := s.ReadBody(ctx, post.ID)
	if err != nil || body != "new body" {
		t.Errorf("ReadBody = (%q, %v)", body, err)
	}

	if len(idx.indexed) != 2 {
		t.Fatalf("indexed %d times, want 2", len(idx.indexed))
	}
	if idx.indexed[1].Body != "new body" {
		t.Errorf("reindexed body = %q", idx.indexed[1].Body)
	}

	if err := s.WriteBody(ctx, 999, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ReadBody(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMeta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := mustCreateItem(t, s, &content.Item{Kind: content.KindAttachment, URL: "https://site.example/a.jpg"})
	page := mustCreateItem(t, s, &content.Item{Kind: content.KindPage, URL: "https://site.example/p"})

	if _, ok, _ := s.GetMeta(ctx, img.ID, content.MetaImageAlt); ok {
		t.Fatal("alt should be unset")
	}

	if err := s.SetImageAlt(ctx, img.ID, "first"); err != nil {
		t.Fatalf("SetImageAlt: %v", err)
	}
	if err := s.SetImageAlt(ctx, img.ID, "second"); err != nil {
		t.Fatalf("SetImageAlt: %v", err)
	}
	if v, ok, _ := s.GetMeta(ctx, img.ID, content.MetaImageAlt); !ok || v != "second" {
		t.Errorf("alt = (%q, %v), want second", v, ok)
	}

	if err := s.SetSEOTitle(ctx, page.ID, "Title"); err != nil {
		t.Fatalf("SetSEOTitle: %v", err)
	}
	if err := s.SetSEODescription(ctx, page.ID, ""); err != nil {
		t.Fatalf("SetSEODescription: %v", err)
	}
	if v, ok, _ := s.GetMeta(ctx, page.ID, content.MetaSEOTitle); !ok || v != "Title" {
		t.Errorf("title = (%q, %v)", v, ok)
	}
	if v, ok, _ := s.GetMeta(ctx, page.ID, content.MetaSEODescription); !ok || v != "" {
		t.Errorf("description = (%q, %v), want set and empty", v, ok)
	}

	if err := s.SetImageAlt(ctx, 777, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEachItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c"} {
		mustCreateItem(t, s, &content.Item{Kind: content.KindPost, URL: "https://site.example/" + u})
	}

	var urls []string
	err := s.EachItem(ctx, func(it *content.Item) error {
		urls = append(urls, it.URL)
		return nil
	})
	if err != nil {
		t.Fatalf("EachItem: %v", err)
	}
	want := []string{"https://site.example/a", "https://site.example/b", "https://site.example/c"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("urls = %v, want %v", urls, want)
	}

	stop := errors.New("stop")
	calls := 0
	err = s.EachItem(ctx, func(*content.Item) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("EachItem did not stop: err=%v calls=%d", err, calls)
	}
}

func TestGetItemsByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateItem(t, s, &content.Item{Kind: content.KindPost, URL: "https://site.example/a"})
	b := mustCreateItem(t, s, &content.Item{Kind: content.KindPost, URL: "https://site.example/b"})

	items, err := s.GetItemsByIDs(ctx, []content.ID{b.ID, 404, a.ID})
	if err != nil {
		t.Fatalf("GetItemsByIDs: %v", err)
	}
	if len(items) != 2 || items[0].ID != a.ID || items[1].ID != b.ID {
		t.Errorf("unexpected items: %+v", items)
	}

	items, err = s.GetItemsByIDs(ctx, nil)
	if err != nil || items != nil {
		t.Errorf("empty ids = (%v, %v)", items, err)
	}
}
