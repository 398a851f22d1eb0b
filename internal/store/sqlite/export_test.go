package sqlite

import (
	"context"
	"reflect"
	"testing"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/store"
)

func TestEachPublishedPost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := mustCreateItem(t, s, &content.Item{
		Kind: content.KindPost, Title: "First", URL: "https://site.example/first",
		Categories: []string{"Zebra", "apple"},
	})
	mustCreateItem(t, s, &content.Item{Kind: content.KindPost, Status: content.StatusDraft, URL: "https://site.example/draft"})
	mustCreateItem(t, s, &content.Item{Kind: content.KindPage, URL: "https://site.example/page"})
	second := mustCreateItem(t, s, &content.Item{Kind: content.KindPost, Title: "Second", URL: "https://site.example/second"})

	var rows []store.ExportRow
	err := s.EachPublishedPost(ctx, func(r store.ExportRow) error {
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		t.Fatalf("EachPublishedPost: %v", err)
	}

	want := []store.ExportRow{
		{ID: first.ID, Title: "First", URL: "https://site.example/first", Categories: []string{"Zebra", "apple"}},
		{ID: second.ID, Title: "Second", URL: "https://site.example/second"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %+v\nwant %+v", rows, want)
	}
}

func TestEachPublishedPost_Empty(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	if err := s.EachPublishedPost(context.Background(), func(store.ExportRow) error { calls++; return nil }); err != nil {
		t.Fatalf("EachPublishedPost: %v", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestSetItemCategories_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	post := mustCreateItem(t, s, &content.Item{Kind: content.KindPost, URL: "https://site.example/p", Categories: []string{"News"}})

	if err := s.SetItemCategories(ctx, post.ID, []string{"news", " Tech ", ""}); err != nil {
		t.Fatalf("SetItemCategories: %v", err)
	}
	got, err := s.GetItem(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	// Existing category keeps its original spelling.
	if want := []string{"News", "Tech"}; !reflect.DeepEqual(got.Categories, want) {
		t.Errorf("categories = %v, want %v", got.Categories, want)
	}
}
