// Package main seeds a database with demo content for trying the bulk
// tools: attachments, posts and pages that embed them, categories, and a
// matching pair of sample CSV files.
//
// Usage:
//
//	DB_PATH=./data/bulkmeta.db go run ./cmd/seed
//	go run ./cmd/seed -db-path ./data/bulkmeta.db -posts 50 -csv-dir ./samples
//	go run ./cmd/seed -create-editor editor@site.example
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/auth"
	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/id"
	"github.com/listenupapp/bulkmeta/internal/store/sqlite"
)

var (
	dbPath       = flag.String("db-path", "", "SQLite database path (default: $DB_PATH or ./data/bulkmeta.db)")
	siteURL      = flag.String("site-url", "https://site.example", "Site URL used to build item URLs")
	postCount    = flag.Int("posts", 20, "Number of posts to create")
	csvDir       = flag.String("csv-dir", "", "Write sample alt-text and SERP CSV files to this directory")
	createEditor = flag.String("create-editor", "", "Also create an editor account with this email (password: changeme123)")
)

var (
	subjects   = []string{"cat", "dog", "harbour", "mountain", "espresso", "bicycle", "lighthouse", "garden"}
	categories = []string{"News", "Travel", "Food", "Pets", "Tips"}
)

func main() {
	flag.Parse()

	path := *dbPath
	if path == "" {
		path = os.Getenv("DB_PATH")
	}
	if path == "" {
		path = filepath.Join("data", "bulkmeta.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	fmt.Printf("Opening database at: %s\n", path)

	s, err := sqlite.Open(path, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	base := strings.TrimRight(*siteURL, "/")

	if *createEditor != "" {
		createEditorUser(ctx, s, *createEditor)
	}

	attachments := make([]*content.Item, 0, len(subjects))
	for _, subj := range subjects {
		att := &content.Item{
			Kind:   content.KindAttachment,
			Status: content.StatusInherit,
			Title:  subj,
			URL:    fmt.Sprintf("%s/wp-content/uploads/2024/05/%s.jpg", base, subj),
		}
		if err := s.CreateItem(ctx, att); err != nil {
			log.Fatalf("Failed to create attachment %s: %v", subj, err)
		}
		attachments = append(attachments, att)
	}
	fmt.Printf("Created %d attachments\n", len(attachments))

	for n := 1; n <= *postCount; n++ {
		att := attachments[rand.IntN(len(attachments))]
		kind := content.KindPost
		if n%5 == 0 {
			kind = content.KindPage
		}
		status := content.StatusPublish
		if n%7 == 0 {
			status = content.StatusDraft
		}

		item := &content.Item{
			Kind:        kind,
			Status:      status,
			Title:       fmt.Sprintf("A story about the %s, part %d", att.Title, n),
			Slug:        fmt.Sprintf("%s-story-%d", att.Title, n),
			URL:         fmt.Sprintf("%s/%s-story-%d/", base, att.Title, n),
			Body:        demoBody(att, n),
			ThumbnailID: att.ID,
		}
		if kind == content.KindPost {
			item.Categories = pickCategories()
		}
		if err := s.CreateItem(ctx, item); err != nil {
			log.Fatalf("Failed to create item %d: %v", n, err)
		}
	}
	fmt.Printf("Created %d posts and pages\n", *postCount)

	if *csvDir != "" {
		if err := writeSamples(*csvDir, base, attachments); err != nil {
			log.Fatalf("Failed to write sample CSVs: %v", err)
		}
		fmt.Printf("Wrote sample CSV files to %s\n", *csvDir)
	}

	fmt.Println("Done!")
}

// demoBody alternates between class-token embeds, sized URL embeds and
// lazy-loaded embeds so both match strategies get exercised.
func demoBody(att *content.Item, n int) string {
	var img string
	switch n % 3 {
	case 0:
		img = fmt.Sprintf(`<img class="alignnone size-full wp-image-%d" src="%s" width="800" height="600" />`, att.ID, att.URL)
	case 1:
		img = fmt.Sprintf(`<img src="%s" alt="">`, strings.TrimSuffix(att.URL, ".jpg")+"-300x200.jpg")
	default:
		img = fmt.Sprintf(`<img data-src="%s" src="data:image/gif;base64,R0lGODlhAQABAAAAACw=" class="lazyload">`, att.URL)
	}
	return fmt.Sprintf("<!-- wp:paragraph -->\n<p>Notes on the %s, entry %d.</p>\n<!-- /wp:paragraph -->\n<!-- wp:image -->\n<figure class=\"wp-block-image\">%s</figure>\n<!-- /wp:image -->", att.Title, n, img)
}

func pickCategories() []string {
	n := 1 + rand.IntN(2)
	picked := make([]string, 0, n)
	for _, i := range rand.Perm(len(categories))[:n] {
		picked = append(picked, categories[i])
	}
	return picked
}

func writeSamples(dir, base string, attachments []*content.Item) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	alt := [][]string{{"image_url", "alt_text"}}
	for _, att := range attachments {
		alt = append(alt, []string{att.URL, "A photo of a " + att.Title})
	}
	alt = append(alt, []string{base + "/wp-content/uploads/missing.jpg", "This row is reported as not found"})
	if err := writeCSV(filepath.Join(dir, "alt-text.csv"), alt); err != nil {
		return err
	}

	serp := [][]string{
		{"url", "new_title", "new_description"},
		{fmt.Sprintf("%s/%s-story-1/", base, attachments[0].Title), "Our first story", "Where it all began."},
		{base + "/no-such-page/", "Missing", "This row is reported as not found"},
	}
	return writeCSV(filepath.Join(dir, "serp.csv"), serp)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func createEditorUser(ctx context.Context, s *sqlite.Store, email string) {
	hash, err := auth.HashPassword("changeme123")
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	user := &domain.User{
		ID:           id.MustGenerate(id.PrefixUser),
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         domain.RoleEditor,
		DisplayName:  "Demo editor",
	}
	if err := s.CreateUser(ctx, user); err != nil {
		log.Fatalf("Failed to create editor %s: %v", email, err)
	}
	fmt.Printf("Created editor %s\n", email)
}
