// Package main prints a summary of a bulkmeta database: users, content by
// kind and status, attachments still missing alt text, and recent runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/store"
	"github.com/listenupapp/bulkmeta/internal/store/sqlite"
)

var runLimit = flag.Int("runs", 10, "Number of recent runs to show")

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join("data", "bulkmeta.db")
	}
	if _, err := os.Stat(dbPath); err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	s, err := sqlite.Open(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	users, err := s.CountUsers(ctx)
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}
	fmt.Printf("Users: %d\n", users)

	counts := make(map[string]int)
	categories := make(map[string]int)
	var noAlt []*content.Item
	err = s.EachItem(ctx, func(item *content.Item) error {
		counts[string(item.Kind)+"/"+string(item.Status)]++
		for _, c := range item.Categories {
			categories[c]++
		}
		if item.Kind == content.KindAttachment {
			alt, ok, err := s.GetMeta(ctx, item.ID, content.MetaImageAlt)
			if err != nil {
				return err
			}
			if !ok || alt == "" {
				noAlt = append(noAlt, item)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan content: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Content ===")
	for _, key := range sortedKeys(counts) {
		fmt.Printf("  %-24s %d\n", key, counts[key])
	}

	if len(categories) > 0 {
		fmt.Println()
		fmt.Println("=== Categories ===")
		for _, name := range sortedKeys(categories) {
			fmt.Printf("  %-24s %d\n", name, categories[name])
		}
	}

	fmt.Println()
	fmt.Printf("=== Attachments without alt text (%d) ===\n", len(noAlt))
	for i, item := range noAlt {
		if i == 10 {
			fmt.Printf("  ... and %d more\n", len(noAlt)-10)
			break
		}
		fmt.Printf("  #%d %s\n", item.ID, item.URL)
	}

	runs, err := s.ListRuns(ctx, store.PaginationParams{Limit: *runLimit})
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Recent runs ===")
	if len(runs.Items) == 0 {
		fmt.Println("  (none)")
	}
	for _, run := range runs.Items {
		fmt.Printf("  %s  %-9s %-8s %s (%s)\n",
			run.StartedAt.Format("2006-01-02 15:04"), run.Tool, run.Severity, run.Filename, run.Duration().Round(time.Millisecond))
		fmt.Printf("      %s\n", strings.ReplaceAll(run.Message, "\n", " "))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
