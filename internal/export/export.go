// Package export writes the published-posts CSV download.
package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/listenupapp/bulkmeta/internal/store"
)

// UTF-8 byte order mark, so spreadsheet tools pick the right encoding.
const bom = "\ufeff"

// Header is the first line of every export.
var Header = []string{"ID", "Title", "URL", "Categories"}

// Source streams published posts in ID order.
type Source interface {
	EachPublishedPost(ctx context.Context, fn func(store.ExportRow) error) error
}

// Filename returns the download name for an export taken at t.
func Filename(t time.Time) string {
	return "posts_with_categories-" + t.Format("2006-01-02-150405") + ".csv"
}

// WritePosts writes the BOM, the header and one row per published post. It
// returns the number of data rows written.
func WritePosts(ctx context.Context, w io.Writer, src Source) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return 0, err
	}

	cw := csv.NewWriter(bw)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}

	n := 0
	err := src.EachPublishedPost(ctx, func(row store.ExportRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		return cw.Write([]string{
			row.ID.String(),
			row.Title,
			row.URL,
			strings.Join(row.Categories, ", "),
		})
	})
	if err != nil {
		return n, fmt.Errorf("export posts: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, err
	}
	return n, bw.Flush()
}
