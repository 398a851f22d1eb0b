package batch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/csvrow"
	"github.com/listenupapp/bulkmeta/internal/domain"
)

const pageURL = "https://site.example/page"

func newSerpFixture(policy EmptyCellPolicy) (*fakeContent, *SerpTool) {
	f := newFakeContent()
	f.addPage(5, pageURL, "")
	_ = f.setMeta(5, content.MetaSEOTitle, "Old title")
	_ = f.setMeta(5, content.MetaSEODescription, "Old description")
	return f, NewSerpTool(f, policy, discardLogger())
}

func TestSerp_EmptyTitleCell(t *testing.T) {
	tests := []struct {
		name      string
		policy    EmptyCellPolicy
		wantTitle string
	}{
		{name: "clear resets the title", policy: EmptyCellsClear, wantTitle: ""},
		{name: "keep leaves the title", policy: EmptyCellsKeep, wantTitle: "Old title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, tool := newSerpFixture(tt.policy)

			res := tool.Run(context.Background(), rowsOf(
				"url,new_title,new_description",
				pageURL+", , New description",
			))

			assert.Equal(t, 1, res.Updated)
			assert.Empty(t, res.Diagnostics)
			title, _ := f.metaValue(5, content.MetaSEOTitle)
			desc, _ := f.metaValue(5, content.MetaSEODescription)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, "New description", desc)
		})
	}
}

func TestSerp_BothCellsEmpty(t *testing.T) {
	t.Run("keep warns and writes nothing", func(t *testing.T) {
		f, tool := newSerpFixture(EmptyCellsKeep)

		res := tool.Run(context.Background(), rowsOf("h,t,d", pageURL+",,"))

		assert.Equal(t, 1, res.Warned)
		assert.Zero(t, res.Updated)
		require.Len(t, res.Diagnostics, 1)
		assert.Contains(t, res.Diagnostics[0], "ID 5")
		title, _ := f.metaValue(5, content.MetaSEOTitle)
		assert.Equal(t, "Old title", title)
	})

	t.Run("clear resets both", func(t *testing.T) {
		f, tool := newSerpFixture(EmptyCellsClear)

		res := tool.Run(context.Background(), rowsOf("h,t,d", pageURL+",,"))

		assert.Equal(t, 1, res.Updated)
		assert.Zero(t, res.Warned)
		title, _ := f.metaValue(5, content.MetaSEOTitle)
		desc, _ := f.metaValue(5, content.MetaSEODescription)
		assert.Empty(t, title)
		assert.Empty(t, desc)
	})
}

func TestSerp_RowOutcomes(t *testing.T) {
	f, tool := newSerpFixture(EmptyCellsClear)
	longURL := "https://site.example/" + strings.Repeat("a", 80)

	res := tool.Run(context.Background(), rowsOf(
		"url;new_title;new_description",
		pageURL+";Title;Desc",
		pageURL+";only two",
		"nope;t;d",
		longURL+";t;d",
	))

	assert.Equal(t, domain.ToolSERP, res.Tool)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.NotFound)
	require.Len(t, res.Diagnostics, 3)
	assert.Contains(t, res.Diagnostics[0], "Line 3: invalid format")
	assert.Contains(t, res.Diagnostics[1], "Line 4: invalid or empty URL ('nope')")
	assert.Contains(t, res.Diagnostics[2], "'"+longURL[:50]+"…'")
	assert.NotContains(t, res.Diagnostics[2], longURL)

	// Short rows never reach the lookup.
	assert.Equal(t, 2, f.lookups)
}

func TestSerp_SanitizesFields(t *testing.T) {
	f, tool := newSerpFixture(EmptyCellsClear)

	res := tool.Run(context.Background(), rowsOf(
		"url,new_title,new_description",
		pageURL+`,"<b>Big</b>   news &amp; more","Line one  <br>
  line   two"`,
	))

	require.Equal(t, 1, res.Updated)
	title, _ := f.metaValue(5, content.MetaSEOTitle)
	desc, _ := f.metaValue(5, content.MetaSEODescription)
	assert.Equal(t, "Big news & more", title)
	assert.Equal(t, "Line one\nline two", desc)
}

func TestSerp_StoreFailure(t *testing.T) {
	f, tool := newSerpFixture(EmptyCellsClear)
	f.failMeta = true

	res := tool.Run(context.Background(), rowsOf("h,t,d", pageURL+",a,b"))

	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Updated)
}

func TestParseSerpTask(t *testing.T) {
	row := csvrow.Row{Line: 2, Fields: []string{pageURL, "", "Desc"}}

	cleared := ParseSerpTask(row, EmptyCellsClear)
	require.NotNil(t, cleared.Title)
	assert.Equal(t, "", *cleared.Title)
	require.NotNil(t, cleared.Description)

	kept := ParseSerpTask(row, EmptyCellsKeep)
	assert.Nil(t, kept.Title)
	require.NotNil(t, kept.Description)
	assert.Equal(t, "Desc", *kept.Description)
}

func TestNewSerpTool_UnknownPolicyClears(t *testing.T) {
	tool := NewSerpTool(newFakeContent(), "bogus", discardLogger())
	assert.Equal(t, EmptyCellsClear, tool.Policy())
}
