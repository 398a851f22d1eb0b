package csvrow

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, input string) ([]Row, []error) {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var rows []Row
	var errs []error
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, errs
		}
		if err != nil {
			require.ErrorIs(t, err, ErrMalformedRow)
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', DetectDelimiter("url;alt"))
	assert.Equal(t, ',', DetectDelimiter("url,alt"))
	assert.Equal(t, ',', DetectDelimiter("url"))
	assert.Equal(t, ';', DetectDelimiter(`"a,b";c`))
}

func TestReader_SkipsHeaderAndNumbersLines(t *testing.T) {
	input := "image_url,alt_text\n" +
		"https://site.example/a.jpg, First \n" +
		"https://site.example/b.jpg,\"Second, with comma\"\n"

	rows, errs := readAll(t, input)

	require.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, []string{"https://site.example/a.jpg", "First"}, rows[0].Fields)
	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, "Second, with comma", rows[1].Field(1))
}

func TestReader_SemicolonDelimiter(t *testing.T) {
	input := "url;title;description\r\n" +
		"https://site.example/page;Title, with comma;Desc\r\n"

	r := NewReader(strings.NewReader(input))
	row, err := r.Next()

	require.NoError(t, err)
	assert.Equal(t, ';', r.Delimiter())
	assert.Equal(t, []string{"url", "title", "description"}, r.Header())
	assert.Equal(t, []string{"https://site.example/page", "Title, with comma", "Desc"}, row.Fields)
}

func TestReader_HeaderIsAlwaysDiscarded(t *testing.T) {
	// A header that looks like data is still dropped.
	input := "https://site.example/a.jpg,Looks like data\nhttps://site.example/b.jpg,Real\n"

	rows, _ := readAll(t, input)

	require.Len(t, rows, 1)
	assert.Equal(t, "https://site.example/b.jpg", rows[0].Field(0))
}

func TestReader_EmptyAndHeaderOnly(t *testing.T) {
	for _, input := range []string{"", "url,alt", "url,alt\n"} {
		rows, errs := readAll(t, input)
		assert.Empty(t, rows, "%q", input)
		assert.Empty(t, errs, "%q", input)
	}
}

func TestReader_BOMHeader(t *testing.T) {
	input := "\ufeffurl;alt\nhttps://site.example/a.jpg;Alt\n"

	r := NewReader(strings.NewReader(input))
	row, err := r.Next()

	require.NoError(t, err)
	assert.Equal(t, "url", r.Header()[0])
	assert.Equal(t, "Alt", row.Field(1))
}

func TestReader_ShortRows(t *testing.T) {
	input := "url,alt\nhttps://site.example/a.jpg\n"

	rows, _ := readAll(t, input)

	require.Len(t, rows, 1)
	err := rows[0].Require(2)
	require.ErrorIs(t, err, ErrTooFewColumns)
	assert.Contains(t, err.Error(), "expected 2, got 1")
	assert.NoError(t, rows[0].Require(1))
	assert.Equal(t, "", rows[0].Field(5))
}

func TestReader_Latin1Fields(t *testing.T) {
	// "Café é ótimo" in ISO-8859-1.
	input := "url,alt\nhttps://site.example/a.jpg,Caf\xe9 \xe9 \xf3timo\n"

	rows, _ := readAll(t, input)

	require.Len(t, rows, 1)
	assert.Equal(t, "Café é ótimo", rows[0].Field(1))
}

func TestNormalizeField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"utf8 passthrough", "  Ação  ", "Ação"},
		{"latin1", "S\xe3o Paulo", "São Paulo"},
		{"windows-1252 quotes", "\x93quoted\x94", "“quoted”"},
		{"undefined cp1252 byte falls back", "a\x81b", "a\u0081b"},
		{"bom", "\ufeffvalue", "value"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeField(tt.in))
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestReader_FatalReadError(t *testing.T) {
	r := NewReader(failingReader{})

	_, err := r.Next()

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedRow)
	assert.NotErrorIs(t, err, io.EOF)
}
