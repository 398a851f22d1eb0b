// Package csvrow reads uploaded CSV files one row at a time, normalising
// every field to trimmed UTF-8.
package csvrow

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const bom = "\ufeff"

var (
	// ErrMalformedRow marks a line the CSV parser could not read. It is
	// row-level: the caller records it and keeps reading.
	ErrMalformedRow = errors.New("malformed row")

	// ErrTooFewColumns is returned by Row.Require.
	ErrTooFewColumns = errors.New("too few columns")
)

// Row is one decoded data row.
type Row struct {
	// Line is the 1-based physical line the row starts on. The header is
	// line 1.
	Line   int
	Fields []string
}

// Require checks that the row has at least n fields.
func (r Row) Require(n int) error {
	if len(r.Fields) < n {
		return fmt.Errorf("%w: expected %d, got %d", ErrTooFewColumns, n, len(r.Fields))
	}
	return nil
}

// Field returns the i-th field, or "" when the row is shorter.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// DetectDelimiter picks the field separator from the header line: ';' when
// present, otherwise ','.
func DetectDelimiter(header string) rune {
	if strings.Contains(header, ";") {
		return ';'
	}
	return ','
}

// NormalizeField returns s as trimmed, valid UTF-8. Input that is not UTF-8
// is decoded as Windows-1252, falling back to ISO-8859-1 when that yields
// unmapped bytes. It never fails.
func NormalizeField(s string) string {
	s = strings.TrimPrefix(s, bom)
	if !utf8.ValidString(s) {
		s = transcodeLegacy(s)
	}
	return strings.TrimSpace(s)
}

func transcodeLegacy(s string) string {
	if out, err := charmap.Windows1252.NewDecoder().String(s); err == nil && !strings.ContainsRune(out, utf8.RuneError) {
		return out
	}
	if out, err := charmap.ISO8859_1.NewDecoder().String(s); err == nil {
		return out
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

// Reader yields the data rows of a CSV file. The first physical line is the
// header: it selects the delimiter and is never returned as a row.
type Reader struct {
	src       *bufio.Reader
	csv       *csv.Reader
	header    string
	delimiter rune
	started   bool
}

// NewReader returns a Reader over r. Nothing is read until the first call to
// Next.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: bufio.NewReader(r)}
}

// Delimiter returns the detected separator. It is zero before the first
// call to Next.
func (r *Reader) Delimiter() rune {
	return r.delimiter
}

// Header returns the raw header fields, normalised.
func (r *Reader) Header() []string {
	if r.header == "" {
		return nil
	}
	parts := strings.Split(r.header, string(r.delimiter))
	for i, p := range parts {
		parts[i] = NormalizeField(strings.Trim(p, `"`))
	}
	return parts
}

func (r *Reader) start() error {
	r.started = true

	line, err := r.src.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read header: %w", err)
	}
	r.header = strings.TrimRight(strings.TrimPrefix(line, bom), "\r\n")
	r.delimiter = DetectDelimiter(r.header)

	r.csv = csv.NewReader(r.src)
	r.csv.Comma = r.delimiter
	r.csv.FieldsPerRecord = -1
	r.csv.LazyQuotes = true

	if line == "" {
		return io.EOF
	}
	return nil
}

// Next returns the next data row. It returns io.EOF after the last row. An
// error wrapping ErrMalformedRow is row-level and Next may be called again;
// any other error is fatal for the file.
func (r *Reader) Next() (Row, error) {
	if !r.started {
		if err := r.start(); err != nil {
			return Row{}, err
		}
	}
	if r.csv == nil {
		return Row{}, io.EOF
	}

	record, err := r.csv.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			line := perr.StartLine + 1
			return Row{Line: line}, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, perr.Err)
		}
		return Row{}, err
	}

	line, _ := r.csv.FieldPos(0)
	fields := make([]string, len(record))
	for i, f := range record {
		fields[i] = NormalizeField(f)
	}
	return Row{Line: line + 1, Fields: fields}, nil
}
