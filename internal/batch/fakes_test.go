package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/csvrow"
)

var errStore = errors.New("store unavailable")

// fakeContent is an in-memory content.Lookup and content.ReferenceFinder.
// The finder returns every body that exists, which is the widest valid
// narrowing.
type fakeContent struct {
	attachments map[string]content.ID
	pages       map[string]content.ID
	kinds       map[content.ID]content.Kind
	bodies      map[content.ID]string
	meta        map[content.ID]map[string]string

	lookups    int
	bodyWrites int
	failMeta   bool
	failFind   bool
}

func newFakeContent() *fakeContent {
	return &fakeContent{
		attachments: map[string]content.ID{},
		pages:       map[string]content.ID{},
		kinds:       map[content.ID]content.Kind{},
		bodies:      map[content.ID]string{},
		meta:        map[content.ID]map[string]string{},
	}
}

func (f *fakeContent) addAttachment(id content.ID, url string) {
	f.attachments[url] = id
	f.kinds[id] = content.KindAttachment
}

func (f *fakeContent) addPage(id content.ID, url, body string) {
	f.pages[url] = id
	f.kinds[id] = content.KindPage
	f.bodies[id] = body
}

func (f *fakeContent) metaValue(id content.ID, key string) (string, bool) {
	v, ok := f.meta[id][key]
	return v, ok
}

func (f *fakeContent) ResolveAttachment(_ context.Context, url string) (content.ID, bool, error) {
	f.lookups++
	id, ok := f.attachments[url]
	return id, ok, nil
}

func (f *fakeContent) ResolvePage(_ context.Context, url string) (content.ID, bool, error) {
	f.lookups++
	id, ok := f.pages[url]
	return id, ok, nil
}

func (f *fakeContent) ContentType(_ context.Context, id content.ID) (content.Kind, error) {
	return f.kinds[id], nil
}

func (f *fakeContent) ReadBody(_ context.Context, id content.ID) (string, error) {
	return f.bodies[id], nil
}

func (f *fakeContent) WriteBody(_ context.Context, id content.ID, body string) error {
	f.bodyWrites++
	f.bodies[id] = body
	return nil
}

func (f *fakeContent) setMeta(id content.ID, key, value string) error {
	if f.failMeta {
		return errStore
	}
	if f.meta[id] == nil {
		f.meta[id] = map[string]string{}
	}
	f.meta[id][key] = value
	return nil
}

func (f *fakeContent) SetImageAlt(_ context.Context, id content.ID, text string) error {
	return f.setMeta(id, content.MetaImageAlt, text)
}

func (f *fakeContent) SetSEOTitle(_ context.Context, id content.ID, text string) error {
	return f.setMeta(id, content.MetaSEOTitle, text)
}

func (f *fakeContent) SetSEODescription(_ context.Context, id content.ID, text string) error {
	return f.setMeta(id, content.MetaSEODescription, text)
}

func (f *fakeContent) FindReferencing(context.Context, string, content.ID) ([]content.ID, error) {
	if f.failFind {
		return nil, errStore
	}
	ids := make([]content.ID, 0, len(f.bodies))
	for id := range f.bodies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// rowsOf returns a csv reader over the given file contents.
func rowsOf(lines ...string) RowSource {
	return csvrow.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

// scriptedRows replays fixed rows and errors.
type scriptedRows struct {
	steps []step
}

type step struct {
	row csvrow.Row
	err error
}

func (s *scriptedRows) Next() (csvrow.Row, error) {
	if len(s.steps) == 0 {
		return csvrow.Row{}, io.EOF
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st.row, st.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
