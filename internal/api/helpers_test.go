package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bulkmeta/internal/auth"
	"github.com/listenupapp/bulkmeta/internal/batch"
	"github.com/listenupapp/bulkmeta/internal/config"
	"github.com/listenupapp/bulkmeta/internal/content"
	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/metrics"
	"github.com/listenupapp/bulkmeta/internal/notice"
	"github.com/listenupapp/bulkmeta/internal/search"
	"github.com/listenupapp/bulkmeta/internal/service"
	"github.com/listenupapp/bulkmeta/internal/store/sqlite"
)

type testServer struct {
	*Server
	store   *sqlite.Store
	metrics *metrics.Metrics
	tokens  map[domain.Role]string
}

type serverOption func(*service.BulkConfig)

func withoutSEOPlugin(c *service.BulkConfig) { c.SEOPluginActive = false }

func setupTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dir, "search"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	st.SetSearchIndexer(idx)

	mb, err := notice.Open(notice.Options{InMemory: true, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mb.Close() })

	key, err := auth.LoadOrGenerateKey(filepath.Join(dir, "keys", "access.key"))
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute)
	require.NoError(t, err)

	uploads := filepath.Join(dir, "uploads")
	require.NoError(t, os.MkdirAll(uploads, 0o755))

	bulkCfg := service.BulkConfig{
		MaxUploadBytes:  config.DefaultMaxUploadBytes,
		SEOPluginActive: true,
		SerpEmptyCells:  batch.EmptyCellsClear,
		TempDir:         uploads,
	}
	for _, o := range opts {
		o(&bulkCfg)
	}

	m := metrics.New()
	services := &Services{
		Auth:    service.NewAuthService(st, tokens, logger),
		Bulk:    service.NewBulkService(st, idx, mb, nil, m, nil, bulkCfg, logger),
		Content: service.NewContentService(st, idx, logger),
		Runs:    service.NewRunService(st),
		Search:  idx,
	}

	srv := NewServer(st, services, m, Options{
		Name:           "bulkmeta test",
		MaxUploadBytes: bulkCfg.MaxUploadBytes,
	}, logger)

	ts := &testServer{Server: srv, store: st, metrics: m, tokens: map[domain.Role]string{}}
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleEditor, domain.RoleViewer} {
		ts.tokens[role] = ts.login(t, role)
	}
	return ts
}

// login creates an account with the role and returns its bearer token.
func (ts *testServer) login(t *testing.T, role domain.Role) string {
	t.Helper()
	ctx := context.Background()
	email := string(role) + "@site.example"

	_, err := ts.services.Auth.CreateUser(ctx, service.CreateUserRequest{
		Email:    email,
		Password: "correct horse battery",
		Role:     role,
	})
	require.NoError(t, err)

	resp, err := ts.services.Auth.Login(ctx, service.LoginRequest{Email: email, Password: "correct horse battery"})
	require.NoError(t, err)
	return resp.AccessToken
}

func (ts *testServer) createItem(t *testing.T, item *content.Item) *content.Item {
	t.Helper()
	require.NoError(t, ts.store.CreateItem(context.Background(), item))
	return item
}

func (ts *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return ts.do(t, method, path, token, body, "application/json")
}

// upload posts a multipart form with one file part.
func (ts *testServer) upload(t *testing.T, tool, token, filename, partType, csvBody string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", partType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(csvBody))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return ts.do(t, http.MethodPost, "/api/v1/tools/"+tool, token, &buf, mw.FormDataContentType())
}

// envelope is the decoded response wrapper.
type envelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.Equal(t, 1, env.Version, rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, into))
}
