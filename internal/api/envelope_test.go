package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/bulkmeta/internal/errors"
	"github.com/listenupapp/bulkmeta/internal/http/response"
	"github.com/listenupapp/bulkmeta/internal/store"
)

func marshalMap(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestEnvelopeTransformer_Success(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "200", map[string]string{"id": "run-1"})
	require.NoError(t, err)

	out := marshalMap(t, result)
	assert.InDelta(t, 1, out["v"], 0)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, map[string]any{"id": "run-1"}, out["data"])
	assert.NotContains(t, out, "error")
}

func TestEnvelopeTransformer_Error(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "413", &APIError{
		status:  http.StatusRequestEntityTooLarge,
		Code:    "TOO_LARGE",
		Message: "The file exceeds the maximum size of 2 MB.",
	})
	require.NoError(t, err)

	out := marshalMap(t, result)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "TOO_LARGE", out["code"])
	assert.Equal(t, "The file exceeds the maximum size of 2 MB.", out["error"])
	assert.Equal(t, out["error"], out["message"])
	assert.NotContains(t, out, "data")
}

func TestEnvelopeTransformer_PassesEnvelopeThrough(t *testing.T) {
	env := response.Wrap("already wrapped")
	result, err := EnvelopeTransformer(nil, "200", env)
	require.NoError(t, err)
	assert.Equal(t, env, result)
}

type echoInput struct {
	Mode string `query:"mode"`
}

type echoOutput struct {
	Body struct {
		Mode string `json:"mode"`
	}
}

func newEchoAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, EnvelopeTransformer)
	_, api := humatest.New(t, cfg)
	RegisterErrorHandler()

	register(api, huma.Operation{
		OperationID: "echo",
		Method:      http.MethodGet,
		Path:        "/echo",
	}, func(_ context.Context, in *echoInput) (*echoOutput, error) {
		switch in.Mode {
		case "forbidden":
			return nil, domainerrors.PermissionDenied("You do not have permission to access this page.")
		case "rate":
			return nil, domainerrors.RateLimited("slow down").WithDetails(map[string]int{"retry_after_seconds": 3})
		case "missing":
			return nil, store.ErrNotFound
		}
		out := &echoOutput{}
		out.Body.Mode = in.Mode
		return out, nil
	})
	return api
}

func TestRegister_MapsErrors(t *testing.T) {
	api := newEchoAPI(t)

	tests := []struct {
		mode   string
		status int
		code   string
	}{
		{"forbidden", http.StatusForbidden, "FORBIDDEN"},
		{"rate", http.StatusTooManyRequests, "RATE_LIMITED"},
		{"missing", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			resp := api.Get("/echo?mode=" + tt.mode)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())

			var env envelope
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
			assert.Equal(t, 1, env.Version)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestRegister_Success(t *testing.T) {
	api := newEchoAPI(t)

	resp := api.Get("/echo?mode=ok")
	require.Equal(t, http.StatusOK, resp.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"mode":"ok"}`, string(env.Data))
}

func TestRegister_ValidationErrorIsEnveloped(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "x@site.example"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.NotEmpty(t, env.Details)
}
