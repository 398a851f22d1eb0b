package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/bulkmeta/internal/errors"
	"github.com/listenupapp/bulkmeta/internal/store"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]string{"status": "ok"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, float64(1), body["v"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestJSON_ErrorStatusMarksFailure(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusNotFound, nil, nil)

	assert.Equal(t, false, decode(t, w)["success"])
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()
	Created(w, 1, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"domain", domainerrors.PermissionDenied("nope"), http.StatusForbidden, "FORBIDDEN"},
		{"wrapped domain", fmt.Errorf("ctx: %w", domainerrors.TooLarge("big")), http.StatusRequestEntityTooLarge, "TOO_LARGE"},
		{"store", store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"store conflict", store.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleError_DetailsAndRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainerrors.RateLimited("slow down").WithDetails(map[string]int{"retry_after_seconds": 12})
	HandleError(w, err, nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "12", w.Header().Get("Retry-After"))
	assert.Equal(t, map[string]any{"retry_after_seconds": float64(12)}, decode(t, w)["details"])
}

func TestInternalErrorHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, errors.New("password=hunter2"), nil)
	assert.NotContains(t, w.Body.String(), "hunter2")
}
