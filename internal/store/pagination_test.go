package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bulkmeta/internal/store"
)

func TestPaginationParams_Normalize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, store.DefaultPageSize},
		{-3, store.DefaultPageSize},
		{10, 10},
		{store.MaxPageSize + 1, store.MaxPageSize},
	}
	for _, tt := range tests {
		p := store.PaginationParams{Limit: tt.in}
		p.Normalize()
		assert.Equal(t, tt.want, p.Limit)
	}
}

func TestCursor_RoundTrip(t *testing.T) {
	key := "2026-05-01T10:00:00Z|run_abc"

	cursor := store.EncodeCursor(key)
	require.NotEmpty(t, cursor)

	decoded, err := store.DecodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	assert.Empty(t, store.EncodeCursor(""))
	empty, err := store.DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := store.DecodeCursor("!!not base64!!")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}
