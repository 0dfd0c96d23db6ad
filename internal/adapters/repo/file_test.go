package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sticks-bot/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribers.json")
	store := NewFileStore(path)
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, domain.ErrStoreMissing)

	require.NoError(t, store.Save(ctx, []int64{111, -100222}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[111,-100222]`, string(raw))

	ids, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{111, -100222}, ids)

	require.NoError(t, store.Save(ctx, nil))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribers.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreCorrupt)
}
