package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateport/crateport/internal/storage"
)

func TestLocalStore_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := storage.NewLocalStore(dir, "")
	ctx := context.Background()

	key := "/crates/serde/serde-1.0.0.crate"
	err := s.Put(ctx, key, strings.NewReader("archive"), "application/x-tar", 7)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "crates", "serde", "serde-1.0.0.crate"))
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))

	require.NoError(t, s.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, "crates", "serde", "serde-1.0.0.crate"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_PutLengthMismatch(t *testing.T) {
	s := storage.NewLocalStore(t.TempDir(), "")

	err := s.Put(context.Background(), "/crates/a/a-1.0.0.crate", strings.NewReader("xy"), "application/x-tar", 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrote 2 bytes, expected 99")
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	s := storage.NewLocalStore(t.TempDir(), "")
	assert.NoError(t, s.Delete(context.Background(), "/crates/ghost/ghost-0.0.1.crate"))
}

func TestLocalStore_URL(t *testing.T) {
	withBase := storage.NewLocalStore("/data", "https://dl.example.com")
	assert.Equal(t, "https://dl.example.com/crates/serde/serde-1.0.0.crate",
		withBase.URL("/crates/serde/serde-1.0.0.crate"))

	bare := storage.NewLocalStore("/data", "")
	assert.True(t, strings.HasPrefix(bare.URL("/crates/serde/serde-1.0.0.crate"), "file:///data/"))
}
