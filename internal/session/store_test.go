package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreLoadEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoToken)
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.Save("tok-abc123"))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-abc123", got)

	info, err := os.Stat(filepath.Join(dir, tokenFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreCreatesCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store := NewFileStore(dir)

	require.NoError(t, store.Save("tok"))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestFileStoreClear(t *testing.T) {
	store := NewFileStore(t.TempDir())

	require.NoError(t, store.Save("tok"))
	require.NoError(t, store.Clear())

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoToken)

	// Clearing an already empty store is fine.
	require.NoError(t, store.Clear())
}

func TestFileStoreBlankFileIsNoToken(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, tokenFileName), []byte("  \n"), 0o600))

	_, err := NewFileStore(dir).Load()
	require.ErrorIs(t, err, ErrNoToken)
}
