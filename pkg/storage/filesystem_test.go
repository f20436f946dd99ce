package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveExistsDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := store.Save("hero_images/one.jpg", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "hero_images/one.jpg", key)
	assert.True(t, store.Exists(key))

	require.NoError(t, store.Delete(key))
	assert.False(t, store.Exists(key))
}

func TestDeleteMissingIsNoop(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete("departments/cse/hero/gone.jpg"))
}

func TestDeleteTree(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	_, err = store.Save("departments/cse/hero/a.jpg", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("departments/cse/gallery/b.jpg", []byte("b"))
	require.NoError(t, err)
	_, err = store.Save("departments/ece/hero/c.jpg", []byte("c"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteTree("departments/cse"))

	_, err = os.Stat(filepath.Join(base, "departments", "cse"))
	assert.True(t, os.IsNotExist(err))
	assert.True(t, store.Exists("departments/ece/hero/c.jpg"))
}

func TestDeleteRejectsEscapingKeys(t *testing.T) {
	parent := t.TempDir()
	base := filepath.Join(parent, "media")
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	outside := filepath.Join(parent, "secrets.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	// A key persisted from client input must not reach files above the root.
	assert.Error(t, store.Delete("../secrets.txt"))
	assert.Error(t, store.Delete(outside))
	assert.False(t, store.Exists("../secrets.txt"))

	_, err = os.Stat(outside)
	require.NoError(t, err)
}

func TestSaveRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../evil.sh", []byte("x"))
	assert.Error(t, err)
	_, err = store.SaveStream("/etc/evil.sh", nil)
	assert.Error(t, err)
	_, err = store.Save("departments/../../evil.sh", []byte("x"))
	assert.Error(t, err)

	// Dotted segments that stay inside the root are still fine.
	_, err = store.Save("departments/cse/../ece/a.jpg", []byte("a"))
	assert.NoError(t, err)
}

func TestDeleteTreeRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.DeleteTree(""))
	assert.Error(t, store.DeleteTree("../outside"))
}
