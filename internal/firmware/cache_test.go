package firmware

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, "firmware.bin")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func md5hex(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

func TestMetadataCacheGet(t *testing.T) {
	content := []byte("firmware image v1 payload")
	path := writeArtifact(t, t.TempDir(), content)

	cache := NewMetadataCache()
	meta, err := cache.Get(path)
	require.NoError(t, err)

	assert.Equal(t, md5hex(content), meta.Digest)
	assert.Equal(t, int64(len(content)), meta.Size)
}

func TestMetadataCacheMissingArtifact(t *testing.T) {
	cache := NewMetadataCache()
	_, err := cache.Get(filepath.Join(t.TempDir(), "nope.bin"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMetadataCacheDirectoryIsNotFound(t *testing.T) {
	dir := t.TempDir()
	cache := NewMetadataCache()
	_, err := cache.Get(dir)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMetadataCacheIdempotentWithoutChange(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), []byte("stable payload"))

	cache := NewMetadataCache()
	first, err := cache.Get(path)
	require.NoError(t, err)

	second, err := cache.Get(path)
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, first.Size, second.Size)
	assert.True(t, first.ModTime.Equal(second.ModTime))
}

func TestMetadataCacheInvalidatedByModification(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, []byte("firmware build 1"))

	cache := NewMetadataCache()
	first, err := cache.Get(path)
	require.NoError(t, err)

	// Rewrite the artifact and force a distinct mtime; coarse
	// filesystem timestamp granularity could otherwise hide the change.
	newContent := []byte("firmware build 2, longer than before")
	require.NoError(t, os.WriteFile(path, newContent, 0644))
	newTime := first.ModTime.Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, newTime, newTime))

	second, err := cache.Get(path)
	require.NoError(t, err)

	assert.NotEqual(t, first.Digest, second.Digest)
	assert.Equal(t, md5hex(newContent), second.Digest)
	assert.Equal(t, int64(len(newContent)), second.Size)
}

func TestMetadataCacheServesCachedEntryWhenMtimeUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, []byte("original"))

	cache := NewMetadataCache()
	first, err := cache.Get(path)
	require.NoError(t, err)

	// Same-length rewrite with the mtime pinned back: the cache keys on
	// mtime alone, so the stale digest is returned. This is the
	// documented trade-off, not a bug.
	require.NoError(t, os.WriteFile(path, []byte("altered!"), 0644))
	require.NoError(t, os.Chtimes(path, first.ModTime, first.ModTime))

	second, err := cache.Get(path)
	require.NoError(t, err)
	assert.Equal(t, first.Digest, second.Digest)
}

func TestMetadataCacheConcurrentAccess(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), []byte("concurrently hashed payload"))

	cache := NewMetadataCache()
	want := md5hex([]byte("concurrently hashed payload"))

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			meta, err := cache.Get(path)
			if err == nil && meta.Digest != want {
				t.Errorf("digest = %s, want %s", meta.Digest, want)
			}
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		require.NoError(t, <-done)
	}
}
