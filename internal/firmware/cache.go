package firmware

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// hashChunkSize is the read size used while hashing the artifact.
const hashChunkSize = 4 * 1024

// Metadata is the digest and size of an artifact, valid for the
// modification time it was computed at. Returned by value; callers
// never share memory with the cache.
type Metadata struct {
	// Digest is the MD5 of the artifact content, hex encoded.
	Digest string

	// Size is the artifact size in bytes.
	Size int64

	// ModTime is the modification time observed when Digest was computed.
	ModTime time.Time
}

type cacheEntry struct {
	digest  string
	size    int64
	modTime time.Time
}

// MetadataCache memoizes artifact digests keyed by path, invalidated by
// modification time. Hashing a multi-megabyte image on every /version
// poll from a 50-device fleet would be pure waste; the mtime check makes
// the common no-change case a single stat.
//
// A single mutex guards the whole check/recompute/store sequence, so a
// caller that hits a stale entry recomputes while other callers wait.
// That serialization is deliberate: a stale digest must never be served
// after the file changed, and version checks are cheap and infrequent
// relative to downloads.
type MetadataCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewMetadataCache creates an empty cache.
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the digest and size for the artifact at path, recomputing
// the digest only when the file's modification time has changed since
// the cached value was produced. Returns ErrNotFound if the artifact
// does not exist.
func (c *MetadataCache) Get(path string) (Metadata, error) {
	art, err := StatArtifact(path)
	if err != nil {
		return Metadata{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[path]; ok && entry.modTime.Equal(art.ModTime) {
		return Metadata{Digest: entry.digest, Size: entry.size, ModTime: entry.modTime}, nil
	}

	digest, err := hashFile(path)
	if err != nil {
		return Metadata{}, err
	}

	entry := cacheEntry{digest: digest, size: art.Size, modTime: art.ModTime}
	c.entries[path] = entry

	return Metadata{Digest: entry.digest, Size: entry.size, ModTime: entry.modTime}, nil
}

// hashFile streams the file through MD5 in fixed-size chunks so the
// whole artifact is never held in memory.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact for hashing: %w", err)
	}
	defer f.Close()

	hasher := md5.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("failed to hash artifact: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
