package firmware

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNotFound indicates the firmware artifact does not exist at the
// configured path (or is not a regular file).
var ErrNotFound = errors.New("firmware artifact not found")

// Artifact is an immutable snapshot of the firmware file's identity at
// the moment it was stat'ed. The file may change at any time afterwards;
// callers re-validate via ModTime before trusting derived data.
type Artifact struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatArtifact snapshots the artifact at path. Returns ErrNotFound if
// the path does not exist or is not a regular file.
func StatArtifact(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)
	}

	return Artifact{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ByteRange is an inclusive [Start, End] interval of artifact offsets.
// Invariant: 0 <= Start <= End <= size-1 for the size it was derived from.
type ByteRange struct {
	Start int64
	End   int64
}

// FullRange covers an entire artifact of the given size.
func FullRange(size int64) ByteRange {
	return ByteRange{Start: 0, End: size - 1}
}

// Length returns the number of bytes in the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}
