package firmware

import (
	"fmt"
	"io"
	"os"
)

// StreamChunkSize is the read/write size used while streaming the
// artifact to a client. Embedded clients drain slowly; the small chunk
// keeps per-connection memory flat no matter how large the image is.
const StreamChunkSize = 8 * 1024

// Stream writes exactly the bytes of rng from the artifact at path to
// sink. Returns the number of bytes written. A write failure (typically
// the client disconnecting mid-download) stops the transfer; the bytes
// written so far are reported alongside the error so the caller can log
// the partial delivery.
func Stream(path string, rng ByteRange, sink io.Writer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to offset %d: %w", rng.Start, err)
	}

	var written int64
	remaining := rng.Length()
	buf := make([]byte, StreamChunkSize)

	for remaining > 0 {
		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}

		n, err := io.ReadFull(f, buf[:chunk])
		if err != nil {
			return written, fmt.Errorf("failed to read artifact at offset %d: %w", rng.Start+written, err)
		}

		wn, err := sink.Write(buf[:n])
		written += int64(wn)
		if err != nil {
			return written, fmt.Errorf("failed to write to client after %d bytes: %w", written, err)
		}

		remaining -= int64(n)
	}

	return written, nil
}
