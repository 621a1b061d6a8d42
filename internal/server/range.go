package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ottera/fotad/internal/firmware"
)

// ErrMalformedRange indicates a Range header that is syntactically
// invalid or unsatisfiable for the artifact's size. Mapped to 416.
var ErrMalformedRange = errors.New("malformed range")

// ParseRange translates an optional Range header into a concrete byte
// interval for an artifact of the given size.
//
// An empty header means the full file; the caller must then respond 200
// rather than 206. Otherwise the header must be the single-range form
// "bytes=<start>-<end>" where either side may be omitted: a missing
// start means 0, a missing end means size-1. The suffix form
// "bytes=-N" (start empty, end present) is rejected, see the package
// documentation.
func ParseRange(header string, size int64) (firmware.ByteRange, error) {
	if header == "" {
		return firmware.FullRange(size), nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return firmware.ByteRange{}, fmt.Errorf("%w: %q has no bytes= prefix", ErrMalformedRange, header)
	}
	if strings.Contains(spec, ",") {
		return firmware.ByteRange{}, fmt.Errorf("%w: multiple ranges not supported in %q", ErrMalformedRange, header)
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return firmware.ByteRange{}, fmt.Errorf("%w: %q has no '-' separator", ErrMalformedRange, header)
	}

	if startStr == "" && endStr == "" {
		return firmware.ByteRange{}, fmt.Errorf("%w: %q has neither start nor end", ErrMalformedRange, header)
	}
	if startStr == "" && endStr != "" {
		// Suffix form bytes=-N: reject instead of guessing at intent.
		return firmware.ByteRange{}, fmt.Errorf("%w: suffix form %q not supported", ErrMalformedRange, header)
	}

	rng := firmware.FullRange(size)

	if startStr != "" {
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return firmware.ByteRange{}, fmt.Errorf("%w: bad start in %q", ErrMalformedRange, header)
		}
		rng.Start = start
	}

	if endStr != "" {
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return firmware.ByteRange{}, fmt.Errorf("%w: bad end in %q", ErrMalformedRange, header)
		}
		rng.End = end
	}

	if rng.Start > rng.End {
		return firmware.ByteRange{}, fmt.Errorf("%w: start %d > end %d", ErrMalformedRange, rng.Start, rng.End)
	}
	if rng.End >= size {
		return firmware.ByteRange{}, fmt.Errorf("%w: end %d beyond size %d", ErrMalformedRange, rng.End, size)
	}

	return rng, nil
}
