// Package feature reads acoustic feature files in the standard HTK MFC
// binary layout into a dense [T x D] frame matrix.
//
// This is the one component with no matching ecosystem library in the
// retrieved pack: HTK's parameter-file format is a narrow, fully-specified
// binary layout (a 12-byte header plus big-endian float32 frames), not a
// general serialisation format any of the pack's libraries address, so it
// is read directly with encoding/binary rather than through a third-party
// dependency.
package feature

import (
	"encoding/binary"
	"fmt"
	"io"
)

// header mirrors the 12-byte HTK parameter-file header.
type header struct {
	NSamples   int32
	SampPeriod int32
	SampSize   int16
	ParmKind   int16
}

// Read loads a full HTK MFC file from r into a dense [T][D] float64 table
// (frames are stored on disk as big-endian float32; Read widens them to
// float64 for the likelihood engine).
func Read(r io.Reader) ([][]float64, error) {
	var h header
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("feature: reading header: %w", err)
	}
	if h.NSamples <= 0 {
		return nil, fmt.Errorf("feature: invalid frame count %d in header", h.NSamples)
	}
	if h.SampSize <= 0 || h.SampSize%4 != 0 {
		return nil, fmt.Errorf("feature: invalid sample size %d in header (must be a positive multiple of 4)", h.SampSize)
	}
	dim := int(h.SampSize) / 4

	frames := make([][]float64, h.NSamples)
	raw := make([]float32, dim)
	for t := 0; t < int(h.NSamples); t++ {
		if err := binary.Read(r, binary.BigEndian, raw); err != nil {
			return nil, fmt.Errorf("feature: reading frame %d: %w", t, err)
		}
		row := make([]float64, dim)
		for d, v := range raw {
			row[d] = float64(v)
		}
		frames[t] = row
	}
	return frames, nil
}

// Dim returns the feature dimension frames share, or 0 if frames is empty.
func Dim(frames [][]float64) int {
	if len(frames) == 0 {
		return 0
	}
	return len(frames[0])
}
