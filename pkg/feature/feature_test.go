package feature

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func encodeFixture(t *testing.T, nSamples int32, sampSize int16, data []float32) []byte {
	t.Helper()
	var buf bytes.Buffer
	h := header{NSamples: nSamples, SampPeriod: 100000, SampSize: sampSize, ParmKind: 9}
	if err := binary.Write(&buf, binary.BigEndian, h); err != nil {
		t.Fatalf("encoding header: %v", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, data); err != nil {
		t.Fatalf("encoding frames: %v", err)
	}
	return buf.Bytes()
}

func TestReadParsesHeaderAndFrames(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	raw := encodeFixture(t, 2, 12, data) // dim 3, 2 frames

	frames, err := Read(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	want := [][]float64{{1, 2, 3}, {4, 5, 6}}
	for i, row := range want {
		for d, v := range row {
			if frames[i][d] != v {
				t.Fatalf("frame %d dim %d = %v, want %v", i, d, frames[i][d], v)
			}
		}
	}
}

func TestReadRejectsInvalidSampSize(t *testing.T) {
	raw := encodeFixture(t, 1, 5, []float32{1})
	if _, err := Read(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected error for non-multiple-of-4 sample size")
	}
}

func TestReadRejectsZeroFrameCount(t *testing.T) {
	raw := encodeFixture(t, 0, 4, nil)
	if _, err := Read(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected error for zero frame count")
	}
}

func TestReadTruncatedFileErrors(t *testing.T) {
	raw := encodeFixture(t, 2, 4, []float32{1})
	if _, err := Read(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected error for truncated frame data")
	}
}

func TestDim(t *testing.T) {
	if Dim(nil) != 0 {
		t.Fatalf("Dim(nil) = %d, want 0", Dim(nil))
	}
	if Dim([][]float64{{1, 2, 3}}) != 3 {
		t.Fatalf("Dim = %d, want 3", Dim([][]float64{{1, 2, 3}}))
	}
}
