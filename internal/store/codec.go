package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/corpusd/corpusd/internal/domain"
)

// EncodeVector serializes an embedding to 4 bytes per float, little-endian.
// The encoding round-trips IEEE-754 float32 values exactly.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector deserializes an embedding blob. A blob whose length is not a
// multiple of 4 wraps domain.ErrMalformedRecord; callers skip such rows
// instead of aborting the scan.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d: %w", len(b), domain.ErrMalformedRecord)
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
