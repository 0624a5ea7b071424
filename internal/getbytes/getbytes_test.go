package getbytes

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromSliceComplex64(t *testing.T) {
	assert.Equal(t, []byte{}, FromSliceComplex64(nil))

	d := []complex64{complex(1, -2), complex(0.5, 3)}
	b := FromSliceComplex64(d)
	assert.Equal(t, 16, len(b))

	// The view carries little-endian float32 pairs, real then imaginary.
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])))
	assert.Equal(t, float32(-2), math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])))
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])))

	// It is a view, not a copy: writing through it mutates the source slice.
	b[0] = 0
	b[1] = 0
	b[2] = 0
	b[3] = 0x40 // 2.0f little-endian
	assert.Equal(t, complex64(complex(2, -2)), d[0])
}

func TestFromSliceFloat32(t *testing.T) {
	assert.Equal(t, []byte{}, FromSliceFloat32(nil))
	d := []float32{1, 2, 3}
	assert.Equal(t, 12, len(FromSliceFloat32(d)))
}

func TestFromSliceInt16(t *testing.T) {
	assert.Equal(t, []byte{}, FromSliceInt16(nil))
	d := []int16{-1, 256}
	b := FromSliceInt16(d)
	assert.Equal(t, []byte{0xff, 0xff, 0x00, 0x01}, b)
}

func TestToSliceComplex64RoundTrip(t *testing.T) {
	assert.Equal(t, []complex64{}, ToSliceComplex64(nil))

	want := []complex64{complex(4, 5), complex(-6, 7), complex(8, -9)}
	got := ToSliceComplex64(FromSliceComplex64(want))
	assert.Equal(t, want, got)
}
