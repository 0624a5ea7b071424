// Package getbytes converts slices of sample types to and from []byte using
// unsafe.Slice, so that stream reads and writes land directly in typed
// buffers with no copy. The byte views carry the host's native byte order,
// which matches the little-endian wire format on every supported platform.
package getbytes

import (
	"unsafe"
)

// FromSliceComplex64 converts a []complex64 to []byte using unsafe
func FromSliceComplex64(d []complex64) []byte {
	if len(d) == 0 {
		return []byte{}
	}
	outlength := uintptr(len(d)) * unsafe.Sizeof(d[0]) / unsafe.Sizeof(byte(0))
	return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), outlength)
}

// FromSliceFloat32 converts a []float32 to []byte using unsafe
func FromSliceFloat32(d []float32) []byte {
	if len(d) == 0 {
		return []byte{}
	}
	outlength := uintptr(len(d)) * unsafe.Sizeof(d[0]) / unsafe.Sizeof(byte(0))
	return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), outlength)
}

// FromSliceInt16 converts a []int16 to []byte using unsafe
func FromSliceInt16(d []int16) []byte {
	if len(d) == 0 {
		return []byte{}
	}
	outlength := uintptr(len(d)) * unsafe.Sizeof(d[0]) / unsafe.Sizeof(byte(0))
	return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), outlength)
}

// ToSliceComplex64 views a []byte as []complex64 using unsafe. The input
// length must be a multiple of 8 and the data must be 4-byte aligned, which
// holds for any view produced by FromSliceComplex64.
func ToSliceComplex64(d []byte) []complex64 {
	if len(d) == 0 {
		return []complex64{}
	}
	outlength := uintptr(len(d)) * unsafe.Sizeof(d[0]) / unsafe.Sizeof(complex64(0))
	return unsafe.Slice((*complex64)(unsafe.Pointer(&d[0])), outlength)
}
