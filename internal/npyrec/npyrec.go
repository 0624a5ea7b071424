// Package npyrec writes 1-D recordings in numpy's *.npy format, but
// appendable: the shape field in the header is padded and rewritten in place
// as items are appended, so the file is a valid .npy after every write.
package npyrec

import (
	"fmt"
	"os"
)

// npy file header must be a multiple of 64 bytes
const headerUnits = 64

// The shape count is left-justified in a fixed-width field so it can be
// rewritten without moving the rest of the header.
const shapeDigits = 10

// Writer appends fixed-size items to a .npy file.
type Writer struct {
	file         *os.File
	itemSize     int
	shapePtr     int
	itemsWritten int
}

// Create opens (truncating) filename and writes a .npy header for the given
// numpy dtype description, e.g. "'<c8'" for little-endian complex64 items of
// 8 bytes.
func Create(filename, dtype string, itemSize int) (*Writer, error) {
	if itemSize <= 0 {
		return nil, fmt.Errorf("npyrec: item size %d invalid", itemSize)
	}
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0664)
	if err != nil {
		return nil, err
	}
	w := &Writer{file: file, itemSize: itemSize}
	if err := w.writeHeader(dtype); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeader(dtype string) error {
	header := []byte{0x93, 0x4e, 0x55, 0x4d, 0x50, 0x59, 0x01, 0, 0, 0}
	header = append(header, []byte("{'descr': ")...)
	header = append(header, []byte(dtype)...)
	shapeField := fmt.Sprintf("%-*d", shapeDigits, 0)
	tail := fmt.Sprintf(", 'fortran_order': False, 'shape': (%s,),}", shapeField)
	header = append(header, []byte(tail)...)
	w.shapePtr = len(header) - len([]byte(shapeField+",),}"))

	// Put header size into bytes 8-9, little-endian. It's a multiple of 64 bytes.
	const preheaderSize = 10
	nunits := (len(header) + headerUnits) / headerUnits
	headerSize := nunits*headerUnits - preheaderSize
	header[8] = byte(headerSize % 256)
	header[9] = byte(headerSize / 256)

	// Pad with spaces plus one final newline to the promised size.
	npad := headerSize + preheaderSize - (1 + len(header))
	for i := 0; i < npad; i++ {
		header = append(header, 0x20)
	}
	header = append(header, 0x0a)
	_, err := w.file.Write(header)
	return err
}

// Write appends data, whose length must be a whole number of items, then
// seeks back to refresh the header's shape field and returns to the end.
func (w *Writer) Write(data []byte) (int, error) {
	if len(data)%w.itemSize != 0 {
		return 0, fmt.Errorf("npyrec: write of %d bytes is not a multiple of item size %d",
			len(data), w.itemSize)
	}
	n, err := w.file.Write(data)
	if err != nil {
		return n, err
	}
	w.itemsWritten += len(data) / w.itemSize

	shapeText := fmt.Sprintf("%-*d", shapeDigits, w.itemsWritten)
	if _, err := w.file.WriteAt([]byte(shapeText), int64(w.shapePtr)); err != nil {
		return n, err
	}
	return n, nil
}

// Items returns the number of items written so far.
func (w *Writer) Items() int {
	return w.itemsWritten
}

// Close closes the underlying file. The header is already up to date.
func (w *Writer) Close() error {
	return w.file.Close()
}
