package lorarx

import (
	"fmt"

	"github.com/sigbridge/lorarx/internal/getbytes"
	"github.com/sigbridge/lorarx/internal/npyrec"
)

// CaptureWriter mirrors the incoming sample stream to a .npy file (numpy
// dtype '<c8'), so a run can be replayed or analyzed offline. Capture is a
// diagnostic aid: a write failure disables further capture but never stops
// the pipeline.
type CaptureWriter struct {
	rec    *npyrec.Writer
	failed bool
}

// NewCaptureWriter creates (truncating) the capture file.
func NewCaptureWriter(filename string) (*CaptureWriter, error) {
	rec, err := npyrec.Create(filename, "'<c8'", SampleBytes)
	if err != nil {
		return nil, fmt.Errorf("could not create capture file %s: %s", filename, err)
	}
	return &CaptureWriter{rec: rec}, nil
}

// Append records one chunk of samples.
func (cw *CaptureWriter) Append(samples []complex64) {
	if cw.failed || len(samples) == 0 {
		return
	}
	if _, err := cw.rec.Write(getbytes.FromSliceComplex64(samples)); err != nil {
		ProblemLogger.Printf("sample capture failed, disabling capture: %s", err)
		cw.failed = true
	}
}

// Close finishes the recording.
func (cw *CaptureWriter) Close() error {
	UpdateLogger.Printf("captured %d samples", cw.rec.Items())
	return cw.rec.Close()
}
