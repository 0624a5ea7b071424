package lorarx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sigbridge/lorarx/internal/getbytes"
)

// StdinSource adapts a raw byte stream (normally the process's standard
// input) into a pull-based complex-sample source. Each Work call performs a
// zero-timeout readiness poll and then reads at most len(out)*8 bytes, so it
// returns promptly whether or not data is available. Byte counts are
// truncated down to a whole number of samples; stray trailing bytes from a
// read are discarded, never emitted as a partial sample.
type StdinSource struct {
	file  *os.File
	fd    int
	chunk int
	stats streamStats
}

// NewStdinSource wraps file as a sample source. chunkSamples is the
// preferred minimum request size and reportEvery the throughput-report
// cadence (zero disables reporting).
func NewStdinSource(file *os.File, chunkSamples int, reportEvery time.Duration) *StdinSource {
	if chunkSamples <= 0 {
		chunkSamples = 8020
	}
	s := &StdinSource{file: file, fd: int(file.Fd()), chunk: chunkSamples}
	s.stats.reportEvery = reportEvery
	return s
}

// Prepare resets the ingest counters. It must be called once before Work.
func (s *StdinSource) Prepare() error {
	if s.file == nil {
		return fmt.Errorf("StdinSource has no input file")
	}
	reportEvery := s.stats.reportEvery
	s.stats.start(reportEvery)
	return nil
}

// PreferredChunk returns the minimum sample count to request per Work call.
func (s *StdinSource) PreferredChunk() int {
	return s.chunk
}

// TotalSamples returns the cumulative number of samples handed downstream.
func (s *StdinSource) TotalSamples() uint64 {
	return s.stats.totalSamples
}

// readable polls the input descriptor with a zero timeout and reports
// whether a read would return without blocking. A hangup or error condition
// counts as readable: the subsequent read is what turns it into io.EOF.
func (s *StdinSource) readable() (bool, error) {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return false, nil
		}
		return false, fmt.Errorf("poll on input stream: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	return fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0, nil
}

// Work implements SampleSource. It fills out with up to len(out) samples and
// returns the number produced. Zero is a legal, frequent result meaning no
// input was ready this cycle. io.EOF means the stream has ended (or broken
// beyond recovery) and the pipeline should shut down.
func (s *StdinSource) Work(out []complex64) (int, error) {
	s.stats.report(time.Now())
	if len(out) == 0 {
		return 0, nil
	}

	ready, err := s.readable()
	if err != nil {
		ProblemLogger.Printf("input stream fault: %s", err)
		return 0, io.EOF
	}
	if !ready {
		return 0, nil
	}

	// Read straight into the output buffer through its byte view.
	raw := getbytes.FromSliceComplex64(out)
	nb, err := s.file.Read(raw)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		ProblemLogger.Printf("input stream fault: %s", err)
		return 0, io.EOF
	}
	if nb == 0 {
		return 0, io.EOF
	}

	// Truncate to whole samples. Any odd trailing bytes from this read are
	// dropped, matching the upstream framing contract (no partial samples).
	nsamp := nb / SampleBytes
	s.stats.totalSamples += uint64(nsamp)
	return nsamp, nil
}

// Close releases the input file. Closing os.Stdin is safe here: the process
// is shutting down when this runs.
func (s *StdinSource) Close() error {
	return s.file.Close()
}
