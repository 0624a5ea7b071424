package lorarx

import (
	"fmt"
	"sync"
	"time"
)

// SampleBytes is the size of one complex sample on the wire: two 4-byte
// little-endian floats, in-phase then quadrature.
const SampleBytes = 8

// SampleSource is the interface for stream adapters that produce complex
// samples on demand. Work must never block the calling goroutine: a source
// with nothing ready returns (0, nil), which is a legal and frequent result.
// An unrecoverable stream fault is reported as io.EOF so the pipeline can
// shut down instead of spinning.
type SampleSource interface {
	// Prepare does whatever one-time probing the source needs before the
	// run starts (readiness plumbing, counters).
	Prepare() error

	// Work copies up to len(out) samples into out and returns the count.
	Work(out []complex64) (int, error)

	// PreferredChunk is the minimum sample count the source would like per
	// Work call, to amortize read overhead. The pipeline may request more.
	PreferredChunk() int

	// Close releases the source's resources. The source must not be Worked
	// after Close.
	Close() error
}

// SourceState is used to indicate the active/inactive/transition state of the pipeline
type SourceState int

// Names for the possible values of SourceState
const (
	Inactive SourceState = iota // Pipeline is not active
	Starting                    // Pipeline is in transition to Active state
	Active                      // Pipeline is actively processing data
	Stopping                    // Pipeline is in transition to Inactive state
)

func (s SourceState) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Starting:
		return "Starting"
	case Active:
		return "Active"
	case Stopping:
		return "Stopping"
	}
	return fmt.Sprintf("SourceState(%d)", int(s))
}

// streamStats holds the per-source ingest counters. Each source instance
// owns exactly one of these for its lifetime; nothing is shared globally.
type streamStats struct {
	totalSamples uint64        // cumulative samples handed downstream
	startTime    time.Time     // when the source was prepared
	lastReport   time.Time     // last time a throughput report was emitted
	reportEvery  time.Duration // report cadence; zero disables reports
}

func (st *streamStats) start(every time.Duration) {
	st.totalSamples = 0
	st.startTime = time.Now()
	st.lastReport = st.startTime
	st.reportEvery = every
}

// report emits a cumulative-rate line when the reporting interval has
// elapsed. It is polled from the data path, so the cadence is only
// approximately periodic: jitter follows the scheduler's invocation rate.
func (st *streamStats) report(now time.Time) {
	if st.reportEvery <= 0 || now.Sub(st.lastReport) < st.reportEvery {
		return
	}
	elapsed := now.Sub(st.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(st.totalSamples) / elapsed
	}
	st.lastReport = now
	UpdateLogger.Printf("samples: %d, rate: %.0f/sec", st.totalSamples, rate)
	publishStatus("RATE", struct {
		Samples uint64
		Rate    float64
	}{Samples: st.totalSamples, Rate: rate})
}

// stateMachine guards the Inactive/Starting/Active/Stopping transitions of
// the pipeline in a race-free fashion.
type stateMachine struct {
	state SourceState
	lock  sync.Mutex
}

func (sm *stateMachine) get() SourceState {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	return sm.state
}

func (sm *stateMachine) setStarting() error {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	if sm.state == Inactive {
		sm.state = Starting
		return nil
	}
	return fmt.Errorf("cannot Start() a pipeline that's %v, not Inactive", sm.state)
}

func (sm *stateMachine) setActive() {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	sm.state = Active
}

func (sm *stateMachine) setInactive() {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	sm.state = Inactive
}

// setStopping returns false if the pipeline was not in a state it can stop
// from (already Stopping or Inactive).
func (sm *stateMachine) setStopping() bool {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	if sm.state == Stopping || sm.state == Inactive {
		return false
	}
	sm.state = Stopping
	return true
}
