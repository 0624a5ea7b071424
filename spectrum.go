package lorarx

import (
	"math"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
)

const monitorFFTSize = 1024

// SignalMonitor produces a periodic diagnostic report on signal presence in
// the incoming stream: total power and the frequency bin carrying the peak.
// It keeps the most recent window of samples and transforms it only when a
// report is due, so it costs almost nothing on the data path. Diagnostics
// only; it never alters or delays the samples.
type SignalMonitor struct {
	fft        *fourier.CmplxFFT
	window     []complex128
	filled     int
	sampleRate float64
	every      time.Duration
	last       time.Time
}

// NewSignalMonitor reports every `every` at the given input sample rate.
func NewSignalMonitor(sampleRate int, every time.Duration) *SignalMonitor {
	return &SignalMonitor{
		fft:        fourier.NewCmplxFFT(monitorFFTSize),
		window:     make([]complex128, monitorFFTSize),
		sampleRate: float64(sampleRate),
		every:      every,
		last:       time.Now(),
	}
}

// Observe folds one chunk of samples into the monitor window and emits a
// report when the interval has elapsed. Like the throughput report, cadence
// is polled from the data path and therefore only approximately periodic.
func (m *SignalMonitor) Observe(samples []complex64) {
	if len(samples) == 0 {
		return
	}
	// Keep only the most recent window's worth.
	if n := len(samples) - monitorFFTSize; n > 0 {
		samples = samples[n:]
	}
	if shift := m.filled + len(samples) - monitorFFTSize; shift > 0 {
		copy(m.window, m.window[shift:m.filled])
		m.filled -= shift
	}
	for _, s := range samples {
		m.window[m.filled] = complex128(s)
		m.filled++
	}

	if m.filled < monitorFFTSize || time.Since(m.last) < m.every {
		return
	}
	m.last = time.Now()

	coeff := m.fft.Coefficients(nil, m.window)
	var total float64
	peakBin, peakPower := 0, 0.0
	for i, c := range coeff {
		p := real(c)*real(c) + imag(c)*imag(c)
		total += p
		if p > peakPower {
			peakPower = p
			peakBin = i
		}
	}
	meanPower := total / float64(monitorFFTSize*monitorFFTSize)
	powerDB := -math.MaxFloat64
	if meanPower > 0 {
		powerDB = 10 * math.Log10(meanPower)
	}
	peakHz := m.fft.Freq(peakBin) * m.sampleRate
	UpdateLogger.Printf("signal monitor: power %.1f dBFS, peak %+.0f Hz", powerDB, peakHz)
	publishStatus("SPECTRUM", struct {
		PowerDB float64
		PeakHz  float64
	}{PowerDB: powerDB, PeakHz: peakHz})
}
