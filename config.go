package lorarx

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoRaConfig holds the full parameter set handed to the demodulation engine.
// The receiver does not interpret or validate these values: they are passed
// through verbatim at engine construction, in this exact order of meaning.
type LoRaConfig struct {
	CenterFreq      int    // center frequency in Hz
	Bandwidth       int    // channel bandwidth in Hz
	CodingRate      int    // CR denominator offset, e.g. 2 means 4/6
	HasCRC          bool   // payload CRC check
	ImplicitHeader  bool   // implicit (true) vs explicit header mode
	PayloadLength   int    // payload length for implicit-header frames
	SampleRate      int    // input sample rate in samples/s
	SpreadingFactor int    // LoRa SF
	SyncWord        []int  // sync word byte(s)
	SoftDecoding    bool   // soft-decision decoding
	LDROMode        int    // low data-rate optimization: 0 off, 1 on, 2 auto
	PrintRx         []bool // engine's own diagnostic print flags
}

// ReceiverConfig holds everything the receiver process needs: the engine
// parameter set, plus operational knobs that never reach the engine.
type ReceiverConfig struct {
	LoRa LoRaConfig

	// DecoderCommand is the external demodulation engine: argv for the
	// subprocess that consumes raw complex64 samples on its stdin and emits
	// one decoded message per line on its stdout.
	DecoderCommand []string

	// ChunkSamples is the preferred minimum number of samples requested per
	// source invocation, to amortize read overhead.
	ChunkSamples int

	// ReportInterval controls the cadence of throughput diagnostics.
	ReportInterval time.Duration

	// CaptureFile, when set, is a .npy file that receives a copy of every
	// incoming sample (dtype '<c8').
	CaptureFile string

	// MonitorSpectrum enables the periodic FFT signal-presence report.
	MonitorSpectrum bool

	// DBLog enables logging of decoded packets to ClickHouse.
	DBLog bool

	// Verbose makes startup dump the full effective config to the update log.
	Verbose bool
}

// DefaultConfig returns the configuration matching the canonical deployment:
// 869.1 MHz, SF7, BW 125k, CR 4/6, explicit header, CRC on, sync 0x34.
func DefaultConfig() ReceiverConfig {
	return ReceiverConfig{
		LoRa: LoRaConfig{
			CenterFreq:      869100000,
			Bandwidth:       125000,
			CodingRate:      2,
			HasCRC:          true,
			ImplicitHeader:  false,
			PayloadLength:   255,
			SampleRate:      250000,
			SpreadingFactor: 7,
			SyncWord:        []int{0x34},
			SoftDecoding:    false,
			LDROMode:        2,
			PrintRx:         []bool{true, true},
		},
		ChunkSamples:   8020,
		ReportInterval: 5 * time.Second,
	}
}

// LoadConfig merges the stored configuration (if any) over the defaults.
// Call only after the viper config file has been located and read.
func LoadConfig() (ReceiverConfig, error) {
	cfg := DefaultConfig()
	if err := viper.UnmarshalKey("lora", &cfg.LoRa); err != nil {
		return cfg, fmt.Errorf("error reading lora section of config file: %s", err)
	}
	if err := viper.UnmarshalKey("receiver", &cfg); err != nil {
		return cfg, fmt.Errorf("error reading receiver section of config file: %s", err)
	}
	return cfg, nil
}

// Summary returns the one-line banner description of the radio parameters.
func (c *LoRaConfig) Summary() string {
	sync := 0
	if len(c.SyncWord) > 0 {
		sync = c.SyncWord[0]
	}
	return fmt.Sprintf("Freq: %dHz, SF%d, BW:%dHz, CR:4/%d, Sync: 0x%02X, CRC: %v",
		c.CenterFreq, c.SpreadingFactor, c.Bandwidth, c.CodingRate+4, sync, c.HasCRC)
}
