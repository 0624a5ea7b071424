package lorarx

import "time"

// DecodedMessage is one discrete message emitted by the demodulation engine.
// The receiver assumes nothing about the payload beyond "renderable as one
// line of text"; rendering happens in the MessageSink.
type DecodedMessage struct {
	Payload []byte
	At      time.Time
}

// DemodEngine is the opaque demodulation/decoding engine. It exposes exactly
// two ports: samples in, messages out. The receiver never inspects engine
// internals; the engine is configured once at construction and cannot be
// reconfigured.
//
// Messages returns the same channel for the life of the engine. The engine
// closes it after Close, once all pending messages have been delivered, and
// delivery order on the channel is the engine's emission order.
type DemodEngine interface {
	ConsumeSamples(samples []complex64) error
	Messages() <-chan DecodedMessage
	Close() error
}

// EngineFactory builds a DemodEngine from the verbatim parameter set. A
// non-nil error is a configuration error and is fatal to startup.
type EngineFactory func(cfg LoRaConfig) (DemodEngine, error)
