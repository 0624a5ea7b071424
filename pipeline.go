package lorarx

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// idlePeriod is how long the core loop yields when the source produced
// nothing. It keeps the poll loop cooperative without adding meaningful
// latency (one preferred chunk at 250 kS/s spans ~32 ms).
const idlePeriod = 2 * time.Millisecond

// Pipeline owns the three stages and drives them: source → engine → sink.
// The engine is constructed once, from the verbatim parameter set, and
// treated as opaque from then on.
type Pipeline struct {
	cfg     ReceiverConfig
	source  SampleSource
	engine  DemodEngine
	sink    *MessageSink
	capture *CaptureWriter
	monitor *SignalMonitor

	abortSelf chan struct{} // Signal to the core loop to stop
	runDone   sync.WaitGroup
	sm        stateMachine
}

// NewPipeline wires the stages together. Any error here (engine rejected its
// configuration, capture file not creatable) is fatal to startup.
func NewPipeline(cfg ReceiverConfig, source SampleSource, factory EngineFactory, output io.Writer) (*Pipeline, error) {
	engine, err := factory(cfg.LoRa)
	if err != nil {
		return nil, fmt.Errorf("engine rejected its configuration: %s", err)
	}

	echo := len(cfg.LoRa.PrintRx) > 0 && cfg.LoRa.PrintRx[0]
	p := &Pipeline{
		cfg:       cfg,
		source:    source,
		engine:    engine,
		sink:      NewMessageSink(output, echo),
		abortSelf: make(chan struct{}),
	}
	if cfg.CaptureFile != "" {
		if p.capture, err = NewCaptureWriter(cfg.CaptureFile); err != nil {
			engine.Close()
			return nil, err
		}
	}
	if cfg.MonitorSpectrum {
		p.monitor = NewSignalMonitor(cfg.LoRa.SampleRate, cfg.ReportInterval)
	}
	return p, nil
}

// Sink exposes the message sink, mainly so callers can attach the packet DB.
func (p *Pipeline) Sink() *MessageSink {
	return p.sink
}

// Start prepares the source and launches the core loop. It returns once the
// pipeline is running; use Wait or Stop to ride it down.
func (p *Pipeline) Start() error {
	if err := p.sm.setStarting(); err != nil {
		return err
	}
	if err := p.source.Prepare(); err != nil {
		p.sm.setInactive()
		return err
	}
	p.sm.setActive()
	p.runDone.Add(1)
	go p.coreLoop()
	publishStatus("READY", struct {
		RunID  string
		Config LoRaConfig
	}{RunID: RunID, Config: p.cfg.LoRa})
	return nil
}

// coreLoop repeatedly invokes the source's work routine and forwards its
// product to the engine, until end-of-stream, a terminal fault, or Stop.
// This is a long-running goroutine, as long as the pipeline is active.
func (p *Pipeline) coreLoop() {
	defer p.runDone.Done()
	defer p.sm.setInactive()

	// The sink drains the engine's message port on its own goroutine; a
	// single consumer keeps delivery strictly FIFO.
	sinkDone := make(chan struct{})
	go func() {
		p.sink.Run(p.engine.Messages())
		close(sinkDone)
	}()

	buf := make([]complex64, p.source.PreferredChunk())
loop:
	for {
		select {
		case <-p.abortSelf:
			UpdateLogger.Printf("stop requested; stopping the receiver normally")
			break loop
		default:
		}

		n, err := p.source.Work(buf)
		if n > 0 {
			produced := buf[:n]
			if p.capture != nil {
				p.capture.Append(produced)
			}
			if p.monitor != nil {
				p.monitor.Observe(produced)
			}
			if cerr := p.engine.ConsumeSamples(produced); cerr != nil {
				ProblemLogger.Printf("engine stopped accepting samples; stopping: %s", cerr)
				break loop
			}
		}
		switch {
		case err == io.EOF:
			UpdateLogger.Printf("input stream ended; stopping the receiver normally")
			break loop
		case err != nil:
			ProblemLogger.Printf("source fault; stopping: %s", err)
			break loop
		case n == 0:
			time.Sleep(idlePeriod)
		}
	}

	// Let the engine flush, then wait for the sink to deliver every pending
	// message before declaring the run over.
	if err := p.engine.Close(); err != nil {
		ProblemLogger.Printf("engine close: %s", err)
	}
	<-sinkDone
	if err := p.source.Close(); err != nil {
		ProblemLogger.Printf("source close: %s", err)
	}
	if p.capture != nil {
		if err := p.capture.Close(); err != nil {
			ProblemLogger.Printf("capture close: %s", err)
		}
	}
	publishStatus("STOP", struct {
		RunID     string
		Delivered int
	}{RunID: RunID, Delivered: p.sink.Delivered()})
}

// Wait blocks until the core loop has finished (end-of-stream or Stop).
func (p *Pipeline) Wait() {
	p.runDone.Wait()
}

// Stop tells an active pipeline to shut down and waits for it to finish.
func (p *Pipeline) Stop() error {
	if !p.sm.setStopping() {
		return fmt.Errorf("pipeline not active, cannot stop")
	}
	closeIfOpen(p.abortSelf)
	p.runDone.Wait()
	return nil
}

// Running tells whether the pipeline is actively processing data.
func (p *Pipeline) Running() bool {
	return p.sm.get() == Active
}

func closeIfOpen(c chan struct{}) {
	select {
	case <-c:
	default:
		close(c)
	}
}
