package lorarx

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sigbridge/lorarx/internal/getbytes"
)

// scriptedEngine is a stand-in demodulation engine for tests: it counts the
// samples it is fed and emits a fixed script of messages when closed, which
// exercises the drain-before-shutdown path.
type scriptedEngine struct {
	script   []string
	messages chan DecodedMessage
	consumed int
}

func newScriptedEngine(script ...string) *scriptedEngine {
	return &scriptedEngine{
		script:   script,
		messages: make(chan DecodedMessage, len(script)+1),
	}
}

func (se *scriptedEngine) ConsumeSamples(samples []complex64) error {
	se.consumed += len(samples)
	return nil
}

func (se *scriptedEngine) Messages() <-chan DecodedMessage {
	return se.messages
}

func (se *scriptedEngine) Close() error {
	for _, line := range se.script {
		se.messages <- DecodedMessage{Payload: []byte(line), At: time.Now()}
	}
	close(se.messages)
	return nil
}

func testPipeline(t *testing.T, engine DemodEngine, chunk int) (*Pipeline, *os.File, *bytes.Buffer) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("could not create pipe: %s", err)
	}
	cfg := DefaultConfig()
	cfg.ChunkSamples = chunk
	cfg.ReportInterval = 0
	source := NewStdinSource(r, chunk, 0)
	output := &bytes.Buffer{}
	factory := func(LoRaConfig) (DemodEngine, error) { return engine, nil }
	p, err := NewPipeline(cfg, source, factory, output)
	if err != nil {
		t.Fatalf("NewPipeline failed: %s", err)
	}
	t.Cleanup(func() { w.Close() })
	return p, w, output
}

// waitOrFail fails the test if the pipeline hasn't reached terminal shutdown
// promptly: end-of-stream must never hang.
func waitOrFail(t *testing.T, p *Pipeline) {
	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not shut down after end-of-stream")
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	engine := newScriptedEngine("A", "B", "C")
	p, w, output := testPipeline(t, engine, 64)

	assert.NoError(t, p.Start())
	w.Write(getbytes.FromSliceComplex64(makeSamples(200)))
	w.Close()
	waitOrFail(t, p)

	assert.Equal(t, 200, engine.consumed, "every whole sample written must reach the engine")
	assert.Equal(t, "A\nB\nC\n", output.String())
	assert.False(t, p.Running())
}

func TestPipelineStop(t *testing.T) {
	p, _, _ := testPipeline(t, newScriptedEngine(), 64)
	assert.NoError(t, p.Start())
	assert.True(t, p.Running())

	assert.NoError(t, p.Stop())
	assert.False(t, p.Running())
	assert.Error(t, p.Stop(), "a second Stop has nothing to stop")
}

func TestPipelineStartTwice(t *testing.T) {
	p, w, _ := testPipeline(t, newScriptedEngine(), 64)
	assert.NoError(t, p.Start())
	assert.Error(t, p.Start(), "cannot Start a pipeline that is already Active")
	w.Close()
	waitOrFail(t, p)
}

func TestPipelineConfigurationError(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("could not create pipe: %s", err)
	}
	defer r.Close()
	defer w.Close()

	cfg := DefaultConfig()
	source := NewStdinSource(r, 64, 0)
	factory := func(LoRaConfig) (DemodEngine, error) {
		return nil, fmt.Errorf("spreading factor out of range")
	}
	_, err = NewPipeline(cfg, source, factory, &bytes.Buffer{})
	assert.Error(t, err, "an engine configuration error must abort construction")
	assert.Contains(t, err.Error(), "spreading factor")
}

func TestPipelineCapture(t *testing.T) {
	capfile := t.TempDir() + "/capture.npy"
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("could not create pipe: %s", err)
	}
	cfg := DefaultConfig()
	cfg.ChunkSamples = 64
	cfg.CaptureFile = capfile
	source := NewStdinSource(r, 64, 0)
	engine := newScriptedEngine()
	factory := func(LoRaConfig) (DemodEngine, error) { return engine, nil }
	p, err := NewPipeline(cfg, source, factory, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewPipeline failed: %s", err)
	}

	assert.NoError(t, p.Start())
	w.Write(getbytes.FromSliceComplex64(makeSamples(100)))
	w.Close()
	waitOrFail(t, p)

	info, err := os.Stat(capfile)
	assert.NoError(t, err)
	assert.Equal(t, int64(128+100*SampleBytes), info.Size(),
		"capture file must hold the npy header plus every sample")
}
