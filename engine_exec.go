package lorarx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sigbridge/lorarx/internal/getbytes"
)

// ExecEngine runs the demodulation engine as an external subprocess. Raw
// complex64 samples are streamed to the child's stdin; each line the child
// writes on its stdout becomes one DecodedMessage. The child's stderr is
// passed through to the receiver's diagnostic stream.
//
// The engine configuration is exported to the child through LORARX_*
// environment variables, so any decoder wrapper can pick it up without a
// private flag convention.
type ExecEngine struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	messages chan DecodedMessage
	scanDone chan struct{}
}

// NewExecEngine starts the decoder subprocess described by argv. An empty
// argv or a failure to start is a configuration error.
func NewExecEngine(argv []string, cfg LoRaConfig) (*ExecEngine, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("no decoder command configured")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), engineEnvironment(cfg)...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("could not open decoder stdin: %s", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("could not open decoder stdout: %s", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not start decoder %q: %s", argv[0], err)
	}

	e := &ExecEngine{
		cmd:      cmd,
		stdin:    stdin,
		messages: make(chan DecodedMessage, 16),
		scanDone: make(chan struct{}),
	}
	go e.scanOutput(stdout)
	return e, nil
}

// ExecEngineFactory adapts a decoder argv into an EngineFactory.
func ExecEngineFactory(argv []string) EngineFactory {
	return func(cfg LoRaConfig) (DemodEngine, error) {
		return NewExecEngine(argv, cfg)
	}
}

// scanOutput drains the child's stdout line by line into the message port.
// Runs until the child closes its stdout, then closes the port.
func (e *ExecEngine) scanOutput(stdout io.Reader) {
	defer close(e.messages)
	defer close(e.scanDone)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		e.messages <- DecodedMessage{Payload: line, At: time.Now()}
	}
	if err := scanner.Err(); err != nil {
		ProblemLogger.Printf("decoder stdout read failed: %s", err)
	}
}

// ConsumeSamples forwards one chunk of samples to the child. A write failure
// means the engine is gone, which the pipeline treats as terminal.
func (e *ExecEngine) ConsumeSamples(samples []complex64) error {
	if _, err := e.stdin.Write(getbytes.FromSliceComplex64(samples)); err != nil {
		return fmt.Errorf("decoder stdin write failed: %s", err)
	}
	return nil
}

// Messages returns the engine's message-out port.
func (e *ExecEngine) Messages() <-chan DecodedMessage {
	return e.messages
}

// Close ends the sample stream, lets the child drain and exit, and reaps it.
// Pending messages are delivered before the message port closes.
func (e *ExecEngine) Close() error {
	if err := e.stdin.Close(); err != nil {
		ProblemLogger.Printf("decoder stdin close failed: %s", err)
	}
	<-e.scanDone
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("decoder exited with error: %s", err)
	}
	return nil
}

// engineEnvironment renders the full parameter set, in construction order,
// as LORARX_* environment variables for the child process.
func engineEnvironment(cfg LoRaConfig) []string {
	syncwords := make([]string, len(cfg.SyncWord))
	for i, w := range cfg.SyncWord {
		syncwords[i] = fmt.Sprintf("0x%02X", w)
	}
	printrx := make([]string, len(cfg.PrintRx))
	for i, p := range cfg.PrintRx {
		printrx[i] = strconv.FormatBool(p)
	}
	return []string{
		fmt.Sprintf("LORARX_CENTER_FREQ=%d", cfg.CenterFreq),
		fmt.Sprintf("LORARX_BANDWIDTH=%d", cfg.Bandwidth),
		fmt.Sprintf("LORARX_CODING_RATE=%d", cfg.CodingRate),
		fmt.Sprintf("LORARX_HAS_CRC=%v", cfg.HasCRC),
		fmt.Sprintf("LORARX_IMPLICIT_HEADER=%v", cfg.ImplicitHeader),
		fmt.Sprintf("LORARX_PAYLOAD_LENGTH=%d", cfg.PayloadLength),
		fmt.Sprintf("LORARX_SAMPLE_RATE=%d", cfg.SampleRate),
		fmt.Sprintf("LORARX_SPREADING_FACTOR=%d", cfg.SpreadingFactor),
		fmt.Sprintf("LORARX_SYNC_WORD=%s", strings.Join(syncwords, ",")),
		fmt.Sprintf("LORARX_SOFT_DECODING=%v", cfg.SoftDecoding),
		fmt.Sprintf("LORARX_LDRO_MODE=%d", cfg.LDROMode),
		fmt.Sprintf("LORARX_PRINT_RX=%s", strings.Join(printrx, ",")),
	}
}
