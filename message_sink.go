package lorarx

import (
	"bufio"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/sigbridge/lorarx/internal/packetdb"
)

// MessageSink renders decoded messages as text lines on the primary output
// stream, one line per message, flushed after every write. It drains the
// engine's message port on a single goroutine, so delivery order is exactly
// arrival order. A message that cannot be rendered is reported to
// diagnostics and skipped; it never stalls the ones behind it.
type MessageSink struct {
	out        *bufio.Writer
	db         *packetdb.Connection
	echo       bool
	nDelivered int
	nMalformed int
}

// NewMessageSink writes rendered messages to w. echo controls the
// per-message diagnostic copy.
func NewMessageSink(w io.Writer, echo bool) *MessageSink {
	return &MessageSink{out: bufio.NewWriter(w), echo: echo}
}

// SetDB attaches an optional packet-log database connection.
func (sk *MessageSink) SetDB(db *packetdb.Connection) {
	sk.db = db
}

// Run drains the message port until it closes. Call it on its own goroutine;
// it is the only goroutine that touches the primary output stream.
func (sk *MessageSink) Run(in <-chan DecodedMessage) {
	for msg := range in {
		sk.handle(msg)
	}
}

func (sk *MessageSink) handle(msg DecodedMessage) {
	text, err := renderMessage(msg.Payload)
	if err != nil {
		sk.nMalformed++
		ProblemLogger.Printf("failed to decode message: %s", err)
		return
	}

	// The line must be on the wire before the next message is rendered:
	// downstream consumers read line by line with no tolerance for batching.
	fmt.Fprintln(sk.out, text)
	if err := sk.out.Flush(); err != nil {
		ProblemLogger.Printf("output stream write failed: %s", err)
		return
	}
	sk.nDelivered++

	if sk.echo {
		UpdateLogger.Printf("decoded message: %s", text)
	}
	publishStatus("MESSAGE", struct {
		Delivered int
		Text      string
	}{Delivered: sk.nDelivered, Text: text})
	if sk.db != nil {
		sk.db.RecordPacket(&packetdb.PacketMessage{
			ID:         ulid.Make().String(),
			ReceiverID: RunID,
			At:         msg.At,
			Length:     len(msg.Payload),
			Text:       text,
		})
	}
}

// Delivered returns the number of lines emitted. Read it only after Run has
// returned.
func (sk *MessageSink) Delivered() int {
	return sk.nDelivered
}

// renderMessage converts a message payload to its one-line textual form.
// One trailing newline (LF or CRLF) is tolerated and trimmed. A payload that
// is not valid UTF-8, or that contains interior control bytes, cannot be a
// single printable line and is rejected.
func renderMessage(payload []byte) (string, error) {
	n := len(payload)
	if n > 0 && payload[n-1] == '\n' {
		n--
		if n > 0 && payload[n-1] == '\r' {
			n--
		}
	}
	body := payload[:n]
	if !utf8.Valid(body) {
		return "", fmt.Errorf("message payload is not valid UTF-8 (%d bytes)", len(payload))
	}
	for _, b := range body {
		if b < 0x20 && b != '\t' {
			return "", fmt.Errorf("message payload contains control byte 0x%02x", b)
		}
	}
	return string(body), nil
}
