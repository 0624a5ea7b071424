package lorarx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingWriter remembers each Write call separately, so tests can verify
// that every message reaches the output in its own flush.
type recordingWriter struct {
	writes []string
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.writes = append(rw.writes, string(p))
	return len(p), nil
}

func (rw *recordingWriter) all() string {
	s := ""
	for _, w := range rw.writes {
		s += w
	}
	return s
}

func sinkMessages(sink *MessageSink, payloads ...string) {
	ch := make(chan DecodedMessage, len(payloads))
	for _, p := range payloads {
		ch <- DecodedMessage{Payload: []byte(p), At: time.Now()}
	}
	close(ch)
	sink.Run(ch)
}

func TestSinkOrdering(t *testing.T) {
	rw := &recordingWriter{}
	sink := NewMessageSink(rw, false)
	sinkMessages(sink, "A", "B", "C")

	assert.Equal(t, "A\nB\nC\n", rw.all(), "messages must come out in arrival order, one line each")
	assert.Equal(t, []string{"A\n", "B\n", "C\n"}, rw.writes,
		"each line must be flushed before the next is written")
	assert.Equal(t, 3, sink.Delivered())
}

func TestSinkMalformedMessages(t *testing.T) {
	rw := &recordingWriter{}
	sink := NewMessageSink(rw, false)
	sinkMessages(sink,
		"first",
		"\xff\xfe not utf-8",
		"control\x01byte",
		"interior\nnewline",
		"last",
	)

	assert.Equal(t, "first\nlast\n", rw.all(),
		"malformed messages are dropped without stalling the ones behind them")
	assert.Equal(t, 2, sink.Delivered())
	assert.Equal(t, 3, sink.nMalformed)
}

func TestSinkTrailingNewlineTrimmed(t *testing.T) {
	rw := &recordingWriter{}
	sink := NewMessageSink(rw, false)
	sinkMessages(sink, "plain", "lf\n", "crlf\r\n", "tab\tok")

	assert.Equal(t, []string{"plain\n", "lf\n", "crlf\n", "tab\tok\n"}, rw.writes)
}

func TestRenderMessage(t *testing.T) {
	var tests = []struct {
		payload string
		want    string
		ok      bool
	}{
		{"hello", "hello", true},
		{"hello\n", "hello", true},
		{"hello\r\n", "hello", true},
		{"", "", true},
		{"\n", "", true},
		{"héllo", "héllo", true},
		{"a\tb", "a\tb", true},
		{"\xff", "", false},
		{"a\x00b", "", false},
		{"a\nb", "", false},
	}
	for _, test := range tests {
		got, err := renderMessage([]byte(test.payload))
		if test.ok {
			assert.NoError(t, err, "renderMessage(%q)", test.payload)
			assert.Equal(t, test.want, got, "renderMessage(%q)", test.payload)
		} else {
			assert.Error(t, err, "renderMessage(%q)", test.payload)
		}
	}
}
