package sysprobe

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestCheckPipeCapacity(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	// A sample rate of zero can never warrant a warning.
	CheckPipeCapacity(0, logger)
	if s := buf.String(); strings.Contains(s, "consider raising") {
		t.Errorf("unexpected warning for zero sample rate: %q", s)
	}

	// An absurd sample rate warns (or reports an unreadable sysctl on
	// hosts without /proc/sys); either way it must not panic.
	buf.Reset()
	CheckPipeCapacity(1 << 40, logger)
	if s := buf.String(); s != "" &&
		!strings.Contains(s, "pipe-max-size") {
		t.Errorf("unexpected log output: %q", s)
	}
}
