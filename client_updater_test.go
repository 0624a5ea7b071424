package lorarx

import (
	"testing"
	"time"
)

func TestPublishStatusNeverBlocks(t *testing.T) {
	// With nothing draining the status queue, publishing must still return
	// promptly: the data path cannot depend on a status consumer existing.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10*cap(clientMessageChan); i++ {
			publishStatus("TEST", struct{ I int }{I: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishStatus blocked on a full status queue")
	}

	// Drain whatever was queued so later tests start clean.
	for {
		select {
		case <-clientMessageChan:
		default:
			return
		}
	}
}
