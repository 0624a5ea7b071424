package lorarx

// Contains the client updater, which publishes JSON-encoded messages giving
// the latest receiver state. The status feed is diagnostics, not part of the
// stable output contract; consumers must not parse it as the primary stream.

import (
	"encoding/json"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// ClientUpdate carries one message to be published on the status port.
type ClientUpdate struct {
	tag   string
	state interface{}
}

var clientMessageChan chan ClientUpdate

func init() {
	clientMessageChan = make(chan ClientUpdate, 256)
}

// publishStatus queues a status update without ever blocking the caller.
// Updates are dropped when the queue is full or nothing drains it (e.g. in
// tests that never start the updater); the data path must not care.
func publishStatus(tag string, state interface{}) {
	select {
	case clientMessageChan <- ClientUpdate{tag: tag, state: state}:
	default:
	}
}

// RunClientUpdater forwards any queued update to a ZMQ PUB socket, tag frame
// first, JSON body second. It runs until abort closes.
func RunClientUpdater(portstatus int, abort <-chan struct{}) {
	hostname := fmt.Sprintf("tcp://*:%d", portstatus)
	pubSocket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		ProblemLogger.Printf("could not create status socket: %s", err)
		return
	}
	defer pubSocket.Close()
	if err := pubSocket.Bind(hostname); err != nil {
		ProblemLogger.Printf("could not bind status socket to %s: %s", hostname, err)
		return
	}

	for {
		select {
		case <-abort:
			return
		case update := <-clientMessageChan:
			body, err := json.Marshal(update.state)
			if err != nil {
				ProblemLogger.Printf("could not marshal %q status update: %s", update.tag, err)
				continue
			}
			if _, err := pubSocket.SendMessage(update.tag, body); err != nil {
				ProblemLogger.Printf("could not publish %q status update: %s", update.tag, err)
				return
			}
		}
	}
}
