package packetdb

import "time"

// The composite types used for messages to the ClickHouse database.

// ReceiverActivityMessage is the information for the receiveractivity table:
// one row per receiver run.
type ReceiverActivityMessage struct {
	ID        string
	Hostname  string
	Version   string
	GoVersion string
	CPUs      int
	Start     time.Time
	End       time.Time
}

// PacketMessage is the information required to make an entry in the packets
// table: one row per decoded message delivered on the primary output.
type PacketMessage struct {
	ID         string
	ReceiverID string
	At         time.Time
	Length     int
	Text       string
}
