// Package packetdb logs receiver runs and decoded packets to a ClickHouse
// database. Logging is best-effort: a missing or broken database degrades to
// a no-op connection and never touches the data path.
package packetdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const databaseName = "lorarx" // official SQL name of the database

// Connection wraps one ClickHouse connection and the channel feeding it.
type Connection struct {
	conn          clickhouse.Conn
	err           error
	activityEntry *ReceiverActivityMessage
	packetmsg     chan *PacketMessage
	sync.WaitGroup
}

// IsConnected says whether the connection is usable.
func (db *Connection) IsConnected() bool {
	return (db != nil) && (db.conn != nil) && (db.err == nil)
}

// PingServer connects, prints the server version, and disconnects.
func PingServer() error {
	db := createConnection()
	if !db.IsConnected() {
		return fmt.Errorf("database is not connected")
	}
	v, err := db.conn.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Printf("ClickHouse server is alive. Version:\n%s\n", v)
	db.conn.Close()
	return nil
}

// StartConnection opens the database, records the activity entry, and starts
// the goroutine that drains packet messages until abort closes.
func StartConnection(activity *ReceiverActivityMessage, abort <-chan struct{}) *Connection {
	db := createConnection()
	db.activityEntry = activity
	db.logActivity()
	go db.handleConnection(abort)
	return db
}

// DummyConnection returns a connection that records nothing, for use when DB
// logging is disabled.
func DummyConnection() *Connection {
	db := &Connection{}
	db.Add(1)
	return db
}

func createConnection() *Connection {
	db := &Connection{}
	addr := os.Getenv("LORARX_DB_ADDR")
	if addr == "" {
		addr = "localhost:9000"
	}
	auth := clickhouse.Auth{
		Database: databaseName,
		Username: os.Getenv("LORARX_DB_USER"),
		Password: os.Getenv("LORARX_DB_PASSWORD"),
	}
	client := clickhouse.ClientInfo{
		Products: []struct {
			Name    string
			Version string
		}{
			{Name: "lorarx", Version: "unknown"},
		},
	}
	opt := clickhouse.Options{
		Addr:       []string{addr},
		Auth:       auth,
		ClientInfo: client,
		TLS:        nil,
	}
	ctx := context.Background()
	conn, err := clickhouse.Open(&opt)
	if err != nil {
		db.err = err
		return db
	}
	db.conn = conn
	db.Add(1)

	// Ping the server at the DB connection.
	if err = conn.Ping(ctx); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			fmt.Printf("Exception [%d] %s \n%s\n", exception.Code, exception.Message, exception.StackTrace)
		}
		db.err = err
		return db
	}

	db.packetmsg = make(chan *PacketMessage)
	return db
}

func (db *Connection) logActivity() {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	ae := db.activityEntry
	formattedStart := ae.Start.Format("2006-01-02 15:04:05.000000")
	formattedEnd := ae.End.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO receiveractivity VALUES (?, ?, ?, ?, ?, ?, ?)`, nowait,
		ae.ID, ae.Hostname, ae.Version, ae.GoVersion, ae.CPUs,
		formattedStart, formattedEnd,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into receiveractivity ", err)
		db.err = err
	}
}

func (db *Connection) handleConnection(abort <-chan struct{}) {
	defer db.Done()
	for {
		select {
		case <-abort:
			db.Disconnect()
			return
		case pmsg := <-db.packetmsg:
			db.handlePacketMessage(pmsg)
		}
	}
}

// Disconnect finalizes the activity entry with the end-of-run timestamp.
func (db *Connection) Disconnect() {
	if db.IsConnected() {
		db.activityEntry.End = time.Now()
		db.logActivity()
	}
}

// RecordPacket takes a PacketMessage and stores it in the DB (if it's open).
// The handoff happens on a separate goroutine so the message sink is never
// delayed by a slow database.
func (db *Connection) RecordPacket(msg *PacketMessage) {
	if !db.IsConnected() || msg == nil {
		return
	}
	go func() { db.packetmsg <- msg }()
}

func (db *Connection) handlePacketMessage(m *PacketMessage) {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	formattedAt := m.At.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO packets VALUES (?, ?, ?, ?, ?)`, nowait,
		m.ID, m.ReceiverID, formattedAt, m.Length, m.Text,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into packets ", err)
		db.err = err
	}
}
