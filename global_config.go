package lorarx

import (
	"log"
	"os"
	"time"
)

// Portnumbers structs can contain all TCP port numbers used by lorarx.
type Portnumbers struct {
	Status int
}

// Ports globally holds all TCP port numbers used by lorarx.
var Ports Portnumbers

func setPortnumbers(base int) {
	Ports.Status = base
}

// BuildInfo can contain compile-time information about the build
type BuildInfo struct {
	Version string
	Githash string
	Gitdate string
	Date    string
	Summary string
	Host    string
}

// Build is a global holding compile-time information about the build
var Build = BuildInfo{
	Version: "0.1.2",
	Githash: "no git hash computed",
	Date:    "no build date computed",
}

// StartTime is a global holding the time init() was run
var StartTime time.Time

// RunID is a global identifying this receiver run. The main program sets it
// to a fresh ULID; it is quoted in status updates and DB entries.
var RunID string

// ProblemLogger will log warning messages to a file
var ProblemLogger *log.Logger

// UpdateLogger will log diagnostic messages to a file
var UpdateLogger *log.Logger

func init() {
	setPortnumbers(5600)
	StartTime = time.Now()

	// Until the main program swaps in file-backed loggers, diagnostics go to
	// stderr so that library users and tests always have a sink.
	ProblemLogger = log.New(os.Stderr, "", log.LstdFlags)
	UpdateLogger = log.New(os.Stderr, "", log.LstdFlags)
}
