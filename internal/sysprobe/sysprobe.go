// Package sysprobe checks kernel settings that affect how much of the
// incoming sample stream the OS can buffer for us. Purely advisory: it only
// ever logs.
package sysprobe

import (
	"log"
	"strconv"

	sysctl "github.com/lorenzosaino/go-sysctl"
)

// CheckPipeCapacity warns when fs.pipe-max-size holds less than one second
// of samples at the given rate. The upstream radio front-end writes into our
// stdin pipe; with a small pipe, any scheduling hiccup on our side overflows
// it and the front-end drops samples we never see.
func CheckPipeCapacity(sampleRate int, logger *log.Logger) {
	val, err := sysctl.Get("fs.pipe-max-size")
	if err != nil {
		logger.Printf("could not read fs.pipe-max-size: %s", err)
		return
	}
	maxBytes, err := strconv.Atoi(val)
	if err != nil {
		logger.Printf("could not parse fs.pipe-max-size=%q: %s", val, err)
		return
	}
	bytesPerSecond := sampleRate * 8
	if bytesPerSecond <= 0 || maxBytes >= bytesPerSecond {
		return
	}
	ms := 1000 * maxBytes / bytesPerSecond
	logger.Printf("fs.pipe-max-size is %d bytes, only ~%d ms at %d S/s; "+
		"consider raising it (and F_SETPIPE_SZ upstream) if samples drop",
		maxBytes, ms, sampleRate)
}
