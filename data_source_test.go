package lorarx

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateMachineTransitions(t *testing.T) {
	var sm stateMachine
	assert.Equal(t, Inactive, sm.get())

	assert.NoError(t, sm.setStarting())
	assert.Error(t, sm.setStarting(), "cannot start twice")
	sm.setActive()
	assert.Equal(t, Active, sm.get())

	assert.True(t, sm.setStopping())
	assert.False(t, sm.setStopping(), "already stopping")
	sm.setInactive()
	assert.False(t, sm.setStopping(), "nothing to stop")
}

func TestSourceStateString(t *testing.T) {
	assert.Equal(t, "Inactive", Inactive.String())
	assert.Equal(t, "Starting", Starting.String())
	assert.Equal(t, "Active", Active.String())
	assert.Equal(t, "Stopping", Stopping.String())
}

func TestStreamStatsReportCadence(t *testing.T) {
	var buf bytes.Buffer
	oldLogger := UpdateLogger
	UpdateLogger = log.New(&buf, "", 0)
	defer func() { UpdateLogger = oldLogger }()

	var st streamStats
	st.start(time.Hour)
	st.totalSamples = 12345

	// Within the interval: silence.
	st.report(time.Now())
	assert.Empty(t, buf.String())

	// The cadence is wall-clock polled, so a late poll still reports.
	st.report(time.Now().Add(2 * time.Hour))
	assert.Contains(t, buf.String(), "samples: 12345")

	// And the next interval restarts from the report just emitted.
	buf.Reset()
	st.report(time.Now())
	assert.Empty(t, buf.String())
}

func TestStreamStatsDisabled(t *testing.T) {
	var buf bytes.Buffer
	oldLogger := UpdateLogger
	UpdateLogger = log.New(&buf, "", 0)
	defer func() { UpdateLogger = oldLogger }()

	var st streamStats
	st.start(0)
	st.report(time.Now().Add(time.Hour))
	assert.Empty(t, buf.String(), "a zero interval disables reporting")
}
