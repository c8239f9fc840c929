package main

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentag/modes1090/internal/config"
	"github.com/regentag/modes1090/netio"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestHandleFrameTracksKnownAircraft(t *testing.T) {
	d := newDaemon(config.Default())
	frame := netio.Frame{Payload: mustHex(t, "8D4840D6202CC371C32CE0576098")}

	d.handleFrame(frame, time.Now())

	ac, ok := d.tracker.Lookup(0x4840D6)
	require.True(t, ok)
	assert.True(t, ac.Callsign != "")
}

func TestHandleFrameDropsStructurallyBadFrame(t *testing.T) {
	d := newDaemon(config.Default())
	frame := netio.Frame{Payload: make([]byte, 14)} // all-zero: rejected before CRC
	d.handleFrame(frame, time.Now())
	assert.Equal(t, 0, d.tracker.Len())
}

func TestPollConnectorsDoesNotPanicWithNoConnectors(t *testing.T) {
	d := newDaemon(config.Default())
	d.pollConnectors()
}
