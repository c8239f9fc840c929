package netio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeastRoundTripLongFrame(t *testing.T) {
	payload := make([]byte, 14)
	for i := range payload {
		payload[i] = byte(i*17 + 3)
	}
	payload[2] = beastEscape // exercise escape-doubling through a real frame

	var buf bytes.Buffer
	require.NoError(t, EncodeBeast(&buf, '3', 0x0102030405, 0x7F, payload))

	r := NewBeastReader(&buf)
	typ, frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte('3'), typ)
	assert.Equal(t, payload, frame.Payload)
	assert.Equal(t, byte(0x7F), frame.SignalLevel)
	assert.Equal(t, uint64(0x0102030405), frame.RecvClock)
}

func TestBeastHeartbeatIsTypeOneZeroBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, BeastHeartbeat(&buf))

	r := NewBeastReader(&buf)
	typ, frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte('1'), typ)
	assert.Equal(t, []byte{0, 0}, frame.Payload)
}

func TestParseBeastCommandRecognizesModeACToggle(t *testing.T) {
	cmd, ok := ParseBeastCommand([]byte{beastEscape, '1', 'J'})
	require.True(t, ok)
	assert.Equal(t, byte('J'), cmd.Setting)

	_, ok = ParseBeastCommand([]byte{beastEscape, '2', 'J'})
	assert.False(t, ok)
}

func TestAVRReaderParsesPlainAndTimestampedLines(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 14)
	var buf bytes.Buffer
	require.NoError(t, EncodeAVR(&buf, payload))
	require.NoError(t, EncodeAVRTimestamped(&buf, 0xDEADBEEF, payload))

	r := NewAVRReader(&buf)

	f1, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, payload, f1.Payload)

	f2, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, payload, f2.Payload)
}

func TestAVRReaderSkipsMalformedLines(t *testing.T) {
	buf := bytes.NewBufferString("garbage line with no terminator\n*AABBCCDDEEFF00;\n")
	r := NewAVRReader(buf)

	f, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Len(t, f.Payload, 7)
}

func TestAVRHeartbeatIsZeroLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, AVRHeartbeat(&buf))
	assert.Equal(t, "*0000;\n", buf.String())
}
