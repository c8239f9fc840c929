package netio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSBSRoundTripPositionRow(t *testing.T) {
	msg := SBSMessage{
		ICAO:     0x4840D6,
		Callsign: "KLM1023",
		Altitude: 38000,
		Lat:      52.2572,
		Lon:      3.91937,
		HasPos:   true,
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeSBS(&buf, msg))

	r := NewSBSReader(&buf)
	got, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, msg.ICAO, got.ICAO)
	assert.Equal(t, msg.Callsign, got.Callsign)
	assert.Equal(t, msg.Altitude, got.Altitude)
	assert.True(t, got.HasPos)
	assert.InDelta(t, msg.Lat, got.Lat, 0.0001)
	assert.InDelta(t, msg.Lon, got.Lon, 0.0001)
}

func TestSBSReaderSkipsNonMSG3Rows(t *testing.T) {
	buf := bytes.NewBufferString("MSG,1,1,1,4840D6,1,,,,,,,,,,,,,,,,\r\n")
	r := NewSBSReader(buf)
	_, err := r.ReadMessage()
	assert.Error(t, err) // only a MSG,3 row is consumable; stream ends in EOF
}

func TestSBSHeartbeatIsBlankLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SBSHeartbeat(&buf))
	assert.Equal(t, "\r\n", buf.String())
}

func TestFATSVWriteOmitsAbsentFields(t *testing.T) {
	var buf bytes.Buffer
	f := NewFATSV(&buf)
	require.NoError(t, f.Write(FATSVRecord{Hex: "4840d6", Callsign: "KLM1023"}))

	line := buf.String()
	assert.Contains(t, line, "_v\t2")
	assert.Contains(t, line, "hexid\t4840d6")
	assert.Contains(t, line, "ident\tKLM1023")
	assert.NotContains(t, line, "alt\t")
	assert.NotContains(t, line, "lat\t")
}

func TestFATSVWriteIncludesPositionAndSpeed(t *testing.T) {
	var buf bytes.Buffer
	f := NewFATSV(&buf)
	lat, lon, gs := 52.25, 3.91, 420.0
	require.NoError(t, f.Write(FATSVRecord{Hex: "4840d6", Lat: &lat, Lon: &lon, GS: &gs}))

	line := buf.String()
	assert.Contains(t, line, "lat\t52.25000")
	assert.Contains(t, line, "lon\t3.91000")
	assert.Contains(t, line, "speed\t420.0")
}
