package decode

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentag/modes1090/modes/crc"
	"github.com/regentag/modes1090/modes/filter"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func newDecoder() *Decoder {
	return NewDecoder(filter.New(), 1)
}

func TestDecodeDF17Ident(t *testing.T) {
	d := newDecoder()
	frame := mustHex(t, "8D4840D6202CC371C32CE0576098")

	msg, err := d.Decode(Input{Frame: frame}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 17, msg.DF)
	assert.Equal(t, uint32(0x4840D6), msg.Address)
	assert.True(t, msg.CallsignValid)
	assert.True(t, strings.HasPrefix(msg.Callsign, "KL"))
}

func TestDecodeDF17AirbornePositionEven(t *testing.T) {
	d := newDecoder()
	frame := mustHex(t, "8D40621D58C382D690C8AC2863A7")

	msg, err := d.Decode(Input{Frame: frame}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, uint32(0x40621D), msg.Address)
	assert.False(t, msg.CPR.Odd)
	assert.Equal(t, uint32(93000), msg.CPR.RawLat)
	assert.Equal(t, uint32(51372), msg.CPR.RawLon)
	assert.True(t, msg.AltitudeValid)
	assert.Equal(t, 38000, msg.Altitude)
}

func TestDecodeDF17VelocitySubtype1(t *testing.T) {
	d := newDecoder()
	frame := mustHex(t, "8D485020994409940838175B284F")

	msg, err := d.Decode(Input{Frame: frame}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, uint32(0x485020), msg.Address)
	require.True(t, msg.VelocityValid)
	assert.InDelta(t, 159, msg.Velocity.GroundSpeed, 2)
	assert.InDelta(t, 183, msg.Velocity.Heading, 2)
	assert.Equal(t, -832, msg.Velocity.VertRate)
}

func TestDecodeDF11AllCallClean(t *testing.T) {
	d := newDecoder()
	frame := mustHex(t, "5D4CA2519034D0")

	msg, err := d.Decode(Input{Frame: frame}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, uint32(0x4CA251), msg.Address)
	assert.Equal(t, 11, msg.DF)
	assert.True(t, msg.CRCValid)

	iid := int(msg.Syndrome & 0x7f)
	assert.Equal(t, 0, iid)

	scoreUnknown := Score(msg.DF, msg.BitsFixed, iid, msg.CRCValid, false)
	assert.Equal(t, 750, scoreUnknown)

	scoreKnown := Score(msg.DF, msg.BitsFixed, iid, msg.CRCValid, true)
	assert.Equal(t, 1600, scoreKnown)
}

func TestDecodeDF4KnownAddressScoresOneThousand(t *testing.T) {
	f := filter.New()
	addr := uint32(0x4CA251)
	f.Add(addr)
	d := NewDecoder(f, 1)

	// Build a DF4 frame whose CRC, XORed with addr, is embedded as the
	// trailing 3 bytes: any payload works since the syndrome equals the
	// address by construction once we compute and splice the checksum.
	frame := []byte{0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	crcVal := crc.Checksum(frame, crc.ShortMsgBits)
	xored := crcVal ^ addr
	frame[4] = byte(xored >> 16)
	frame[5] = byte(xored >> 8)
	frame[6] = byte(xored)

	msg, err := d.Decode(Input{Frame: frame}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, msg.DF)
	assert.Equal(t, addr, msg.Address)

	score := Score(msg.DF, msg.BitsFixed, 0, msg.CRCValid, msg.AddressKnown)
	assert.Equal(t, 1000, score)
}

func TestScoreRejectsBadCRC(t *testing.T) {
	assert.Less(t, Score(17, 0, 0, false, false), 0)
}

func TestScoreUnknownStructureIsStructurallyBad(t *testing.T) {
	assert.Equal(t, -2, Score(99, 0, 0, true, false))
}

func TestDecodeRejectsAllZeroFrame(t *testing.T) {
	d := newDecoder()
	_, err := d.Decode(Input{Frame: make([]byte, 7)}, time.Now())
	require.Error(t, err)
	derr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, FailureBad, derr.Kind)
}

func TestDecodeMovementSchedule(t *testing.T) {
	assert.Equal(t, -1.0, decodeMovement(0, false))
	assert.Equal(t, 0.0, decodeMovement(1, false))
	assert.Equal(t, 175.0, decodeMovement(124, false))
	assert.Equal(t, -1.0, decodeMovement(125, false))
	assert.Equal(t, 180.0, decodeMovement(200, false))
}
