package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func cleanDF11Frame() []byte {
	// 5D4CA2519034D0 - DF11 all-call, address 0x4CA251, IID=0, CRC clean.
	return []byte{0x5D, 0x4C, 0xA2, 0x51, 0x90, 0x34, 0xD0}
}

// syndrome XORs the frame's trailing 24-bit parity field with the
// checksum computed over it, the same way the decoder does.
func syndrome(frame []byte, nbits int) uint32 {
	n := nbits / 8
	wire := uint32(frame[n-3])<<16 | uint32(frame[n-2])<<8 | uint32(frame[n-1])
	return wire ^ Checksum(frame, nbits)
}

func TestChecksumCleanFrameIsZero(t *testing.T) {
	frame := cleanDF11Frame()
	crc := syndrome(frame, ShortMsgBits)
	assert.Equal(t, uint32(0), crc)
}

func TestChecksumDetectsCorruption(t *testing.T) {
	frame := cleanDF11Frame()
	frame[2] ^= 0x08
	assert.NotEqual(t, uint32(0), syndrome(frame, ShortMsgBits))
}

// single-bit errors are always unambiguous and recoverable.
func TestDiagnoseAndApplySingleBitRoundTrip(t *testing.T) {
	engine := NewEngine(1)
	rapid.Check(t, func(t *rapid.T) {
		frame := append([]byte(nil), cleanDF11Frame()...)
		bitPos := rapid.IntRange(0, ShortMsgBits-1).Draw(t, "bit")

		byteIdx := bitPos / 8
		mask := byte(1) << uint(7-bitPos%8)
		frame[byteIdx] ^= mask

		syn := syndrome(frame, ShortMsgBits)
		info, ok := engine.Diagnose(syn, ShortMsgBits)
		require.True(t, ok, "single bit error at %d must be diagnosable", bitPos)
		require.Equal(t, 1, info.Weight)

		Apply(frame, info)
		assert.Equal(t, uint32(0), syndrome(frame, ShortMsgBits))
	})
}

func TestDiagnoseCleanSyndromeReturnsFalse(t *testing.T) {
	engine := NewEngine(1)
	_, ok := engine.Diagnose(0, ShortMsgBits)
	assert.False(t, ok)
}

func TestNewEngineDefaultsMaxFixBits(t *testing.T) {
	e := NewEngine(0)
	assert.Equal(t, 1, e.maxFixBits)
}
