// Package crc implements the 24-bit Mode-S checksum and the syndrome-based
// bit-error correction table used to repair low-weight bit errors in a
// received frame.
//
// Grounded on Regentag-go1090's mode_s.modesChecksumTable/modesChecksum and
// fixSingleBitErrors/fixTwoBitsErrors, generalized into a precomputed
// syndrome->error-positions table built once at Engine construction instead
// of being recomputed by brute force on every frame.
package crc

import "sync"

const (
	LongMsgBits   = 112
	ShortMsgBits  = 56
	LongMsgBytes  = LongMsgBits / 8
	ShortMsgBytes = ShortMsgBits / 8
)

// checksumTable is the parity table for Mode S messages: 112 entries, one
// per bit position of a long message (the last 24 are zero since the
// checksum itself doesn't contribute to the checksum). For short (56 bit)
// messages only the trailing 56 entries are used.
var checksumTable = [112]uint32{
	0x3935ea, 0x1c9af5, 0xf1b77e, 0x78dbbf, 0xc397db, 0x9e31e9, 0xb0e2f0, 0x587178,
	0x2c38bc, 0x161c5e, 0x0b0e2f, 0xfa7d13, 0x82c48d, 0xbe9842, 0x5f4c21, 0xd05c14,
	0x682e0a, 0x341705, 0xe5f186, 0x72f8c3, 0xc68665, 0x9cb936, 0x4e5c9b, 0xd8d449,
	0x939020, 0x49c810, 0x24e408, 0x127204, 0x093902, 0x049c81, 0xfdb444, 0x7eda22,
	0x3f6d11, 0xe04c8c, 0x702646, 0x381323, 0xe3f395, 0x8e03ce, 0x4701e7, 0xdc7af7,
	0x91c77f, 0xb719bb, 0xa476d9, 0xadc168, 0x56e0b4, 0x2b705a, 0x15b82d, 0xf52612,
	0x7a9309, 0xc2b380, 0x6159c0, 0x30ace0, 0x185670, 0x0c2b38, 0x06159c, 0x030ace,
	0x018567, 0xff38b7, 0x80665f, 0xbfc92b, 0xa01e91, 0xaff54c, 0x57faa6, 0x2bfd53,
	0xea04ad, 0x8af852, 0x457c29, 0xdd4410, 0x6ea208, 0x375104, 0x1ba882, 0x0dd441,
	0xf91024, 0x7c8812, 0x3e4409, 0xe0d800, 0x706c00, 0x383600, 0x1c1b00, 0x0e0d80,
	0x0706c0, 0x038360, 0x01c1b0, 0x00e0d8, 0x00706c, 0x003836, 0x001c1b, 0xfff409,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
}

// ErrorInfo names the bit positions of a candidate low-weight error and how
// many bits it flips.
type ErrorInfo struct {
	Bits   []int
	Weight int
}

// Engine computes Mode-S checksums and diagnoses/corrects bit errors via a
// precomputed syndrome table.
type Engine struct {
	maxFixBits int // budget for DF17/18 multi-bit correction (default 1)

	buildOnce sync.Once
	// syndrome -> lowest-weight unambiguous error seen for that syndrome,
	// keyed separately per message length since the table depends on it.
	table112 map[uint32]ErrorInfo
	table56  map[uint32]ErrorInfo
}

// NewEngine creates a CRC engine. maxFixBits bounds the DF17/18
// multi-bit-error correction budget; 0 or negative defaults to 1.
func NewEngine(maxFixBits int) *Engine {
	if maxFixBits <= 0 {
		maxFixBits = 1
	}
	return &Engine{maxFixBits: maxFixBits}
}

// Checksum computes the 24-bit parity of frame, using the first nbits bits
// (56 or 112).
func Checksum(frame []byte, nbits int) uint32 {
	var offset int
	if nbits == LongMsgBits {
		offset = 0
	} else {
		offset = LongMsgBits - ShortMsgBits
	}

	var c uint32
	for j := 0; j < nbits; j++ {
		byteIdx := j / 8
		bitMask := byte(1) << uint(7-j%8)
		if frame[byteIdx]&bitMask != 0 {
			c ^= checksumTable[j+offset]
		}
	}
	return c
}

// ensureTables lazily builds the syndrome->error lookup tables, the engine's
// one-time startup cost, guarded so concurrent first use is safe even
// though the consumer thread is normally single-threaded (see spec's
// concurrency model).
func (e *Engine) ensureTables() {
	e.buildOnce.Do(func() {
		e.table112 = e.buildTable(LongMsgBits)
		e.table56 = e.buildTable(ShortMsgBits)
	})
}

// buildTable enumerates every single-bit error and, budget permitting,
// every two-bit error for a message of nbits bits, recording the syndrome
// each produces. A syndrome that more than one distinct error pattern of
// the lowest weight produces is ambiguous and is dropped from the table
// (Diagnose then reports "no correction").
func (e *Engine) buildTable(nbits int) map[uint32]ErrorInfo {
	table := make(map[uint32]ErrorInfo)
	seenAtWeight := make(map[uint32]int) // syndrome -> weight of the candidate stored, or -1 if ambiguous at that weight

	record := func(syn uint32, positions []int) {
		w := len(positions)
		if prev, ok := seenAtWeight[syn]; ok {
			if prev < w {
				return // a lower-weight candidate already wins
			}
			if prev == w {
				seenAtWeight[syn] = -1 // ambiguous at this weight
				delete(table, syn)
				return
			}
			// prev > w: a better (lower-weight) candidate replaces it
		}
		seenAtWeight[syn] = w
		cp := make([]int, w)
		copy(cp, positions)
		table[syn] = ErrorInfo{Bits: cp, Weight: w}
	}

	// Single-bit errors: flipping data bit j changes the computed checksum
	// by exactly checksumTable[j+offset]; flipping one of the trailing 24
	// parity bits changes the received parity by that single bit instead.
	offset := 0
	if nbits != LongMsgBits {
		offset = LongMsgBits - ShortMsgBits
	}
	bitSyndrome := func(j int) uint32 {
		if j >= nbits-24 {
			return 1 << uint(nbits-1-j)
		}
		return checksumTable[j+offset]
	}
	for j := 0; j < nbits; j++ {
		record(bitSyndrome(j), []int{j})
	}

	if e.maxFixBits >= 2 {
		for j := 0; j < nbits; j++ {
			for i := j + 1; i < nbits; i++ {
				syn := bitSyndrome(j) ^ bitSyndrome(i)
				record(syn, []int{j, i})
			}
		}
	}

	// Drop any entry whose surviving weight record says ambiguous.
	for syn, w := range seenAtWeight {
		if w < 0 {
			delete(table, syn)
		}
	}
	return table
}

// Diagnose looks up syndrome (the XOR of the received and computed
// checksums) for a message of nbits bits and returns the unambiguous
// low-weight correction, if any.
func (e *Engine) Diagnose(syndrome uint32, nbits int) (ErrorInfo, bool) {
	if syndrome == 0 {
		return ErrorInfo{}, false
	}
	e.ensureTables()
	var table map[uint32]ErrorInfo
	if nbits == LongMsgBits {
		table = e.table112
	} else {
		table = e.table56
	}
	info, ok := table[syndrome]
	return info, ok
}

// Apply XORs the bit positions named by info into frame.
func Apply(frame []byte, info ErrorInfo) {
	for _, j := range info.Bits {
		byteIdx := j / 8
		bitMask := byte(1) << uint(7-j%8)
		frame[byteIdx] ^= bitMask
	}
}
