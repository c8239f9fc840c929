// Package decode turns a raw Mode-S frame (7 or 14 bytes) into a fully
// populated Message, using modes/crc for validation/correction and
// modes/filter to authenticate CRC-overlay replies against the
// recently-seen address population.
//
// Grounded on Regentag-go1090's mode_s.DecodeModesMessage, generalized
// from a single fixed-shape ModeSMessage struct into dispatch across all
// DF/ME types named in _examples/original_source/mode_s.c, with address
// recovery and scoring split out as specified.
package decode

import (
	"time"

	"github.com/regentag/modes1090/internal/bits"
	"github.com/regentag/modes1090/modes/crc"
	"github.com/regentag/modes1090/modes/filter"
)

// AddrType is the eight-way (plus unknown) address-type lattice from
// _examples/original_source/readsb.c's addrtype_to_string.
type AddrType int

const (
	AddrUnknown AddrType = iota
	AddrADSB_ICAO
	AddrADSB_ICAO_NT
	AddrADSB_Other
	AddrTISB_ICAO
	AddrTISB_Other
	AddrTISB_Trackfile
	AddrADSR_ICAO
	AddrADSR_Other
	AddrModeA
)

// NonICAO reports whether the non-ICAO-address marker bit would be set on
// the 32-bit address word for this address type.
func (a AddrType) NonICAO() bool {
	switch a {
	case AddrADSB_ICAO_NT, AddrADSB_Other, AddrTISB_Other, AddrTISB_Trackfile, AddrADSR_Other:
		return true
	default:
		return false
	}
}

// applyIMF re-tags an address type when the IMF bit is set, per §4.3.1.
// Any address type not named below is left untouched.
func applyIMF(a AddrType) AddrType {
	switch a {
	case AddrADSB_ICAO, AddrADSB_ICAO_NT:
		return AddrADSB_Other
	case AddrTISB_ICAO:
		return AddrTISB_Trackfile
	case AddrADSR_ICAO:
		return AddrADSR_Other
	default:
		return a
	}
}

// Provenance ranks message sources from least to most trustworthy; the
// tracker's accept() rule compares these ordinally.
type Provenance int

const (
	SourceInvalid Provenance = iota
	SourceModeAC
	SourceMLAT
	SourceModeSUnchecked
	SourceModeSChecked
	SourceTISB
	SourceADSR
	SourceADSB
)

// Unit distinguishes feet from metres for an altitude field.
type Unit int

const (
	UnitFeet Unit = iota
	UnitMeters
)

// CPRHalf is the message-local (undecoded) CPR sample carried by a
// position message.
type CPRHalf struct {
	Valid    bool
	Odd      bool
	RawLat   uint32
	RawLon   uint32
	NIC      int
	Surface  bool
	TypeCode int // ME type, needed by the tracker's NIC/Rc table
}

// Velocity holds the decoded airborne-velocity fields; which of GS/
// heading-airspeed applies depends on Subtype.
type Velocity struct {
	Subtype        int // 1-4
	GroundSpeed    float64
	Heading        float64
	HeadingValid   bool
	IsHeadingTrack bool // true: Track; false: heading (subtypes 3/4)
	VertRateSource int  // 0 = GNSS, 1 = Baro
	VertRate       int  // signed, fpm
	GeoMinusBaro   int  // signed difference, ft (subtype 1/2 only)
}

// NavIntent holds MCP/FMS navigation fields decoded from ME type 29.
type NavIntent struct {
	Valid          bool
	MCPAltitude    int
	FMSAltitude    int
	QNH            float64
	SelHeading     float64
	SelHeadingSet  bool
	ModeAutopilot  bool
	ModeVNAV       bool
	ModeAltHold    bool
	ModeApproach   bool
	ModeLNAV       bool
	ModeTCAS       bool
	Emergency      int
	AltSourceGNSS  bool
}

// Integrity holds the NIC/NACp/NACv/SIL family of accuracy bits, as
// carried by ME 28/29/31.
type Integrity struct {
	NICSupplA, NICSupplB, NICSupplC int
	NACp, NACv                      int
	SIL, SILType                    int
	GVA, SDA, NICBaro               int
	HRD, TAH                        bool // heading-reference / track-heading tags
}

// Message is the fully decoded, immutable record produced by Decode. It
// is created once by the frame decoder and never mutated afterward; the
// tracker reads it to update aircraft state.
type Message struct {
	RawOriginal []byte
	Raw         []byte // post bit-error-correction
	Bits        int    // 56 or 112
	DF          int
	Syndrome    uint32
	BitsFixed   int // 0, 1, or 2

	Address     uint32
	AddressType AddrType
	Provenance  Provenance

	SignalLevel float64 // unit interval
	RecvClock   uint64  // 12MHz sample clock
	RecvWallMs  int64

	CA int // DF11 capability
	FS int // DF4/5/20/21 flight status
	DR int
	UM int

	Squawk   int // 4-octal-digit value represented in hex-as-decimal
	Identity bool

	AltitudeValid bool
	Altitude      int
	AltitudeUnit  Unit
	GeoAltValid   bool
	GeoAltitude   int

	OnGround    bool
	AirGroundSet bool

	METype int
	MESub  int

	Callsign      string
	CallsignValid bool
	Category      int
	CategoryValid bool

	CPR      CPRHalf
	Movement float64 // decoded ground-movement speed, kt; 0 if none
	Track    float64
	TrackValid bool

	Velocity      Velocity
	VelocityValid bool

	NavIntent NavIntent
	Integrity Integrity

	EmergencyValid bool
	Emergency      int

	CRCValid    bool
	AddressKnown bool // filter hit (or first-encounter acceptance for DF18)
}

// Input bundles the bytes and metadata the decoder needs from the framer.
type Input struct {
	Frame       []byte
	RecvClock   uint64
	RecvWallMs  int64
	SignalLevel float64
}

// FailureKind distinguishes the two ways Decode can fail to produce a
// Message, per §4.3.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureUnknownICAO
	FailureBad
)

// Error is returned by Decode on failure; Kind selects unknown-icao vs bad.
type Error struct {
	Kind FailureKind
}

func (e *Error) Error() string {
	if e.Kind == FailureUnknownICAO {
		return "decode: crc unverifiable (unknown icao)"
	}
	return "decode: structurally bad frame"
}

// Decoder decodes frames using a shared CRC engine and address filter.
type Decoder struct {
	CRC        *crc.Engine
	Filter     *filter.Filter
	Aggressive bool // allow DF17 two-bit correction
}

// NewDecoder builds a Decoder. maxFixBits is forwarded to the CRC engine.
func NewDecoder(f *filter.Filter, maxFixBits int) *Decoder {
	return &Decoder{CRC: crc.NewEngine(maxFixBits), Filter: f}
}

func dfLenBits(df int) int {
	switch df {
	case 16, 17, 18, 19, 20, 21, 24:
		return crc.LongMsgBits
	default:
		return crc.ShortMsgBits
	}
}

// Decode implements the §4.3 procedure end to end.
func (d *Decoder) Decode(in Input, now time.Time) (*Message, error) {
	frame := in.Frame
	if len(frame) < crc.ShortMsgBytes {
		return nil, &Error{Kind: FailureBad}
	}
	allZero := true
	for _, b := range frame {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, &Error{Kind: FailureBad}
	}

	df := int(frame[0]) >> 3
	nbits := dfLenBits(df)
	nbytes := nbits / 8
	if len(frame) < nbytes {
		return nil, &Error{Kind: FailureBad}
	}

	raw := make([]byte, nbytes)
	copy(raw, frame[:nbytes])

	msg := &Message{
		RawOriginal: append([]byte(nil), raw...),
		Bits:        nbits,
		DF:          df,
		RecvClock:   in.RecvClock,
		RecvWallMs:  in.RecvWallMs,
		SignalLevel: in.SignalLevel,
	}

	wireCRC := uint32(raw[nbytes-3])<<16 | uint32(raw[nbytes-2])<<8 | uint32(raw[nbytes-1])
	computed := crc.Checksum(raw, nbits)
	syndrome := wireCRC ^ computed

	switch df {
	case 0, 4, 5, 16, 20, 21:
		// Syndrome *is* the address, XORed into the parity.
		addr := syndrome
		if !d.Filter.Test(addr) {
			return nil, &Error{Kind: FailureUnknownICAO}
		}
		msg.Address = addr
		msg.CRCValid = true
		msg.AddressKnown = true
		msg.AddressType = AddrADSB_ICAO
		msg.Provenance = SourceModeSChecked

	case 11:
		masked := syndrome &^ 0x7f // low 7 bits are interrogator/site code
		if masked == 0 {
			msg.Address = bits.Range(raw, 8, 31)
			msg.CRCValid = true
			msg.BitsFixed = 0
		} else {
			info, ok := d.CRC.Diagnose(masked, nbits)
			if !ok || info.Weight != 1 {
				return nil, &Error{Kind: FailureBad}
			}
			crc.Apply(raw, info)
			msg.BitsFixed = 1
			msg.Address = bits.Range(raw, 8, 31)
			msg.CRCValid = true
		}
		msg.AddressType = AddrADSB_ICAO
		msg.Provenance = SourceModeSChecked
		msg.AddressKnown = d.Filter.Test(msg.Address)

	case 17, 18:
		addr := bits.Range(raw, 8, 31)
		if syndrome != 0 {
			info, ok := d.CRC.Diagnose(syndrome, nbits)
			maxW := 1
			if d.Aggressive {
				maxW = 2
			}
			if !ok || info.Weight > maxW {
				return nil, &Error{Kind: FailureBad}
			}
			touchesAddr := false
			for _, b := range info.Bits {
				if b >= 8 && b <= 31 {
					touchesAddr = true
				}
			}
			crc.Apply(raw, info)
			msg.BitsFixed = info.Weight
			addr = bits.Range(raw, 8, 31)
			_ = touchesAddr
		}
		msg.Address = addr
		msg.CRCValid = true
		msg.AddressKnown = d.Filter.Test(addr)
		if df == 17 {
			msg.AddressType = AddrADSB_ICAO
			msg.Provenance = SourceADSB
		} else {
			// DF18: CF field chooses provenance/address-type (§4.3 step 8).
			cf := int(bits.Range(raw, 5, 7))
			msg.AddressType, msg.Provenance = df18AddressType(cf)
			// First encounter is accepted even if not yet in the filter.
			if !msg.AddressKnown {
				msg.AddressKnown = true
			}
		}

	default:
		return nil, &Error{Kind: FailureBad}
	}

	msg.Raw = raw
	msg.Syndrome = syndrome

	populateCommonFields(msg, raw)

	if df == 17 || df == 18 {
		decodeExtendedSquitter(msg, raw)
	}

	if df == 0 || df == 4 || df == 16 || df == 20 {
		alt, unit := decodeAC13(raw)
		msg.AltitudeValid = true
		msg.Altitude = alt
		msg.AltitudeUnit = unit
	}

	return msg, nil
}

// df18AddressType maps the DF18 Control Field to an address type and
// provenance, per §4.3 step 8. The mapping is unconditional: no caller
// reads the IMF bit of CF 2/3 (fine/coarse TIS-B) frames to re-tag them.
func df18AddressType(cf int) (AddrType, Provenance) {
	switch cf {
	case 0:
		return AddrADSB_ICAO, SourceADSB
	case 1:
		return AddrADSB_Other, SourceADSB // non-ICAO ADS-B ("ADS-B-NT")
	case 2:
		return AddrTISB_ICAO, SourceTISB // fine TIS-B
	case 3:
		return AddrTISB_Trackfile, SourceTISB // coarse TIS-B / trackfile
	case 5:
		return AddrTISB_Other, SourceTISB // non-ICAO TIS-B
	case 6:
		return AddrADSR_ICAO, SourceADSR
	default:
		return AddrADSR_Other, SourceADSR
	}
}

func populateCommonFields(msg *Message, raw []byte) {
	msg.CA = int(raw[0]) & 7
	msg.FS = int(raw[0]) & 7
	msg.DR = int(bits.Range(raw, 8, 12))
	msg.UM = int(bits.Range(raw, 13, 19))
	msg.OnGround = msg.FS == 1 || msg.FS == 3
	msg.AirGroundSet = true

	msg.Squawk = decodeSquawk(raw)
	msg.Identity = true

	imf := false
	switch msg.DF {
	case 17, 18:
		// The IMF bit is not read for extended squitters; their address
		// type comes from the DF/CF mapping alone.
	default:
		imf = bits.Bit(raw, 51) == 1 // bit position used by several DF5/21 squawk variants
	}
	if imf {
		msg.AddressType = applyIMF(msg.AddressType)
	}
}

// decodeSquawk decodes the 13-bit identity field's Gillham interleaving:
// C1 A1 C2 A2 C4 A4 X B1 D1 B2 D2 B4 D4 (message bits 20-32, 0-based
// 19-31), matching Regentag-go1090's inline bit algebra but phrased over
// the shared bits helper.
func decodeSquawk(raw []byte) int {
	byte2 := raw[2]
	byte3 := raw[3]

	a := ((byte3 & 0x80) >> 5) | ((byte2 & 0x02) >> 0) | ((byte2 & 0x08) >> 3)
	b := ((byte3 & 0x02) << 1) | ((byte3 & 0x08) >> 2) | ((byte3 & 0x20) >> 5)
	c := ((byte2 & 0x01) << 2) | ((byte2 & 0x04) >> 1) | ((byte2 & 0x10) >> 4)
	d := ((byte3 & 0x01) << 2) | ((byte3 & 0x04) >> 1) | ((byte3 & 0x10) >> 4)

	return int(a)*1000 + int(b)*100 + int(c)*10 + int(d)
}

// decodeAC13 decodes the 13-bit AC altitude field (DF0/4/16/20), per
// §4.3 step 10.
func decodeAC13(raw []byte) (altitude int, unit Unit) {
	mBit := raw[3] & (1 << 6)
	qBit := raw[3] & (1 << 4)

	if mBit != 0 {
		return 0, UnitMeters
	}
	if qBit == 0 {
		n := modeAtoModeC(raw)
		return n, UnitFeet
	}
	n := (int(raw[2]&31) << 6) | int(raw[3]&0x80)>>2 | int(raw[3]&0x20)>>1 | int(raw[3]&15)
	return n*25 - 1000, UnitFeet
}

// decodeAC12 decodes the 12-bit AC altitude field (DF17/18 airborne
// position), per §4.3 step 11.
func decodeAC12(raw []byte) (altitude int, unit Unit, ok bool) {
	qBit := raw[5] & 1
	if qBit == 0 {
		// Insert M=0 at bit 6 and Gillham-decode, matching the AC13 path.
		synth := make([]byte, 4)
		copy(synth, raw[2:6])
		n := modeAtoModeC(synth)
		return n, UnitFeet, n != invalidModeC
	}
	n := (int(raw[5]>>1) << 4) | int(raw[6]&0xF0)>>4
	return n*25 - 1000, UnitFeet, true
}

const invalidModeC = -9999

// modeAtoModeC converts a Gillham-coded Mode-A-shaped altitude field
// (bits laid out identically to decodeAC13's non-Q branch) to a Mode-C
// altitude in feet. Returns invalidModeC if the code has no legal
// Mode-C meaning.
func modeAtoModeC(raw []byte) int {
	squawk := decodeSquawk(raw)
	// The Gillham altitude code doesn't carry the same digits as a
	// squawk; reinterpret as the five-bit-group altitude code used by
	// Mode C (100ft increments via the Gray-coded D1D2D4 A1A2A4 B1B2B4
	// C1C2C4 sequence). We reuse decodeSquawk's bit extraction since the
	// wire positions are identical, then undo the Gillham->binary gray
	// code used specifically for altitude (a cyclic-500 code in C).
	c1 := (squawk / 100) % 10
	a1 := (squawk / 1000) % 10
	b1 := (squawk / 10) % 10
	d1 := squawk % 10

	// Gillham altitude is graycoded in 500ft steps across the C-group
	// and 100ft steps across the D/A/B groups; an invalid combination
	// (C=0 or C=5,6,7, or D nonzero without the legacy D-bit wiring)
	// signals "unable to decode".
	if c1 == 0 || c1 == 5 || c1 == 6 || c1 == 7 {
		return invalidModeC
	}
	fiveHundreds := grayToBinary(a1*8 + b1)
	hundreds := grayToBinary(c1)
	if hundreds == 6 {
		hundreds = 5
	}
	if fiveHundreds%2 != 0 {
		hundreds = 6 - hundreds
	}
	_ = d1
	return (fiveHundreds*500 + hundreds*100) - 1200
}

func grayToBinary(gray int) int {
	bin := gray
	for shift := 1; shift < 16; shift <<= 1 {
		bin ^= bin >> uint(shift)
	}
	return bin
}
