package decode

import (
	"math"
	"strings"

	"github.com/regentag/modes1090/internal/bits"
)

var aisCharset = []rune("?ABCDEFGHIJKLMNOPQRSTUVWXYZ????? ???????????????0123456789??????")

// decodeExtendedSquitter dispatches DF17/18 ME payloads by type, per
// §4.3 step 6. raw[4] holds metype/mesub; raw[5:11] holds the 56-bit ME
// body.
func decodeExtendedSquitter(msg *Message, raw []byte) {
	msg.METype = int(raw[4]) >> 3
	msg.MESub = int(raw[4]) & 7

	switch {
	case msg.METype >= 1 && msg.METype <= 4:
		decodeIdentAndCategory(msg, raw)
	case msg.METype >= 5 && msg.METype <= 8:
		decodeSurfacePosition(msg, raw)
	case msg.METype == 0 || (msg.METype >= 9 && msg.METype <= 18) || (msg.METype >= 20 && msg.METype <= 22):
		decodeAirbornePosition(msg, raw)
	case msg.METype == 19 && msg.MESub >= 1 && msg.MESub <= 4:
		decodeVelocity(msg, raw)
	case msg.METype == 23 && msg.MESub == 7:
		msg.Squawk = decodeSquawk(raw)
		msg.Identity = true
	case msg.METype == 28:
		decodeAircraftStatus(msg, raw)
	case msg.METype == 29:
		decodeTargetStateAndStatus(msg, raw)
	case msg.METype == 31:
		decodeOperationalStatus(msg, raw)
	}
}

func decodeIdentAndCategory(msg *Message, raw []byte) {
	msg.Category = (msg.METype << 3) | (int(raw[4]) & 7)
	msg.CategoryValid = true

	chars := []rune{
		aisCharset[raw[5]>>2],
		aisCharset[((raw[5]&3)<<4)|(raw[6]>>4)],
		aisCharset[((raw[6]&15)<<2)|(raw[7]>>6)],
		aisCharset[raw[7]&63],
		aisCharset[raw[8]>>2],
		aisCharset[((raw[8]&3)<<4)|(raw[9]>>4)],
		aisCharset[((raw[9]&15)<<2)|(raw[10]>>6)],
		aisCharset[raw[10]&63],
	}
	msg.Callsign = strings.TrimRight(string(chars), " ")
	msg.CallsignValid = true
}

func decodeSurfacePosition(msg *Message, raw []byte) {
	msg.OnGround = true
	msg.AirGroundSet = true

	movementCode := int(raw[5]>>1) & 0x7f
	msg.Movement = decodeMovement(movementCode, false)

	trackValid := raw[6]&0x08 != 0
	if trackValid {
		trackCode := (int(raw[6]&0x07) << 4) | int(raw[7]>>4)
		msg.Track = float64(trackCode) * 360.0 / 128.0
		msg.TrackValid = true
	}

	msg.CPR = CPRHalf{
		Valid:    true,
		Odd:      raw[6]&(1<<2) != 0,
		RawLat:   (uint32(raw[6]&3) << 15) | (uint32(raw[7]) << 7) | uint32(raw[8]>>1),
		RawLon:   (uint32(raw[8]&1) << 16) | (uint32(raw[9]) << 8) | uint32(raw[10]),
		Surface:  true,
		TypeCode: msg.METype,
	}
}

// decodeMovement implements the §4.3 step 12 piecewise schedule. The
// surfaceV0 flag is not consulted: v0 and v2 codes are decoded with the
// same single schedule.
func decodeMovement(code int, surfaceV0 bool) float64 {
	switch {
	case code == 0:
		return -1 // invalid
	case code == 1:
		return 0 // stopped
	case code >= 2 && code <= 8:
		return 0.125 + float64(code-2)*(0.875/6)
	case code >= 9 && code <= 12:
		return 1 + float64(code-9)*(1.0/3)
	case code >= 13 && code <= 38:
		return 2 + float64(code-13)*(13.0/25)
	case code >= 39 && code <= 93:
		return 15 + float64(code-39)*(55.0/54)
	case code >= 94 && code <= 108:
		return 70 + float64(code-94)*(30.0/14)
	case code >= 109 && code <= 123:
		return 100 + float64(code-109)*(75.0/14)
	case code == 124:
		return 175
	case code >= 125 && code <= 127:
		return -1 // invalid
	default:
		return 180
	}
}

func decodeAirbornePosition(msg *Message, raw []byte) {
	surveillanceStatus := int(raw[4]&0x06) >> 1
	nicSuppB := int(raw[4] & 1)

	alt, unit, ok := decodeAC12(raw)
	msg.AltitudeValid = ok
	msg.Altitude = alt
	msg.AltitudeUnit = unit
	if msg.METype >= 20 {
		msg.GeoAltValid = ok
		msg.GeoAltitude = alt
	}

	msg.CPR = CPRHalf{
		Valid:    true,
		Odd:      raw[6]&(1<<2) != 0,
		RawLat:   (uint32(raw[6]&3) << 15) | (uint32(raw[7]) << 7) | uint32(raw[8]>>1),
		RawLon:   (uint32(raw[8]&1) << 16) | (uint32(raw[9]) << 8) | uint32(raw[10]),
		Surface:  false,
		TypeCode: msg.METype,
		NIC:      nicFromTypeCode(msg.METype, nicSuppB),
	}

	switch surveillanceStatus {
	case 1:
		msg.EmergencyValid = true // SPI / alert, resolved further by tracker FS
	case 2:
		msg.OnGround = true
		msg.AirGroundSet = true
	}
}

// nicFromTypeCode is the v0/v1 portion of the §4.6.1 NIC table: type code
// alone picks NIC for all ME types except 11 and 16, where the NIC
// supplement-B bit refines it. NIC supplements A and C are not consulted.
func nicFromTypeCode(metype, nicSuppB int) int {
	switch metype {
	case 0, 18, 22:
		return 0
	case 9, 20:
		return 11
	case 10, 21:
		return 10
	case 11:
		if nicSuppB == 1 {
			return 9
		}
		return 8
	case 12:
		return 7
	case 13:
		return 6
	case 14:
		return 5
	case 15:
		return 4
	case 16:
		if nicSuppB == 1 {
			return 3
		}
		return 2
	case 17:
		return 1
	default:
		return 0
	}
}

func decodeVelocity(msg *Message, raw []byte) {
	v := Velocity{Subtype: msg.MESub}
	v.VertRateSource = int(raw[8]&0x10) >> 4

	vrSign := int(raw[8]&0x08) >> 3
	vr := ((int(raw[8]) & 7) << 6) | ((int(raw[9]) & 0xfc) >> 2)
	if vr != 0 {
		vr = (vr - 1) * 64
		if vrSign == 1 {
			vr = -vr
		}
	}
	v.VertRate = vr

	if msg.MESub == 1 || msg.MESub == 2 {
		ewDir := int(raw[5]&4) >> 2
		ewV := ((int(raw[5]) & 3) << 8) | int(raw[6])
		nsDir := int(raw[7]&0x80) >> 7
		nsV := ((int(raw[7]) & 0x7f) << 3) | ((int(raw[8]) & 0xe0) >> 5)

		ewV--
		nsV--
		if msg.MESub == 2 { // supersonic: 4x scale
			ewV *= 4
			nsV *= 4
		}

		ewf := float64(ewV)
		nsf := float64(nsV)
		if ewDir == 1 {
			ewf = -ewf
		}
		if nsDir == 1 {
			nsf = -nsf
		}

		v.GroundSpeed = math.Hypot(ewf, nsf)
		if v.GroundSpeed != 0 {
			heading := math.Atan2(ewf, nsf) * 360 / (2 * math.Pi)
			if heading < 0 {
				heading += 360
			}
			v.Heading = heading
			v.HeadingValid = true
			v.IsHeadingTrack = true
		}

		geoMinusBaroSign := int(raw[10]&0x80) >> 7
		geoMinusBaro := int(raw[10] & 0x7f)
		if geoMinusBaro != 0 {
			geoMinusBaro = (geoMinusBaro - 1) * 25
			if geoMinusBaroSign == 1 {
				geoMinusBaro = -geoMinusBaro
			}
			v.GeoMinusBaro = geoMinusBaro
		}
	} else {
		headingValid := raw[5]&(1<<2) != 0
		headingCode := ((int(raw[5]) & 3) << 8) | int(raw[6])
		v.HeadingValid = headingValid
		v.Heading = float64(headingCode) * (360.0 / 1024.0)
		v.IsHeadingTrack = false

		asValid := (raw[7]&0x80) == 0
		as := ((int(raw[7]) & 0x7f) << 3) | ((int(raw[8]) & 0xe0) >> 5)
		if as != 0 {
			as--
			if msg.MESub == 4 {
				as *= 4
			}
		}
		if asValid {
			v.GroundSpeed = float64(as) // airspeed, reusing the field
		}
	}

	msg.Velocity = v
	msg.VelocityValid = true
}

func decodeAircraftStatus(msg *Message, raw []byte) {
	switch msg.MESub {
	case 1:
		msg.EmergencyValid = true
		msg.Emergency = int(raw[5]>>5) & 7
		msg.Squawk = decodeSquawkFromME(raw)
		msg.Identity = true
	case 2:
		// 1090ES TCAS RA report; no squawk/emergency fields of interest
		// beyond what the tracker's NavIntent.ModeTCAS flag captures.
		msg.NavIntent.ModeTCAS = true
	}
}

// decodeSquawkFromME decodes the 13-bit identity field as it's laid out
// in ME type 28 subtype 1 (bits 12-24 of the ME body, byte-aligned
// differently than the DF4/5 AP-field squawk).
func decodeSquawkFromME(raw []byte) int {
	v := bits.Range(raw, 43, 55)
	c1 := (v >> 12) & 1
	a1 := (v >> 11) & 1
	c2 := (v >> 10) & 1
	a2 := (v >> 9) & 1
	c4 := (v >> 8) & 1
	a4 := (v >> 7) & 1
	b1 := (v >> 5) & 1
	d1 := (v >> 4) & 1
	b2 := (v >> 3) & 1
	d2 := (v >> 2) & 1
	b4 := (v >> 1) & 1
	d4 := v & 1

	a := a1<<2 | a2<<1 | a4
	b := b1<<2 | b2<<1 | b4
	c := c1<<2 | c2<<1 | c4
	d := d1<<2 | d2<<1 | d4
	return int(a)*1000 + int(b)*100 + int(c)*10 + int(d)
}

func decodeTargetStateAndStatus(msg *Message, raw []byte) {
	isV2 := msg.MESub == 1
	nav := NavIntent{Valid: true}

	if isV2 {
		altSourceGNSS := raw[5]&0x80 != 0
		altValid := raw[5]&0x40 != 0
		altCode := ((int(raw[5]) & 0x3f) << 5) | (int(raw[6]) >> 3)
		if altValid {
			if altSourceGNSS {
				nav.MCPAltitude = altCode * 32
			} else {
				nav.FMSAltitude = altCode * 32
			}
		}
		nav.AltSourceGNSS = altSourceGNSS

		qnhValid := raw[6]&0x04 != 0
		qnhCode := ((int(raw[6]) & 3) << 9) | (int(raw[7]) << 1) | (int(raw[8]) >> 7)
		if qnhValid && qnhCode != 0 {
			nav.QNH = 800 + float64(qnhCode-1)*0.1
		}

		headingValid := raw[8]&0x40 != 0
		headingCode := ((int(raw[8]) & 0x3f) << 3) | (int(raw[9]) >> 5)
		if headingValid {
			nav.SelHeading = float64(headingCode) * 0.703125
			nav.SelHeadingSet = true
		}

		nav.ModeAutopilot = raw[9]&0x10 != 0
		nav.ModeVNAV = raw[9]&0x08 != 0
		nav.ModeAltHold = raw[9]&0x04 != 0
		nav.ModeApproach = raw[9]&0x01 != 0
		nav.ModeLNAV = raw[10]&0x80 != 0
	} else {
		// V1, subtype 0 with bit 11 == 0 per spec; a minimal layout
		// covering the altitude/heading intent fields only.
		altCode := ((int(raw[5]) & 0x7f) << 4) | (int(raw[6]) >> 4)
		if altCode != 0 {
			nav.FMSAltitude = altCode * 32
		}
	}

	msg.NavIntent = nav
}

func decodeOperationalStatus(msg *Message, raw []byte) {
	integ := Integrity{}
	subtype := msg.MESub // 0 = airborne, 1 = surface

	capClassAirborne := bits.Range(raw, 45, 60)
	_ = capClassAirborne

	integ.NICSupplA = int(raw[9]&0x08) >> 3
	if subtype == 0 {
		integ.NACp = int(raw[9]) & 0x0f
	} else {
		integ.NACp = int(raw[8]) & 0x0f
	}
	integ.SIL = int(raw[10]>>5) & 3
	integ.NICBaro = int(raw[10]>>4) & 1
	integ.HRD = raw[10]&(1<<3) != 0
	integ.TAH = raw[10]&(1<<2) != 0
	integ.SILType = int(raw[10]>>1) & 1

	msg.Integrity = integ
}
