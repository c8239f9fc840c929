package track

import (
	"time"

	"github.com/regentag/modes1090/modes/cpr"
	"github.com/regentag/modes1090/modes/decode"
)

// FilterPersist bounds the odd/even CPR reliability counters, matching
// the address filter's population lifetime: a position that survives
// enough consecutive accepted fixes to outlast a filter generation is
// trusted as highly as the address itself.
const FilterPersist = 4

// MaxAltReliability bounds the baro-altitude reliability counter.
const MaxAltReliability = 20

// CPRHalfState is one stored half (odd or even) of a CPR pair, plus its
// own validity stamp.
type CPRHalfState struct {
	Valid    bool
	RawLat   uint32
	RawLon   uint32
	NIC      int
	Rc       float64
	TypeCode int
	Surface  bool
	Validity Validity
}

// Aircraft is a long-lived per-address track record. Most measurable
// field groups carry their own Validity. Callsign, category, squawk,
// emergency, geometric altitude, speed, track and heading writes go
// through Accept(); barometric altitude and position use their own
// plausibility checks; nav intent and integrity are overwritten by every
// message that carries them.
type Aircraft struct {
	Address uint32

	FirstSeen time.Time
	LastSeen  time.Time
	Messages  int64

	ADSBVersion int // -1 (unknown); Tracker.Update does not set it

	Callsign  string
	Category  int
	Squawk    int
	Emergency int

	OnGround     bool
	AirGroundSet bool

	BaroAltitude    int
	BaroReliability int
	GeoAltitude     int

	Position Position

	CPROdd  CPRHalfState
	CPREven CPRHalfState
	RelOdd  int
	RelEven int

	GS        float64
	IAS, TAS  float64
	Mach      float64
	Track     float64
	Heading   float64
	RollAngle float64

	VertRateBaro int
	VertRateGeo  int

	NavIntent decode.NavIntent
	Integrity decode.Integrity

	HRD bool // learned heading-reference (true/magnetic)
	TAH bool // learned track/heading tag

	AddrType decode.AddrType

	// Validity stamps, one per logical field group.
	VPosition    Validity
	VCallsign    Validity
	VSquawk      Validity
	VEmergency   Validity
	VBaro        Validity
	VGeo         Validity
	VGS          Validity
	VTrack       Validity
	VHeading     Validity
	VNavIntent   Validity
	VCategory    Validity

	SignalRing [8]float64
	SignalIdx  int

	ModeAC *ModeACState

	// lastEmitted shadows for the output scheduler's change detection.
	lastEmitted EmittedSnapshot
	everEmitted bool
}

// Position is the aircraft's last accepted decoded position.
type Position struct {
	Lat, Lon float64
}

// NewAircraft creates a freshly-seen track.
func NewAircraft(addr uint32, now time.Time) *Aircraft {
	return &Aircraft{
		Address:     addr,
		FirstSeen:   now,
		LastSeen:    now,
		ADSBVersion: -1,
	}
}

// RecordSignal pushes a signal-level sample into the 8-deep ring.
func (a *Aircraft) RecordSignal(level float64) {
	a.SignalRing[a.SignalIdx%8] = level
	a.SignalIdx++
}

// nicRcTable is the §4.6.1 NIC->Rc lookup (nautical miles), following
// RTCA DO-260B Table 2-69. Unknown containment (ME type 8 of version
// 0/1) is represented as Rc = -1.
var nicRcTable = map[int]float64{
	0:  -1, // unknown
	1:  20,
	2:  8,
	3:  4,
	4:  2,
	5:  1,
	6:  0.6,
	7:  0.3,
	8:  0.2,
	9:  0.1,
	10: 0.075,
	11: 0.056,
}

// RcForNIC returns the horizontal containment radius in NM for a given
// NIC value, or -1 if unknown.
func RcForNIC(nic int) float64 {
	if rc, ok := nicRcTable[nic]; ok {
		return rc
	}
	return -1
}

// UpdatePosition implements §4.6's three-step position-update procedure.
// ref is the reference position used for Local decode fallback (the
// aircraft's own last position if fresh, else a configured receiver
// position); refAvailable is false if neither is usable.
func (a *Aircraft) UpdatePosition(msg *decode.Message, now time.Time, ref cpr.Position, refAvailable bool, speedEnvelopeKt func() float64) {
	half := msg.CPR
	if !half.Valid {
		return
	}

	nic := half.NIC
	rc := RcForNIC(nic)

	state := CPRHalfState{
		Valid:    true,
		RawLat:   half.RawLat,
		RawLon:   half.RawLon,
		NIC:      nic,
		Rc:       rc,
		TypeCode: half.TypeCode,
		Surface:  half.Surface,
		Validity: StampPosition(now, msg.Provenance),
	}

	if half.Odd {
		a.CPROdd = state
	} else {
		a.CPREven = state
	}

	maxAge := 10 * time.Second
	if half.Surface {
		if a.GS > 25 {
			maxAge = 25 * time.Second
		} else {
			maxAge = 50 * time.Second
		}
	}

	if a.CPROdd.Valid && a.CPREven.Valid &&
		a.CPROdd.Surface == a.CPREven.Surface &&
		a.CPROdd.Validity.Source == a.CPREven.Validity.Source &&
		absDuration(a.CPROdd.Validity.Updated.Sub(a.CPREven.Validity.Updated)) <= maxAge {

		h := cpr.Halves{
			EvenLat:    a.CPREven.RawLat,
			EvenLon:    a.CPREven.RawLon,
			OddLat:     a.CPROdd.RawLat,
			OddLon:     a.CPROdd.RawLon,
			OddIsNewer: a.CPROdd.Validity.Updated.After(a.CPREven.Validity.Updated),
		}

		var pos cpr.Position
		var ok, ambiguous bool
		if half.Surface {
			pos, ok, ambiguous = cpr.GlobalSurface(h, ref)
		} else {
			pos, ok, ambiguous = cpr.Global(h, half.Surface)
		}

		if ambiguous {
			a.tryLocal(msg, now, ref, refAvailable, half)
			return
		}
		if !ok {
			return
		}

		if a.positionPlausible(pos, now, speedEnvelopeKt) {
			a.acceptPosition(pos, now, msg.Provenance, half.Odd)
		} else {
			a.CPROdd.Valid = false
			a.CPREven.Valid = false
			if half.Odd {
				a.RelEven--
			} else {
				a.RelOdd--
			}
			if a.RelOdd <= 0 || a.RelEven <= 0 {
				a.VPosition = Validity{}
			}
		}
		return
	}

	a.tryLocal(msg, now, ref, refAvailable, half)
}

func (a *Aircraft) tryLocal(msg *decode.Message, now time.Time, ref cpr.Position, refAvailable bool, half decode.CPRHalf) {
	if !refAvailable {
		return
	}
	pos, ok := cpr.Local(ref, half.RawLat, half.RawLon, half.Odd, half.Surface)
	if !ok {
		return
	}
	// Local failures are rejected silently; any gross implausibility
	// (e.g. resolves the wrong zone) just falls out of the range check.
	if cpr.DistanceNM(ref, pos) > 2000 {
		return
	}
	a.acceptPosition(pos, now, msg.Provenance, half.Odd)
}

func (a *Aircraft) positionPlausible(pos cpr.Position, now time.Time, speedEnvelopeKt func() float64) bool {
	if a.VPosition.Source == decode.SourceInvalid {
		return true
	}
	prev := a.Position
	dNM := cpr.DistanceNM(cpr.Position{Lat: prev.Lat, Lon: prev.Lon}, pos)
	age := now.Sub(a.VPosition.Updated).Seconds()
	if age <= 0 {
		age = 0.001
	}
	envelope := speedEnvelopeKt()
	maxNM := (envelope + 2*age) * age / 3600
	return dNM <= maxNM
}

func (a *Aircraft) acceptPosition(pos cpr.Position, now time.Time, source decode.Provenance, wasOdd bool) {
	a.Position = Position{Lat: pos.Lat, Lon: pos.Lon}
	a.VPosition = StampPosition(now, source)
	if wasOdd {
		if a.RelOdd < FilterPersist {
			a.RelOdd++
		}
	} else {
		if a.RelEven < FilterPersist {
			a.RelEven++
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// SpeedEnvelopeKt computes the §4.5 speed-check envelope: the larger of
// the last known GS/TAS/IAS plus 2 kt per second of age, floored at 200
// kt airborne or capped at 150 kt on the surface.
func (a *Aircraft) SpeedEnvelopeKt(now time.Time) float64 {
	best := a.GS
	if a.TAS > best {
		best = a.TAS
	}
	if a.IAS > best {
		best = a.IAS
	}
	age := now.Sub(a.VGS.Updated).Seconds()
	if age < 0 {
		age = 0
	}
	env := best + 2*age
	if a.OnGround {
		if env > 150 {
			env = 150
		}
	} else if env < 200 {
		env = 200
	}
	return env
}
