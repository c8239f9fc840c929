package track

import (
	"time"

	"github.com/regentag/modes1090/modes/cpr"
	"github.com/regentag/modes1090/modes/decode"
)

// singleMessageTTL and normalTTL are the §4.6.2 pruning windows.
const (
	singleMessageTTL = 60 * time.Second
	normalTTL        = 10 * time.Minute
)

// ReceiverPosition is the optional fixed reference position used for
// Local CPR decode when an aircraft has no fresh position of its own.
type ReceiverPosition struct {
	Configured bool
	Pos        cpr.Position
	MaxRangeNM float64
}

// Tracker owns the address->Aircraft map. It is not safe for concurrent
// use: per §5, all tracker state is touched only by the single consumer
// thread.
type Tracker struct {
	aircraft map[uint32]*Aircraft
	ModeAC   *ModeACTable
	Receiver ReceiverPosition
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		aircraft: make(map[uint32]*Aircraft),
		ModeAC:   NewModeACTable(),
	}
}

// Len returns the number of tracked aircraft.
func (t *Tracker) Len() int { return len(t.aircraft) }

// Lookup returns the track for addr, if any.
func (t *Tracker) Lookup(addr uint32) (*Aircraft, bool) {
	a, ok := t.aircraft[addr]
	return a, ok
}

// Update implements §4.6's update(message): lookup-or-create, then write
// the fields the message carries. Most go through Accept under the
// validity lattice; barometric altitude and position use their own
// plausibility checks; nav intent and integrity are written as received.
func (t *Tracker) Update(msg *decode.Message, now time.Time) *Aircraft {
	a, ok := t.aircraft[msg.Address]
	if !ok {
		a = NewAircraft(msg.Address, now)
		t.aircraft[msg.Address] = a
	}
	a.LastSeen = now
	a.Messages++
	a.RecordSignal(msg.SignalLevel)
	a.AddrType = msg.AddressType

	if msg.AirGroundSet {
		a.OnGround = msg.OnGround
		a.AirGroundSet = true
	}

	if msg.CallsignValid && Accept(a.VCallsign, now, msg.Provenance) {
		a.Callsign = msg.Callsign
		a.VCallsign = Stamp(now, msg.Provenance)
	}
	if msg.CategoryValid && Accept(a.VCategory, now, msg.Provenance) {
		a.Category = msg.Category
		a.VCategory = Stamp(now, msg.Provenance)
	}
	if msg.Identity && Accept(a.VSquawk, now, msg.Provenance) {
		a.Squawk = msg.Squawk
		a.VSquawk = Stamp(now, msg.Provenance)
	}
	if msg.EmergencyValid && Accept(a.VEmergency, now, msg.Provenance) {
		a.Emergency = msg.Emergency
		a.VEmergency = Stamp(now, msg.Provenance)
	}

	if msg.AltitudeValid && msg.AltitudeUnit == decode.UnitFeet {
		t.updateBaroAltitude(a, msg, now)
	}
	if msg.GeoAltValid {
		if Accept(a.VGeo, now, msg.Provenance) {
			a.GeoAltitude = msg.GeoAltitude
			a.VGeo = Stamp(now, msg.Provenance)
		}
	}

	if msg.VelocityValid {
		t.updateVelocity(a, msg, now)
	}
	if msg.TrackValid && Accept(a.VTrack, now, msg.Provenance) {
		a.Track = msg.Track
		a.VTrack = Stamp(now, msg.Provenance)
	}
	if msg.Movement > 0 && Accept(a.VGS, now, msg.Provenance) {
		a.GS = msg.Movement
		a.VGS = Stamp(now, msg.Provenance)
	}

	if msg.NavIntent.Valid {
		a.NavIntent = msg.NavIntent
		a.VNavIntent = Stamp(now, msg.Provenance)
	}
	a.Integrity = msg.Integrity
	if msg.Integrity.HRD {
		a.HRD = true
	}
	if msg.Integrity.TAH {
		a.TAH = true
	}

	if msg.CPR.Valid {
		ref, refOK := t.referenceFor(a, now)
		a.UpdatePosition(msg, now, ref, refOK, func() float64 { return a.SpeedEnvelopeKt(now) })
	}

	return a
}

func (t *Tracker) updateBaroAltitude(a *Aircraft, msg *decode.Message, now time.Time) {
	delta := msg.Altitude - a.BaroAltitude
	if delta < 0 {
		delta = -delta
	}
	accept := false
	switch {
	case a.BaroReliability == 0:
		accept = true
	case delta < 300:
		accept = true
	default:
		rateAgeMs := now.Sub(a.VBaro.Updated).Milliseconds()
		envelope := 1500.0 + 2.0*float64(rateAgeMs)
		accept = float64(delta) <= envelope
	}

	if accept {
		a.BaroAltitude = msg.Altitude
		a.VBaro = Stamp(now, msg.Provenance)
		bonus := MaxAltReliability/2 - 1
		a.BaroReliability += bonus
		if a.BaroReliability > MaxAltReliability {
			a.BaroReliability = MaxAltReliability
		}
	} else {
		goodCRCBonus := MaxAltReliability/2 - 1
		a.BaroReliability -= goodCRCBonus + 1
		if a.BaroReliability <= 0 {
			a.BaroReliability = 0
			a.BaroAltitude = 0
			a.VBaro = Validity{}
		}
	}
}

func (t *Tracker) updateVelocity(a *Aircraft, msg *decode.Message, now time.Time) {
	v := msg.Velocity
	if !Accept(a.VGS, now, msg.Provenance) {
		return
	}
	if v.IsHeadingTrack {
		a.GS = v.GroundSpeed
		a.Track = v.Heading
		a.VTrack = Stamp(now, msg.Provenance)
	} else {
		a.TAS = v.GroundSpeed
		if v.HeadingValid {
			a.Heading = v.Heading
			a.VHeading = Stamp(now, msg.Provenance)
		}
	}
	a.VGS = Stamp(now, msg.Provenance)
	if v.VertRateSource == 1 {
		a.VertRateBaro = v.VertRate
	} else {
		a.VertRateGeo = v.VertRate
	}
}

// referenceFor picks the CPR-local reference: the aircraft's own
// position if accepted within the last 10 minutes, else the receiver's
// fixed position if configured.
func (t *Tracker) referenceFor(a *Aircraft, now time.Time) (cpr.Position, bool) {
	if a.VPosition.Source != decode.SourceInvalid && now.Sub(a.VPosition.Updated) <= 10*time.Minute {
		return cpr.Position{Lat: a.Position.Lat, Lon: a.Position.Lon}, true
	}
	if t.Receiver.Configured {
		return t.Receiver.Pos, true
	}
	return cpr.Position{}, false
}

// Periodic implements §4.6.2: expiry of stale fields and pruning of dead
// tracks. Call once per second.
func (t *Tracker) Periodic(now time.Time) {
	t.ModeAC.Tick()

	for addr, a := range t.aircraft {
		t.expireFields(a, now)

		dead := now.Sub(a.LastSeen) > normalTTL ||
			(a.Messages == 1 && now.Sub(a.FirstSeen) > singleMessageTTL)
		if dead {
			delete(t.aircraft, addr)
		}
	}
}

func (t *Tracker) expireFields(a *Aircraft, now time.Time) {
	if a.VPosition.Source != decode.SourceInvalid && now.After(a.VPosition.Expires) {
		a.VPosition = Validity{}
		a.RelOdd = 0
		a.RelEven = 0
	}
	if a.VBaro.Source != decode.SourceInvalid && now.After(a.VBaro.Expires) {
		a.VBaro = Validity{}
		a.BaroReliability = 0
	}
	expireIfDue(&a.VCallsign, now)
	expireIfDue(&a.VSquawk, now)
	expireIfDue(&a.VEmergency, now)
	expireIfDue(&a.VGeo, now)
	expireIfDue(&a.VGS, now)
	expireIfDue(&a.VTrack, now)
	expireIfDue(&a.VHeading, now)
	expireIfDue(&a.VNavIntent, now)
	expireIfDue(&a.VCategory, now)
}

func expireIfDue(v *Validity, now time.Time) {
	if v.Source != decode.SourceInvalid && now.After(v.Expires) {
		*v = Validity{}
	}
}

// ResolveHeading implements §4.6's heading-interpretation rule for a
// TRACK_OR_HEADING tag, which resolves via the learned TAH bit. A
// MAGNETIC_OR_TRUE tag always returns the heading; the HRD bit is not
// consulted and the result does not say whether it is magnetic or true.
func (a *Aircraft) ResolveHeading(isTrackOrHeadingTag bool) (value float64, isTrack bool) {
	if isTrackOrHeadingTag {
		if a.TAH {
			return a.Heading, false
		}
		return a.Track, true
	}
	// MAGNETIC_OR_TRUE: heading returned as stored.
	return a.Heading, false
}

// SelectGroundSpeed implements §4.6's v0/v2 ground-movement selection:
// once the ADS-B version is known, pick the matching decoded variant.
func (a *Aircraft) SelectGroundSpeed(v0, v2 float64) float64 {
	switch {
	case a.ADSBVersion <= 1:
		return v0
	case a.ADSBVersion == 2:
		return v2
	default:
		return v0
	}
}
