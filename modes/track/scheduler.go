package track

import (
	"time"

	"github.com/regentag/modes1090/modes/decode"
)

// EmittedSnapshot is the subset of aircraft state the output scheduler
// compares against on each candidate emission, to decide immediate vs
// debounced vs no emission per §4.7.
type EmittedSnapshot struct {
	Callsign      string
	AddrType      int
	Squawk        int
	Emergency     int
	NavModeBits   int
	MCPAltitude   int
	QNH           float64
	SelHeading    float64
	OnGround      bool
	AltSourceGNSS bool

	BaroAltitude int
	VertRate     int
	Heading      float64
	RollAngle    float64
	TrackRate    float64
	GS           float64
	TAS          float64
	Mach         float64

	At time.Time
}

// Change-threshold constants from §4.7.
const (
	thresholdAltitudeFt  = 50.0
	thresholdRateFpm     = 500.0
	thresholdHeadingDeg  = 2.0
	thresholdRollDeg     = 5.0
	thresholdTrackRate   = 0.5
	thresholdSpeedKt     = 25.0
	thresholdMach        = 0.02
	thresholdMCPAltFt    = 50.0
	thresholdQNHmbar     = 0.8
	thresholdNavHeading  = 2.0
)

const periodicReemitInterval = 600 * time.Second

// EmitDecision is the scheduler's verdict for one aircraft at one tick.
type EmitDecision int

const (
	EmitNone EmitDecision = iota
	EmitImmediate
	EmitDebounced
	EmitPeriodic
)

// snapshot captures the current emittable fields of an aircraft.
func (a *Aircraft) snapshot(now time.Time) EmittedSnapshot {
	return EmittedSnapshot{
		Callsign:      a.Callsign,
		AddrType:      int(a.AddrType),
		Squawk:        a.Squawk,
		Emergency:     a.Emergency,
		NavModeBits:   navModeBits(a.NavIntent),
		MCPAltitude:   a.NavIntent.MCPAltitude,
		QNH:           a.NavIntent.QNH,
		SelHeading:    a.NavIntent.SelHeading,
		OnGround:      a.OnGround,
		AltSourceGNSS: a.NavIntent.AltSourceGNSS,
		BaroAltitude:  a.BaroAltitude,
		VertRate:      a.VertRateBaro,
		Heading:       a.Heading,
		RollAngle:     a.RollAngle,
		GS:            a.GS,
		TAS:           a.TAS,
		Mach:          a.Mach,
		At:            now,
	}
}

// navModeBits packs the disjunctive nav-mode flags into a single int so
// the scheduler can compare them for equality like any other field.
func navModeBits(n decode.NavIntent) int {
	bits := 0
	if n.ModeAutopilot {
		bits |= 1 << 0
	}
	if n.ModeVNAV {
		bits |= 1 << 1
	}
	if n.ModeAltHold {
		bits |= 1 << 2
	}
	if n.ModeApproach {
		bits |= 1 << 3
	}
	if n.ModeLNAV {
		bits |= 1 << 4
	}
	if n.ModeTCAS {
		bits |= 1 << 5
	}
	return bits
}

// Evaluate implements §4.7: decides whether, and how, to emit this
// aircraft's telemetry at tick `now`. Aircraft with fewer than 2
// messages, or whose last `seen` predates the previous emission, never
// emit.
func (a *Aircraft) Evaluate(now time.Time) EmitDecision {
	if a.Messages < 2 {
		return EmitNone
	}
	if a.everEmitted && !a.LastSeen.After(a.lastEmitted.At) {
		return EmitNone
	}

	cur := a.snapshot(now)
	if !a.everEmitted {
		a.lastEmitted = cur
		a.everEmitted = true
		return EmitImmediate
	}
	prev := a.lastEmitted

	if cur.Callsign != prev.Callsign ||
		cur.AddrType != prev.AddrType ||
		cur.Squawk != prev.Squawk ||
		cur.Emergency != prev.Emergency ||
		cur.NavModeBits != prev.NavModeBits ||
		absf(float64(cur.MCPAltitude-prev.MCPAltitude)) > thresholdMCPAltFt ||
		absf(cur.QNH-prev.QNH) > thresholdQNHmbar ||
		absf(cur.SelHeading-prev.SelHeading) > thresholdNavHeading ||
		cur.OnGround != prev.OnGround ||
		cur.AltSourceGNSS != prev.AltSourceGNSS {
		a.lastEmitted = cur
		return EmitImmediate
	}

	debounced := absf(float64(cur.BaroAltitude-prev.BaroAltitude)) > thresholdAltitudeFt ||
		absf(float64(cur.VertRate-prev.VertRate)) > thresholdRateFpm ||
		absf(cur.Heading-prev.Heading) > thresholdHeadingDeg ||
		absf(cur.RollAngle-prev.RollAngle) > thresholdRollDeg ||
		absf(cur.TrackRate-prev.TrackRate) > thresholdTrackRate ||
		absf(cur.GS-prev.GS) > thresholdSpeedKt ||
		absf(cur.TAS-prev.TAS) > thresholdSpeedKt ||
		absf(cur.Mach-prev.Mach) > thresholdMach

	if debounced {
		a.lastEmitted = cur
		return EmitDebounced
	}

	if now.Sub(prev.At) >= periodicReemitInterval {
		a.lastEmitted = cur
		return EmitPeriodic
	}

	return EmitNone
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// MinInterEmitMs implements §4.7's minimum inter-emit interval: 0 if
// immediate, else derived from air/ground and barometric altitude, with
// the larger value applying when decision carries no change
// (EmitPeriodic). Position validity is not consulted.
func (a *Aircraft) MinInterEmitMs(decision EmitDecision) int {
	if decision == EmitImmediate {
		return 0
	}
	noChange := decision == EmitPeriodic
	switch {
	case a.OnGround:
		return 1000
	case a.BaroAltitude < 10000:
		if noChange {
			return 10000
		}
		return 5000
	default:
		if noChange {
			return 30000
		}
		return 10000
	}
}

// ReduceForward reports whether the accepted field driving this message
// is due for forwarding under the rate limit, with the §4.7 CPR carve-out
// that position-bearing messages always forward at least every 7 s.
func ReduceForward(v Validity, now time.Time, carriesCPR bool) bool {
	if carriesCPR {
		return true
	}
	return !now.Before(v.NextReduceForward)
}
