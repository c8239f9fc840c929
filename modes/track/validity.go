// Package track implements the per-aircraft tracker: a map from 24-bit
// address to aircraft state, the data-validity lattice that arbitrates
// between measurements of differing provenance, CPR position fusion, and
// the change-triggered output scheduler.
//
// Grounded on Regentag-go1090's mode_s.Sky/Aircraft/UpdateData (the
// map-keyed-by-address shape, the per-DF field dispatch), generalized to
// the §4.6 validity lattice and _examples/original_source/track.h's
// struct aircraft / data_validity fields (trackDataValid/trackDataFresh/
// trackDataAge) which the distilled teacher does not implement at all.
package track

import (
	"time"

	"github.com/regentag/modes1090/modes/decode"
)

// Validity is a data-validity stamp: §4.3's "updated ≤ stale ≤ expires"
// invariant plus a next_reduce_forward schedule and a provenance.
type Validity struct {
	Source             decode.Provenance
	Updated            time.Time
	Stale               time.Time
	Expires            time.Time
	NextReduceForward  time.Time
}

// Fresh reports now < stale.
func (v Validity) Fresh(now time.Time) bool { return now.Before(v.Stale) }

// Valid reports now < expires.
func (v Validity) Valid(now time.Time) bool { return now.Before(v.Expires) }

// Expired reports now >= expires.
func (v Validity) Expired(now time.Time) bool { return !v.Valid(now) }

// Accept implements the §4.6 accept() predicate: the same or better
// source always wins; a weaker source wins only once the current value
// has gone stale.
func Accept(v Validity, now time.Time, newSource decode.Provenance) bool {
	if now.Before(v.Updated) {
		return false
	}
	return newSource >= v.Source || !now.Before(v.Stale)
}

// staleAfter/expiresAfter/reduceForwardAfter are the per-source windows a
// freshly-accepted field is stamped with. Position fields get tighter
// windows than slow-changing identity fields; values follow readsb's
// TRACK_* constants in track.h, translated to time.Duration.
const (
	staleAfterPosition = 5 * time.Second
	expireAfterPosition = 60 * time.Second

	staleAfterDefault  = 15 * time.Second
	expireAfterDefault = 60 * time.Second

	reduceForwardPeriod = 7 * time.Second
)

// Stamp builds a freshly-accepted Validity for a generic field.
func Stamp(now time.Time, source decode.Provenance) Validity {
	return Validity{
		Source:            source,
		Updated:           now,
		Stale:             now.Add(staleAfterDefault),
		Expires:           now.Add(expireAfterDefault),
		NextReduceForward: now.Add(reduceForwardPeriod),
	}
}

// StampPosition builds a freshly-accepted Validity for the position
// field, which ages out faster than other telemetry.
func StampPosition(now time.Time, source decode.Provenance) Validity {
	v := Stamp(now, source)
	v.Stale = now.Add(staleAfterPosition)
	v.Expires = now.Add(expireAfterPosition)
	return v
}

// Combine merges two provenanced values per §4.6: resulting source is
// min(a.source, b.source); updated is max(a,b); stale/expires are min(a,b).
func Combine(a, b Validity) Validity {
	out := Validity{}
	if a.Source < b.Source {
		out.Source = a.Source
	} else {
		out.Source = b.Source
	}
	if a.Updated.After(b.Updated) {
		out.Updated = a.Updated
	} else {
		out.Updated = b.Updated
	}
	if a.Stale.Before(b.Stale) {
		out.Stale = a.Stale
	} else {
		out.Stale = b.Stale
	}
	if a.Expires.Before(b.Expires) {
		out.Expires = a.Expires
	} else {
		out.Expires = b.Expires
	}
	return out
}
