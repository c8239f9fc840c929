package track

// ModeACState supplements a tracked aircraft with Mode A/C (Gillham
// squawk/altitude, no ICAO address) correlation, a feature the
// distilled spec omits but _examples/original_source/track.h carries as
// first-class state (modeAC_count/modeAC_match/modeAC_age, all indexed
// by the 12-bit squawk/altitude code, and TRACK_MODEAC_MIN_MESSAGES).
//
// A Mode A/C reply has no address, so it cannot be matched to a
// Mode-S-derived track directly; instead, readsb correlates it against
// any ADS-B track whose squawk and altitude are consistent, voting via
// three parallel 4096-slot counters (one per possible 12-bit code).
type ModeACState struct {
	Count uint32 // consecutive matches seen
	Age   uint32 // ticks since last match, for aging the vote out
}

// ModeACMinMessages is the minimum vote count before a Mode A/C reply is
// allowed to correlate with (and refresh) an existing track, mirroring
// TRACK_MODEAC_MIN_MESSAGES.
const ModeACMinMessages = 4

// ModeACAgeLimit bounds how many periodic ticks a code's vote survives
// without being refreshed before it's reset to zero.
const ModeACAgeLimit = 60

// modeACTable is process-wide: a 4096-slot vote per 12-bit Mode A/C code
// (the Gillham-decoded squawk/altitude pair combined by the caller into
// a single correlation key), independent of any one Aircraft.
type ModeACTable struct {
	count [4096]uint32
	age   [4096]uint32
}

// NewModeACTable creates an empty 4096-slot vote table.
func NewModeACTable() *ModeACTable {
	return &ModeACTable{}
}

// Observe records one Mode A/C reply for code (masked to 12 bits),
// incrementing its vote and resetting its age. Returns the new vote
// count.
func (t *ModeACTable) Observe(code int) uint32 {
	code &= 0xfff
	if t.count[code] < ^uint32(0) {
		t.count[code]++
	}
	t.age[code] = 0
	return t.count[code]
}

// Match reports whether code has accumulated enough votes to correlate
// with a Mode-S track (>= ModeACMinMessages) and hasn't aged out.
func (t *ModeACTable) Match(code int) bool {
	code &= 0xfff
	return t.count[code] >= ModeACMinMessages && t.age[code] < ModeACAgeLimit
}

// Tick ages every slot by one period, decaying stale votes back toward
// zero so a code that stops being heard eventually stops correlating.
func (t *ModeACTable) Tick() {
	for i := range t.age {
		if t.count[i] == 0 {
			continue
		}
		t.age[i]++
		if t.age[i] >= ModeACAgeLimit {
			t.count[i] = 0
			t.age[i] = 0
		}
	}
}
