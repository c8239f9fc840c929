package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentag/modes1090/modes/decode"
)

func TestUpdateCreatesAndTimestampsTrack(t *testing.T) {
	tr := New()
	now := time.Now()

	msg := &decode.Message{
		Address:       0x4840D6,
		Provenance:    decode.SourceADSB,
		CallsignValid: true,
		Callsign:      "KLM1023",
	}

	a := tr.Update(msg, now)
	require.NotNil(t, a)
	assert.Equal(t, uint32(0x4840D6), a.Address)
	assert.Equal(t, "KLM1023", a.Callsign)
	assert.False(t, a.VCallsign.Updated.Before(now))
}

// Invariant 4: after update(m), for every field f that m carried,
// f.updated = now >= prev.f.updated.
func TestUpdateTimestampsNeverGoBackwards(t *testing.T) {
	tr := New()
	t0 := time.Now()

	msg1 := &decode.Message{Address: 1, Provenance: decode.SourceADSB, Identity: true, Squawk: 1200}
	a := tr.Update(msg1, t0)
	firstUpdated := a.VSquawk.Updated

	t1 := t0.Add(time.Second)
	msg2 := &decode.Message{Address: 1, Provenance: decode.SourceADSB, Identity: true, Squawk: 1201}
	tr.Update(msg2, t1)

	assert.False(t, a.VSquawk.Updated.Before(firstUpdated))
}

func TestAcceptRejectsWeakerSourceBeforeStale(t *testing.T) {
	now := time.Now()
	v := Stamp(now, decode.SourceADSB)
	assert.False(t, Accept(v, now.Add(time.Second), decode.SourceModeSUnchecked))
}

func TestAcceptAllowsWeakerSourceOnceStale(t *testing.T) {
	now := time.Now()
	v := Stamp(now, decode.SourceADSB)
	assert.True(t, Accept(v, v.Stale.Add(time.Millisecond), decode.SourceModeSUnchecked))
}

func TestAcceptAllowsEqualOrBetterSourceAlways(t *testing.T) {
	now := time.Now()
	v := Stamp(now, decode.SourceModeSUnchecked)
	assert.True(t, Accept(v, now.Add(time.Millisecond), decode.SourceADSB))
}

func TestPeriodicExpiresStalePositionAndResetsReliability(t *testing.T) {
	tr := New()
	now := time.Now()
	a := NewAircraft(1, now)
	a.VPosition = StampPosition(now, decode.SourceADSB)
	a.RelOdd, a.RelEven = 3, 3
	tr.aircraft[1] = a

	tr.Periodic(a.VPosition.Expires.Add(time.Second))

	assert.Equal(t, decode.SourceInvalid, a.VPosition.Source)
	assert.Equal(t, 0, a.RelOdd)
	assert.Equal(t, 0, a.RelEven)
}

func TestPeriodicPrunesDeadSingleMessageTrack(t *testing.T) {
	tr := New()
	now := time.Now()
	a := NewAircraft(1, now)
	a.Messages = 1
	tr.aircraft[1] = a

	tr.Periodic(now.Add(61 * time.Second))

	_, ok := tr.Lookup(1)
	assert.False(t, ok)
}

func TestPeriodicKeepsLongLivedTrackAlive(t *testing.T) {
	tr := New()
	now := time.Now()
	a := NewAircraft(1, now)
	a.Messages = 50
	a.LastSeen = now
	tr.aircraft[1] = a

	tr.Periodic(now.Add(5 * time.Minute))

	_, ok := tr.Lookup(1)
	assert.True(t, ok)
}

func TestModeACVoteRequiresMinimumMessages(t *testing.T) {
	table := NewModeACTable()
	code := 0x0707
	for i := 0; i < ModeACMinMessages-1; i++ {
		table.Observe(code)
	}
	assert.False(t, table.Match(code))
	table.Observe(code)
	assert.True(t, table.Match(code))
}

func TestModeACVoteAgesOut(t *testing.T) {
	table := NewModeACTable()
	code := 0x0101
	for i := 0; i < ModeACMinMessages; i++ {
		table.Observe(code)
	}
	require.True(t, table.Match(code))

	for i := 0; i < ModeACAgeLimit; i++ {
		table.Tick()
	}
	assert.False(t, table.Match(code))
}

func TestEvaluateFirstMessageNeverEmits(t *testing.T) {
	now := time.Now()
	a := NewAircraft(1, now)
	a.Messages = 1
	assert.Equal(t, EmitNone, a.Evaluate(now))
}

func TestEvaluateSecondMessageEmitsImmediateOnce(t *testing.T) {
	now := time.Now()
	a := NewAircraft(1, now)
	a.Messages = 2
	a.LastSeen = now
	assert.Equal(t, EmitImmediate, a.Evaluate(now))
	// Nothing changed and seen hasn't advanced: no further emission.
	assert.Equal(t, EmitNone, a.Evaluate(now))
}

func TestEvaluateCallsignChangeIsImmediate(t *testing.T) {
	now := time.Now()
	a := NewAircraft(1, now)
	a.Messages = 2
	a.LastSeen = now
	a.Evaluate(now)

	a.Callsign = "NEW123"
	a.LastSeen = now.Add(time.Second)
	assert.Equal(t, EmitImmediate, a.Evaluate(now.Add(time.Second)))
}

func TestEvaluateSmallAltitudeChangeIsDebounced(t *testing.T) {
	now := time.Now()
	a := NewAircraft(1, now)
	a.Messages = 2
	a.LastSeen = now
	a.Evaluate(now)

	a.BaroAltitude = 100 // > 50ft threshold, < immediate-triggering fields
	a.LastSeen = now.Add(time.Second)
	assert.Equal(t, EmitDebounced, a.Evaluate(now.Add(time.Second)))
}
