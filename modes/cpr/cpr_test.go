package cpr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// DF17 airborne position, even frame: 8D40621D58C382D690C8AC2863A7
// addr=0x40621D, cpr_odd=0, cpr_lat=93000, cpr_lon=51372, alt=38000ft.
// The matching odd frame (same scenario, textbook dump1090 pair) is
// cpr_lat=74158, cpr_lon=50194.
func TestGlobalAirbornePairMatchesScenario(t *testing.T) {
	h := Halves{
		EvenLat:    93000,
		EvenLon:    51372,
		OddLat:     74158,
		OddLon:     50194,
		OddIsNewer: false,
	}
	pos, ok, ambiguous := Global(h, false)
	require.True(t, ok)
	require.False(t, ambiguous)

	assert.InDelta(t, 52.25720, pos.Lat, 0.01)
	assert.InDelta(t, 3.91937, pos.Lon, 0.01)
}

// Invariant 6: decoding the same even frame locally against a reference
// near the globally-decoded position must agree with the global decode to
// within 1 meter once scenario 2 (spec §8) is set up as ref.
func TestLocalAgreesWithGlobalWithinOneMeter(t *testing.T) {
	h := Halves{
		EvenLat:    93000,
		EvenLon:    51372,
		OddLat:     74158,
		OddLon:     50194,
		OddIsNewer: false,
	}
	global, ok, _ := Global(h, false)
	require.True(t, ok)

	// A reference position close enough (within half a zone) to the true
	// position to decode unambiguously: here, the global answer itself.
	local, ok := Local(global, h.EvenLat, h.EvenLon, false, false)
	require.True(t, ok)

	distM := DistanceNM(global, local) * 1852.0
	assert.Less(t, distM, 1.0, "local decode must agree with global to within 1m")
}

func TestGlobalAmbiguousWhenLatitudeZonesDiffer(t *testing.T) {
	h := Halves{
		EvenLat:    97213, // rlat0 ~ 10.450 (NL 59)
		EvenLon:    0,
		OddLat:     94282, // rlat1 ~ 10.491 (NL 58): different NL zones
		OddLon:     0,
		OddIsNewer: true,
	}
	_, ok, ambiguous := Global(h, false)
	assert.False(t, ok)
	assert.True(t, ambiguous)
}

func TestDistanceNMZeroForSamePosition(t *testing.T) {
	p := Position{Lat: 52.0, Lon: 4.0}
	assert.InDelta(t, 0, DistanceNM(p, p), 1e-9)
}

func TestDistanceNMEquatorOneDegree(t *testing.T) {
	a := Position{Lat: 0, Lon: 0}
	b := Position{Lat: 0, Lon: 1}
	// 1 degree of longitude at the equator is about 60 NM.
	assert.InDelta(t, 60.04, DistanceNM(a, b), 0.5)
}

func TestNLIsMonotonicallyNonIncreasingTowardThePoles(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lat := rapid.Float64Range(0, 86.9).Draw(t, "lat")
		delta := rapid.Float64Range(0, 3).Draw(t, "delta")
		assert.GreaterOrEqual(t, nl(lat), nl(math.Min(lat+delta, 90)))
	})
}

func TestGlobalSurfaceRecoversNearestQuadrant(t *testing.T) {
	h := Halves{
		EvenLat:    93000,
		EvenLon:    51372,
		OddLat:     74158,
		OddLon:     50194,
		OddIsNewer: true,
	}
	ref := Position{Lat: 52.0, Lon: 4.0}
	pos, ok, _ := GlobalSurface(h, ref)
	require.True(t, ok)
	assert.InDelta(t, ref.Lon, pos.Lon, 45.0)
}
