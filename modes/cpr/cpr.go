// Package cpr decodes Compact Position Reporting (CPR) latitude/longitude
// pairs, both globally (an odd+even pair alone) and locally (one CPR half
// plus a nearby reference position).
//
// The arithmetic is the classic dump1090 CPR algorithm; Regentag-go1090's
// mode_s.decodeCPR is the teacher's (airborne-only, odd-biased) version of
// it. This package generalizes it to: pick whichever half is more recent
// (not "always assume odd is last"), support surface CPR's 90 degree arc
// and reference-position quadrant disambiguation, and expose Local decode
// for when only one CPR half is fresh.
package cpr

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Position is a decoded or reference latitude/longitude, in degrees.
type Position struct {
	Lat, Lon float64
}

// Halves bundles the raw 17-bit CPR words needed for a Global decode.
type Halves struct {
	EvenLat, EvenLon uint32
	OddLat, OddLon   uint32
	// OddIsNewer selects which of the two zones the final position is
	// reported against.
	OddIsNewer bool
}

// nlTable is the NL() lookup from 1090-WP-9-14: the number of longitude
// zones for a given latitude. Table is symmetric about the equator.
func nl(lat float64) int {
	if lat < 0 {
		lat = -lat
	}
	switch {
	case lat < 10.47047130:
		return 59
	case lat < 14.82817437:
		return 58
	case lat < 18.18626357:
		return 57
	case lat < 21.02939493:
		return 56
	case lat < 23.54504487:
		return 55
	case lat < 25.82924707:
		return 54
	case lat < 27.93898710:
		return 53
	case lat < 29.91135686:
		return 52
	case lat < 31.77209708:
		return 51
	case lat < 33.53993436:
		return 50
	case lat < 35.22899598:
		return 49
	case lat < 36.85025108:
		return 48
	case lat < 38.41241892:
		return 47
	case lat < 39.92256684:
		return 46
	case lat < 41.38651832:
		return 45
	case lat < 42.80914012:
		return 44
	case lat < 44.19454951:
		return 43
	case lat < 45.54626723:
		return 42
	case lat < 46.86733252:
		return 41
	case lat < 48.16039128:
		return 40
	case lat < 49.42776439:
		return 39
	case lat < 50.67150166:
		return 38
	case lat < 51.89342469:
		return 37
	case lat < 53.09516153:
		return 36
	case lat < 54.27817472:
		return 35
	case lat < 55.44378444:
		return 34
	case lat < 56.59318756:
		return 33
	case lat < 57.72747354:
		return 32
	case lat < 58.84763776:
		return 31
	case lat < 59.95459277:
		return 30
	case lat < 61.04917774:
		return 29
	case lat < 62.13216659:
		return 28
	case lat < 63.20427479:
		return 27
	case lat < 64.26616523:
		return 26
	case lat < 65.31845310:
		return 25
	case lat < 66.36171008:
		return 24
	case lat < 67.39646774:
		return 23
	case lat < 68.42322022:
		return 22
	case lat < 69.44242631:
		return 21
	case lat < 70.45451075:
		return 20
	case lat < 71.45986473:
		return 19
	case lat < 72.45884545:
		return 18
	case lat < 73.45177442:
		return 17
	case lat < 74.43893416:
		return 16
	case lat < 75.42056257:
		return 15
	case lat < 76.39684391:
		return 14
	case lat < 77.36789461:
		return 13
	case lat < 78.33374083:
		return 12
	case lat < 79.29428225:
		return 11
	case lat < 80.24923213:
		return 10
	case lat < 81.19801349:
		return 9
	case lat < 82.13956981:
		return 8
	case lat < 83.07199445:
		return 7
	case lat < 83.99173563:
		return 6
	case lat < 84.89166191:
		return 5
	case lat < 85.75541621:
		return 4
	case lat < 86.53536998:
		return 3
	case lat < 87.00000000:
		return 2
	default:
		return 1
	}
}

func modFn(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

func nFn(lat float64, odd bool) int {
	n := nl(lat)
	if odd {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

func dlonFn(lat float64, odd bool) float64 {
	return 360.0 / float64(nFn(lat, odd))
}

// Global decodes an odd/even CPR pair with no external reference. It
// returns ok=false, ambiguous=true if the two halves fall in different
// latitude zones (classic CPR "ambiguous" outcome — the caller should fall
// back to Local decode).
func Global(h Halves, surface bool) (pos Position, ok bool, ambiguous bool) {
	arc := 360.0
	if surface {
		arc = 90.0
	}
	dlat0 := arc / 60.0
	dlat1 := arc / 59.0

	lat0 := float64(h.EvenLat)
	lat1 := float64(h.OddLat)
	lon0 := float64(h.EvenLon)
	lon1 := float64(h.OddLon)

	j := math.Floor(((59*lat0 - 60*lat1) / 131072) + 0.5)
	rlat0 := dlat0 * (float64(modFn(int(j), 60)) + lat0/131072)
	rlat1 := dlat1 * (float64(modFn(int(j), 59)) + lat1/131072)

	if !surface {
		if rlat0 >= 270 {
			rlat0 -= 360
		}
		if rlat1 >= 270 {
			rlat1 -= 360
		}
	}

	if nl(rlat0) != nl(rlat1) {
		return Position{}, false, true
	}

	var lat, lon float64
	if h.OddIsNewer {
		ni := nFn(rlat1, true)
		m := math.Floor((((lon0 * float64(nl(rlat1)-1)) - (lon1 * float64(nl(rlat1)))) / 131072.0) + 0.5)
		lon = dlonFn(rlat1, true) * arc / 360 * (float64(modFn(int(m), ni)) + lon1/131072)
		lat = rlat1
	} else {
		ni := nFn(rlat0, false)
		m := math.Floor((((lon0 * float64(nl(rlat0)-1)) - (lon1 * float64(nl(rlat0)))) / 131072.0) + 0.5)
		lon = dlonFn(rlat0, false) * arc / 360 * (float64(modFn(int(m), ni)) + lon0/131072)
		lat = rlat0
	}

	if surface {
		// Surface CPR only encodes a 90 degree arc: recover the actual
		// quadrant from the reference position by the caller (Global
		// cannot do this without one; GlobalSurface below does).
		lon = normalizeDeg(lon, 90)
	} else if lon > 180 {
		lon -= 360
	}

	return Position{Lat: lat, Lon: lon}, true, false
}

// GlobalSurface is Global for surface (movement) position reports, which
// encode only a 90 degree longitude arc and therefore need a reference
// position to choose among the four possible quadrants.
func GlobalSurface(h Halves, ref Position) (pos Position, ok bool, ambiguous bool) {
	p, ok, ambiguous := Global(h, true)
	if !ok {
		return p, ok, ambiguous
	}
	// Align longitude to within 45 degrees of the reference, matching
	// dump1090's decodeCPRsurface quadrant-recovery step.
	for p.Lon < ref.Lon-45 {
		p.Lon += 90
	}
	for p.Lon > ref.Lon+45 {
		p.Lon -= 90
	}
	return p, true, false
}

func normalizeDeg(v, mod float64) float64 {
	for v < 0 {
		v += mod
	}
	for v >= mod {
		v -= mod
	}
	return v
}

// Local decodes a single CPR half against a reference position that must
// lie within half a latitude zone of the true position (about 180 NM
// airborne, smaller on the surface).
func Local(ref Position, cprLat, cprLon uint32, odd bool, surface bool) (pos Position, ok bool) {
	arc := 360.0
	if surface {
		arc = 90.0
	}
	dlat := arc / 60.0
	if odd {
		dlat = arc / 59.0
	}

	latCpr := float64(cprLat) / 131072
	lonCpr := float64(cprLon) / 131072

	j := math.Floor(ref.Lat/dlat) + math.Floor(0.5+math.Mod(ref.Lat, dlat)/dlat-latCpr)
	lat := dlat * (j + latCpr)

	nlVal := nl(lat)
	var ni int
	if odd {
		ni = nlVal - 1
	} else {
		ni = nlVal
	}
	if ni < 1 {
		ni = 1
	}
	dlon := arc / float64(ni)

	m := math.Floor(ref.Lon/dlon) + math.Floor(0.5+math.Mod(ref.Lon, dlon)/dlon-lonCpr)
	lon := dlon * (m + lonCpr)

	return Position{Lat: lat, Lon: lon}, true
}

// DistanceNM returns the great-circle distance between two positions in
// nautical miles, using s2.LatLng.Distance (haversine-accurate near the
// poles) rather than a hand-rolled haversine.
func DistanceNM(a, b Position) float64 {
	ll1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	ll2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	angle := ll1.Distance(ll2)
	return radiansToNM(float64(angle))
}

const earthRadiusNM = 3440.065

func radiansToNM(rad float64) float64 {
	return rad * earthRadiusNM
}

// angleToRadians is exposed for tests that want to sanity-check DistanceNM
// against s1.Angle directly.
func angleToRadians(a s1.Angle) float64 { return float64(a) }
