package netio

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// FATSV writes the tab-separated key/value telemetry stream, prefixed
// with "_v" (scheme version) and "clock" fields, per §6.
type FATSV struct {
	w io.Writer
}

// NewFATSV wraps w for FATSV encoding.
func NewFATSV(w io.Writer) *FATSV { return &FATSV{w: w} }

// FATSVRecord is the set of fields one aircraft emission may carry;
// zero-value fields are simply omitted from the line.
type FATSVRecord struct {
	Clock     time.Time
	Hex       string
	Callsign  string
	Altitude  *int
	Squawk    *int
	Lat, Lon  *float64
	GS        *float64
	Track     *float64
	VertRate  *int
}

// Write emits one FATSV line.
func (f *FATSV) Write(r FATSVRecord) error {
	var b strings.Builder
	b.WriteString("_v\t2")
	fmt.Fprintf(&b, "\tclock\t%d", r.Clock.Unix())
	if r.Hex != "" {
		fmt.Fprintf(&b, "\thexid\t%s", r.Hex)
	}
	if r.Callsign != "" {
		fmt.Fprintf(&b, "\tident\t%s", r.Callsign)
	}
	if r.Altitude != nil {
		fmt.Fprintf(&b, "\talt\t%d", *r.Altitude)
	}
	if r.Squawk != nil {
		fmt.Fprintf(&b, "\tsquawk\t%04d", *r.Squawk)
	}
	if r.Lat != nil && r.Lon != nil {
		fmt.Fprintf(&b, "\tlat\t%.5f\tlon\t%.5f", *r.Lat, *r.Lon)
	}
	if r.GS != nil {
		fmt.Fprintf(&b, "\tspeed\t%.1f", *r.GS)
	}
	if r.Track != nil {
		fmt.Fprintf(&b, "\theading\t%.1f", *r.Track)
	}
	if r.VertRate != nil {
		fmt.Fprintf(&b, "\tvrate\t%d", *r.VertRate)
	}
	b.WriteString("\n")
	_, err := io.WriteString(f.w, b.String())
	return err
}
