// Prometheus metrics, grounded on montge-stratux's go.mod pulling in
// github.com/prometheus/client_golang for its traffic subsystem; here
// wired to the per-frame and per-connection counters §7's error
// taxonomy calls for.
package netio

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of counters/gauges the consumer updates as it
// processes frames and manages connections.
type Metrics struct {
	FramesGood       prometheus.Counter
	FramesBad        prometheus.Counter
	FramesUnknownICAO prometheus.Counter
	BitsCorrected    prometheus.Counter

	ClientsConnected prometheus.Gauge
	ClientsDropped   prometheus.Counter

	TracksActive prometheus.Gauge
}

// NewMetrics registers the receiver's metrics with reg (pass
// prometheus.DefaultRegisterer for process-wide registration, or a
// fresh prometheus.NewRegistry() in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesGood: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modes_frames_good_total",
			Help: "Frames that decoded and passed CRC validation.",
		}),
		FramesBad: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modes_frames_bad_total",
			Help: "Frames rejected as structurally bad.",
		}),
		FramesUnknownICAO: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modes_frames_unknown_icao_total",
			Help: "Frames whose CRC could not be verified against a known address.",
		}),
		BitsCorrected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modes_bits_corrected_total",
			Help: "Total bit errors corrected across all frames.",
		}),
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modes_clients_connected",
			Help: "Currently connected network clients.",
		}),
		ClientsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modes_clients_dropped_total",
			Help: "Clients disconnected due to a send stall or queue overflow.",
		}),
		TracksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modes_tracks_active",
			Help: "Currently tracked aircraft.",
		}),
	}

	reg.MustRegister(
		m.FramesGood, m.FramesBad, m.FramesUnknownICAO, m.BitsCorrected,
		m.ClientsConnected, m.ClientsDropped, m.TracksActive,
	)
	return m
}
