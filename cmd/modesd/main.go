// Command modesd is the receiver's process entry point: it wires the
// CRC engine, address filter, frame decoder, tracker and output
// scheduler to a set of netio services/connectors and runs until an
// interrupt or terminate signal is received.
//
// This replaces the teacher's gocui terminal demo (main.go) with a
// non-interactive daemon; process lifecycle detail (init scripts,
// daemonizing, pidfiles) is out of scope, so only os/signal handling
// for a clean shutdown is wired.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/regentag/modes1090/internal/config"
	"github.com/regentag/modes1090/modes/cpr"
	"github.com/regentag/modes1090/modes/decode"
	"github.com/regentag/modes1090/modes/filter"
	"github.com/regentag/modes1090/modes/track"
	"github.com/regentag/modes1090/netio"
)

// SampleSource is the shape of a demodulated-frame feed. netio.AVRReader
// satisfies it; netio.BeastReader does not, since its ReadFrame also
// returns the frame type. No source is wired into run; a real
// SDR/rtl_adsb front end is out of scope.
type SampleSource interface {
	ReadFrame() (netio.Frame, error)
}

func main() {
	fs := pflag.NewFlagSet("modesd", pflag.ExitOnError)
	flags := config.BindFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal("parse flags", "err", err)
	}

	cfg := config.Default()
	if err := config.LoadFile(&cfg, *flags.ConfigPath); err != nil {
		log.Fatal("load config", "err", err)
	}
	config.Apply(&cfg, fs, flags)
	if err := cfg.Valid(); err != nil {
		log.Fatal("invalid config", "err", err)
	}

	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("parse log level", "err", err)
	}
	log.SetLevel(lvl)

	d := newDaemon(cfg)
	d.run()
}

// daemon holds every long-lived component the process wires together.
type daemon struct {
	cfg     config.Config
	filter  *filter.Filter
	decoder *decode.Decoder
	tracker *track.Tracker
	metrics *netio.Metrics

	services   []*netio.Service
	connectors []*netio.Connector

	// halt is the atomic exit flag §5's concurrency section asks for:
	// set once by the signal handler, polled by every loop.
	halt int32
}

func newDaemon(cfg config.Config) *daemon {
	f := filter.New()
	reg := prometheus.NewRegistry()
	m := netio.NewMetrics(reg)

	d := &daemon{
		cfg:     cfg,
		filter:  f,
		decoder: decode.NewDecoder(f, cfg.MaxFixBits),
		tracker: track.New(),
		metrics: m,
	}
	d.decoder.Aggressive = cfg.Aggressive

	if cfg.ReceiverConfigured {
		d.tracker.Receiver = track.ReceiverPosition{
			Configured: true,
			Pos:        cpr.Position{Lat: cfg.ReceiverLat, Lon: cfg.ReceiverLon},
			MaxRangeNM: cfg.MaxRangeNM,
		}
	}

	for _, svcCfg := range cfg.NetServices {
		svc := netio.NewService(svcCfg.Protocol, netio.Protocol(svcCfg.Protocol), svcCfg.SendBufExp, m)
		d.services = append(d.services, svc)
	}
	for _, connCfg := range cfg.NetConnectors {
		d.connectors = append(d.connectors, netio.NewConnector(connCfg.Host, portString(connCfg.Port), netio.Protocol(connCfg.Protocol), connCfg.DelayMs))
	}

	return d
}

func (d *daemon) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("shutting down", "signal", sig)
		atomic.StoreInt32(&d.halt, 1)
		cancel()
	}()

	var listeners []net.Listener
	for i, svcCfg := range d.cfg.NetServices {
		l, err := net.Listen("tcp", portString(svcCfg.Port))
		if err != nil {
			log.Error("listen failed", "protocol", svcCfg.Protocol, "port", svcCfg.Port, "err", err)
			continue
		}
		listeners = append(listeners, l)
		svc := d.services[i]
		go netio.AcceptLoop(ctx, l, func(conn net.Conn) {
			svc.Accept(conn)
		})
	}
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for atomic.LoadInt32(&d.halt) == 0 {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.tracker.Periodic(now)
			d.pollConnectors()
			d.metrics.TracksActive.Set(float64(d.tracker.Len()))
		}
	}
}

func (d *daemon) pollConnectors() {
	for _, c := range d.connectors {
		c.Poll()
	}
}

// handleFrame is the per-message consumer path: decode, feed the
// tracker, and fan the result out to attached output services. It is a
// method of its own (rather than buried in run) so it can be driven
// directly with a frame without a live socket; run does not call it.
func (d *daemon) handleFrame(frame netio.Frame, now time.Time) {
	msg, err := d.decoder.Decode(decode.Input{
		Frame:      frame.Payload,
		RecvClock:  frame.RecvClock,
		RecvWallMs: now.UnixMilli(),
	}, now)
	if err != nil {
		if fe, ok := err.(*decode.Error); ok && fe.Kind == decode.FailureUnknownICAO {
			d.metrics.FramesUnknownICAO.Inc()
		} else {
			d.metrics.FramesBad.Inc()
		}
		return
	}
	d.metrics.FramesGood.Inc()
	if msg.BitsFixed > 0 {
		d.metrics.BitsCorrected.Add(float64(msg.BitsFixed))
	}

	ac := d.tracker.Update(msg, now)
	decision := ac.Evaluate(now)
	if decision == track.EmitNone {
		return
	}

	for _, svc := range d.services {
		switch svc.Protocol {
		case netio.ProtoBeastOut:
			svc.Broadcast(beastEncodeAircraft(frame))
		}
	}
}

func portString(port int) string {
	return ":" + itoa(port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func beastEncodeAircraft(frame netio.Frame) []byte {
	return frame.Payload
}
