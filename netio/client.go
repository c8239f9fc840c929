package netio

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Protocol names one of the outbound-connector protocols in §6.
type Protocol string

const (
	ProtoBeastIn       Protocol = "beast_in"
	ProtoBeastOut      Protocol = "beast_out"
	ProtoBeastReduceOut Protocol = "beast_reduce_out"
	ProtoRawIn         Protocol = "raw_in"
	ProtoRawOut        Protocol = "raw_out"
	ProtoSBSIn         Protocol = "sbs_in"
	ProtoSBSOut        Protocol = "sbs_out"
	ProtoVRSOut        Protocol = "vrs_out"
)

const (
	sendQueueBaseBytes = 64 * 1024
	clientRecvBufBytes = 64*1024 + 4096
	sendStallTimeout   = 5 * time.Second
)

// Client is one accepted or dialed connection, owned exclusively by its
// Service. Mirrors _examples/original_source/net_io.h's struct client:
// a fixed receive buffer and a bounded send queue whose backpressure
// policy is enforced here instead of in a poll loop, using a buffered
// channel plus a dedicated writer goroutine.
type Client struct {
	conn     net.Conn
	service  *Service
	sendCh   chan []byte
	done     chan struct{}
	closeOnce sync.Once

	LastSend   time.Time
	Reduce     bool // reduce_forward client; Broadcast does not send to it
	bytesSent  uint64
}

// Service owns a listener and the set of clients currently attached to
// it, mirroring net_service in the original source.
type Service struct {
	Name     string
	Protocol Protocol
	SendBuf  int // 64KiB * 2^net_sndbuf_size, capped

	mu      sync.Mutex
	clients map[*Client]struct{}
	metrics *Metrics
}

// NewService creates a Service with the given send-queue size exponent
// (capped at 7, i.e. 8 MiB, matching readsb's net_sndbuf_size range).
func NewService(name string, proto Protocol, sndbufExp int, m *Metrics) *Service {
	if sndbufExp < 0 {
		sndbufExp = 0
	}
	if sndbufExp > 7 {
		sndbufExp = 7
	}
	return &Service{
		Name:     name,
		Protocol: proto,
		SendBuf:  sendQueueBaseBytes << sndbufExp,
		clients:  make(map[*Client]struct{}),
		metrics:  m,
	}
}

// Accept wraps a freshly-accepted connection as a Client, starts its
// writer goroutine, and registers it with the service.
func (s *Service) Accept(conn net.Conn) *Client {
	c := &Client{
		conn:    conn,
		service: s,
		sendCh:  make(chan []byte, 256),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ClientsConnected.Inc()
	}

	go c.writeLoop()
	return c
}

// Send enqueues data on this client's 256-message channel. A send that
// finds the channel full triggers the immediate-disconnect overflow
// policy from §5. The service's SendBuf byte size is not consulted.
func (c *Client) Send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		log.Warn("netio: send queue overflow, disconnecting client",
			"service", c.service.Name, "sent", humanize.Bytes(c.bytesSent))
		c.Close(true)
	}
}

func (c *Client) writeLoop() {
	w := bufio.NewWriterSize(c.conn, clientRecvBufBytes)
	stall := time.NewTimer(sendStallTimeout)
	defer stall.Stop()

	for {
		select {
		case data, ok := <-c.sendCh:
			if !ok {
				return
			}
			if _, err := w.Write(data); err != nil {
				c.Close(false)
				return
			}
			w.Flush()
			c.bytesSent += uint64(len(data))
			c.LastSend = time.Now()
			if !stall.Stop() {
				<-stall.C
			}
			stall.Reset(sendStallTimeout)
		case <-stall.C:
			log.Warn("netio: send stalled > 5s, disconnecting client", "service", c.service.Name)
			c.Close(true)
			return
		case <-c.done:
			return
		}
	}
}

// Close disconnects the client. overflow distinguishes an
// overflow/stall-triggered close from a clean EOF for metrics purposes.
func (c *Client) Close(overflow bool) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()

		c.service.mu.Lock()
		delete(c.service.clients, c)
		n := len(c.service.clients)
		c.service.mu.Unlock()

		if c.service.metrics != nil {
			c.service.metrics.ClientsConnected.Set(float64(n))
			if overflow {
				c.service.metrics.ClientsDropped.Inc()
			}
		}
	})
}

// Broadcast sends data to every client currently attached to the
// service (used by *_out protocols). Targets are snapshotted under the
// lock and sent to afterward, since a stalled/overflowing Send may call
// back into Close, which itself needs the lock.
func (s *Service) Broadcast(data []byte) {
	s.mu.Lock()
	targets := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		if !c.Reduce {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	for _, c := range targets {
		c.Send(data)
	}
}

// ClientCount returns the number of attached clients.
func (s *Service) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
