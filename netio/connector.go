package netio

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/patrickmn/go-cache"
)

const (
	dnsCacheTTL        = 5 * time.Minute
	perAttemptTimeout  = 10 * time.Second
	acceptBackoffDelay = 3 * time.Second
)

// Connector is an outbound (address, port, protocol) tuple that dials
// out on a timer, resolving via a detached worker goroutine whose result
// is polled from the main thread through an atomic flag plus a mutex —
// the same handoff net_io.h documents for getaddrinfo, adapted from a
// pthread worker to a goroutine since Go has no blocking getaddrinfo
// equivalent worth avoiding a thread for.
type Connector struct {
	Host     string
	Port     string
	Protocol Protocol
	DelayMs  int

	dnsCache *cache.Cache

	mu        sync.Mutex
	resolving int32 // atomic: request-in-progress flag
	resolved  []net.IP
	resolveErr error

	Connected bool
	conn      net.Conn
}

// NewConnector creates a Connector. delayMs is stored as DelayMs; Poll
// does not consult it and tries to (re)connect on every call while not
// connected.
func NewConnector(host, port string, proto Protocol, delayMs int) *Connector {
	return &Connector{
		Host:     host,
		Port:     port,
		Protocol: proto,
		DelayMs:  delayMs,
		dnsCache: cache.New(dnsCacheTTL, dnsCacheTTL*2),
	}
}

// Poll is called periodically by the consumer loop. If not connected and
// no resolution is in flight, it kicks one off; once a resolution
// completes it attempts each result in turn with a per-attempt timeout.
func (c *Connector) Poll() (net.Conn, bool) {
	if c.Connected {
		return c.conn, false
	}

	if cached, found := c.dnsCache.Get(c.Host); found {
		return c.dialResolved(cached.([]net.IP)), c.Connected
	}

	if atomic.CompareAndSwapInt32(&c.resolving, 0, 1) {
		go c.resolve()
	}

	c.mu.Lock()
	results, err := c.resolved, c.resolveErr
	c.mu.Unlock()

	if err != nil || results == nil {
		return nil, false
	}
	c.dnsCache.SetDefault(c.Host, results)
	return c.dialResolved(results), c.Connected
}

func (c *Connector) resolve() {
	defer atomic.StoreInt32(&c.resolving, 0)

	ips, err := net.DefaultResolver.LookupIP(context.Background(), "ip", c.Host)

	c.mu.Lock()
	c.resolved = ips
	c.resolveErr = err
	c.mu.Unlock()

	if err != nil {
		log.Warn("netio: dns resolution failed", "host", c.Host, "err", err)
	}
}

func (c *Connector) dialResolved(ips []net.IP) net.Conn {
	for _, ip := range ips {
		d := net.Dialer{Timeout: perAttemptTimeout}
		conn, err := d.Dial("tcp", net.JoinHostPort(ip.String(), c.Port))
		if err == nil {
			c.conn = conn
			c.Connected = true
			return conn
		}
		log.Debug("netio: connector attempt failed", "addr", ip, "err", err)
	}
	return nil
}

// Disconnect tears down the current connection (if any) and schedules a
// fresh resolve/dial cycle on the next Poll.
func (c *Connector) Disconnect() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.Connected = false
}

// AcceptLoop runs an accept loop that suspends new-connection acceptance
// for acceptBackoffDelay after any non-timeout accept error (fd
// exhaustion included), per §5's socket-resource policy, instead of
// busy-looping on accept failures.
func AcceptLoop(ctx context.Context, l net.Listener, onAccept func(net.Conn)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := l.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Warn("netio: accept failed, suspending new connections", "err", err)
			select {
			case <-time.After(acceptBackoffDelay):
			case <-ctx.Done():
				return
			}
			continue
		}
		onAccept(conn)
	}
}
