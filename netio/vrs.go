// VRS JSON push over a websocket, grounded on montge-stratux's adoption
// of gorilla/websocket for broadcasting traffic updates to connected
// browser clients — the same "hub holds a set of conns, broadcast
// fans out non-blockingly, a full client's send channel drops the
// client" shape, retargeted at VRS's aircraft-list JSON schema.
package netio

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// VRSAircraft is one entry of a VRS JSON "AircraftList" push.
type VRSAircraft struct {
	Icao     string  `json:"Icao"`
	Call     string  `json:"Call,omitempty"`
	Alt      int     `json:"Alt,omitempty"`
	Lat      float64 `json:"Lat,omitempty"`
	Long     float64 `json:"Long,omitempty"`
	Spd      float64 `json:"Spd,omitempty"`
	Trak     float64 `json:"Trak,omitempty"`
	Sqk      string  `json:"Sqk,omitempty"`
	Gnd      bool    `json:"Gnd"`
}

// VRSSnapshot is the top-level VRS JSON document.
type VRSSnapshot struct {
	Aircraft []VRSAircraft `json:"acList"`
	Stamp    int64         `json:"lastDv"`
}

// VRSHub fans VRS JSON snapshots out to any number of connected
// websocket clients, dropping clients whose send buffer is full rather
// than blocking the broadcaster.
type VRSHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewVRSHub creates an empty hub.
func NewVRSHub() *VRSHub {
	return &VRSHub{
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Register adds a websocket connection to the broadcast set and starts
// its writer goroutine.
func (h *VRSHub) Register(conn *websocket.Conn) {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	go func() {
		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("vrs: write failed, dropping client", "err", err)
				h.unregister(conn)
				return
			}
		}
	}()
}

func (h *VRSHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	conn.Close()
}

// Broadcast marshals snap and pushes it to every registered client,
// non-blockingly: a client whose buffer is already full is dropped
// instead of stalling the whole hub, matching the socket resource
// policy in §5.
func (h *VRSHub) Broadcast(snap VRSSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			delete(h.clients, conn)
			close(ch)
			conn.Close()
		}
	}
	return nil
}

// Count returns the number of connected VRS clients.
func (h *VRSHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
