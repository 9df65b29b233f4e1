package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ConnRegistry is the process-wide set of live connections. Iteration in
// All, Filter, and the broadcast operations runs on a snapshot of the
// membership, so a concurrent removal cannot panic an iteration; additions
// made mid-iteration may be missed by it.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewConnRegistry returns an empty connection registry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[string]*Conn)}
}

// Add tracks a connection, keyed by its connection ID.
func (cr *ConnRegistry) Add(c *Conn) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.conns[c.ctx.ConnectionID] = c
}

// Remove drops a connection.
func (cr *ConnRegistry) Remove(c *Conn) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	delete(cr.conns, c.ctx.ConnectionID)
}

// Get returns the connection with the given connection ID, or nil.
func (cr *ConnRegistry) Get(connectionID string) *Conn {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.conns[connectionID]
}

// Len returns the number of live connections.
func (cr *ConnRegistry) Len() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.conns)
}

// All returns a snapshot of the live connections.
func (cr *ConnRegistry) All() []*Conn {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	out := make([]*Conn, 0, len(cr.conns))
	for _, c := range cr.conns {
		out = append(out, c)
	}
	return out
}

// Filter returns the snapshot entries for which keep returns true.
func (cr *ConnRegistry) Filter(keep func(*Conn) bool) []*Conn {
	all := cr.All()
	out := all[:0]
	for _, c := range all {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Broadcast sends v to every live connection as a text frame, with the same
// encoding rules as Conn.Send. The payload is encoded once. Delivery is
// best effort; the count of successful sends is returned.
func (cr *ConnRegistry) Broadcast(v any) (int, error) {
	payload, err := EncodePayload(v)
	if err != nil {
		return 0, err
	}
	return cr.broadcast(websocket.TextMessage, payload), nil
}

// BroadcastBinary sends a binary payload to every live connection and
// returns the count of successful sends.
func (cr *ConnRegistry) BroadcastBinary(data []byte) int {
	return cr.broadcast(websocket.BinaryMessage, data)
}

func (cr *ConnRegistry) broadcast(messageType int, payload []byte) int {
	sent := 0
	for _, c := range cr.All() {
		if err := c.write(messageType, payload); err == nil {
			sent++
		}
	}
	return sent
}
