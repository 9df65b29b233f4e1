package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub is the topic fan-out layer. A single mutex linearizes subscribe,
// unsubscribe, and publish, so a publish that starts before an unsubscribe
// delivers to that connection and one that starts after does not.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Conn]struct{}
	byConn map[*Conn]map[string]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Conn]struct{}),
		byConn: make(map[*Conn]map[string]struct{}),
	}
}

// Subscribe adds a connection to a topic. Subscribing twice is a no-op.
func (h *Hub) Subscribe(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Conn]struct{})
	}
	h.topics[topic][c] = struct{}{}

	if h.byConn[c] == nil {
		h.byConn[c] = make(map[string]struct{})
	}
	h.byConn[c][topic] = struct{}{}
}

// Unsubscribe removes a connection from a topic.
func (h *Hub) Unsubscribe(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c, topic)
}

// IsSubscribed reports whether a connection is subscribed to a topic.
func (h *Hub) IsSubscribed(c *Conn, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.topics[topic][c]
	return ok
}

// Publish sends a text payload to every connection subscribed to topic and
// returns the number of connections it was delivered to. Delivery is best
// effort; closed or backpressured connections are skipped.
func (h *Hub) Publish(topic string, payload []byte) int {
	return h.publish(topic, websocket.TextMessage, payload, nil)
}

// PublishBinary sends a binary payload to every connection subscribed to
// topic, with the same delivery semantics as Publish.
func (h *Hub) PublishBinary(topic string, payload []byte) int {
	return h.publish(topic, websocket.BinaryMessage, payload, nil)
}

// DropConn removes a connection from every topic it is subscribed to.
func (h *Hub) DropConn(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.byConn[c] {
		h.drop(c, topic)
	}
}

// Topics returns the connection's current subscriptions.
func (h *Hub) Topics(c *Conn) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.byConn[c]))
	for topic := range h.byConn[c] {
		out = append(out, topic)
	}
	return out
}

// publish delivers under the hub mutex so that membership seen by a publish
// is exactly the membership at its linearization point.
func (h *Hub) publish(topic string, messageType int, payload []byte, except *Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.topics[topic] {
		if c == except {
			continue
		}
		if err := c.write(messageType, payload); err == nil {
			sent++
		}
	}
	return sent
}

// drop removes one membership edge; the caller holds the mutex.
func (h *Hub) drop(c *Conn, topic string) {
	if set := h.topics[topic]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
	if set := h.byConn[c]; set != nil {
		delete(set, topic)
		if len(set) == 0 {
			delete(h.byConn, c)
		}
	}
}
