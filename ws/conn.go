package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by send operations after the connection has been
// closed by either side.
var ErrClosed = errors.New("ws: connection closed")

// ErrBackpressure is returned by send operations while the connection's
// in-flight payload bytes exceed the configured backpressure limit. Slow
// consumers are skipped rather than buffered without bound.
var ErrBackpressure = errors.New("ws: backpressure limit exceeded")

// writeWait bounds a single frame or control write.
const writeWait = 10 * time.Second

// Context carries per-connection state for the connection's lifetime.
type Context struct {
	// ConnectionID is a UUID generated at upgrade.
	ConnectionID string

	// ConnectedAt is the upgrade acceptance time.
	ConnectedAt time.Time

	// User is the value returned by the route's Auth function, or nil when
	// the route has no auth.
	User any

	// Params holds the path parameters extracted at upgrade.
	Params map[string]string

	// Data is a mutable bag for handler-local state. It is owned by the
	// connection's handlers and is not locked by the framework.
	Data map[string]any
}

// Conn is the typed façade over a live WebSocket connection. All send
// operations are safe for concurrent use; writes are serialized by a
// per-connection mutex.
type Conn struct {
	raw       *websocket.Conn
	ctx       *Context
	routePath string
	hub       *Hub
	pressure  int64

	writeMu  sync.Mutex
	closed   atomic.Bool
	buffered atomic.Int64
}

func newConn(raw *websocket.Conn, ctx *Context, routePath string, hub *Hub, pressure int64) *Conn {
	return &Conn{raw: raw, ctx: ctx, routePath: routePath, hub: hub, pressure: pressure}
}

// Context returns the connection context.
func (c *Conn) Context() *Context {
	return c.ctx
}

// Raw exposes the underlying connection as an escape hatch. Callers taking
// over reads or writes are on their own with respect to the single-reader,
// single-writer rule.
func (c *Conn) Raw() *websocket.Conn {
	return c.raw
}

// RoutePath returns the path pattern of the route this connection was
// accepted on.
func (c *Conn) RoutePath() string {
	return c.routePath
}

// Send writes v as a text frame. Objects are JSON-encoded; string and
// []byte values pass through unencoded.
func (c *Conn) Send(v any) error {
	payload, err := EncodePayload(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, payload)
}

// SendBinary writes a binary frame.
func (c *Conn) SendBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

// Publish sends v to every connection subscribed to topic except this one,
// with the same encoding rules as Send. The publishing connection does not
// receive the message even when subscribed.
func (c *Conn) Publish(topic string, v any) error {
	payload, err := EncodePayload(v)
	if err != nil {
		return err
	}
	c.hub.publish(topic, websocket.TextMessage, payload, c)
	return nil
}

// Subscribe adds this connection to a topic.
func (c *Conn) Subscribe(topic string) {
	c.hub.Subscribe(c, topic)
}

// Unsubscribe removes this connection from a topic.
func (c *Conn) Unsubscribe(topic string) {
	c.hub.Unsubscribe(c, topic)
}

// IsSubscribed reports whether this connection is subscribed to a topic.
func (c *Conn) IsSubscribed(topic string) bool {
	return c.hub.IsSubscribed(c, topic)
}

// BufferedAmount returns the number of payload bytes currently in flight on
// this connection. The value is observational.
func (c *Conn) BufferedAmount() int64 {
	return c.buffered.Load()
}

// Close sends a close frame with the given code and reason and tears down
// the connection. A zero code means normal closure. Close returns ErrClosed
// when the connection is already closed.
func (c *Conn) Close(code int, reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if code == 0 {
		code = websocket.CloseNormalClosure
	}

	msg := websocket.FormatCloseMessage(code, reason)
	c.writeMu.Lock()
	_ = c.raw.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.raw.Close()
}

// markClosed flips the closed flag without touching the transport. The
// dispatcher calls it when the read loop exits.
func (c *Conn) markClosed() {
	c.closed.Store(true)
}

// write serializes one frame through the connection mutex. Only an open
// connection accepts writes, and a backlog beyond the backpressure limit
// rejects new sends instead of queueing them.
func (c *Conn) write(messageType int, payload []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.pressure > 0 && c.buffered.Load() > c.pressure {
		return ErrBackpressure
	}

	n := int64(len(payload))
	c.buffered.Add(n)
	defer c.buffered.Add(-n)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	_ = c.raw.SetWriteDeadline(time.Now().Add(writeWait))
	return c.raw.WriteMessage(messageType, payload)
}

// EncodePayload renders a value for a text frame: strings and byte slices
// pass through, everything else is JSON-encoded. Send, Publish, Broadcast,
// and the server's publish entry points all share these rules.
func EncodePayload(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case json.RawMessage:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return json.Marshal(v)
	}
}
