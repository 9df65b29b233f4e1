package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vitalvas/gantry/apierr"
)

// Defaults applied when the corresponding Options field is zero.
const (
	DefaultMaxPayloadBytes   int64 = 16 << 20
	DefaultIdleTimeout             = 120 * time.Second
	DefaultBackpressureBytes int64 = 16 << 20
)

// Message outcome labels reported to the ObserveMessage hook. Unregistered
// client types are collapsed to fixed labels so the hook can feed a metric
// vector without unbounded cardinality.
const (
	statusOK    = "ok"
	statusError = "error"
)

// Options tunes the transport behavior of accepted connections.
type Options struct {
	// MaxPayloadBytes caps a single incoming frame. A connection sending a
	// larger frame is closed by the transport.
	MaxPayloadBytes int64

	// IdleTimeout closes a connection with no traffic and no pong replies
	// for the given duration. Pings are sent automatically.
	IdleTimeout time.Duration

	// DisableCompression turns off permessage-deflate negotiation.
	DisableCompression bool

	// BackpressureBytes caps the in-flight payload bytes per connection.
	// Sends to a connection over the cap return ErrBackpressure instead of
	// queueing, so one slow consumer cannot pin broadcast memory.
	BackpressureBytes int64

	// CheckOrigin gates the upgrade by request origin. Nil allows all
	// origins; origin policy for browsers belongs to the application.
	CheckOrigin func(r *http.Request) bool
}

func (o Options) maxPayload() int64 {
	if o.MaxPayloadBytes > 0 {
		return o.MaxPayloadBytes
	}
	return DefaultMaxPayloadBytes
}

func (o Options) idleTimeout() time.Duration {
	if o.IdleTimeout > 0 {
		return o.IdleTimeout
	}
	return DefaultIdleTimeout
}

func (o Options) backpressure() int64 {
	if o.BackpressureBytes > 0 {
		return o.BackpressureBytes
	}
	return DefaultBackpressureBytes
}

// Dispatcher owns the WebSocket side of a server: it gates upgrades against
// a route registry, runs one read loop per connection, and dispatches
// decoded messages to the route's handlers.
type Dispatcher struct {
	Registry *Registry
	Conns    *ConnRegistry
	Hub      *Hub
	Options  Options

	// Logger records dispatch faults. Nil discards.
	Logger *slog.Logger

	// ObserveConn and ObserveMessage are optional instrumentation hooks.
	// ObserveConn receives +1 on accept and -1 on teardown; ObserveMessage
	// receives the route path, a bounded message type label, and "ok" or
	// "error".
	ObserveConn    func(delta int)
	ObserveMessage func(route, msgType, status string)

	upgrader websocket.Upgrader
}

// NewDispatcher returns a dispatcher with a fresh connection registry and
// hub.
func NewDispatcher(reg *Registry, opts Options) *Dispatcher {
	d := &Dispatcher{
		Registry: reg,
		Conns:    NewConnRegistry(),
		Hub:      NewHub(),
		Options:  opts,
	}
	d.upgrader = websocket.Upgrader{
		EnableCompression: !opts.DisableCompression,
		CheckOrigin:       opts.CheckOrigin,
		Error: func(w http.ResponseWriter, _ *http.Request, _ int, reason error) {
			e := apierr.New(http.StatusBadRequest, "WebSocket upgrade failed", apierr.CodeUpgradeFailed, reason.Error())
			apierr.Write(w, http.StatusBadRequest, e)
		},
	}
	if d.upgrader.CheckOrigin == nil {
		d.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return d
}

var discardLogger = slog.New(slog.DiscardHandler)

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return discardLogger
}

// HandleUpgrade resolves the request path against the registry and, on a
// match, runs the full connection lifecycle: auth, upgrade, registration,
// read loop, teardown. It returns false without touching the response when
// no WebSocket route matches, so the caller can fall through to HTTP
// handling. When it returns true the response is complete and the
// connection, if accepted, has already closed.
func (d *Dispatcher) HandleUpgrade(w http.ResponseWriter, r *http.Request) bool {
	m := d.Registry.Match(r.URL.Path)
	if m == nil {
		return false
	}
	route := m.Route

	var user any
	if route.Auth != nil {
		err := capture(func() error {
			var authErr error
			user, authErr = route.Auth(r)
			return authErr
		})
		if err != nil {
			d.logger().Warn("websocket auth failed", "route", route.Path, "error", err)
			apierr.Write(w, http.StatusUnauthorized, apierr.New(http.StatusUnauthorized, "Authentication failed", apierr.CodeAuthError, nil))
			return true
		}
		if user == nil {
			apierr.Write(w, http.StatusUnauthorized, apierr.New(http.StatusUnauthorized, "Unauthorized", "", nil))
			return true
		}
	}

	ctx := &Context{
		ConnectionID: uuid.NewString(),
		ConnectedAt:  time.Now(),
		User:         user,
		Params:       m.Params,
		Data:         make(map[string]any),
	}

	raw, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader's Error hook has written the envelope.
		return true
	}

	raw.SetReadLimit(d.Options.maxPayload())
	conn := newConn(raw, ctx, route.Path, d.Hub, d.Options.backpressure())
	d.Conns.Add(conn)
	d.observeConn(1)
	d.serve(conn, route)
	return true
}

// serve runs the connection read loop until the peer closes, the idle
// deadline passes, or the transport fails, then tears the connection down.
// Each message is handled in its own goroutine, launched in arrival order;
// teardown waits for in-flight handlers so OnClose is the final callback.
func (d *Dispatcher) serve(conn *Conn, route *Route) {
	idle := d.Options.idleTimeout()
	stop := make(chan struct{})
	var inflight sync.WaitGroup

	defer func() {
		close(stop)
		conn.markClosed()
		_ = conn.raw.Close()
		inflight.Wait()
		d.Conns.Remove(conn)
		d.Hub.DropConn(conn)
		d.observeConn(-1)
		d.invokeClose(conn, route)
	}()

	_ = conn.raw.SetReadDeadline(time.Now().Add(idle))
	conn.raw.SetPongHandler(func(string) error {
		return conn.raw.SetReadDeadline(time.Now().Add(idle))
	})
	go d.ping(conn, idle, stop)

	d.invokeConnect(conn, route)

	for {
		messageType, payload, err := conn.raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				d.logger().Debug("websocket read ended", "connection_id", conn.ctx.ConnectionID, "error", err)
			}
			return
		}
		_ = conn.raw.SetReadDeadline(time.Now().Add(idle))

		switch messageType {
		case websocket.TextMessage:
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				d.dispatchText(conn, route, payload)
			}()
		case websocket.BinaryMessage:
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				d.dispatchBinary(conn, route, payload)
			}()
		}
	}
}

// ping keeps the connection alive under the idle deadline. WriteControl is
// safe to call concurrently with data writes.
func (d *Dispatcher) ping(conn *Conn, idle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(idle * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.raw.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// dispatchText decodes one text frame and routes it. The accepted shape is
// a JSON object with a string "type" and an optional "data" member.
func (d *Dispatcher) dispatchText(conn *Conn, route *Route, payload []byte) {
	var frame map[string]any
	if err := json.Unmarshal(payload, &frame); err != nil {
		d.observeMessage(route.Path, "invalid", statusError)
		d.routeError(conn, route, errors.New("Invalid message format"))
		return
	}
	msgType, ok := frame["type"].(string)
	if !ok {
		d.observeMessage(route.Path, "invalid", statusError)
		d.routeError(conn, route, errors.New("Invalid message format"))
		return
	}

	def := route.message(msgType)
	if def == nil {
		d.observeMessage(route.Path, "unknown", statusError)
		d.routeError(conn, route, fmt.Errorf("Unknown message type: %s", msgType))
		return
	}

	data := frame["data"]
	if def.Schema != nil {
		if issues := def.Schema.Validate(data); len(issues) > 0 {
			d.observeMessage(route.Path, msgType, statusError)
			d.routeError(conn, route, fmt.Errorf("Validation error for %q: %s", msgType, issues[0].Message))
			return
		}
	}

	if err := capture(func() error { return def.Handler(conn, data) }); err != nil {
		d.observeMessage(route.Path, msgType, statusError)
		d.routeError(conn, route, err)
		return
	}
	d.observeMessage(route.Path, msgType, statusOK)
}

// dispatchBinary routes one binary frame, dropping it when the route has no
// binary handler.
func (d *Dispatcher) dispatchBinary(conn *Conn, route *Route, payload []byte) {
	if route.Binary == nil {
		return
	}
	if err := capture(func() error { return route.Binary(conn, payload) }); err != nil {
		d.observeMessage(route.Path, "binary", statusError)
		d.routeError(conn, route, err)
		return
	}
	d.observeMessage(route.Path, "binary", statusOK)
}

// routeError delivers a dispatch error to the route's error handler, or
// logs it when no handler is set. Errors never close the connection.
func (d *Dispatcher) routeError(conn *Conn, route *Route, dispatchErr error) {
	if route.OnError == nil {
		d.logger().Warn("websocket dispatch error", "route", route.Path, "connection_id", conn.ctx.ConnectionID, "error", dispatchErr)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			d.logger().Error("websocket error handler panicked", "route", route.Path, "connection_id", conn.ctx.ConnectionID, "panic", rec)
		}
	}()
	route.OnError(conn, dispatchErr)
}

func (d *Dispatcher) invokeConnect(conn *Conn, route *Route) {
	if route.OnConnect == nil {
		return
	}
	if err := capture(func() error { return route.OnConnect(conn) }); err != nil {
		d.routeError(conn, route, err)
	}
}

func (d *Dispatcher) invokeClose(conn *Conn, route *Route) {
	if route.OnClose == nil {
		return
	}
	if err := capture(func() error { return route.OnClose(conn) }); err != nil {
		d.logger().Warn("websocket close handler failed", "route", route.Path, "connection_id", conn.ctx.ConnectionID, "error", err)
	}
}

func (d *Dispatcher) observeConn(delta int) {
	if d.ObserveConn != nil {
		d.ObserveConn(delta)
	}
}

func (d *Dispatcher) observeMessage(route, msgType, status string) {
	if d.ObserveMessage != nil {
		d.ObserveMessage(route, msgType, status)
	}
}

// capture runs fn, converting a panic into an error.
func capture(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	return fn()
}
