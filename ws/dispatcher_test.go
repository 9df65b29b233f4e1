package ws

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/gantry/schema"
)

func newTestServer(t *testing.T, d *Dispatcher) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.HandleUpgrade(w, r) {
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

type handshakeError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details"`
}

func decodeBody(t *testing.T, body io.Reader) handshakeError {
	t.Helper()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	var e handshakeError
	require.NoError(t, json.Unmarshal(raw, &e), "body: %s", raw)
	return e
}

func TestDispatcherDispatch(t *testing.T) {
	handled := make(chan any, 8)
	errs := make(chan error, 8)

	reg := NewRegistry()
	reg.Register(&Route{
		Path: "/ws/chat",
		Messages: []MessageDef{{
			Type: "join",
			Schema: schema.Object(map[string]*schema.Schema{
				"roomId": schema.String().MinLen(1),
			}),
			Handler: func(_ *Conn, data any) error {
				handled <- data
				return nil
			},
		}},
		OnError: func(_ *Conn, err error) { errs <- err },
	})
	d := NewDispatcher(reg, Options{})
	srv := newTestServer(t, d)
	conn := dial(t, srv, "/ws/chat", nil)

	send := func(t *testing.T, frame string) {
		t.Helper()
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	}

	t.Run("valid frame reaches the handler once", func(t *testing.T) {
		send(t, `{"type":"join","data":{"roomId":"r1"}}`)
		assert.Equal(t, map[string]any{"roomId": "r1"}, wait(t, handled))
	})

	t.Run("validation failure goes to the error handler", func(t *testing.T) {
		send(t, `{"type":"join","data":{"roomId":""}}`)
		err := wait(t, errs)
		assert.Contains(t, err.Error(), `Validation error for "join"`)
	})

	t.Run("unknown type goes to the error handler", func(t *testing.T) {
		send(t, `{"type":"unknown","data":{}}`)
		err := wait(t, errs)
		assert.Equal(t, "Unknown message type: unknown", err.Error())
	})

	t.Run("malformed frames go to the error handler", func(t *testing.T) {
		for _, frame := range []string{`[1,2]`, `"hello"`, `{"data":{}}`, `{"type":42}`, `{bad json`} {
			send(t, frame)
			err := wait(t, errs)
			assert.Equal(t, "Invalid message format", err.Error(), "frame %s", frame)
		}
	})

	t.Run("dispatch errors leave the connection open", func(t *testing.T) {
		send(t, `{"type":"join","data":{"roomId":"r2"}}`)
		assert.Equal(t, map[string]any{"roomId": "r2"}, wait(t, handled))
	})
}

func TestDispatcherHandlerFailures(t *testing.T) {
	errs := make(chan error, 4)

	reg := NewRegistry()
	reg.Register(&Route{
		Path: "/ws/fail",
		Messages: []MessageDef{
			{Type: "err", Handler: func(*Conn, any) error { return errors.New("handler failed") }},
			{Type: "panic", Handler: func(*Conn, any) error { panic("kaboom") }},
		},
		OnError: func(_ *Conn, err error) { errs <- err },
	})
	d := NewDispatcher(reg, Options{})
	srv := newTestServer(t, d)
	conn := dial(t, srv, "/ws/fail", nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"err"}`)))
	assert.Equal(t, "handler failed", wait(t, errs).Error())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"panic"}`)))
	assert.Equal(t, "kaboom", wait(t, errs).Error())
}

func TestDispatcherAuth(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Route{
		Path: "/ws/secure",
		Auth: func(r *http.Request) (any, error) {
			switch r.Header.Get("X-Token") {
			case "":
				return nil, nil
			case "boom":
				return nil, errors.New("token service down")
			case "panic":
				panic("auth exploded")
			default:
				return map[string]any{"token": r.Header.Get("X-Token")}, nil
			}
		},
	})
	d := NewDispatcher(reg, Options{})
	srv := newTestServer(t, d)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/secure"

	t.Run("missing user is rejected with unauthorized", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.Nil(t, conn)
		require.NotNil(t, resp)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		e := decodeBody(t, resp.Body)
		assert.Equal(t, "Unauthorized", e.Message)
		assert.Equal(t, "UNAUTHORIZED", e.Code)
	})

	t.Run("auth error is rejected with auth_error", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"X-Token": []string{"boom"}})
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.Nil(t, conn)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		e := decodeBody(t, resp.Body)
		assert.Equal(t, "Authentication failed", e.Message)
		assert.Equal(t, "AUTH_ERROR", e.Code)
	})

	t.Run("auth panic is rejected with auth_error", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"X-Token": []string{"panic"}})
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "AUTH_ERROR", decodeBody(t, resp.Body).Code)
	})

	t.Run("user value is stored in the context", func(t *testing.T) {
		dial(t, srv, "/ws/secure", http.Header{"X-Token": []string{"t-123"}})

		require.Eventually(t, func() bool { return d.Conns.Len() == 1 }, time.Second, 10*time.Millisecond)
		user := d.Conns.All()[0].Context().User
		assert.Equal(t, map[string]any{"token": "t-123"}, user)
	})
}

func TestDispatcherUpgrade(t *testing.T) {
	t.Run("unmatched path falls through", func(t *testing.T) {
		d := NewDispatcher(NewRegistry(), Options{})
		srv := newTestServer(t, d)

		resp, err := http.Get(srv.URL + "/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("non-upgrade request on a ws path is a 400 envelope", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(&Route{Path: "/ws/chat"})
		d := NewDispatcher(reg, Options{})
		srv := newTestServer(t, d)

		resp, err := http.Get(srv.URL + "/ws/chat")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		e := decodeBody(t, resp.Body)
		assert.Equal(t, "WebSocket upgrade failed", e.Message)
		assert.Equal(t, "UPGRADE_FAILED", e.Code)
		assert.NotEmpty(t, e.Details)
	})

	t.Run("frames over the payload cap close the connection", func(t *testing.T) {
		handled := make(chan any, 1)
		closed := make(chan struct{}, 1)

		reg := NewRegistry()
		reg.Register(&Route{
			Path: "/ws/small",
			Messages: []MessageDef{{
				Type:    "big",
				Handler: func(_ *Conn, data any) error { handled <- data; return nil },
			}},
			OnClose: func(*Conn) error { closed <- struct{}{}; return nil },
		})
		d := NewDispatcher(reg, Options{MaxPayloadBytes: 16})
		srv := newTestServer(t, d)
		conn := dial(t, srv, "/ws/small", nil)

		frame := `{"type":"big","data":"` + strings.Repeat("x", 64) + `"}`
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))

		wait(t, closed)
		assert.Empty(t, handled)
	})
}

func TestDispatcherLifecycle(t *testing.T) {
	connected := make(chan *Conn, 1)
	closed := make(chan struct{}, 1)
	binary := make(chan []byte, 1)

	reg := NewRegistry()
	reg.Register(&Route{
		Path: "/ws/hello/:name",
		OnConnect: func(c *Conn) error {
			connected <- c
			return c.Send(map[string]any{"hello": c.Context().Params["name"]})
		},
		OnClose: func(*Conn) error {
			closed <- struct{}{}
			return nil
		},
		Binary: func(_ *Conn, data []byte) error {
			binary <- data
			return nil
		},
	})
	d := NewDispatcher(reg, Options{})
	srv := newTestServer(t, d)
	conn := dial(t, srv, "/ws/hello/ada", nil)

	server := wait(t, connected)
	ctx := server.Context()
	_, err := uuid.Parse(ctx.ConnectionID)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ctx.ConnectedAt, 5*time.Second)
	assert.Nil(t, ctx.User)
	assert.Equal(t, map[string]string{"name": "ada"}, ctx.Params)
	assert.Equal(t, 1, d.Conns.Len())

	_, greeting, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"ada"}`, string(greeting))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3}, wait(t, binary))

	require.NoError(t, conn.Close())
	wait(t, closed)
	assert.Zero(t, d.Conns.Len())
	assert.ErrorIs(t, server.Send("late"), ErrClosed)
}

func TestDispatcherTopics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Route{
		Path: "/ws/rooms/:room",
		OnConnect: func(c *Conn) error {
			c.Subscribe("room:" + c.Context().Params["room"])
			return c.Send("ready")
		},
		Messages: []MessageDef{{
			Type: "say",
			Handler: func(c *Conn, data any) error {
				return c.Publish("room:"+c.Context().Params["room"], map[string]any{"data": data})
			},
		}},
	})
	d := NewDispatcher(reg, Options{})
	srv := newTestServer(t, d)

	a := dial(t, srv, "/ws/rooms/go", nil)
	b := dial(t, srv, "/ws/rooms/go", nil)
	other := dial(t, srv, "/ws/rooms/rust", nil)

	for _, conn := range []*websocket.Conn{a, b, other} {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, "ready", string(msg))
	}

	goConns := d.Conns.Filter(func(c *Conn) bool { return c.Context().Params["room"] == "go" })
	require.Len(t, goConns, 2)
	for _, c := range goConns {
		assert.True(t, c.IsSubscribed("room:go"))
		assert.False(t, c.IsSubscribed("room:rust"))
	}

	t.Run("hub publish reaches every subscriber", func(t *testing.T) {
		sent := d.Hub.Publish("room:go", []byte(`{"sys":"notice"}`))
		assert.Equal(t, 2, sent)

		for _, conn := range []*websocket.Conn{a, b} {
			_, msg, err := conn.ReadMessage()
			require.NoError(t, err)
			assert.JSONEq(t, `{"sys":"notice"}`, string(msg))
		}
	})

	t.Run("conn publish skips the publisher and other rooms", func(t *testing.T) {
		require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"say","data":"hi"}`)))

		_, msg, err := b.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":"hi"}`, string(msg))

		for _, conn := range []*websocket.Conn{a, other} {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
			_, _, err := conn.ReadMessage()
			assert.Error(t, err)
		}
	})
}

func TestDispatcherFilteredBroadcast(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Route{
		Path: "/ws/feed",
		Auth: func(r *http.Request) (any, error) {
			return map[string]any{"region": r.Header.Get("X-Region")}, nil
		},
	})
	d := NewDispatcher(reg, Options{})
	srv := newTestServer(t, d)

	us1 := dial(t, srv, "/ws/feed", http.Header{"X-Region": []string{"US"}})
	eu := dial(t, srv, "/ws/feed", http.Header{"X-Region": []string{"EU"}})
	us2 := dial(t, srv, "/ws/feed", http.Header{"X-Region": []string{"US"}})

	require.Eventually(t, func() bool { return d.Conns.Len() == 3 }, time.Second, 10*time.Millisecond)

	targets := d.Conns.Filter(func(c *Conn) bool {
		user := c.Context().User.(map[string]any)
		return user["region"] == "US"
	})
	require.Len(t, targets, 2)
	for _, c := range targets {
		require.NoError(t, c.Send(map[string]any{"event": "ping"}))
	}

	for _, conn := range []*websocket.Conn{us1, us2} {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"ping"}`, string(msg))
	}

	require.NoError(t, eu.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := eu.ReadMessage()
	assert.Error(t, err)
}
