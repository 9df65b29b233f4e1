// Package ws dispatches typed JSON messages over WebSocket connections.
//
// Routes bind an upgrade path to a set of message handlers keyed by a type
// discriminator. The dispatcher gates each upgrade with an optional auth
// function, validates message data against per-type schemas, and fans
// published messages out through topics.
//
// # Routes
//
// A route declares its path, lifecycle handlers, and typed messages:
//
//	ws.Register(&ws.Route{
//	    Path: "/ws/chat/:room",
//	    Auth: func(r *http.Request) (any, error) {
//	        return lookupUser(r.Header.Get("Authorization"))
//	    },
//	    OnConnect: func(c *ws.Conn) error {
//	        c.Subscribe("room:" + c.Context().Params["room"])
//	        return nil
//	    },
//	    Messages: []ws.MessageDef{{
//	        Type:   "say",
//	        Schema: schema.Object(map[string]*schema.Schema{"text": schema.String().MinLen(1)}),
//	        Handler: func(c *ws.Conn, data any) error {
//	            return c.Publish("room:"+c.Context().Params["room"], data)
//	        },
//	    }},
//	})
//
// Paths allow literal segments and ":name" parameters; the segment count
// must match exactly and wildcards are rejected at registration.
//
// # Message Format
//
// Clients send text frames shaped as a JSON object with a string "type"
// and an optional "data" member:
//
//	{"type": "say", "data": {"text": "hello"}}
//
// Any other shape, an unregistered type, or data failing the registered
// schema is delivered to the route's OnError handler with a descriptive
// message. Dispatch errors never close the connection. Binary frames go to
// the route's Binary handler and are dropped when none is set.
//
// # Ordering
//
// Message handlers run in their own goroutines, launched in arrival order.
// The dispatcher does not serialize a message behind the previous handler;
// connections needing strict per-connection ordering should queue work in
// Context.Data. OnClose runs once, after every in-flight handler has
// returned; no callback fires after it.
//
// # Topics
//
// Conn.Subscribe and Conn.Publish fan messages out through the
// dispatcher's Hub. Publishing does not require a subscription, and the
// publishing connection never receives its own message. Broadcasts to all
// live connections go through the ConnRegistry.
package ws
