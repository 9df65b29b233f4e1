// Package server assembles the framework behind one listener: the HTTP
// pipeline, the WebSocket dispatcher, the Prometheus endpoint, and static
// file mounts.
//
// # Starting a Server
//
//	srv := server.New(server.Config{
//		Port: 8080,
//		CORS: &cors.Config{Origins: []string{"https://app.example.com"}},
//	})
//
//	srv.Register(&router.Route{
//		Method:  http.MethodGet,
//		Path:    "/api/users/:id",
//		Handler: getUser,
//	})
//	srv.RegisterWS(&ws.Route{
//		Path:     "/ws/chat/:room",
//		Messages: []ws.MessageDef{{Type: "join", Handler: onJoin}},
//	})
//
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Stop(context.Background())
//
// Start binds and serves in the background; Stop drains in-flight requests
// and closes live WebSocket connections. Both report failures as *Error
// with a stable code.
//
// # Local and Global Routes
//
// Routes registered through the package-level router.Register and
// ws.Register land in process-global registries, which a fresh server
// serves by default. The first Register or RegisterWS call on a server
// switches it to its own registries for good; global routes are then
// invisible to it, and Start logs how many were ignored.
//
// # Request Dispatch Order
//
// The root handler tries, in order: WebSocket upgrade requests against the
// WebSocket registry, the metrics path, static mounts (longest prefix
// first), and finally the HTTP pipeline. Handler returns this root handler
// for driving the server through httptest.
package server
