package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/netutil"

	"github.com/vitalvas/gantry/cors"
	"github.com/vitalvas/gantry/metrics"
	"github.com/vitalvas/gantry/openapi"
	"github.com/vitalvas/gantry/router"
	"github.com/vitalvas/gantry/ws"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 3000

	readHeaderTimeout = 2 * time.Second
	idleTimeout       = 60 * time.Second
)

// Config holds server construction options. The zero value is usable.
type Config struct {
	// Host and Port form the listen address.
	Host string
	Port int

	// Development switches the fallback logger from discard to stderr
	// text at debug level and makes JSON spec exports indented.
	Development bool

	// CORS enables preflight handling and response decoration.
	CORS *cors.Config

	// Middlewares run on every matched request before route middlewares.
	Middlewares []router.Middleware

	// MaxBodyBytes caps request body parsing. Zero means
	// router.DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// MaxConns caps concurrently accepted connections. Zero means
	// unlimited.
	MaxConns int

	// WebSocket tunes accepted connections.
	WebSocket ws.Options

	// OpenAPI supplies document generation metadata.
	OpenAPI openapi.Options

	// Logger receives lifecycle and dispatch logs. Nil discards unless
	// Development is set.
	Logger *slog.Logger

	// Metrics enables the Prometheus collector and its exposition
	// endpoint. Nil disables both.
	Metrics *metrics.Config

	// Static maps URL prefixes to directories served as opaque file
	// mounts ahead of the HTTP pipeline.
	Static map[string]string
}

// Server ties the HTTP pipeline, the WebSocket dispatcher, the metrics
// collector, and the static mounts behind one listener.
type Server struct {
	cfg       Config
	logger    *slog.Logger
	collector *metrics.Collector

	httpReg *router.Registry
	wsReg   *ws.Registry

	mu         sync.Mutex
	local      bool
	handler    http.Handler
	buildErr   error
	pipeline   *router.Pipeline
	dispatcher *ws.Dispatcher
	srv        *http.Server
	ln         net.Listener
	started    bool
}

// New creates a server. Routes are taken from the process-global
// registries unless Register or RegisterWS is called.
func New(cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	logger := cfg.Logger
	if logger == nil {
		if cfg.Development {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		} else {
			logger = slog.New(slog.DiscardHandler)
		}
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		httpReg: router.NewRegistry(),
		wsReg:   ws.NewRegistry(),
	}
	if cfg.Metrics != nil {
		s.collector = metrics.New(*cfg.Metrics)
	}
	return s
}

// Register adds an HTTP route to this server's local registry. The first
// local registration, HTTP or WebSocket, makes the process-global
// registries invisible to this server; mixing local and global routes on
// one server is not supported.
func (s *Server) Register(r *router.Route) {
	s.mu.Lock()
	s.local = true
	s.mu.Unlock()
	s.httpReg.Register(r)
}

// RegisterWS adds a WebSocket route to this server's local registry, with
// the same local-first semantics as Register.
func (s *Server) RegisterWS(r *ws.Route) {
	s.mu.Lock()
	s.local = true
	s.mu.Unlock()
	s.wsReg.Register(r)
}

// registries resolves the route sources: the local registries once any
// local registration happened, the process globals otherwise.
func (s *Server) registries() (*router.Registry, *ws.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registriesLocked()
}

func (s *Server) registriesLocked() (*router.Registry, *ws.Registry) {
	if s.local {
		return s.httpReg, s.wsReg
	}
	return router.Default(), ws.Default()
}

// Handler returns the root handler the server serves: WebSocket upgrades
// first, then the metrics endpoint, then static mounts, then the HTTP
// pipeline. The handler is built once, on first use, so all routes must be
// registered before the first Handler or Start call. Handler panics when
// the configuration cannot be built; Start reports the same condition as
// an error.
func (s *Server) Handler() http.Handler {
	h, err := s.build()
	if err != nil {
		panic("server: " + err.Error())
	}
	return h
}

func (s *Server) build() (http.Handler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handler != nil || s.buildErr != nil {
		return s.handler, s.buildErr
	}

	httpReg, wsReg := s.registriesLocked()

	var policy *cors.Policy
	if s.cfg.CORS != nil {
		p, err := cors.New(*s.cfg.CORS)
		if err != nil {
			s.buildErr = err
			return nil, err
		}
		policy = p
	}

	s.pipeline = &router.Pipeline{
		Registry:     httpReg,
		CORS:         policy,
		Middlewares:  s.cfg.Middlewares,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
		Logger:       s.logger,
		Observe:      s.collector.ObserveHTTP,
	}

	s.dispatcher = ws.NewDispatcher(wsReg, s.cfg.WebSocket)
	s.dispatcher.Logger = s.logger
	s.dispatcher.ObserveConn = s.collector.ObserveConn
	s.dispatcher.ObserveMessage = s.collector.ObserveMessage

	mounts := buildMounts(s.cfg.Static)

	var metricsPath string
	var metricsHandler http.Handler
	if s.collector != nil {
		metricsPath = s.collector.Path()
		metricsHandler = s.collector.Handler()
	}

	dispatcher := s.dispatcher
	pipeline := s.pipeline
	s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) && dispatcher.HandleUpgrade(w, r) {
			return
		}
		if metricsHandler != nil && r.URL.Path == metricsPath {
			metricsHandler.ServeHTTP(w, r)
			return
		}
		for _, m := range mounts {
			if m.matches(r.URL.Path) {
				m.handler.ServeHTTP(w, r)
				return
			}
		}
		pipeline.ServeHTTP(w, r)
	})
	return s.handler, nil
}

// Start binds the listen address and serves in the background. A
// configuration or bind failure returns *Error with CodeStartError;
// failures after startup are logged.
func (s *Server) Start() error {
	handler, err := s.build()
	if err != nil {
		return &Error{Code: CodeStartError, Err: err}
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return &Error{Code: CodeStartError, Err: errors.New("server already started")}
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return &Error{Code: CodeStartError, Err: err}
	}
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	s.ln = ln
	s.srv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	s.started = true
	local := s.local
	srv := s.srv
	s.mu.Unlock()

	if local {
		if ignored := len(router.Default().All()) + len(ws.Default().All()); ignored > 0 {
			s.logger.Warn("server uses local registries; global routes are invisible",
				"ignored_routes", ignored)
		}
	}
	s.logger.Info("server listening", "addr", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped serving", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down: the listener closes, in-flight requests
// finish within ctx, and live WebSocket connections are closed with a
// going-away frame. Failures return *Error with CodeStopError.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	dispatcher := s.dispatcher
	s.mu.Unlock()

	if srv == nil {
		return &Error{Code: CodeStopError, Err: errors.New("server not started")}
	}

	err := srv.Shutdown(ctx)
	if dispatcher != nil {
		for _, c := range dispatcher.Conns.All() {
			_ = c.Close(websocket.CloseGoingAway, "server shutting down")
		}
	}
	if err != nil {
		return &Error{Code: CodeStopError, Err: err}
	}
	return nil
}

// Addr returns the bound listen address, or nil before Start. With Port 0
// resolved to an ephemeral port it reports the actual one.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Publish sends v to every connection subscribed to topic, with the same
// encoding rules as Conn.Send, and returns the delivery count. Before the
// server has built its handler there is nothing to deliver to; the call
// warns and returns 0.
func (s *Server) Publish(topic string, v any) int {
	d := s.publishDispatcher(topic)
	if d == nil {
		return 0
	}
	payload, err := ws.EncodePayload(v)
	if err != nil {
		s.logger.Warn("publish dropped: payload not encodable", "topic", topic, "error", err)
		return 0
	}
	s.collector.ObserveBroadcast()
	return d.Hub.Publish(topic, payload)
}

// PublishBinary sends a binary payload to every connection subscribed to
// topic and returns the delivery count, with the same pre-start behavior
// as Publish.
func (s *Server) PublishBinary(topic string, b []byte) int {
	d := s.publishDispatcher(topic)
	if d == nil {
		return 0
	}
	s.collector.ObserveBroadcast()
	return d.Hub.PublishBinary(topic, b)
}

func (s *Server) publishDispatcher(topic string) *ws.Dispatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dispatcher == nil {
		s.logger.Warn("publish before start dropped", "topic", topic)
		return nil
	}
	return s.dispatcher
}

type mount struct {
	prefix  string
	handler http.Handler
}

func (m mount) matches(path string) bool {
	if m.prefix == "/" {
		return true
	}
	return path == m.prefix || strings.HasPrefix(path, m.prefix+"/")
}

// buildMounts normalizes the static prefixes and orders them longest
// first, so nested mounts win over their parents.
func buildMounts(static map[string]string) []mount {
	mounts := make([]mount, 0, len(static))
	for prefix, dir := range static {
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		if prefix != "/" {
			prefix = strings.TrimRight(prefix, "/")
		}
		if prefix == "" {
			prefix = "/"
		}
		mounts = append(mounts, mount{
			prefix:  prefix,
			handler: http.StripPrefix(prefix, http.FileServer(http.Dir(dir))),
		})
	}
	sort.Slice(mounts, func(i, j int) bool { return len(mounts[i].prefix) > len(mounts[j].prefix) })
	return mounts
}
