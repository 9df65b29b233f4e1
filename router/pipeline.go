package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/vitalvas/gantry/apierr"
	"github.com/vitalvas/gantry/cors"
)

// DefaultMaxBodyBytes caps request body parsing when Pipeline.MaxBodyBytes
// is zero.
const DefaultMaxBodyBytes = 10 << 20

// ObserveFunc receives one call per completed request: the method, the
// matched route pattern (or the raw path when no route matched), the
// response status, and the elapsed time.
type ObserveFunc func(method, path string, status int, elapsed time.Duration)

// Pipeline is the http.Handler driving a registry. For each request it runs,
// in order: CORS preflight short-circuit, route matching, query and body
// parsing, schema validation, the middleware chain around the handler, CORS
// decoration, and emission. Every failure surfaces as the standard error
// envelope.
type Pipeline struct {
	// Registry resolves requests to routes. Required.
	Registry *Registry

	// CORS enables preflight handling and response decoration when set.
	CORS *cors.Policy

	// Middlewares run before route middlewares, in declaration order.
	Middlewares []Middleware

	// MaxBodyBytes caps body parsing; zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Logger receives handler failures. Nil discards.
	Logger *slog.Logger

	// Observe, when set, is called once per completed request.
	Observe ObserveFunc
}

var discardLogger = slog.New(slog.DiscardHandler)

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return discardLogger
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	origin := r.Header.Get("Origin")

	// Preflight bypasses routing entirely and is never decorated.
	if r.Method == http.MethodOptions && p.CORS != nil {
		status, hdr := p.CORS.Preflight(origin)
		if status == http.StatusForbidden {
			apierr.Write(w, status, apierr.New(status, "Origin not allowed", "", nil))
		} else {
			copyHeader(w.Header(), hdr)
			w.WriteHeader(status)
		}
		p.observe(r.Method, r.URL.Path, status, start)
		return
	}

	m := p.Registry.Match(r.Method, r.URL.Path)
	if m == nil {
		p.emitError(w, r, r.URL.Path, start, http.StatusNotFound, apierr.New(http.StatusNotFound, "Not found", "", nil))
		return
	}
	route := m.Route

	body, err := p.parseBody(w, r)
	if err != nil {
		msg := "Invalid request body"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "Request body too large"
		}
		p.emitError(w, r, route.Path, start, http.StatusBadRequest, apierr.New(http.StatusBadRequest, msg, "", err.Error()))
		return
	}

	query := valuesToMap(r.URL.Query())
	if route.Query != nil {
		if issues := route.Query.Validate(query); len(issues) > 0 {
			p.emitError(w, r, route.Path, start, http.StatusBadRequest, apierr.New(http.StatusBadRequest, "Query validation failed", "", apierr.Issues(issues)))
			return
		}
	}
	if route.Body != nil {
		if issues := route.Body.Validate(body); len(issues) > 0 {
			p.emitError(w, r, route.Path, start, http.StatusBadRequest, apierr.New(http.StatusBadRequest, "Body validation failed", "", apierr.Issues(issues)))
			return
		}
	}

	c := &Ctx{
		Request: r,
		Params:  m.Params,
		Query:   query,
		Body:    body,
		Locals:  make(map[string]any),
		Respond: NewBuilder(),
	}

	resp, err := p.invoke(c, slices.Concat(p.Middlewares, route.Middlewares), route.Handler)
	if err != nil {
		p.logger().Error("handler error", "method", r.Method, "path", route.Path, "error", err)
		p.emitError(w, r, route.Path, start, http.StatusInternalServerError, apierr.New(http.StatusInternalServerError, "Internal server error", "", err.Error()))
		return
	}
	if resp == nil {
		p.emitError(w, r, route.Path, start, http.StatusInternalServerError, apierr.New(http.StatusInternalServerError, "Internal server error", "", "handler returned no response"))
		return
	}

	p.decorate(w, origin)
	p.emit(w, resp)
	p.observe(r.Method, route.Path, resp.Status, start)
}

// invoke runs the middleware chain around the handler, converting a panic
// into an error.
func (p *Pipeline) invoke(c *Ctx, mws []Middleware, h Handler) (resp *Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = nil
			err = fmt.Errorf("%v", rec)
		}
	}()
	if len(mws) == 0 {
		return h(c)
	}
	return chain(c, mws, h)
}

// parseBody reads and decodes the request body according to Content-Type.
// JSON decodes into any JSON value, form encoding into a flat map, text/*
// into a string. Without a recognized type, GET/HEAD/OPTIONS get an empty
// map and other methods the raw body as a string.
func (p *Pipeline) parseBody(w http.ResponseWriter, r *http.Request) (any, error) {
	mediaType := r.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = mt
	}

	switch {
	case mediaType == "application/json":
		raw, err := p.readBody(w, r)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil

	case mediaType == "application/x-www-form-urlencoded":
		raw, err := p.readBody(w, r)
		if err != nil {
			return nil, err
		}
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, err
		}
		return valuesToMap(form), nil

	case strings.HasPrefix(mediaType, "text/"):
		raw, err := p.readBody(w, r)
		if err != nil {
			return nil, err
		}
		return string(raw), nil

	case r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions:
		return map[string]any{}, nil

	default:
		raw, err := p.readBody(w, r)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	}
}

func (p *Pipeline) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	max := p.MaxBodyBytes
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, max))
}

// valuesToMap flattens url.Values: single values become strings, repeated
// keys become []any of strings so the result validates as a JSON object.
func valuesToMap(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			out[key] = vals[0]
			continue
		}
		items := make([]any, len(vals))
		for i, v := range vals {
			items[i] = v
		}
		out[key] = items
	}
	return out
}

// emitError decorates, writes the envelope, and records the observation.
func (p *Pipeline) emitError(w http.ResponseWriter, r *http.Request, pathLabel string, start time.Time, status int, e apierr.Error) {
	p.decorate(w, r.Header.Get("Origin"))
	apierr.Write(w, status, e)
	p.observe(r.Method, pathLabel, status, start)
}

func (p *Pipeline) decorate(w http.ResponseWriter, origin string) {
	if p.CORS != nil && origin != "" {
		p.CORS.Decorate(w.Header(), origin)
	}
}

func (p *Pipeline) emit(w http.ResponseWriter, resp *Response) {
	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.Status)
	if resp.Reader != nil {
		if _, err := io.Copy(w, resp.Reader); err != nil {
			p.logger().Debug("response stream interrupted", "error", err)
		}
		if closer, ok := resp.Reader.(io.Closer); ok {
			_ = closer.Close()
		}
		return
	}
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

func (p *Pipeline) observe(method, path string, status int, start time.Time) {
	if p.Observe != nil {
		p.Observe(method, path, status, time.Since(start))
	}
}

func copyHeader(dst, src http.Header) {
	for k, vals := range src {
		dst[k] = vals
	}
}
