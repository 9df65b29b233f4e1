package ws

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/vitalvas/gantry/schema"
)

// MessageHandler processes one decoded client message. The data argument is
// the frame's "data" member after validation against the message schema.
type MessageHandler func(c *Conn, data any) error

// BinaryHandler processes one binary frame. The payload is opaque to the
// dispatcher.
type BinaryHandler func(c *Conn, data []byte) error

// ConnHandler observes a connection lifecycle event.
type ConnHandler func(c *Conn) error

// ErrorHandler is the final sink for dispatch errors on a connection:
// malformed frames, unknown message types, validation failures, and errors
// or panics from the route's handlers. Dispatch errors never close the
// connection.
type ErrorHandler func(c *Conn, err error)

// AuthFunc gates an upgrade request. Returning a non-nil user value admits
// the connection and the value is stored in the connection context.
// Returning (nil, nil) rejects with 401 UNAUTHORIZED; returning an error
// rejects with 401 AUTH_ERROR.
type AuthFunc func(r *http.Request) (any, error)

// Route describes one WebSocket endpoint. All fields are read by the
// framework only; a route must be treated as immutable once registered.
type Route struct {
	// Path is the pattern matched against the upgrade request path:
	// literal segments and ":name" parameters. Wildcards are not allowed
	// and the segment count must match exactly.
	Path string

	// Auth, when set, runs before the upgrade with the raw request.
	Auth AuthFunc

	// Messages declares the typed client messages in registration order.
	// Each Type must be unique within the route.
	Messages []MessageDef

	// Binary, when set, receives binary frames. Binary frames are dropped
	// otherwise.
	Binary BinaryHandler

	// OnConnect runs once after the upgrade is accepted, before the first
	// message. OnClose runs once after the connection is torn down.
	OnConnect ConnHandler
	OnClose   ConnHandler

	// OnError receives dispatch errors. When nil, errors are logged and
	// swallowed.
	OnError ErrorHandler

	// ServerMessage describes the server-to-client payload for client type
	// generation. It has no effect on dispatch.
	ServerMessage *schema.Schema

	segments []segment
	score    int
	byType   map[string]*MessageDef
}

// MessageDef binds one client message type to its schema and handler.
type MessageDef struct {
	// Type is the discriminator carried in the frame's "type" member.
	Type string

	// Schema validates the frame's "data" member. Nil accepts any data.
	Schema *schema.Schema

	// Handler is invoked with the validated data. Required.
	Handler MessageHandler
}

// Match is the result of resolving an upgrade path against a registry.
type Match struct {
	Route *Route

	// Params maps parameter names to the matched segment values. Nil when
	// the route has no parameters.
	Params map[string]string
}

type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentParam
)

type segment struct {
	kind segmentKind
	// value is the literal text or the parameter name.
	value string
}

var paramNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parsePattern splits a path pattern into typed segments. WebSocket patterns
// allow literals and ":name" parameters only; a trailing "*" is rejected.
func parsePattern(path string) ([]segment, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path %q must begin with a slash", path)
	}

	parts := strings.Split(path, "/")
	segments := make([]segment, 0, len(parts))
	seen := make(map[string]struct{})

	for _, part := range parts {
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ":") {
			segments = append(segments, segment{kind: segmentLiteral, value: part})
			continue
		}

		name := part[1:]
		if strings.HasSuffix(name, "*") {
			return nil, fmt.Errorf("wildcard parameter %q is not allowed in path %q", part, path)
		}
		if !paramNamePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid parameter name %q in path %q", part, path)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q in path %q", name, path)
		}
		seen[name] = struct{}{}
		segments = append(segments, segment{kind: segmentParam, value: name})
	}

	return segments, nil
}

// scoreSegments computes the specificity score: 3 per literal, 2 per
// parameter.
func scoreSegments(segments []segment) int {
	score := 0
	for _, s := range segments {
		if s.kind == segmentLiteral {
			score += 3
		} else {
			score += 2
		}
	}
	return score
}

// match tests the route pattern against pre-split request segments. The
// segment count must match exactly.
func (r *Route) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(r.segments) {
		return nil, false
	}

	var params map[string]string
	for i, s := range r.segments {
		switch s.kind {
		case segmentLiteral:
			if segs[i] != s.value {
				return nil, false
			}
		case segmentParam:
			if params == nil {
				params = make(map[string]string)
			}
			params[s.value] = segs[i]
		}
	}
	return params, true
}

// message looks up a message definition by its type discriminator.
func (r *Route) message(msgType string) *MessageDef {
	return r.byType[msgType]
}

// splitPath splits a request path on "/", dropping the empty segments
// produced by leading, trailing, or doubled slashes.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}
