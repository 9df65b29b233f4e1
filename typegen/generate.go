package typegen

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/vitalvas/gantry/ws"
)

// DefaultHeader is the banner prepended to the output when Options.Header
// is empty.
const DefaultHeader = "// Code generated by gantry. DO NOT EDIT."

// Options configures type generation.
type Options struct {
	// Filter selects the routes to include. Nil includes every route.
	Filter func(*ws.Route) bool

	// Header replaces the default banner at the top of the output. A
	// trailing newline is added when missing.
	Header string
}

// Generate renders TypeScript message types for the registry's WebSocket
// routes and returns them as a single source string. The caller decides
// where to write it.
//
// Each route becomes one exported namespace named after the literal path
// segments, UpperCamel-joined with "WebSocket" appended; parameter
// segments do not contribute ("/ws/chat/:room" becomes "WsChatWebSocket").
// Inside the namespace:
//
//   - ClientMessage is a tagged union over the route's message
//     definitions. Each member carries the frame's type literal and, when
//     the definition has a schema, a data member with its TypeScript
//     shape. A route with no message definitions gets "never".
//   - ServerMessage is the TypeScript shape of the route's ServerMessage
//     schema, or "unknown" with a comment when none was registered.
//
// Routes are emitted in registration order, so output for an unchanged
// registry is byte for byte reproducible.
func Generate(reg *ws.Registry, opts Options) string {
	var b strings.Builder

	header := opts.Header
	if header == "" {
		header = DefaultHeader
	}
	b.WriteString(header)
	if !strings.HasSuffix(header, "\n") {
		b.WriteByte('\n')
	}

	for _, route := range reg.All() {
		if opts.Filter != nil && !opts.Filter(route) {
			continue
		}
		b.WriteByte('\n')
		writeNamespace(&b, route)
	}

	return b.String()
}

// writeNamespace emits one "export namespace" block for a route.
func writeNamespace(b *strings.Builder, route *ws.Route) {
	b.WriteString("export namespace ")
	b.WriteString(NamespaceName(route.Path))
	b.WriteString(" {\n")

	b.WriteString("  export type ClientMessage =")
	if len(route.Messages) == 0 {
		b.WriteString(" never;\n")
	} else {
		b.WriteByte('\n')
		for i := range route.Messages {
			def := &route.Messages[i]
			b.WriteString("    | { type: ")
			b.WriteString(strconv.Quote(def.Type))
			if def.Schema != nil {
				b.WriteString("; data: ")
				b.WriteString(def.Schema.TypeString("    "))
			}
			b.WriteString(" }")
			if i == len(route.Messages)-1 {
				b.WriteByte(';')
			}
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	if route.ServerMessage != nil {
		b.WriteString("  export type ServerMessage = ")
		b.WriteString(route.ServerMessage.TypeString("  "))
		b.WriteString(";\n")
	} else {
		b.WriteString("  // No server message schema was registered for this route.\n")
		b.WriteString("  export type ServerMessage = unknown;\n")
	}

	b.WriteString("}\n")
}

// NamespaceName derives the TypeScript namespace for a route path: the
// literal segments in UpperCamelCase, concatenated, with "WebSocket"
// appended. Parameter segments are dropped, so "/ws/chat/:room" and
// "/ws/chat" share a name; use Options.Filter to separate such routes
// into different outputs.
func NamespaceName(path string) string {
	var b strings.Builder
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, ":") {
			continue
		}
		b.WriteString(upperCamel(seg))
	}
	b.WriteString("WebSocket")
	return b.String()
}

// upperCamel capitalizes the first letter of every alphanumeric run and
// drops the separators between them.
func upperCamel(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
