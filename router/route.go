package router

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/vitalvas/gantry/schema"
)

// Route describes one HTTP endpoint. All fields are read by the framework
// only; a route must be treated as immutable once registered.
type Route struct {
	// Method is the HTTP method token per RFC 9110 Section 9.
	// One of GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS.
	Method string

	// Path is the pattern matched against the request path: literal
	// segments, ":name" parameters, and at most one trailing ":name*"
	// wildcard.
	Path string

	// OperationID, Summary, Description, Tags, and Deprecated feed the
	// generated OpenAPI document and have no effect on dispatch.
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool

	// Query and Body are validated against the parsed request before any
	// middleware runs. A validation failure produces a 400 response with
	// per-field details.
	Query *schema.Schema
	Body  *schema.Schema

	// Success describes the declared success response. At most one.
	Success *SuccessResponse

	// Errors declares error responses by status code for documentation.
	Errors map[int]ErrorResponse

	// Middlewares run after the global chain, in declaration order.
	Middlewares []Middleware

	// Security lists OpenAPI security requirements (scheme name to scopes).
	Security []map[string][]string

	// ExcludeFromDocs omits the route from the generated OpenAPI document.
	// The route remains callable.
	ExcludeFromDocs bool

	// Handler is the terminal step of the request pipeline. Required.
	Handler Handler

	segments []segment
	score    int
}

// SuccessResponse declares the success shape of a route for documentation.
type SuccessResponse struct {
	// Status defaults to 200 when zero.
	Status      int
	Description string
	Schema      *schema.Schema
}

// ErrorResponse declares one documented error response.
type ErrorResponse struct {
	Description string
	Schema      *schema.Schema
}

// Match is the result of resolving a request path against a registry.
type Match struct {
	Route *Route

	// Params maps parameter names to the matched segment values. A wildcard
	// parameter's value is the "/"-join of all remaining segments. Nil when
	// the route has no parameters.
	Params map[string]string
}

type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentParam
	segmentWildcard
)

type segment struct {
	kind segmentKind
	// value is the literal text or the parameter name.
	value string
}

// paramNamePattern bounds parameter names to identifier-like tokens so that
// generated documents and client types can use them verbatim.
var paramNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

// parsePattern splits a path pattern into typed segments, enforcing the
// pattern invariants: leading slash, identifier parameter names, unique
// names, and a wildcard only in final position.
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
		kind := segmentParam
		if strings.HasSuffix(name, "*") {
			name = strings.TrimSuffix(name, "*")
			kind = segmentWildcard
		}
		if !paramNamePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid parameter name %q in path %q", part, path)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q in path %q", name, path)
		}
		seen[name] = struct{}{}
		segments = append(segments, segment{kind: kind, value: name})
	}

	for i, s := range segments {
		if s.kind == segmentWildcard && i != len(segments)-1 {
			return nil, fmt.Errorf("wildcard parameter %q must be the final segment in path %q", ":"+s.value+"*", path)
		}
	}

	return segments, nil
}

// scoreSegments computes the specificity score: 3 per literal, 2 per
// parameter, 1 per wildcard.
func scoreSegments(segments []segment) int {
	score := 0
	for _, s := range segments {
		switch s.kind {
		case segmentLiteral:
			score += 3
		case segmentParam:
			score += 2
		case segmentWildcard:
			score++
		}
	}
	return score
}

// hasWildcard reports whether the parsed pattern ends in a wildcard segment.
func hasWildcard(segments []segment) bool {
	return len(segments) > 0 && segments[len(segments)-1].kind == segmentWildcard
}

// match tests the route pattern against pre-split request segments. The
// wildcard, when present, must consume at least one segment; non-wildcard
// patterns require an exact segment count.
func (r *Route) match(segs []string) (map[string]string, bool) {
	n := len(r.segments)
	if hasWildcard(r.segments) {
		if len(segs) < n {
			return nil, false
		}
	} else if len(segs) != n {
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
		case segmentWildcard:
			if params == nil {
				params = make(map[string]string)
			}
			params[s.value] = strings.Join(segs[i:], "/")
		}
	}
	return params, true
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
