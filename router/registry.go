package router

import (
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry stores route definitions and resolves (method, path) pairs to
// the most specific matching route.
//
// Registration is startup configuration: Register panics on invalid
// patterns. Match never panics and is safe for concurrent use with
// Register; a concurrent Match observes either the previous candidate
// cache or a fully rebuilt one, never a partial view.
type Registry struct {
	mu     sync.Mutex
	routes []*Route
	cache  atomic.Pointer[matchCache]
}

// matchCache holds per-method candidate lists sorted by descending
// specificity, registration order preserved for equal scores.
type matchCache struct {
	byMethod map[string][]*Route
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a route. It panics when the method is unknown, the handler
// is nil, or the path pattern violates the pattern invariants (leading
// slash, identifier parameter names, unique names, wildcard last).
func (reg *Registry) Register(r *Route) {
	method := strings.ToUpper(r.Method)
	if _, ok := validMethods[method]; !ok {
		panic("router: invalid method " + strconv.Quote(r.Method) + " for path " + strconv.Quote(r.Path))
	}
	if r.Handler == nil {
		panic("router: nil handler for " + method + " " + r.Path)
	}
	segments, err := parsePattern(r.Path)
	if err != nil {
		panic("router: " + err.Error())
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	r.Method = method
	r.segments = segments
	r.score = scoreSegments(segments)
	reg.routes = append(reg.routes, r)
	reg.cache.Store(nil)
}

// Match resolves a method and path to the highest-scoring matching route,
// or nil when no route matches.
func (reg *Registry) Match(method, path string) *Match {
	segs := splitPath(path)
	for _, r := range reg.candidates(strings.ToUpper(method)) {
		if params, ok := r.match(segs); ok {
			return &Match{Route: r, Params: params}
		}
	}
	return nil
}

// All returns a snapshot of every registered route in registration order.
func (reg *Registry) All() []*Route {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return slices.Clone(reg.routes)
}

// Clear removes all routes and drops the candidate cache.
func (reg *Registry) Clear() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.routes = nil
	reg.cache.Store(nil)
}

// candidates returns the sorted candidate list for a method, building and
// publishing it on first use. The fast path is a single atomic load; the
// build path runs under the registry mutex so a publish can never race a
// Register invalidation.
func (reg *Registry) candidates(method string) []*Route {
	if c := reg.cache.Load(); c != nil {
		if list, ok := c.byMethod[method]; ok {
			return list
		}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	cur := reg.cache.Load()
	if cur != nil {
		if list, ok := cur.byMethod[method]; ok {
			return list
		}
	}

	list := make([]*Route, 0)
	for _, r := range reg.routes {
		if r.Method == method {
			list = append(list, r)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})

	next := &matchCache{byMethod: make(map[string][]*Route, 1)}
	if cur != nil {
		maps.Copy(next.byMethod, cur.byMethod)
	}
	next.byMethod[method] = list
	reg.cache.Store(next)
	return list
}

// defaultRegistry is the process-global registry used by servers that never
// adopt a local one.
var defaultRegistry = NewRegistry()

// Default returns the process-global registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a route to the process-global registry.
func Register(r *Route) {
	defaultRegistry.Register(r)
}

// Clear removes all routes from the process-global registry.
func Clear() {
	defaultRegistry.Clear()
}
