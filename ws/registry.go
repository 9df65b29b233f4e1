package ws

import (
	"slices"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
)

// Registry stores WebSocket route definitions and resolves upgrade paths to
// the most specific matching route.
//
// Registration is startup configuration: Register panics on invalid
// patterns. Match never panics and is safe for concurrent use with
// Register; a concurrent Match observes either the previous candidate
// cache or a fully rebuilt one, never a partial view.
type Registry struct {
	mu     sync.Mutex
	routes []*Route
	cache  atomic.Pointer[[]*Route]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a route. It panics when the path pattern violates the
// pattern invariants (leading slash, identifier parameter names, unique
// names, no wildcard) or a message definition has an empty type, a
// duplicate type, or a nil handler.
func (reg *Registry) Register(r *Route) {
	segments, err := parsePattern(r.Path)
	if err != nil {
		panic("ws: " + err.Error())
	}

	byType := make(map[string]*MessageDef, len(r.Messages))
	for i := range r.Messages {
		def := &r.Messages[i]
		if def.Type == "" {
			panic("ws: empty message type in route " + r.Path)
		}
		if def.Handler == nil {
			panic("ws: nil handler for message type " + strconv.Quote(def.Type) + " in route " + r.Path)
		}
		if _, dup := byType[def.Type]; dup {
			panic("ws: duplicate message type " + strconv.Quote(def.Type) + " in route " + r.Path)
		}
		byType[def.Type] = def
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	r.segments = segments
	r.score = scoreSegments(segments)
	r.byType = byType
	reg.routes = append(reg.routes, r)
	reg.cache.Store(nil)
}

// Match resolves an upgrade path to the highest-scoring matching route, or
// nil when no route matches.
func (reg *Registry) Match(path string) *Match {
	segs := splitPath(path)
	for _, r := range reg.candidates() {
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

// candidates returns the routes sorted by descending specificity, building
// and publishing the list on first use. The fast path is a single atomic
// load; the build path runs under the registry mutex so a publish can never
// race a Register invalidation.
func (reg *Registry) candidates() []*Route {
	if c := reg.cache.Load(); c != nil {
		return *c
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if c := reg.cache.Load(); c != nil {
		return *c
	}

	list := slices.Clone(reg.routes)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})
	reg.cache.Store(&list)
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
