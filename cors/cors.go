package cors

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// ErrWildcardCredentials is returned when Origins contains "*" and
// Credentials is true. Use OriginFunc for dynamic origin checks with
// credentials.
var ErrWildcardCredentials = errors.New("wildcard origin \"*\" cannot be used with Credentials; use OriginFunc instead")

// Default header values applied when the corresponding Config fields
// are empty.
var (
	DefaultMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	DefaultAllowedHeaders = []string{"Content-Type", "Authorization"}
)

// Config configures a CORS policy.
type Config struct {
	// Origins is a list of exact origin strings, "*" for wildcard, or
	// subdomain wildcard patterns like "https://*.example.com".
	Origins []string

	// OriginFunc is an optional dynamic callback invoked when the origin
	// does not match any entry in Origins. Return true to allow.
	OriginFunc func(origin string) bool

	// Methods advertised in Access-Control-Allow-Methods. Defaults to
	// GET, POST, PUT, PATCH, DELETE, OPTIONS.
	Methods []string

	// AllowedHeaders lists headers the client may send in the actual
	// request. Defaults to Content-Type and Authorization.
	AllowedHeaders []string

	// ExposedHeaders lists headers the browser may expose to client code.
	ExposedHeaders []string

	// Credentials sets Access-Control-Allow-Credentials: true.
	Credentials bool

	// MaxAge is the duration in seconds a preflight result may be cached.
	// Zero omits the header.
	MaxAge int
}

// wildcardPattern represents a subdomain wildcard pattern split at the "*".
type wildcardPattern struct {
	prefix string
	suffix string
}

// Policy is a compiled CORS configuration.
type Policy struct {
	cfg      Config
	exact    []string
	patterns []wildcardPattern

	methods        string
	allowedHeaders string
	exposedHeaders string
	maxAge         string
}

// New validates and compiles a Config. It returns ErrWildcardCredentials
// when the wildcard origin is combined with credentials, and an error for
// origin patterns containing more than one wildcard.
func New(cfg Config) (*Policy, error) {
	if slices.Contains(cfg.Origins, "*") && cfg.Credentials {
		return nil, ErrWildcardCredentials
	}

	exact, patterns, err := parseOrigins(cfg.Origins)
	if err != nil {
		return nil, err
	}

	methods := cfg.Methods
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = DefaultAllowedHeaders
	}

	p := &Policy{
		cfg:            cfg,
		exact:          exact,
		patterns:       patterns,
		methods:        strings.Join(methods, ", "),
		allowedHeaders: strings.Join(allowedHeaders, ", "),
		exposedHeaders: strings.Join(cfg.ExposedHeaders, ", "),
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p, nil
}

// parseOrigins normalizes origins to lowercase and splits them into exact
// matches and wildcard patterns. Returns an error if a pattern contains
// multiple wildcards.
func parseOrigins(origins []string) ([]string, []wildcardPattern, error) {
	var exact []string
	var patterns []wildcardPattern

	for _, o := range origins {
		if o == "*" {
			exact = append(exact, o)
			continue
		}

		lower := strings.ToLower(o)

		if strings.Contains(lower, "*") {
			parts := strings.SplitN(lower, "*", 2)
			if strings.Contains(parts[1], "*") {
				return nil, nil, errors.New("origin pattern contains multiple wildcards: " + o)
			}

			patterns = append(patterns, wildcardPattern{
				prefix: parts[0],
				suffix: parts[1],
			})
		} else {
			exact = append(exact, lower)
		}
	}

	return exact, patterns, nil
}

// AllowsOrigin reports whether the policy allows the given origin.
// The empty origin is allowed only by the wildcard.
func (p *Policy) AllowsOrigin(origin string) bool {
	lower := strings.ToLower(origin)

	for _, o := range p.exact {
		if o == "*" || o == lower {
			return true
		}
	}

	for _, wp := range p.patterns {
		if len(lower) >= len(wp.prefix)+len(wp.suffix) &&
			strings.HasPrefix(lower, wp.prefix) &&
			strings.HasSuffix(lower, wp.suffix) {
			return true
		}
	}

	if p.cfg.OriginFunc != nil {
		return p.cfg.OriginFunc(origin)
	}

	return false
}

// Preflight synthesizes the response to a CORS preflight request. It
// returns 204 with the allow headers when the origin passes the policy
// and 403 with no headers otherwise; the caller is responsible for the
// 403 body. An absent origin yields a 204 without origin-specific
// headers, since there is no cross-origin actor to answer.
func (p *Policy) Preflight(origin string) (int, http.Header) {
	hdr := make(http.Header)

	if origin != "" && !p.AllowsOrigin(origin) {
		return http.StatusForbidden, nil
	}

	if origin != "" {
		hdr.Set("Access-Control-Allow-Origin", origin)
		hdr.Add("Vary", "Origin")
	}
	hdr.Set("Access-Control-Allow-Methods", p.methods)
	hdr.Set("Access-Control-Allow-Headers", p.allowedHeaders)
	if p.maxAge != "" {
		hdr.Set("Access-Control-Max-Age", p.maxAge)
	}
	if p.cfg.Credentials {
		hdr.Set("Access-Control-Allow-Credentials", "true")
	}
	hdr.Add("Vary", "Access-Control-Request-Method")
	hdr.Add("Vary", "Access-Control-Request-Headers")

	return http.StatusNoContent, hdr
}

// Decorate adds CORS headers to an actual (non-preflight) response. The
// origin is echoed iff it passes the policy; expose and credential
// headers follow the policy. Responses to disallowed origins are left
// undecorated, which is how the browser learns the request was refused.
func (p *Policy) Decorate(hdr http.Header, origin string) {
	if origin == "" || !p.AllowsOrigin(origin) {
		return
	}

	hdr.Set("Access-Control-Allow-Origin", origin)
	hdr.Add("Vary", "Origin")
	if p.exposedHeaders != "" {
		hdr.Set("Access-Control-Expose-Headers", p.exposedHeaders)
	}
	if p.cfg.Credentials {
		hdr.Set("Access-Control-Allow-Credentials", "true")
	}
}
