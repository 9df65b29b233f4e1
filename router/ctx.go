package router

import "net/http"

// Handler is the terminal step of a matched route. It returns the response
// to emit; a non-nil error (or a panic) becomes a 500 envelope with the
// error text as details.
type Handler func(c *Ctx) (*Response, error)

// Next advances the middleware chain one step and returns the downstream
// result.
type Next func() (*Response, error)

// Middleware wraps the steps after it. Returning without calling next
// short-circuits the chain with that response; calling next allows
// post-processing the downstream response.
type Middleware func(c *Ctx, next Next) (*Response, error)

// Ctx carries the per-request state handed to middlewares and the handler.
// It is single-owner: one Ctx per request, never shared.
type Ctx struct {
	// Request is the raw incoming request.
	Request *http.Request

	// Params holds the path parameters extracted by the matcher.
	Params map[string]string

	// Query holds the parsed query string: string values, or []any of
	// strings for repeated keys. Middlewares see it before validation.
	Query map[string]any

	// Body is the parsed request body: any JSON value for JSON requests, a
	// flat map for form encoding, a string for text and unrecognized types.
	// Middlewares see it before validation.
	Body any

	// Locals is a mutable per-request bag for passing values between
	// middlewares and the handler.
	Locals map[string]any

	// Respond builds responses for this request.
	Respond *Builder
}

// chain composes the middleware list around the handler. Middlewares run in
// slice order; the handler is the terminal step.
func chain(c *Ctx, mws []Middleware, h Handler) (*Response, error) {
	var step func(i int) (*Response, error)
	step = func(i int) (*Response, error) {
		if i >= len(mws) {
			return h(c)
		}
		return mws[i](c, func() (*Response, error) {
			return step(i + 1)
		})
	}
	return step(0)
}
