// Package router implements declarative HTTP route registration, a
// specificity-ordered path matcher, a chainable response builder, and the
// request pipeline that ties parsing, schema validation, middleware, and
// handler invocation together.
//
// # Routes
//
// A route is a plain struct describing one endpoint. Register it against a
// Registry (or the process-global one via router.Register):
//
//	router.Register(&router.Route{
//	    Method: http.MethodGet,
//	    Path:   "/api/users/:id",
//	    Handler: func(c *router.Ctx) (*router.Response, error) {
//	        return c.Respond.Ok(map[string]any{"id": c.Params["id"]}), nil
//	    },
//	})
//
// Path patterns are made of literal segments, ":name" parameters, and at
// most one trailing ":name*" wildcard. Parameter names match
// [A-Za-z_][A-Za-z0-9_]* and must be unique within a path. Registration
// panics on malformed patterns; routes are startup configuration, so a bad
// pattern is a programming error.
//
// # Matching
//
// When several routes could serve the same path, the most specific one wins.
// Each segment scores 3 (literal), 2 (parameter), or 1 (wildcard); routes
// are tried in descending score order and ties keep registration order:
//
//	/api/users/list   beats   /api/users/:id   beats   /api/:resource*
//
// A wildcard consumes one or more trailing segments and captures them joined
// with "/".
//
// # Responses
//
// Handlers produce responses through the builder on Ctx.Respond. Modifiers
// (Status, Header, Cookie) accumulate; terminal methods such as Ok, Created,
// Text, File, or Redirect build the response and apply every accumulated
// modifier:
//
//	return c.Respond.
//	    Header("X-Request-Id", id).
//	    Cookie(router.Cookie{Name: "session", Value: token, HttpOnly: true}).
//	    Created(user, "/api/users/"+user.ID), nil
//
// Error terminals (BadRequest, NotFound, ...) emit the standard error
// envelope with the default code for their status; Error gives full control
// over status, code, and details.
//
// # Middleware
//
// A middleware receives the request context and a next continuation.
// Returning without calling next short-circuits the chain; calling next and
// inspecting its result post-processes the downstream response:
//
//	func requireUser(c *router.Ctx, next router.Next) (*router.Response, error) {
//	    if c.Request.Header.Get("Authorization") == "" {
//	        return c.Respond.Unauthorized("Missing credentials"), nil
//	    }
//	    return next()
//	}
//
// Global middlewares run before route middlewares, each list in declaration
// order. The handler is the terminal step.
//
// # Pipeline
//
// Pipeline is the http.Handler that drives a registry: CORS preflight
// short-circuit, match, query and body parsing by Content-Type, schema
// validation, middleware chain, handler, CORS decoration, and emission.
// Validation failures, handler errors, and panics all surface as the
// standard JSON error envelope.
package router
