package openapi

import (
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/gantry/apierr"
	"github.com/vitalvas/gantry/router"
	"github.com/vitalvas/gantry/schema"
)

// Options carries the document-level metadata for Generate.
type Options struct {
	// Title and Version fill the info object. OpenAPI requires both, so
	// empty values fall back to "API" and "1.0.0".
	Title   string
	Version string

	// Description fills the info object description.
	Description string

	// Servers lists the servers the API is reachable on.
	Servers []Server

	// SecuritySchemes registers reusable security schemes in components.
	// Routes reference them by name through their security requirements.
	SecuritySchemes map[string]SecurityScheme

	// Tags adds document-level tag metadata. Tags referenced by routes
	// but not listed here still appear on their operations.
	Tags []Tag
}

// Generate projects every documented route in the registry into an
// OpenAPI v3.1.0 document. Routes marked ExcludeFromDocs are skipped;
// everything else follows from the route definition:
//
//   - ":name" path segments become "{name}" and are declared as required
//     string parameters; a trailing ":name*" wildcard keeps its "*" in
//     the path key but drops it from the parameter name;
//   - an object query schema becomes one query parameter per property,
//     any other query schema becomes a single "query" parameter;
//   - a body schema becomes a required application/json request body;
//   - the declared success response is emitted at its status (200 when
//     unset), declared error responses at theirs, and 400/401/500 are
//     filled in for routes that can produce them;
//   - components.schemas carries the error envelope and field issue
//     schemas every generated error response references.
//
// The same registry always yields the same document.
func Generate(reg *router.Registry, opts Options) *Document {
	doc := &Document{
		OpenAPI: "3.1.0",
		Info: Info{
			Title:       opts.Title,
			Version:     opts.Version,
			Description: opts.Description,
		},
		Servers: opts.Servers,
		Paths:   make(map[string]*PathItem),
		Tags:    opts.Tags,
		Components: &Components{
			Schemas: map[string]*schema.Schema{
				"Error":           apierr.Envelope(),
				"ValidationIssue": apierr.FieldIssueSchema(),
			},
		},
	}
	if doc.Info.Title == "" {
		doc.Info.Title = "API"
	}
	if doc.Info.Version == "" {
		doc.Info.Version = "1.0.0"
	}

	if len(opts.SecuritySchemes) > 0 {
		doc.Components.SecuritySchemes = make(map[string]*SecurityScheme, len(opts.SecuritySchemes))
		for name, scheme := range opts.SecuritySchemes {
			doc.Components.SecuritySchemes[name] = &scheme
		}
	}

	for _, route := range reg.All() {
		if route.ExcludeFromDocs {
			continue
		}

		key, params := pathKey(route.Path)
		item, ok := doc.Paths[key]
		if !ok {
			item = &PathItem{}
			doc.Paths[key] = item
		}
		assignOperation(item, route.Method, buildOperation(route, params))
	}

	return doc
}

// pathKey converts a route pattern to its OpenAPI path key and collects
// the parameter names along the way. The registry validated the pattern
// at registration, so parsing here is purely mechanical.
func pathKey(path string) (string, []string) {
	parts := strings.Split(path, "/")
	var params []string

	for i, part := range parts {
		if !strings.HasPrefix(part, ":") {
			continue
		}
		name := part[1:]
		if strings.HasSuffix(name, "*") {
			name = strings.TrimSuffix(name, "*")
			parts[i] = "{" + name + "}*"
		} else {
			parts[i] = "{" + name + "}"
		}
		params = append(params, name)
	}

	return strings.Join(parts, "/"), params
}

// buildOperation assembles the operation object for one route.
func buildOperation(route *router.Route, pathParams []string) *Operation {
	op := &Operation{
		Tags:        route.Tags,
		Summary:     route.Summary,
		Description: route.Description,
		OperationID: route.OperationID,
		Deprecated:  route.Deprecated,
		Responses:   buildResponses(route),
	}
	if op.OperationID == "" {
		op.OperationID = defaultOperationID(route.Method, route.Path)
	}

	for _, name := range pathParams {
		op.Parameters = append(op.Parameters, &Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   schema.String(),
		})
	}
	op.Parameters = append(op.Parameters, queryParameters(route.Query)...)

	if route.Body != nil {
		op.RequestBody = &RequestBody{
			Required: true,
			Content:  jsonContent(route.Body.OpenAPI()),
		}
	}

	for _, req := range route.Security {
		op.Security = append(op.Security, SecurityRequirement(req))
	}

	return op
}

// defaultOperationID derives an operation id from the method and path,
// e.g. GET /api/users/:id becomes "get_api_users_id".
func defaultOperationID(method, path string) string {
	id := strings.ToLower(method)
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		part = strings.TrimPrefix(part, ":")
		part = strings.TrimSuffix(part, "*")
		id += "_" + part
	}
	return id
}

// queryParameters expands a query schema into parameter objects. Object
// schemas yield one parameter per property in declaration order; any
// other schema documents the whole query string as a single parameter.
func queryParameters(q *schema.Schema) []*Parameter {
	if q == nil {
		return nil
	}
	doc := q.OpenAPI()

	if !slices.Contains(doc.Type.Values(), "object") {
		return []*Parameter{{Name: "query", In: "query", Schema: doc}}
	}

	names := doc.PropNames()
	if len(names) != len(doc.Properties) {
		// Hand-built schema without recorded property order.
		names = slices.Sorted(maps.Keys(doc.Properties))
	}

	params := make([]*Parameter, 0, len(names))
	for _, name := range names {
		params = append(params, &Parameter{
			Name:     name,
			In:       "query",
			Required: slices.Contains(doc.Required, name),
			Schema:   doc.Properties[name],
		})
	}
	return params
}

// buildResponses merges the declared success and error responses with
// the defaults every route can produce.
func buildResponses(route *router.Route) map[string]*Response {
	resps := make(map[string]*Response)

	status := http.StatusOK
	success := &Response{Description: "Successful response"}
	if route.Success != nil {
		if route.Success.Status != 0 {
			status = route.Success.Status
		}
		if route.Success.Description != "" {
			success.Description = route.Success.Description
		}
		if route.Success.Schema != nil {
			success.Content = jsonContent(route.Success.Schema.OpenAPI())
		}
	}
	resps[strconv.Itoa(status)] = success

	for code, decl := range route.Errors {
		resp := &Response{Description: decl.Description}
		if resp.Description == "" {
			resp.Description = http.StatusText(code)
		}
		if decl.Schema != nil {
			resp.Content = jsonContent(decl.Schema.OpenAPI())
		} else {
			resp.Content = jsonContent(schema.ComponentRef("Error"))
		}
		resps[strconv.Itoa(code)] = resp
	}

	addDefault := func(code int, description string) {
		key := strconv.Itoa(code)
		if _, declared := resps[key]; declared {
			return
		}
		resps[key] = &Response{
			Description: description,
			Content:     jsonContent(schema.ComponentRef("Error")),
		}
	}
	if route.Query != nil || route.Body != nil {
		addDefault(http.StatusBadRequest, "Validation error")
	}
	if len(route.Security) > 0 {
		addDefault(http.StatusUnauthorized, "Unauthorized")
	}
	addDefault(http.StatusInternalServerError, "Internal server error")

	return resps
}

func jsonContent(s *schema.Schema) map[string]*MediaType {
	return map[string]*MediaType{
		"application/json": {Schema: s},
	}
}

// assignOperation assigns an operation to the correct HTTP method field
// on the path item.
func assignOperation(item *PathItem, method string, op *Operation) {
	switch method {
	case http.MethodGet:
		item.Get = op
	case http.MethodPut:
		item.Put = op
	case http.MethodPost:
		item.Post = op
	case http.MethodDelete:
		item.Delete = op
	case http.MethodOptions:
		item.Options = op
	case http.MethodHead:
		item.Head = op
	case http.MethodPatch:
		item.Patch = op
	}
}
