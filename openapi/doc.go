// Package openapi generates OpenAPI v3.1.0 documents from the HTTP
// route registry.
//
// The package targets the OpenAPI Specification v3.1.0, which embeds
// JSON Schema Draft 2020-12; route schemas therefore appear in the
// document unchanged. No schema files or annotations are needed beyond
// the route definitions themselves.
//
// See: https://spec.openapis.org/oas/v3.1.0
// See: https://json-schema.org/draft/2020-12/json-schema-core
//
// # Generating a Document
//
// Generate walks a registry and assembles the complete document:
//
//	doc := openapi.Generate(reg, openapi.Options{
//	    Title:   "Orders API",
//	    Version: "1.2.0",
//	    Servers: []openapi.Server{{URL: "https://api.example.com"}},
//	})
//	data, err := doc.JSON()
//
// Route metadata maps directly: OperationID, Summary, Description,
// Tags, and Deprecated fill the operation object; Query and Body
// schemas become parameters and the request body; Success and Errors
// become responses. Routes with ExcludeFromDocs set stay callable but
// never appear in the document.
//
// # Security
//
// Register schemes through the options and reference them from routes:
//
//	openapi.Options{
//	    SecuritySchemes: map[string]openapi.SecurityScheme{
//	        "bearerAuth": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
//	    },
//	}
//
//	router.Register(&router.Route{
//	    Method:   http.MethodGet,
//	    Path:     "/api/orders",
//	    Security: []map[string][]string{{"bearerAuth": {}}},
//	    Handler:  listOrders,
//	})
//
// Routes carrying security requirements document a 401 response
// automatically unless one is declared.
//
// # Serialization
//
// JSON emits two-space indented JSON, YAML emits YAML. Both marshal
// map keys in sorted order, so generating the same registry twice
// yields byte-identical output.
package openapi
