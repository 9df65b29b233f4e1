// Package schema provides declarative JSON Schema documents with typed
// constructors, runtime validation, and projections used by the OpenAPI
// synthesizer and the WebSocket client type generator.
//
// Schemas target JSON Schema Draft 2020-12, the dialect OpenAPI v3.1.0
// embeds natively, so a *Schema value doubles as an OpenAPI schema object
// without conversion.
//
// See: https://json-schema.org/draft/2020-12/json-schema-validation
// See: https://spec.openapis.org/oas/v3.1.0#schema-object
//
// # Building Schemas
//
// Constructors compose into full documents:
//
//	user := schema.Object(nil).
//	    Prop("name", schema.String().MinLen(1)).
//	    Prop("email", schema.String().Format("email")).
//	    Prop("tags", schema.Optional(schema.Array(schema.String())))
//
// # Validation
//
// Validate checks a decoded JSON value (the result of json.Unmarshal into
// any) and reports one Issue per leaf failure with the instance path:
//
//	if issues := user.Validate(body); len(issues) != 0 {
//	    for _, is := range issues {
//	        log.Printf("%s: %s", strings.Join(is.Path, "."), is.Message)
//	    }
//	}
//
// Compilation happens once per schema and is cached; Validate never panics.
//
// # Projections
//
// OpenAPI returns the schema itself for embedding into generated documents.
// TypeString renders a best-effort TypeScript form for client code
// generation; constructs without a TypeScript equivalent degrade to
// "unknown".
package schema
