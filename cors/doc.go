// Package cors evaluates Cross-Origin Resource Sharing policy for the
// request pipeline: origin checks, preflight response synthesis, and
// response-header decoration.
//
// Spec references:
//   - CORS protocol: https://fetch.spec.whatwg.org/#http-cors-protocol
//   - Web Origin:    https://www.rfc-editor.org/rfc/rfc6454
//   - HTTP Vary:     https://www.rfc-editor.org/rfc/rfc9110#field.vary
//
// A Policy is built once from a Config and consulted per request:
//
//	policy, err := cors.New(cors.Config{
//	    Origins:     []string{"https://app.example.com", "https://*.example.dev"},
//	    Credentials: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Preflight produces the full header set for OPTIONS requests; Decorate
// adds the origin, credential, and expose headers to actual responses.
// The allowed origin is always echoed rather than collapsed to "*" so
// the same policy works with and without credentials.
package cors
