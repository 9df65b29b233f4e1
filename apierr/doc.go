// Package apierr defines the standard error envelope emitted on every
// error path of the framework.
//
// Every error response body has the shape
//
//	{"message": "<human text>", "code": "<ENUM>", "details": <optional any>}
//
// with Content-Type "application/json; charset=utf-8". The reserved codes
// map one-to-one onto the HTTP statuses the framework produces; DefaultCode
// resolves a status to its code and falls back to INTERNAL_ERROR for
// anything it does not recognize, so helpers never fail on unusual
// statuses.
//
// Validation failures carry details as an ordered list of field issues:
//
//	{"message": "Validation failed", "code": "BAD_REQUEST",
//	 "details": [{"field": "user.email", "message": "..."}]}
//
// Envelope and FieldIssueSchema describe these shapes as schemas so the
// OpenAPI synthesizer can preload them into components.
package apierr
