package apierr

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vitalvas/gantry/schema"
)

// Reserved error codes.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"

	// WebSocket upgrade rejections.
	CodeAuthError     = "AUTH_ERROR"
	CodeUpgradeFailed = "UPGRADE_FAILED"

	// Response builder file serving.
	CodeFileNotFound = "FILE_NOT_FOUND"
)

// Error is the standard error envelope.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// FieldIssue is one entry of the details list for validation failures.
// Field is the dotted instance path; empty for the document root.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DefaultCode maps an HTTP status to its reserved code. Unknown statuses
// fall back to INTERNAL_ERROR rather than failing.
func DefaultCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusInternalServerError:
		return CodeInternal
	default:
		return CodeInternal
	}
}

// New builds an envelope with the default code for the status. An empty
// code argument picks the default; details may be nil.
func New(status int, message, code string, details any) Error {
	if code == "" {
		code = DefaultCode(status)
	}
	return Error{Message: message, Code: code, Details: details}
}

// Issues converts schema validation issues into envelope details,
// joining instance paths with dots.
func Issues(issues []schema.Issue) []FieldIssue {
	out := make([]FieldIssue, 0, len(issues))
	for _, is := range issues {
		out = append(out, FieldIssue{
			Field:   strings.Join(is.Path, "."),
			Message: is.Message,
		})
	}
	return out
}

// Write encodes the envelope and writes it with the given status. The
// body is encoded into a buffer first so an encoding failure degrades to
// a plain 500 instead of a half-written response.
func Write(w http.ResponseWriter, status int, e Error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(e); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// Envelope describes the standard error body as a schema for OpenAPI
// components.
func Envelope() *schema.Schema {
	return schema.Object(nil).
		Prop("message", schema.String()).
		Prop("code", schema.String()).
		Prop("details", schema.Optional(schema.Any())).
		Titled("Error")
}

// FieldIssueSchema describes one validation detail entry for OpenAPI
// components.
func FieldIssueSchema() *schema.Schema {
	return schema.Object(nil).
		Prop("field", schema.String()).
		Prop("message", schema.String()).
		Titled("ValidationIssue")
}
