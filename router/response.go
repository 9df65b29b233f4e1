package router

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vitalvas/gantry/apierr"
)

const (
	contentTypeJSON  = "application/json; charset=utf-8"
	contentTypeText  = "text/plain; charset=utf-8"
	contentTypeHTML  = "text/html; charset=utf-8"
	contentTypeOctet = "application/octet-stream"
)

// Response is the materialized result of a handler. The pipeline writes
// Status and Header, then Body, or streams from Reader when set (closing
// it afterwards if it implements io.Closer).
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Reader io.Reader
}

// Cookie describes one Set-Cookie header. Attributes are serialized in a
// fixed order: Domain, Path, Expires, Max-Age, HttpOnly, Secure, SameSite.
type Cookie struct {
	Name  string
	Value string

	Domain string
	Path   string

	// Expires is formatted as RFC 1123 GMT when non-zero.
	Expires time.Time

	// MaxAge follows net/http conventions: 0 omits the attribute,
	// negative emits Max-Age=0 (delete now), positive is seconds.
	MaxAge int

	HttpOnly bool
	Secure   bool

	// SameSite is emitted verbatim: "Strict", "Lax", or "None".
	SameSite string
}

// String serializes the cookie for a Set-Cookie header per RFC 6265
// Section 4.1. Name and value are URL-encoded.
func (c Cookie) String() string {
	var sb strings.Builder
	sb.WriteString(url.QueryEscape(c.Name))
	sb.WriteByte('=')
	sb.WriteString(url.QueryEscape(c.Value))
	if c.Domain != "" {
		sb.WriteString("; Domain=")
		sb.WriteString(c.Domain)
	}
	if c.Path != "" {
		sb.WriteString("; Path=")
		sb.WriteString(c.Path)
	}
	if !c.Expires.IsZero() {
		sb.WriteString("; Expires=")
		sb.WriteString(c.Expires.UTC().Format(http.TimeFormat))
	}
	if c.MaxAge > 0 {
		sb.WriteString("; Max-Age=")
		sb.WriteString(strconv.Itoa(c.MaxAge))
	} else if c.MaxAge < 0 {
		sb.WriteString("; Max-Age=0")
	}
	if c.HttpOnly {
		sb.WriteString("; HttpOnly")
	}
	if c.Secure {
		sb.WriteString("; Secure")
	}
	if c.SameSite != "" {
		sb.WriteString("; SameSite=")
		sb.WriteString(c.SameSite)
	}
	return sb.String()
}

// Builder accumulates response modifiers and produces responses through
// terminal methods. Terminals do not consume the builder: calling two
// terminals yields two independent responses carrying the same accumulated
// status override, headers, and cookies.
//
// A Builder is single-owner per request and must not be shared.
type Builder struct {
	status  int
	header  http.Header
	cookies []Cookie
}

// NewBuilder returns an empty response builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Status overrides the status code of any subsequently built response.
func (b *Builder) Status(code int) *Builder {
	b.status = code
	return b
}

// Header sets a response header, replacing any value a terminal would have
// produced for the same key.
func (b *Builder) Header(key, value string) *Builder {
	if b.header == nil {
		b.header = make(http.Header)
	}
	b.header.Set(key, value)
	return b
}

// Cookie appends a Set-Cookie header to any subsequently built response.
func (b *Builder) Cookie(c Cookie) *Builder {
	b.cookies = append(b.cookies, c)
	return b
}

// finish applies the accumulated modifiers to a freshly built response:
// custom headers overwrite, the status override applies, and one Set-Cookie
// header is appended per cookie.
func (b *Builder) finish(resp *Response) *Response {
	for k, vals := range b.header {
		resp.Header[k] = slices.Clone(vals)
	}
	if b.status != 0 {
		resp.Status = b.status
	}
	for _, c := range b.cookies {
		resp.Header.Add("Set-Cookie", c.String())
	}
	return resp
}

func newResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

func jsonResponse(status int, data any) (*Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	resp := newResponse(status)
	resp.Header.Set("Content-Type", contentTypeJSON)
	resp.Body = body
	return resp, nil
}

// envelope builds a standard error response, filling the default code for
// the status when code is empty.
func envelope(status int, message, code string, details any) *Response {
	body, err := json.Marshal(apierr.New(status, message, code, details))
	if err != nil {
		body, _ = json.Marshal(apierr.New(status, message, code, nil))
	}
	resp := newResponse(status)
	resp.Header.Set("Content-Type", contentTypeJSON)
	resp.Body = body
	return resp
}

func (b *Builder) json(status int, data any) *Response {
	resp, err := jsonResponse(status, data)
	if err != nil {
		return b.finish(envelope(http.StatusInternalServerError, "Failed to encode response", "", err.Error()))
	}
	return b.finish(resp)
}

// Ok builds a 200 response with the JSON-encoded data.
func (b *Builder) Ok(data any) *Response {
	return b.json(http.StatusOK, data)
}

// Created builds a 201 response with the JSON-encoded data. An optional
// location sets the Location header.
func (b *Builder) Created(data any, location ...string) *Response {
	resp, err := jsonResponse(http.StatusCreated, data)
	if err != nil {
		return b.finish(envelope(http.StatusInternalServerError, "Failed to encode response", "", err.Error()))
	}
	if len(location) > 0 && location[0] != "" {
		resp.Header.Set("Location", location[0])
	}
	return b.finish(resp)
}

// Accepted builds a 202 response with the JSON-encoded data.
func (b *Builder) Accepted(data any) *Response {
	return b.json(http.StatusAccepted, data)
}

// NoContent builds an empty 204 response.
func (b *Builder) NoContent() *Response {
	return b.finish(newResponse(http.StatusNoContent))
}

// JSON builds a response with the JSON-encoded data at an explicit status.
func (b *Builder) JSON(data any, status int) *Response {
	return b.json(status, data)
}

// Error builds a standard error envelope response. An empty code falls back
// to the default code for the status.
func (b *Builder) Error(status int, message, code string, details any) *Response {
	return b.finish(envelope(status, message, code, details))
}

// BadRequest builds a 400 envelope with code BAD_REQUEST.
func (b *Builder) BadRequest(message string) *Response {
	return b.Error(http.StatusBadRequest, message, "", nil)
}

// Unauthorized builds a 401 envelope with code UNAUTHORIZED.
func (b *Builder) Unauthorized(message string) *Response {
	return b.Error(http.StatusUnauthorized, message, "", nil)
}

// Forbidden builds a 403 envelope with code FORBIDDEN.
func (b *Builder) Forbidden(message string) *Response {
	return b.Error(http.StatusForbidden, message, "", nil)
}

// NotFound builds a 404 envelope with code NOT_FOUND.
func (b *Builder) NotFound(message string) *Response {
	return b.Error(http.StatusNotFound, message, "", nil)
}

// Conflict builds a 409 envelope with code CONFLICT.
func (b *Builder) Conflict(message string) *Response {
	return b.Error(http.StatusConflict, message, "", nil)
}

// InternalError builds a 500 envelope with code INTERNAL_ERROR.
func (b *Builder) InternalError(message string) *Response {
	return b.Error(http.StatusInternalServerError, message, "", nil)
}

// Text builds a 200 text/plain response.
func (b *Builder) Text(s string) *Response {
	resp := newResponse(http.StatusOK)
	resp.Header.Set("Content-Type", contentTypeText)
	resp.Body = []byte(s)
	return b.finish(resp)
}

// HTML builds a 200 text/html response.
func (b *Builder) HTML(s string) *Response {
	resp := newResponse(http.StatusOK)
	resp.Header.Set("Content-Type", contentTypeHTML)
	resp.Body = []byte(s)
	return b.finish(resp)
}

// File builds a 200 response streaming the named file, with the content
// type inferred from the extension. A missing file or a directory yields a
// 404 envelope with code FILE_NOT_FOUND; a file that exists but cannot be
// opened yields a 500 envelope.
func (b *Builder) File(path string) *Response {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return b.finish(envelope(http.StatusNotFound, "File not found", apierr.CodeFileNotFound, nil))
	}
	f, err := os.Open(path)
	if err != nil {
		return b.finish(envelope(http.StatusInternalServerError, "Failed to open file", "", err.Error()))
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = contentTypeOctet
	}
	resp := newResponse(http.StatusOK)
	resp.Header.Set("Content-Type", ct)
	resp.Header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	resp.Reader = f
	return b.finish(resp)
}

// Stream builds a 200 response that copies from r. The content type
// defaults to application/octet-stream.
func (b *Builder) Stream(r io.Reader, contentType string) *Response {
	if contentType == "" {
		contentType = contentTypeOctet
	}
	resp := newResponse(http.StatusOK)
	resp.Header.Set("Content-Type", contentType)
	resp.Reader = r
	return b.finish(resp)
}

// Redirect builds a redirect to the given URL. The status defaults to 302.
func (b *Builder) Redirect(target string, status ...int) *Response {
	code := http.StatusFound
	if len(status) > 0 {
		code = status[0]
	}
	resp := newResponse(code)
	resp.Header.Set("Location", target)
	return b.finish(resp)
}

// RedirectTo builds a redirect to a route path pattern with ":name" and
// ":name*" segments substituted from params. Unknown parameters are left
// in place.
func (b *Builder) RedirectTo(pattern string, params map[string]string, status ...int) *Response {
	return b.Redirect(expandPath(pattern, params), status...)
}

// Custom builds an opaque response from raw parts. An empty content type
// sets no Content-Type header.
func (b *Builder) Custom(status int, contentType string, body []byte) *Response {
	resp := newResponse(status)
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	resp.Body = body
	return b.finish(resp)
}

// expandPath substitutes ":name" and ":name*" pattern segments with values
// from params.
func expandPath(pattern string, params map[string]string) string {
	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if !strings.HasPrefix(part, ":") {
			continue
		}
		name := strings.TrimSuffix(part[1:], "*")
		if v, ok := params[name]; ok {
			parts[i] = v
		}
	}
	return strings.Join(parts, "/")
}
