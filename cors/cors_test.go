package cors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("rejects wildcard with credentials", func(t *testing.T) {
		_, err := New(Config{Origins: []string{"*"}, Credentials: true})
		assert.ErrorIs(t, err, ErrWildcardCredentials)
	})

	t.Run("rejects multi-wildcard patterns", func(t *testing.T) {
		_, err := New(Config{Origins: []string{"https://*.*.example.com"}})
		assert.Error(t, err)
	})

	t.Run("fills method and header defaults", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"*"}})
		require.NoError(t, err)

		_, hdr := p.Preflight("http://example.com")
		assert.Contains(t, hdr.Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, hdr.Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Contains(t, hdr.Get("Access-Control-Allow-Headers"), "Authorization")
	})
}

func TestAllowsOrigin(t *testing.T) {
	t.Run("wildcard allows anything", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"*"}})
		require.NoError(t, err)
		assert.True(t, p.AllowsOrigin("http://anything.test"))
	})

	t.Run("exact match is case-insensitive", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"https://App.Example.com"}})
		require.NoError(t, err)
		assert.True(t, p.AllowsOrigin("https://app.example.com"))
		assert.True(t, p.AllowsOrigin("HTTPS://APP.EXAMPLE.COM"))
		assert.False(t, p.AllowsOrigin("https://other.example.com"))
	})

	t.Run("subdomain wildcard pattern", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"https://*.example.com"}})
		require.NoError(t, err)
		assert.True(t, p.AllowsOrigin("https://api.example.com"))
		assert.False(t, p.AllowsOrigin("http://api.example.org"))
	})

	t.Run("predicate runs after the list", func(t *testing.T) {
		p, err := New(Config{
			Origins:    []string{"https://fixed.example.com"},
			OriginFunc: func(origin string) bool { return origin == "https://dynamic.test" },
		})
		require.NoError(t, err)
		assert.True(t, p.AllowsOrigin("https://fixed.example.com"))
		assert.True(t, p.AllowsOrigin("https://dynamic.test"))
		assert.False(t, p.AllowsOrigin("https://other.test"))
	})

	t.Run("empty origin only passes the wildcard", func(t *testing.T) {
		wild, err := New(Config{Origins: []string{"*"}})
		require.NoError(t, err)
		assert.True(t, wild.AllowsOrigin(""))

		strict, err := New(Config{Origins: []string{"https://app.example.com"}})
		require.NoError(t, err)
		assert.False(t, strict.AllowsOrigin(""))
	})
}

func TestPreflight(t *testing.T) {
	t.Run("allowed origin gets 204 with echo", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"*"}, MaxAge: 600, Credentials: false})
		require.NoError(t, err)

		status, hdr := p.Preflight("http://example.com")
		assert.Equal(t, http.StatusNoContent, status)
		assert.Equal(t, "http://example.com", hdr.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, hdr.Get("Access-Control-Allow-Methods"), "POST")
		assert.Equal(t, "600", hdr.Get("Access-Control-Max-Age"))
	})

	t.Run("disallowed origin gets 403", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"https://app.example.com"}})
		require.NoError(t, err)

		status, hdr := p.Preflight("https://evil.test")
		assert.Equal(t, http.StatusForbidden, status)
		assert.Nil(t, hdr)
	})

	t.Run("credentials header is set when configured", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"https://app.example.com"}, Credentials: true})
		require.NoError(t, err)

		_, hdr := p.Preflight("https://app.example.com")
		assert.Equal(t, "true", hdr.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("absent origin gets 204 without origin headers", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"https://app.example.com"}})
		require.NoError(t, err)

		status, hdr := p.Preflight("")
		assert.Equal(t, http.StatusNoContent, status)
		assert.Empty(t, hdr.Get("Access-Control-Allow-Origin"))
		assert.NotEmpty(t, hdr.Get("Access-Control-Allow-Methods"))
	})

	t.Run("zero max age omits the header", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"*"}})
		require.NoError(t, err)

		_, hdr := p.Preflight("http://example.com")
		assert.Empty(t, hdr.Get("Access-Control-Max-Age"))
	})
}

func TestDecorate(t *testing.T) {
	t.Run("echoes allowed origin", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"*"}, ExposedHeaders: []string{"X-Request-Id"}})
		require.NoError(t, err)

		hdr := make(http.Header)
		p.Decorate(hdr, "http://example.com")
		assert.Equal(t, "http://example.com", hdr.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Request-Id", hdr.Get("Access-Control-Expose-Headers"))
	})

	t.Run("leaves disallowed origins undecorated", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"https://app.example.com"}})
		require.NoError(t, err)

		hdr := make(http.Header)
		p.Decorate(hdr, "https://evil.test")
		assert.Empty(t, hdr.Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origin no headers", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"*"}})
		require.NoError(t, err)

		hdr := make(http.Header)
		p.Decorate(hdr, "")
		assert.Empty(t, hdr)
	})

	t.Run("credentials follow policy", func(t *testing.T) {
		p, err := New(Config{Origins: []string{"https://app.example.com"}, Credentials: true})
		require.NoError(t, err)

		hdr := make(http.Header)
		p.Decorate(hdr, "https://app.example.com")
		assert.Equal(t, "true", hdr.Get("Access-Control-Allow-Credentials"))
	})
}
