package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func fieldPaths(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, strings.Join(is.Path, "."))
	}
	return out
}

func TestValidate(t *testing.T) {
	t.Run("valid value returns no issues", func(t *testing.T) {
		s := Object(nil).
			Prop("name", String().MinLen(1)).
			Prop("email", String().WithFormat("email"))

		issues := s.Validate(decodeJSON(t, `{"name":"A","email":"a@example.com"}`))
		assert.Empty(t, issues)
	})

	t.Run("reports one issue per failing field", func(t *testing.T) {
		s := Object(nil).
			Prop("name", String().MinLen(1)).
			Prop("email", String().WithFormat("email"))

		issues := s.Validate(decodeJSON(t, `{"name":"","email":"not-an-email"}`))
		require.Len(t, issues, 2)
		assert.ElementsMatch(t, []string{"name", "email"}, fieldPaths(issues))
	})

	t.Run("missing required property fails at the root", func(t *testing.T) {
		s := Object(nil).Prop("id", String())

		issues := s.Validate(decodeJSON(t, `{}`))
		require.NotEmpty(t, issues)
		assert.Empty(t, issues[0].Path)
	})

	t.Run("nested paths are reported segment by segment", func(t *testing.T) {
		s := Object(nil).Prop("user", Object(nil).Prop("age", Number().Min(0)))

		issues := s.Validate(decodeJSON(t, `{"user":{"age":-1}}`))
		require.Len(t, issues, 1)
		assert.Equal(t, []string{"user", "age"}, issues[0].Path)
	})

	t.Run("array element paths include the index", func(t *testing.T) {
		s := Array(String())

		issues := s.Validate(decodeJSON(t, `["ok", 5]`))
		require.Len(t, issues, 1)
		assert.Equal(t, []string{"1"}, issues[0].Path)
	})

	t.Run("type mismatch is an issue not a panic", func(t *testing.T) {
		issues := String().Validate(decodeJSON(t, `42`))
		require.Len(t, issues, 1)
	})

	t.Run("enum rejects values outside the set", func(t *testing.T) {
		s := Enum("red", "green")
		assert.Empty(t, s.Validate("red"))
		assert.NotEmpty(t, s.Validate("blue"))
	})

	t.Run("literal matches exactly", func(t *testing.T) {
		s := Literal("join")
		assert.Empty(t, s.Validate("join"))
		assert.NotEmpty(t, s.Validate("leave"))
	})

	t.Run("union accepts any member", func(t *testing.T) {
		s := Union(String(), Number())
		assert.Empty(t, s.Validate("x"))
		assert.Empty(t, s.Validate(decodeJSON(t, `3`)))
		assert.NotEmpty(t, s.Validate(true))
	})

	t.Run("nullable accepts null", func(t *testing.T) {
		s := Nullable(String())
		assert.Empty(t, s.Validate(nil))
		assert.Empty(t, s.Validate("x"))
		assert.NotEmpty(t, s.Validate(decodeJSON(t, `1`)))
	})

	t.Run("tuple enforces length and positions", func(t *testing.T) {
		s := Tuple(Number(), String())
		assert.Empty(t, s.Validate(decodeJSON(t, `[1, "a"]`)))
		assert.NotEmpty(t, s.Validate(decodeJSON(t, `[1]`)))
		assert.NotEmpty(t, s.Validate(decodeJSON(t, `[1, "a", true]`)))
	})

	t.Run("record validates every value", func(t *testing.T) {
		s := Record(Number())
		assert.Empty(t, s.Validate(decodeJSON(t, `{"a":1,"b":2}`)))

		issues := s.Validate(decodeJSON(t, `{"a":1,"b":"x"}`))
		require.Len(t, issues, 1)
		assert.Equal(t, []string{"b"}, issues[0].Path)
	})

	t.Run("any accepts everything", func(t *testing.T) {
		s := Any()
		assert.Empty(t, s.Validate(nil))
		assert.Empty(t, s.Validate("x"))
		assert.Empty(t, s.Validate(decodeJSON(t, `{"deep":[1,2,{"n":null}]}`)))
	})

	t.Run("nil schema accepts everything", func(t *testing.T) {
		var s *Schema
		assert.Empty(t, s.Validate("anything"))
	})

	t.Run("compiled form is cached per schema", func(t *testing.T) {
		s := String().MinLen(2)
		require.NotEmpty(t, s.Validate("x"))

		first, ok := compiledCache.Load(s)
		require.True(t, ok)
		require.Empty(t, s.Validate("xx"))

		second, _ := compiledCache.Load(s)
		assert.Same(t, first, second)
	})
}
