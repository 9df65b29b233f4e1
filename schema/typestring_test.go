package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeString(t *testing.T) {
	t.Run("primitives", func(t *testing.T) {
		assert.Equal(t, "string", String().TypeString(""))
		assert.Equal(t, "number", Number().TypeString(""))
		assert.Equal(t, "number", Integer().TypeString(""))
		assert.Equal(t, "boolean", Boolean().TypeString(""))
		assert.Equal(t, "null", Null().TypeString(""))
		assert.Equal(t, "undefined", Undefined().TypeString(""))
		assert.Equal(t, "unknown", Any().TypeString(""))
		assert.Equal(t, "Date", Date().TypeString(""))
	})

	t.Run("literals", func(t *testing.T) {
		assert.Equal(t, `"join"`, Literal("join").TypeString(""))
		assert.Equal(t, "5", Literal(5).TypeString(""))
		assert.Equal(t, "true", Literal(true).TypeString(""))
	})

	t.Run("enum renders a literal union", func(t *testing.T) {
		assert.Equal(t, `"red" | "green"`, Enum("red", "green").TypeString(""))
	})

	t.Run("arrays", func(t *testing.T) {
		assert.Equal(t, "string[]", Array(String()).TypeString(""))
	})

	t.Run("array of union is grouped", func(t *testing.T) {
		got := Array(Union(String(), Number())).TypeString("")
		assert.Equal(t, "(string | number)[]", got)
	})

	t.Run("tuple", func(t *testing.T) {
		assert.Equal(t, "[number, string]", Tuple(Number(), String()).TypeString(""))
	})

	t.Run("record", func(t *testing.T) {
		assert.Equal(t, "Record<string, number>", Record(Number()).TypeString(""))
	})

	t.Run("union", func(t *testing.T) {
		assert.Equal(t, "string | number", Union(String(), Number()).TypeString(""))
	})

	t.Run("object renders keys in declaration order", func(t *testing.T) {
		s := Object(nil).
			Prop("name", String()).
			Prop("age", Optional(Number()))

		want := "{\n" +
			"  name: string;\n" +
			"  age?: number;\n" +
			"}"
		assert.Equal(t, want, s.TypeString(""))
	})

	t.Run("nested objects extend the indent", func(t *testing.T) {
		s := Object(nil).Prop("user", Object(nil).Prop("id", String()))

		want := "{\n" +
			"  user: {\n" +
			"    id: string;\n" +
			"  };\n" +
			"}"
		assert.Equal(t, want, s.TypeString(""))
	})

	t.Run("empty object falls back to record", func(t *testing.T) {
		assert.Equal(t, "Record<string, unknown>", Object(nil).TypeString(""))
	})

	t.Run("optional appends undefined standalone", func(t *testing.T) {
		assert.Equal(t, "string | undefined", Optional(String()).TypeString(""))
	})

	t.Run("nullable appends null", func(t *testing.T) {
		assert.Equal(t, "string | null", Nullable(String()).TypeString(""))
	})

	t.Run("non-identifier keys are quoted", func(t *testing.T) {
		s := Object(nil).Prop("content-type", String())
		assert.Contains(t, s.TypeString(""), `"content-type": string;`)
	})

	t.Run("nil schema renders unknown", func(t *testing.T) {
		var s *Schema
		assert.Equal(t, "unknown", s.TypeString(""))
	})

	t.Run("unrecognized construct degrades to unknown", func(t *testing.T) {
		s := &Schema{Type: typeOf("string")}
		assert.Equal(t, "unknown", s.TypeString(""))
	})
}
