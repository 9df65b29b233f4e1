package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// SchemaType represents a JSON Schema type that can be a single string
// or an array of strings (for nullable types such as ["string", "null"]).
//
// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-6.1.1
type SchemaType struct {
	value []string
}

func typeOf(types ...string) SchemaType {
	return SchemaType{value: types}
}

// Values returns the underlying type values.
func (st SchemaType) Values() []string {
	return st.value
}

// IsEmpty reports whether the schema type is unset.
func (st SchemaType) IsEmpty() bool {
	return len(st.value) == 0
}

// IsZero implements the yaml.v3 IsZeroer interface so that omitempty
// on struct tags correctly omits an unset type field.
func (st SchemaType) IsZero() bool {
	return len(st.value) == 0
}

// MarshalJSON encodes the schema type as a JSON string (single type)
// or JSON array (multiple types).
func (st SchemaType) MarshalJSON() ([]byte, error) {
	if len(st.value) == 1 {
		return json.Marshal(st.value[0])
	}
	return json.Marshal(st.value)
}

// UnmarshalJSON decodes the schema type from either a JSON string or array.
func (st *SchemaType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		st.value = []string{single}
		return nil
	}

	var multi []string
	if err := json.Unmarshal(data, &multi); err != nil {
		return fmt.Errorf("schema type must be a string or array of strings: %w", err)
	}
	st.value = multi
	return nil
}

// MarshalYAML encodes the schema type for yaml.v3.
func (st SchemaType) MarshalYAML() (any, error) {
	if len(st.value) == 1 {
		return st.value[0], nil
	}
	return st.value, nil
}

// UnmarshalYAML decodes the schema type from a YAML scalar or sequence.
func (st *SchemaType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		st.value = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var multi []string
		if err := node.Decode(&multi); err != nil {
			return err
		}
		st.value = multi
		return nil
	default:
		return fmt.Errorf("unsupported YAML node kind %d for SchemaType", node.Kind)
	}
}

// kind records which constructor produced a schema. It drives the
// TypeScript rendering in TypeString; JSON Schema keywords alone cannot
// distinguish, for example, an enum from a union of literals.
type kind int

const (
	kindNone kind = iota
	kindString
	kindNumber
	kindInteger
	kindBoolean
	kindNull
	kindUndefined
	kindAny
	kindDate
	kindLiteral
	kindEnum
	kindArray
	kindObject
	kindRecord
	kindUnion
	kindTuple
)

// Schema is a declarative JSON Schema Draft 2020-12 document. Exported
// fields marshal directly to the wire format; a Schema therefore doubles
// as an OpenAPI v3.1.0 schema object.
//
// Schemas are built with the package constructors and the chainable
// constraint methods, then treated as immutable once registered on a
// route. Validate compiles lazily and caches the compiled form.
//
// See: https://spec.openapis.org/oas/v3.1.0#schema-object
type Schema struct {
	// Core identifiers.
	// See: https://json-schema.org/draft/2020-12/json-schema-core#section-8
	Ref  string             `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Defs map[string]*Schema `json:"$defs,omitempty" yaml:"$defs,omitempty"`

	// Type and format.
	// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-6.1.1
	Type   SchemaType `json:"type,omitzero" yaml:"type,omitempty"`
	Format string     `json:"format,omitempty" yaml:"format,omitempty"`

	// Metadata annotations.
	// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-9
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Example     any    `json:"example,omitempty" yaml:"example,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`

	// Numeric constraints.
	// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-6.2
	MultipleOf       *float64 `json:"multipleOf,omitempty" yaml:"multipleOf,omitempty"`
	Minimum          *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty" yaml:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty" yaml:"exclusiveMaximum,omitempty"`

	// String constraints.
	// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-6.3
	MinLength *int   `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Array constraints.
	// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-6.4
	Items       *Schema   `json:"items,omitempty" yaml:"items,omitempty"`
	PrefixItems []*Schema `json:"prefixItems,omitempty" yaml:"prefixItems,omitempty"`
	MinItems    *int      `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems    *int      `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	UniqueItems bool      `json:"uniqueItems,omitempty" yaml:"uniqueItems,omitempty"`

	// Object constraints.
	// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-6.5
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`

	// Enum and const.
	// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-6.1.2
	Enum  []any `json:"enum,omitempty" yaml:"enum,omitempty"`
	Const any   `json:"const,omitzero" yaml:"const,omitempty"`

	// Composition keywords.
	// See: https://json-schema.org/draft/2020-12/json-schema-core#section-10.2.1
	AllOf []*Schema `json:"allOf,omitempty" yaml:"allOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	Not   *Schema   `json:"not,omitempty" yaml:"not,omitempty"`

	kind      kind
	optional  bool
	propOrder []string
}

// String returns a string schema.
func String() *Schema {
	return &Schema{kind: kindString, Type: typeOf("string")}
}

// Number returns a number schema.
func Number() *Schema {
	return &Schema{kind: kindNumber, Type: typeOf("number")}
}

// Integer returns an integer schema.
func Integer() *Schema {
	return &Schema{kind: kindInteger, Type: typeOf("integer")}
}

// Boolean returns a boolean schema.
func Boolean() *Schema {
	return &Schema{kind: kindBoolean, Type: typeOf("boolean")}
}

// Null returns a schema that accepts only JSON null.
func Null() *Schema {
	return &Schema{kind: kindNull, Type: typeOf("null")}
}

// Undefined returns a schema that accepts no JSON value. It exists for
// client-type rendering; on the wire an absent member is modeled with
// Optional.
func Undefined() *Schema {
	return &Schema{kind: kindUndefined, Not: &Schema{}}
}

// Any returns the empty schema, which accepts every value. It renders
// as "unknown" in client types.
func Any() *Schema {
	return &Schema{kind: kindAny}
}

// Date returns a string schema constrained to RFC 3339 date-time. It
// renders as "Date" in client types.
func Date() *Schema {
	return &Schema{kind: kindDate, Type: typeOf("string"), Format: "date-time"}
}

// Literal returns a const schema matching exactly the given value.
// Supported values are strings, numbers, and booleans.
func Literal(value any) *Schema {
	return &Schema{kind: kindLiteral, Const: value}
}

// Enum returns a string schema restricted to the given values.
func Enum(values ...string) *Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &Schema{kind: kindEnum, Type: typeOf("string"), Enum: enum}
}

// Array returns an array schema with the given element schema.
func Array(elem *Schema) *Schema {
	return &Schema{kind: kindArray, Type: typeOf("array"), Items: elem}
}

// Tuple returns a fixed-length array schema with positional member schemas.
func Tuple(members ...*Schema) *Schema {
	n := len(members)
	return &Schema{
		kind:        kindTuple,
		Type:        typeOf("array"),
		PrefixItems: members,
		MinItems:    &n,
		MaxItems:    &n,
		Items:       &Schema{Not: &Schema{}},
	}
}

// Object returns an object schema. The props map may be nil; properties
// added through Prop keep their insertion order for rendering, while a
// non-nil map is added in sorted key order.
func Object(props map[string]*Schema) *Schema {
	s := &Schema{kind: kindObject, Type: typeOf("object")}
	if len(props) > 0 {
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.Prop(k, props[k])
		}
	}
	return s
}

// Record returns an object schema whose values all match the given schema.
func Record(value *Schema) *Schema {
	return &Schema{kind: kindRecord, Type: typeOf("object"), AdditionalProperties: value}
}

// Union returns a schema matching any of the member schemas.
func Union(members ...*Schema) *Schema {
	return &Schema{kind: kindUnion, AnyOf: members}
}

// Optional marks a schema optional. Inside an object the property is
// left out of the required list; standalone it renders with
// "| undefined". The receiver is not modified.
func Optional(s *Schema) *Schema {
	c := *s
	c.optional = true
	return &c
}

// Nullable widens a schema to also accept JSON null. The receiver is
// not modified.
func Nullable(s *Schema) *Schema {
	if s.kind == kindUnion {
		members := append(append([]*Schema{}, s.AnyOf...), Null())
		u := Union(members...)
		u.optional = s.optional
		return u
	}
	if s.Type.IsEmpty() {
		// Literals and bare composites have no type keyword to widen.
		u := Union(cloneValue(s), Null())
		u.optional = s.optional
		return u
	}
	c := *s
	for _, t := range c.Type.Values() {
		if t == "null" {
			return &c
		}
	}
	c.Type = typeOf(append(append([]string{}, c.Type.Values()...), "null")...)
	return &c
}

func cloneValue(s *Schema) *Schema {
	c := *s
	return &c
}

// Prop adds a named property. Properties are required unless their
// schema was wrapped with Optional. Adding a name twice replaces the
// earlier schema. Returns the receiver for chaining.
func (s *Schema) Prop(name string, prop *Schema) *Schema {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	if _, exists := s.Properties[name]; !exists {
		s.propOrder = append(s.propOrder, name)
	} else {
		for i, r := range s.Required {
			if r == name {
				s.Required = append(s.Required[:i], s.Required[i+1:]...)
				break
			}
		}
	}
	s.Properties[name] = prop
	if !prop.optional {
		s.Required = append(s.Required, name)
	}
	return s
}

// MinLen sets the minimum string length.
func (s *Schema) MinLen(n int) *Schema {
	s.MinLength = &n
	return s
}

// MaxLen sets the maximum string length.
func (s *Schema) MaxLen(n int) *Schema {
	s.MaxLength = &n
	return s
}

// Regex sets the pattern constraint.
func (s *Schema) Regex(pattern string) *Schema {
	s.Pattern = pattern
	return s
}

// WithFormat sets a named format such as "email", "uuid", or "uri".
// Formats are asserted during validation.
//
// See: https://json-schema.org/draft/2020-12/json-schema-validation#section-7.3
func (s *Schema) WithFormat(format string) *Schema {
	s.Format = format
	return s
}

// Min sets the inclusive numeric minimum.
func (s *Schema) Min(n float64) *Schema {
	s.Minimum = &n
	return s
}

// Max sets the inclusive numeric maximum.
func (s *Schema) Max(n float64) *Schema {
	s.Maximum = &n
	return s
}

// WithMinItems sets the minimum array length.
func (s *Schema) WithMinItems(n int) *Schema {
	s.MinItems = &n
	return s
}

// WithMaxItems sets the maximum array length.
func (s *Schema) WithMaxItems(n int) *Schema {
	s.MaxItems = &n
	return s
}

// Describe sets the description annotation.
func (s *Schema) Describe(text string) *Schema {
	s.Description = text
	return s
}

// Titled sets the title annotation.
func (s *Schema) Titled(title string) *Schema {
	s.Title = title
	return s
}

// WithDefault sets the default annotation.
func (s *Schema) WithDefault(v any) *Schema {
	s.Default = v
	return s
}

// WithExample sets the example annotation.
func (s *Schema) WithExample(v any) *Schema {
	s.Example = v
	return s
}

// IsOptional reports whether the schema was wrapped with Optional.
func (s *Schema) IsOptional() bool {
	return s.optional
}

// PropNames returns property names in declaration order.
func (s *Schema) PropNames() []string {
	return s.propOrder
}

// OpenAPI returns the schema as an OpenAPI v3.1.0 schema object. OpenAPI
// 3.1 embeds JSON Schema Draft 2020-12, so the document is the schema
// itself; the method exists to keep callers validator-agnostic.
func (s *Schema) OpenAPI() *Schema {
	return s
}

// ComponentRef returns a schema referencing a named component schema,
// for use in generated OpenAPI documents.
func ComponentRef(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}
