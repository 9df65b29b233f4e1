package schema

import (
	"strconv"
	"strings"
)

// TypeString renders a best-effort TypeScript form of the schema for
// client code generation. The indent argument is the prefix already in
// effect at the call site; nested object lines extend it by two spaces.
// Constructs without a TypeScript equivalent render as "unknown".
// TypeString never panics.
func (s *Schema) TypeString(indent string) string {
	if s == nil {
		return "unknown"
	}

	base := s.typeString(indent)
	if s.optional {
		base += " | undefined"
	}
	return base
}

func (s *Schema) typeString(indent string) string {
	switch s.kind {
	case kindString:
		return withNull(s, "string")
	case kindNumber, kindInteger:
		return withNull(s, "number")
	case kindBoolean:
		return withNull(s, "boolean")
	case kindNull:
		return "null"
	case kindUndefined:
		return "undefined"
	case kindAny:
		return "unknown"
	case kindDate:
		return withNull(s, "Date")
	case kindLiteral:
		return withNull(s, literalString(s.Const))
	case kindEnum:
		return withNull(s, enumString(s.Enum))
	case kindArray:
		return withNull(s, arrayString(s.Items, indent))
	case kindTuple:
		return withNull(s, tupleString(s.PrefixItems, indent))
	case kindObject:
		return withNull(s, s.objectString(indent))
	case kindRecord:
		return withNull(s, "Record<string, "+s.AdditionalProperties.TypeString(indent)+">")
	case kindUnion:
		members := make([]string, 0, len(s.AnyOf))
		for _, m := range s.AnyOf {
			members = append(members, m.TypeString(indent))
		}
		if len(members) == 0 {
			return "unknown"
		}
		return strings.Join(members, " | ")
	default:
		return "unknown"
	}
}

// withNull appends "| null" when the type keyword was widened by Nullable.
func withNull(s *Schema, base string) string {
	for _, t := range s.Type.Values() {
		if t == "null" && s.kind != kindNull {
			return base + " | null"
		}
	}
	return base
}

func literalString(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

func enumString(values []any) string {
	if len(values) == 0 {
		return "never"
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, literalString(v))
	}
	return strings.Join(parts, " | ")
}

func arrayString(elem *Schema, indent string) string {
	inner := elem.TypeString(indent)
	// Union elements need grouping so "a | b[]" does not change meaning.
	if strings.Contains(inner, " | ") {
		return "(" + inner + ")[]"
	}
	return inner + "[]"
}

func tupleString(members []*Schema, indent string) string {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		parts = append(parts, m.TypeString(indent))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (s *Schema) objectString(indent string) string {
	if len(s.propOrder) == 0 {
		return "Record<string, unknown>"
	}

	inner := indent + "  "
	var b strings.Builder
	b.WriteString("{\n")
	for _, name := range s.propOrder {
		prop := s.Properties[name]
		b.WriteString(inner)
		b.WriteString(propertyKey(name))
		if prop != nil && prop.optional {
			b.WriteString("?")
		}
		b.WriteString(": ")
		if prop == nil {
			b.WriteString("unknown")
		} else {
			// The "?" marker already encodes optionality.
			b.WriteString(prop.typeString(inner))
		}
		b.WriteString(";\n")
	}
	b.WriteString(indent)
	b.WriteString("}")
	return b.String()
}

// propertyKey quotes property names that are not valid TypeScript
// identifiers.
func propertyKey(name string) string {
	if name == "" {
		return strconv.Quote(name)
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
		case r >= '0' && r <= '9':
			if i == 0 {
				return strconv.Quote(name)
			}
		default:
			return strconv.Quote(name)
		}
	}
	return name
}
