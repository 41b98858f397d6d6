// schema.go - Builders for tool parameter schemas.
// Pure data: every helper returns a JSON Schema fragment as map[string]any.
package schema

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Object returns a top-level parameter schema. Required keys keep the order given.
func Object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// String describes a string property. An empty description is omitted.
func String(description string) map[string]any {
	return typed("string", description)
}

// Number describes a numeric property.
func Number(description string) map[string]any {
	return typed("number", description)
}

// Boolean describes a boolean property.
func Boolean(description string) map[string]any {
	return typed("boolean", description)
}

// Enum describes a string property restricted to values.
func Enum(description string, values ...string) map[string]any {
	s := typed("string", description)
	s["enum"] = values
	return s
}

// Array describes an array whose elements match items.
func Array(description string, items map[string]any) map[string]any {
	s := typed("array", description)
	s["items"] = items
	return s
}

// StringArray is shorthand for an array of plain strings.
func StringArray(description string) map[string]any {
	return Array(description, String(""))
}

// Nested describes an object-valued property. props may be nil for free-form objects.
func Nested(description string, props map[string]any) map[string]any {
	s := typed("object", description)
	if props != nil {
		s["properties"] = props
	}
	return s
}

// MapOf describes an object whose values all match value, e.g. symbol -> weight.
func MapOf(description string, value map[string]any) map[string]any {
	s := typed("object", description)
	s["additionalProperties"] = value
	return s
}

func typed(kind, description string) map[string]any {
	s := map[string]any{"type": kind}
	if description != "" {
		s["description"] = description
	}
	return s
}

// CheckEnum returns an error naming field when value is not one of allowed.
func CheckEnum(field, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return errors.Errorf("invalid %s %q: must be one of %s", field, value, strings.Join(allowed, ", "))
}
