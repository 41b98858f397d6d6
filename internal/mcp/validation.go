// validation.go - Parameter checks against a tool's parameter schema.
package mcp

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// UnknownParams checks incoming JSON keys against the schema's known property
// names. Returns one warning per unknown key, sorted for stable logs.
func UnknownParams(data json.RawMessage, schema map[string]any) []string {
	if len(data) == 0 {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}

	var warnings []string
	for k := range raw {
		if _, known := props[k]; !known {
			warnings = append(warnings, fmt.Sprintf("unknown parameter '%s' (ignored)", k))
		}
	}
	sort.Strings(warnings)
	return warnings
}

// MissingRequired returns the schema's required keys that are absent or null in data.
func MissingRequired(data json.RawMessage, schema map[string]any) []string {
	required := requiredKeys(schema)
	if len(required) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if len(data) > 0 {
		// A non-object params value leaves raw empty so every key reports missing.
		_ = json.Unmarshal(data, &raw)
	}

	var missing []string
	for _, key := range required {
		v, ok := raw[key]
		if !ok || isNull(v) {
			missing = append(missing, key)
		}
	}
	return missing
}

// DecodeParams unmarshals params into v with an error message fit for the
// data member of an Internal error.
func DecodeParams(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return errors.Errorf("invalid parameter %q: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return errors.Wrap(err, "invalid params")
	}
	return nil
}

func requiredKeys(schema map[string]any) []string {
	switch v := schema["required"].(type) {
	case []string:
		return v
	case []any:
		keys := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				keys = append(keys, s)
			}
		}
		return keys
	default:
		return nil
	}
}
