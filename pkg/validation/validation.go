// Package validation provides the typed extraction functions providers use
// to pull values out of an argument map. Every function is pure and returns
// a human-readable message distinguishing an absent key from a wrongly
// typed one; optional variants tolerate absence and report it through their
// boolean result instead. None of them substitute defaults: a handler that
// wants a fallback applies it after the optional form reports absence.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
)

// ExtractString returns the named argument as a string.
func ExtractString(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", notProvided(name)
	}

	s, ok := raw.(string)
	if !ok {
		return "", mustBe(name, "a string")
	}

	return s, nil
}

// ExtractOptionalString returns the named argument as a string when present.
// Absence is reported through the boolean, not as an error.
func ExtractOptionalString(args map[string]any, name string) (string, bool, error) {
	raw, ok := args[name]
	if !ok {
		return "", false, nil
	}

	s, ok := raw.(string)
	if !ok {
		return "", false, mustBe(name, "a string")
	}

	return s, true, nil
}

// ExtractInt returns the named argument as an int64. JSON-decoded numbers
// arrive as float64, so whole-valued floats are accepted; fractional values
// are not.
func ExtractInt(args map[string]any, name string) (int64, error) {
	raw, ok := args[name]
	if !ok {
		return 0, notProvided(name)
	}

	n, ok := asInt(raw)
	if !ok {
		return 0, mustBe(name, "an integer")
	}

	return n, nil
}

// ExtractOptionalInt returns the named argument as an int64 when present.
func ExtractOptionalInt(args map[string]any, name string) (int64, bool, error) {
	raw, ok := args[name]
	if !ok {
		return 0, false, nil
	}

	n, ok := asInt(raw)
	if !ok {
		return 0, false, mustBe(name, "an integer")
	}

	return n, true, nil
}

// ExtractFloat returns the named argument as a float64, accepting both
// integral and fractional numeric forms.
func ExtractFloat(args map[string]any, name string) (float64, error) {
	raw, ok := args[name]
	if !ok {
		return 0, notProvided(name)
	}

	f, ok := asFloat(raw)
	if !ok {
		return 0, mustBe(name, "a number")
	}

	return f, nil
}

// ExtractOptionalFloat returns the named argument as a float64 when present.
func ExtractOptionalFloat(args map[string]any, name string) (float64, bool, error) {
	raw, ok := args[name]
	if !ok {
		return 0, false, nil
	}

	f, ok := asFloat(raw)
	if !ok {
		return 0, false, mustBe(name, "a number")
	}

	return f, true, nil
}

// ExtractBool returns the named argument as a bool.
func ExtractBool(args map[string]any, name string) (bool, error) {
	raw, ok := args[name]
	if !ok {
		return false, notProvided(name)
	}

	b, ok := raw.(bool)
	if !ok {
		return false, mustBe(name, "a boolean")
	}

	return b, nil
}

// ExtractOptionalBool returns the named argument as a bool when present.
func ExtractOptionalBool(args map[string]any, name string) (bool, bool, error) {
	raw, ok := args[name]
	if !ok {
		return false, false, nil
	}

	b, ok := raw.(bool)
	if !ok {
		return false, false, mustBe(name, "a boolean")
	}

	return b, true, nil
}

// ExtractValue returns the named argument verbatim, whatever its type.
// Only absence fails.
func ExtractValue(args map[string]any, name string) (any, error) {
	raw, ok := args[name]
	if !ok {
		return nil, notProvided(name)
	}

	return raw, nil
}

// RequireParams checks that every listed name is a key in the argument map,
// regardless of value type. The first missing name is reported.
func RequireParams(args map[string]any, names ...string) error {
	for _, name := range names {
		if _, ok := args[name]; !ok {
			return notProvided(name)
		}
	}

	return nil
}

func notProvided(name string) error {
	return fmt.Errorf("Required parameter '%s' not provided", name)
}

func mustBe(name, kind string) error {
	return fmt.Errorf("Parameter '%s' must be %s", name, kind)
}

func asInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}

		return int64(v), true
	case float32:
		return wholeFloat(float64(v))
	case float64:
		return wholeFloat(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}

func wholeFloat(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}

	return int64(f), true
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}
