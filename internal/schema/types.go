package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldType is the closed set of field kinds
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeCheckbox FieldType = "checkbox"
	TypeSlider   FieldType = "slider"
)

// Types lists every field kind in display order
var Types = []FieldType{TypeText, TypeCheckbox, TypeSlider}

// Valid reports whether t is one of the three known kinds
func (t FieldType) Valid() bool {
	switch t {
	case TypeText, TypeCheckbox, TypeSlider:
		return true
	}
	return false
}

// ParseFieldType converts a user-supplied name into a FieldType
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown field type %q (want text, checkbox or slider)", s)
	}
	return t, nil
}

// Handler is implemented by every consumer whose behaviour depends on the field type.
// Adding a kind means adding a method here, which breaks each implementation until it handles it.
type Handler[T any] interface {
	Text(f FieldDef) T
	Checkbox(f FieldDef) T
	Slider(f FieldDef) T
}

// Dispatch calls the Handler method matching f.Type
func Dispatch[T any](f FieldDef, h Handler[T]) (T, error) {
	switch f.Type {
	case TypeText:
		return h.Text(f), nil
	case TypeCheckbox:
		return h.Checkbox(f), nil
	case TypeSlider:
		return h.Slider(f), nil
	}
	var zero T
	return zero, fmt.Errorf("field %s: unknown type %q", f.ID, f.Type)
}

// Values maps field IDs to string, bool, number or nil. A missing key means unfilled.
type Values map[string]any

// Clone returns a shallow copy safe to mutate
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Bool reports whether the value under id is exactly true
func (v Values) Bool(id string) bool {
	b, ok := v[id].(bool)
	return ok && b
}

// String returns the value under id when it is a string
func (v Values) String(id string) (string, bool) {
	s, ok := v[id].(string)
	return s, ok
}

// Number returns the value under id when it is numeric
func (v Values) Number(id string) (float64, bool) {
	return AsNumber(v[id])
}

// Present reports whether id has a non-nil value
func (v Values) Present(id string) bool {
	val, ok := v[id]
	return ok && val != nil
}

// AsNumber accepts the numeric shapes a value can arrive in after JSON, YAML or Go callers
func AsNumber(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ParseValue interprets a command-line value: true/false, null, a number, or else a string.
// A leading '=' forces string, so "=12" stores the text "12".
func ParseValue(raw string) any {
	if strings.HasPrefix(raw, "=") {
		return raw[1:]
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}
