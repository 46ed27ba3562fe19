// Package filled decides which fields carry a value worth exporting and which pages they sit on.
package filled

import (
	"sort"
	"strings"

	"github.com/jun787/CVA-cupping-forms/internal/schema"
)

// predicate holds the value map while dispatching over field types
type predicate struct {
	values schema.Values
}

func (p predicate) Text(f schema.FieldDef) bool {
	s, ok := p.values.String(f.ID)
	return ok && strings.TrimSpace(s) != ""
}

func (p predicate) Checkbox(f schema.FieldDef) bool {
	return p.values.Bool(f.ID)
}

// Slider counts any non-nil value, including 0
func (p predicate) Slider(f schema.FieldDef) bool {
	return p.values.Present(f.ID)
}

// IsFilled reports whether f has a value under its type's predicate.
// Fields of an unknown type are never filled.
func IsFilled(f schema.FieldDef, values schema.Values) bool {
	ok, err := schema.Dispatch[bool](f, predicate{values: values})
	return err == nil && ok
}

// Pages returns the ascending, de-duplicated page numbers holding at least one filled field
func Pages(fields []schema.FieldDef, values schema.Values) []int {
	seen := make(map[int]bool)
	pages := []int{}
	for _, f := range fields {
		if seen[f.Page] || !IsFilled(f, values) {
			continue
		}
		seen[f.Page] = true
		pages = append(pages, f.Page)
	}
	sort.Ints(pages)
	return pages
}

// Count returns how many fields are filled, keyed by page
func Count(fields []schema.FieldDef, values schema.Values) map[int]int {
	counts := make(map[int]int)
	for _, f := range fields {
		if IsFilled(f, values) {
			counts[f.Page]++
		}
	}
	return counts
}
