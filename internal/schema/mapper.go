package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// NextFieldID returns p{page}_{type}_{NNN}, one past the highest sequence
// already used by fields of the same page and type.
func NextFieldID(fields []FieldDef, page int, t FieldType) string {
	highest := 0
	for _, f := range fields {
		if f.Page != page || f.Type != t {
			continue
		}
		if n := idSequence(f.ID); n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("p%d_%s_%03d", page, t, highest+1)
}

// idSequence extracts the trailing number of an ID; malformed IDs count as 0
func idSequence(id string) int {
	i := strings.LastIndex(id, "_")
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// GridSpec describes a checkbox grid stamped out from one template field
type GridSpec struct {
	BaseID   string
	Rows     int
	Cols     int
	SpacingX float64
	SpacingY float64
}

// ExpandGrid clones the checkbox BaseID into a Rows x Cols grid. The base itself
// occupies cell (0,0) and is not duplicated; the new fields are returned in row-major order.
func ExpandGrid(fields []FieldDef, spec GridSpec) ([]FieldDef, error) {
	var base *FieldDef
	for i := range fields {
		if fields[i].ID == spec.BaseID {
			base = &fields[i]
			break
		}
	}
	if base == nil {
		return nil, fmt.Errorf("grid base field %q not found", spec.BaseID)
	}
	if base.Type != TypeCheckbox {
		return nil, fmt.Errorf("grid base field %q is a %s, grids are checkbox-only", spec.BaseID, base.Type)
	}
	if spec.Rows < 1 || spec.Cols < 1 {
		return nil, fmt.Errorf("grid must be at least 1x1, got %dx%d", spec.Rows, spec.Cols)
	}

	// IDs must account for fields created earlier in this same call
	all := append([]FieldDef(nil), fields...)
	var created []FieldDef
	for r := 0; r < spec.Rows; r++ {
		for c := 0; c < spec.Cols; c++ {
			if r == 0 && c == 0 {
				continue
			}
			f := *base
			f.ID = NextFieldID(all, base.Page, TypeCheckbox)
			f.Rect.X = base.Rect.X + float64(c)*spec.SpacingX
			f.Rect.Y = base.Rect.Y + float64(r)*spec.SpacingY
			all = append(all, f)
			created = append(created, f)
		}
	}
	return created, nil
}
