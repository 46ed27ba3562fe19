// Package schema defines the field-layout document drawn on top of the source PDF
// and the value map a respondent session fills in.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldsFileVersion is the only schema version this package reads
const FieldsFileVersion = 1

// Fallbacks used when a field carries no explicit setting
const (
	DefaultFontSize   = 10.0
	DefaultMaxLines   = 4
	DefaultHitPadding = 10.0
)

// Rect01 is a rectangle in normalized page coordinates, origin top-left, y down
type Rect01 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Point01 is a point in normalized page coordinates, origin top-left, y down
type Point01 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// FieldDef describes one overlay field
type FieldDef struct {
	// ID has the form p{page}_{type}_{NNN} and keys the value map
	ID   string    `json:"id" yaml:"id"`
	Page int       `json:"page" yaml:"page"`
	Type FieldType `json:"type" yaml:"type"`
	Rect Rect01    `json:"rect" yaml:"rect"`

	// FontSize is the legacy size key; FontSizePt wins when both are set
	FontSize   *float64 `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	FontSizePt *float64 `json:"fontSizePt,omitempty" yaml:"fontSizePt,omitempty"`

	MaxLines   *int     `json:"maxLines,omitempty" yaml:"maxLines,omitempty"`
	HitPadding *float64 `json:"hitPadding,omitempty" yaml:"hitPadding,omitempty"`

	// ValueAnchor is where a slider value is drawn; sliders without one never render
	ValueAnchor *Point01 `json:"valueAnchor,omitempty" yaml:"valueAnchor,omitempty"`
}

// Defaults seeds new fields in the mapper. Export never reads it.
type Defaults struct {
	TextFontSize       float64 `json:"textFontSize" yaml:"textFontSize"`
	TextMaxLines       int     `json:"textMaxLines" yaml:"textMaxLines"`
	CheckboxHitPadding float64 `json:"checkboxHitPadding" yaml:"checkboxHitPadding"`
	SliderFontSize     float64 `json:"sliderFontSize" yaml:"sliderFontSize"`
}

// FieldsFile is the schema container produced by the mapper
type FieldsFile struct {
	Version  int        `json:"version" yaml:"version"`
	Defaults Defaults   `json:"defaults" yaml:"defaults"`
	Fields   []FieldDef `json:"fields" yaml:"fields"`
}

// DefaultFieldsFile returns an empty schema with the stock defaults block
func DefaultFieldsFile() *FieldsFile {
	return &FieldsFile{
		Version: FieldsFileVersion,
		Defaults: Defaults{
			TextFontSize:       DefaultFontSize,
			TextMaxLines:       DefaultMaxLines,
			CheckboxHitPadding: DefaultHitPadding,
			SliderFontSize:     DefaultFontSize,
		},
		Fields: []FieldDef{},
	}
}

// TextFontSize resolves the point size for text rendering: fontSizePt, then fontSize, then 10
func (f FieldDef) TextFontSize() float64 {
	if f.FontSizePt != nil {
		return *f.FontSizePt
	}
	if f.FontSize != nil {
		return *f.FontSize
	}
	return DefaultFontSize
}

// SliderFontSize is the size a slider value is drawn at. Sliders only ever read fontSize.
func (f FieldDef) SliderFontSize() float64 {
	if f.FontSize != nil {
		return *f.FontSize
	}
	return DefaultFontSize
}

// LineLimit returns maxLines or the default of 4
func (f FieldDef) LineLimit() int {
	if f.MaxLines != nil {
		return *f.MaxLines
	}
	return DefaultMaxLines
}

// OnPage returns the fields placed on page, in schema order
func (ff *FieldsFile) OnPage(page int) []FieldDef {
	var out []FieldDef
	for _, f := range ff.Fields {
		if f.Page == page {
			out = append(out, f)
		}
	}
	return out
}

// Lookup returns the field with the given ID
func (ff *FieldsFile) Lookup(id string) (FieldDef, bool) {
	for _, f := range ff.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Load reads a fields file. Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func Load(path string) (*FieldsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fields file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a fields file from JSON
func ParseJSON(data []byte) (*FieldsFile, error) {
	ff := DefaultFieldsFile()
	if err := json.Unmarshal(data, ff); err != nil {
		return nil, fmt.Errorf("failed to parse fields JSON: %w", err)
	}
	return checkVersion(ff)
}

// ParseYAML decodes a fields file from YAML
func ParseYAML(data []byte) (*FieldsFile, error) {
	ff := DefaultFieldsFile()
	if err := yaml.Unmarshal(data, ff); err != nil {
		return nil, fmt.Errorf("failed to parse fields YAML: %w", err)
	}
	return checkVersion(ff)
}

func checkVersion(ff *FieldsFile) (*FieldsFile, error) {
	if ff.Version != FieldsFileVersion {
		return nil, fmt.Errorf("unsupported fields file version %d (expected %d)", ff.Version, FieldsFileVersion)
	}
	if ff.Fields == nil {
		ff.Fields = []FieldDef{}
	}
	return ff, nil
}

// Save writes the fields file as indented JSON, or YAML for .yaml/.yml paths
func (ff *FieldsFile) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(ff)
	default:
		data, err = json.MarshalIndent(ff, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode fields file: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write fields file: %w", err)
	}
	return nil
}

// Validate reports structural problems a mapper could have introduced.
// Export does not call it; rendering tolerates everything Validate rejects.
func (ff *FieldsFile) Validate() []error {
	var problems []error
	seen := make(map[string]bool, len(ff.Fields))

	for i, f := range ff.Fields {
		label := f.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		if f.ID == "" {
			problems = append(problems, fmt.Errorf("field %s: empty id", label))
		} else if seen[f.ID] {
			problems = append(problems, fmt.Errorf("field %s: duplicate id", label))
		}
		seen[f.ID] = true

		if f.Page < 1 {
			problems = append(problems, fmt.Errorf("field %s: page must be >= 1, got %d", label, f.Page))
		}
		if !f.Type.Valid() {
			problems = append(problems, fmt.Errorf("field %s: unknown type %q", label, f.Type))
		}
		if !inUnit(f.Rect.X) || !inUnit(f.Rect.Y) || !inUnit(f.Rect.W) || !inUnit(f.Rect.H) ||
			f.Rect.X+f.Rect.W > 1+unitSlack || f.Rect.Y+f.Rect.H > 1+unitSlack {
			problems = append(problems, fmt.Errorf("field %s: rect %+v outside the unit square", label, f.Rect))
		}
		if f.Type == TypeSlider && f.ValueAnchor == nil {
			problems = append(problems, fmt.Errorf("field %s: slider has no valueAnchor and will never export a value", label))
		}
	}

	return problems
}

// unitSlack absorbs float noise from mapper arithmetic such as 0.7+0.3
const unitSlack = 1e-9

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
