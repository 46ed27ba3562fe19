package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jun787/CVA-cupping-forms/internal/coords"
	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/jun787/CVA-cupping-forms/internal/textwrap"
)

// Overlay geometry, in points
const (
	CheckGlyph        = "✓"
	checkMinSize      = 9.0
	checkFill         = 0.95
	checkInset        = 1.0
	textPadding       = 2.0
	lineHeightFactor  = 1.2
	baselineRiseRatio = 0.1
)

// drawer draws one page's field values. Each method returns the drawing error, if any.
type drawer struct {
	canvas     Canvas
	values     schema.Values
	pageWidth  float64
	pageHeight float64
	logger     *logger.Logger
}

func (d drawer) Checkbox(f schema.FieldDef) error {
	if !d.values.Bool(f.ID) {
		return nil
	}
	r := coords.Rect01ToPdf(f.Rect, d.pageWidth, d.pageHeight)
	size := CheckSize(r)
	y := r.Y + math.Max(0, (r.Height-size)/2)
	return d.canvas.DrawText(CheckGlyph, r.X+checkInset, y, size)
}

func (d drawer) Slider(f schema.FieldDef) error {
	v, ok := d.values.Number(f.ID)
	if !ok {
		if d.values.Present(f.ID) {
			d.logger.WithFields("field", f.ID).Warn("Slider value is not numeric, not drawn")
		}
		return nil
	}
	if f.ValueAnchor == nil {
		d.logger.WithFields("field", f.ID).Debug("Slider has no value anchor, not drawn")
		return nil
	}
	p := coords.Point01ToPdf(*f.ValueAnchor, d.pageWidth, d.pageHeight)
	return d.canvas.DrawText(FormatNumber(v), p.X, p.Y, f.SliderFontSize())
}

func (d drawer) Text(f schema.FieldDef) error {
	s, ok := d.values.String(f.ID)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	r := coords.Rect01ToPdf(f.Rect, d.pageWidth, d.pageHeight)
	size := f.TextFontSize()

	lines := textwrap.Wrap(s, d.canvas.WidthOfTextAtSize, size, math.Max(0, r.Width-2*textPadding), f.LineLimit())
	if err := d.canvas.Err(); err != nil {
		return fmt.Errorf("failed to measure text: %w", err)
	}

	for i, y := range Baselines(r, size, len(lines)) {
		if err := d.canvas.DrawText(lines[i], r.X+textPadding, y, size); err != nil {
			return err
		}
	}
	return nil
}

// CheckSize is the check glyph size for a rect: 95% of its shorter side, at least 9pt
func CheckSize(r coords.PdfRect) float64 {
	return math.Max(checkMinSize, math.Min(r.Width, r.Height)*checkFill)
}

// Baselines returns the y of each of n lines, top to bottom, for a block centred
// vertically in r. Lines are size*1.2 apart.
func Baselines(r coords.PdfRect, size float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	lineHeight := size * lineHeightFactor
	block := float64(n) * lineHeight
	top := r.Y + math.Max(0, (r.Height-block)/2) + block

	ys := make([]float64, n)
	y := top - lineHeight + size*baselineRiseRatio
	for i := range ys {
		ys[i] = y
		y -= lineHeight
	}
	return ys
}

// FormatNumber prints v in its shortest exact decimal form: 7, 3.5, -0.25
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
