// Package coords converts between normalized page coordinates (origin top-left, y down),
// viewport pixels, and PDF point space (origin bottom-left, y up).
package coords

import (
	"errors"

	"github.com/jun787/CVA-cupping-forms/internal/schema"
)

// ErrInvalidViewport is returned when a conversion would divide by a non-positive dimension
var ErrInvalidViewport = errors.New("viewport dimensions must be positive")

// RectPx is a rectangle in viewport pixels, origin top-left
type RectPx struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// PdfRect is a rectangle in PDF points. Y is the bottom edge.
type PdfRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Top returns the y coordinate of the upper edge
func (r PdfRect) Top() float64 {
	return r.Y + r.Height
}

// PdfPoint is a point in PDF points, origin bottom-left
type PdfPoint struct {
	X float64
	Y float64
}

// Rect01ToPx scales a normalized rectangle to a viewport. No clamping.
func Rect01ToPx(r schema.Rect01, width, height float64) RectPx {
	return RectPx{
		Left:   r.X * width,
		Top:    r.Y * height,
		Width:  r.W * width,
		Height: r.H * height,
	}
}

// RectPxTo01 is the inverse of Rect01ToPx
func RectPxTo01(r RectPx, width, height float64) (schema.Rect01, error) {
	if width <= 0 || height <= 0 {
		return schema.Rect01{}, ErrInvalidViewport
	}
	return schema.Rect01{
		X: r.Left / width,
		Y: r.Top / height,
		W: r.Width / width,
		H: r.Height / height,
	}, nil
}

// Rect01ToPdf maps a normalized rectangle onto a page of the given point size,
// flipping the vertical axis so the result is anchored at its bottom-left corner.
func Rect01ToPdf(r schema.Rect01, pageWidth, pageHeight float64) PdfRect {
	return PdfRect{
		X:      r.X * pageWidth,
		Y:      pageHeight - (r.Y+r.H)*pageHeight,
		Width:  r.W * pageWidth,
		Height: r.H * pageHeight,
	}
}

// PdfToRect01 is the inverse of Rect01ToPdf
func PdfToRect01(r PdfRect, pageWidth, pageHeight float64) (schema.Rect01, error) {
	if pageWidth <= 0 || pageHeight <= 0 {
		return schema.Rect01{}, ErrInvalidViewport
	}
	return schema.Rect01{
		X: r.X / pageWidth,
		Y: (pageHeight - r.Y - r.Height) / pageHeight,
		W: r.Width / pageWidth,
		H: r.Height / pageHeight,
	}, nil
}

// Point01ToPdf maps a normalized point onto a page. A point has no extent, so only y is flipped.
func Point01ToPdf(p schema.Point01, pageWidth, pageHeight float64) PdfPoint {
	return PdfPoint{
		X: p.X * pageWidth,
		Y: pageHeight - p.Y*pageHeight,
	}
}
