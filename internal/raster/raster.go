// Package raster renders source PDF pages to PNG bitmaps whose pixel size is the page's
// point size times a scale factor.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/unidoc/unipdf/v3/common"
	unipdf "github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"
	"golang.org/x/image/draw"
)

// DefaultScale is the export render scale. Anything near 2x keeps small print legible.
const DefaultScale = 2.2

// Pixel budgets. Interactive previews run on a tighter cap than export.
const (
	DefaultMaxPixels = 40_000_000
	PreviewMaxPixels = 16_000_000
)

func init() {
	common.SetLogger(common.NewConsoleLogger(common.LogLevelError))
}

// Image is one rendered page
type Image struct {
	PNG    []byte
	Width  int
	Height int
	// Scale is the factor actually used, lower than requested when the pixel budget applied
	Scale float64
}

// Renderer turns unipdf pages into PNG images
type Renderer struct {
	logger    *logger.Logger
	maxPixels int
}

// Config holds configuration for the renderer
type Config struct {
	Logger *logger.Logger
	// MaxPixels caps width*height of one render; 0 means DefaultMaxPixels
	MaxPixels int
}

// New creates a renderer
func New(cfg *Config) *Renderer {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Renderer{logger: log, maxPixels: maxPixels}
}

// MaxPixels returns the pixel budget this renderer enforces
func (r *Renderer) MaxPixels() int {
	return r.maxPixels
}

// PixelSize returns the bitmap size of a page at scale, rounding up so no content is clipped
func PixelSize(widthPt, heightPt, scale float64) (int, int) {
	return ceil(widthPt * scale), ceil(heightPt * scale)
}

// ceil ignores float noise so 200*2.2 gives 440, not 441
func ceil(v float64) int {
	return int(math.Ceil(v - 1e-9))
}

// EffectiveScale lowers scale until the bitmap fits within maxPixels.
// A non-positive maxPixels disables the cap.
func EffectiveScale(widthPt, heightPt, scale float64, maxPixels int) float64 {
	if maxPixels <= 0 || widthPt <= 0 || heightPt <= 0 {
		return scale
	}
	w, h := PixelSize(widthPt, heightPt, scale)
	if w*h <= maxPixels {
		return scale
	}

	s := math.Sqrt(float64(maxPixels) / (widthPt * heightPt))
	// ceil can push the product just over the cap
	for s > 0 {
		w, h = PixelSize(widthPt, heightPt, s)
		if w*h <= maxPixels {
			break
		}
		s *= 0.999
	}
	return s
}

// RenderPage draws page at scale. Rendering is not interruptible, so ctx is checked
// before starting and again before encoding.
func (r *Renderer) RenderPage(ctx context.Context, page *unipdf.PdfPage, scale float64) (*Image, error) {
	if page == nil {
		return nil, fmt.Errorf("page cannot be nil")
	}
	if scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %v", scale)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mediaBox, err := page.GetMediaBox()
	if err != nil {
		return nil, fmt.Errorf("failed to get media box: %w", err)
	}
	widthPt := mediaBox.Urx - mediaBox.Llx
	heightPt := mediaBox.Ury - mediaBox.Lly
	if widthPt <= 0 || heightPt <= 0 {
		return nil, fmt.Errorf("page has an empty media box (%vx%v)", widthPt, heightPt)
	}

	used := EffectiveScale(widthPt, heightPt, scale, r.maxPixels)
	if used != scale {
		r.logger.WithFields("requested_scale", scale, "scale", used, "max_pixels", r.maxPixels).
			Debug("Lowered render scale to fit pixel budget")
	}
	width, height := PixelSize(widthPt, heightPt, used)

	device := render.NewImageDevice()
	device.OutputWidth = width

	img, err := device.Render(page)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := EncodePNG(fitTo(img, width, height))
	if err != nil {
		return nil, err
	}

	r.logger.WithFields("width", width, "height", height, "bytes", len(data)).Debug("Rendered page")
	return &Image{PNG: data, Width: width, Height: height, Scale: used}, nil
}

// fitTo resamples img when the renderer's own rounding disagrees with the requested size,
// so identical input always yields identical dimensions.
func fitTo(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodePNG encodes img losslessly
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
