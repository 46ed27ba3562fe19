// Package sourcepdf opens the questionnaire PDF that exports and previews are rendered from.
// pdfcpu supplies structure (page count, media boxes, validation) and unipdf supplies rendering.
package sourcepdf

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/jun787/CVA-cupping-forms/internal/raster"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	unipdf "github.com/unidoc/unipdf/v3/model"
)

// Size is a page's width and height in points
type Size struct {
	Width  float64
	Height float64
}

// Document is an opened source PDF. It is safe for concurrent use.
type Document struct {
	logger   *logger.Logger
	renderer *raster.Renderer
	sizes    []Size

	// unipdf readers are not safe for concurrent page access
	mu     sync.Mutex
	reader *unipdf.PdfReader
}

// Config holds configuration for opening a document
type Config struct {
	Logger   *logger.Logger
	Renderer *raster.Renderer
	// Validate runs pdfcpu's relaxed validation before accepting the file
	Validate bool
}

// Open parses data as a PDF
func Open(data []byte, cfg *Config) (*Document, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = raster.New(&raster.Config{Logger: log})
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("PDF data is empty")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if cfg.Validate {
		if err := api.Validate(bytes.NewReader(data), conf); err != nil {
			return nil, fmt.Errorf("PDF validation failed: %w", err)
		}
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	// ReadContext leaves PageCount at zero until the page tree is walked
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	sizes := make([]Size, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		_, _, inherited, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, fmt.Errorf("failed to get page %d dictionary: %w", i, err)
		}
		if inherited == nil || inherited.MediaBox == nil {
			return nil, fmt.Errorf("page %d has no media box", i)
		}
		sizes[i-1] = Size{Width: inherited.MediaBox.Width(), Height: inherited.MediaBox.Height()}
	}

	reader, err := unipdf.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	log.WithFields("page_count", len(sizes), "bytes", len(data)).Debug("Opened source PDF")

	return &Document{
		logger:   log,
		renderer: renderer,
		sizes:    sizes,
		reader:   reader,
	}, nil
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.sizes)
}

// PageSize returns the media box size of a 1-based page in points
func (d *Document) PageSize(page int) (float64, float64, error) {
	if page < 1 || page > len(d.sizes) {
		return 0, 0, fmt.Errorf("invalid page number %d (PDF has %d pages)", page, len(d.sizes))
	}
	s := d.sizes[page-1]
	return s.Width, s.Height, nil
}

// Sizes returns every page size in page order
func (d *Document) Sizes() []Size {
	out := make([]Size, len(d.sizes))
	copy(out, d.sizes)
	return out
}

// Rasterize renders a 1-based page at scale
func (d *Document) Rasterize(ctx context.Context, page int, scale float64) (*raster.Image, error) {
	if page < 1 || page > len(d.sizes) {
		return nil, fmt.Errorf("invalid page number %d (PDF has %d pages)", page, len(d.sizes))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.reader.GetPage(page)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", page, err)
	}

	d.logger.WithPage(page).WithFields("scale", scale).Debug("Rasterizing source page")
	return d.renderer.RenderPage(ctx, p, scale)
}
