// Package export flattens a filled form into a new PDF. Every page holding at least one
// filled field is rasterized, placed full-page, and has its field values drawn on top.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/jun787/CVA-cupping-forms/internal/assets"
	"github.com/jun787/CVA-cupping-forms/internal/filled"
	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/jun787/CVA-cupping-forms/internal/pdfdoc"
	"github.com/jun787/CVA-cupping-forms/internal/raster"
	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/jun787/CVA-cupping-forms/internal/sourcepdf"
)

// Producer is written into the output's document information
const Producer = "cvaforms"

// Assets probes and loads the source PDF and font
type Assets interface {
	Check(ctx context.Context, paths ...string) assets.CheckResult
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Document is an opened source PDF
type Document interface {
	PageCount() int
	PageSize(page int) (width, height float64, err error)
	Rasterize(ctx context.Context, page int, scale float64) (*raster.Image, error)
}

// Opener parses source PDF bytes
type Opener interface {
	Open(data []byte) (Document, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(data []byte) (Document, error)

// Open calls f(data)
func (f OpenerFunc) Open(data []byte) (Document, error) {
	return f(data)
}

// Canvas is the output document under construction. Text coordinates are PDF space.
type Canvas interface {
	EmbedFont(data []byte) error
	AddImagePage(png []byte, widthPt, heightPt float64) error
	DrawText(text string, x, y, size float64) error
	WidthOfTextAtSize(text string, size float64) float64
	// Err reports a failure swallowed by WidthOfTextAtSize
	Err() error
	Bytes() ([]byte, error)
}

// CanvasFactory creates a fresh output document titled title
type CanvasFactory func(title string) Canvas

// Request carries everything one export reads. Nothing else is consulted.
type Request struct {
	Fields   []schema.FieldDef
	Values   schema.Values
	PDFPath  string
	FontPath string
	// Title goes into the output's document information
	Title string
	// SessionID is only used for logging
	SessionID string
}

// Exporter runs the export pipeline. It holds no per-export state and may be shared.
type Exporter struct {
	logger    *logger.Logger
	assets    Assets
	opener    Opener
	newCanvas CanvasFactory
	scale     float64
}

// Config holds configuration for the exporter
type Config struct {
	Logger *logger.Logger
	Assets Assets
	// Opener defaults to sourcepdf.Open rendering through Renderer
	Opener   Opener
	Renderer *raster.Renderer
	// NewCanvas defaults to a gopdf canvas
	NewCanvas CanvasFactory
	// Scale is the raster scale; 0 means raster.DefaultScale
	Scale float64
}

// New creates an exporter
func New(cfg *Config) (*Exporter, error) {
	if cfg == nil || cfg.Assets == nil {
		return nil, fmt.Errorf("assets cannot be nil")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	if cfg.Scale < 0 {
		return nil, fmt.Errorf("scale must be positive, got %v", cfg.Scale)
	}
	scale := cfg.Scale
	if scale == 0 {
		scale = raster.DefaultScale
	}

	opener := cfg.Opener
	if opener == nil {
		renderer := cfg.Renderer
		if renderer == nil {
			renderer = raster.New(&raster.Config{Logger: log})
		}
		opener = OpenerFunc(func(data []byte) (Document, error) {
			doc, err := sourcepdf.Open(data, &sourcepdf.Config{Logger: log, Renderer: renderer})
			if err != nil {
				return nil, err
			}
			return doc, nil
		})
	}

	newCanvas := cfg.NewCanvas
	if newCanvas == nil {
		newCanvas = func(title string) Canvas {
			return pdfdoc.New(&pdfdoc.Config{Logger: log, Title: title, Creator: Producer, Producer: Producer})
		}
	}

	return &Exporter{
		logger:    log,
		assets:    cfg.Assets,
		opener:    opener,
		newCanvas: newCanvas,
		scale:     scale,
	}, nil
}

// Export builds the flattened PDF. A zero-length, non-nil result means no field was
// filled and there is nothing to export; it is not an error. On failure no bytes are returned.
func (e *Exporter) Export(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()
	log := e.logger.WithOperation("export")
	if req.SessionID != "" {
		log = log.WithSession(req.SessionID)
	}

	log.WithFields("pdf", req.PDFPath, "font", req.FontPath).Debug("Checking assets")
	check := e.assets.Check(ctx, req.PDFPath, req.FontPath)
	if !check.OK {
		return nil, &Error{
			Kind:    MissingAsset,
			Stage:   StageCheckingAssets,
			Missing: check.Missing,
			Err:     fmt.Errorf("%d asset(s) unreachable", len(check.Missing)),
		}
	}

	pages := filled.Pages(req.Fields, req.Values)
	if len(pages) == 0 {
		log.Info("No filled pages, nothing to export")
		return []byte{}, nil
	}
	log.WithFields("pages", pages).Debug("Detected filled pages")

	doc, canvas, err := e.open(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		if err := e.renderPage(ctx, log, doc, canvas, req, page); err != nil {
			return nil, err
		}
	}

	data, err := canvas.Bytes()
	if err != nil {
		return nil, &Error{Kind: SerializationFailure, Stage: StageSerializing, Err: err}
	}
	if len(data) == 0 {
		return nil, &Error{Kind: SerializationFailure, Stage: StageSerializing, Err: fmt.Errorf("document serialized to zero bytes")}
	}

	log.WithFields("pages", len(pages), "bytes", len(data), "duration", time.Since(start)).Info("Export complete")
	return data, nil
}

// open loads the source PDF and prepares an output document with the font embedded
func (e *Exporter) open(ctx context.Context, req Request) (Document, Canvas, error) {
	pdfData, err := e.assets.Fetch(ctx, req.PDFPath)
	if err != nil {
		return nil, nil, &Error{Kind: MissingAsset, Stage: StageOpening, Path: req.PDFPath, Err: err}
	}
	doc, err := e.opener.Open(pdfData)
	if err != nil {
		return nil, nil, &Error{Kind: DocumentOpenFailure, Stage: StageOpening, Path: req.PDFPath, Err: err}
	}

	canvas := e.newCanvas(req.Title)

	fontData, err := e.assets.Fetch(ctx, req.FontPath)
	if err != nil {
		return nil, nil, &Error{Kind: MissingAsset, Stage: StageOpening, Path: req.FontPath, Err: err}
	}
	if err := canvas.EmbedFont(fontData); err != nil {
		return nil, nil, &Error{Kind: FontEmbedFailure, Stage: StageOpening, Path: req.FontPath, Err: err}
	}

	return doc, canvas, nil
}

func (e *Exporter) renderPage(ctx context.Context, log *logger.Logger, doc Document, canvas Canvas, req Request, page int) error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: RasterizationFailure, Stage: StagePerPage, Page: page, Err: err}
	}
	log = log.WithPage(page)

	width, height, err := doc.PageSize(page)
	if err != nil {
		return &Error{Kind: RasterizationFailure, Stage: StagePerPage, Page: page, Err: err}
	}

	img, err := doc.Rasterize(ctx, page, e.scale)
	if err != nil {
		return &Error{Kind: RasterizationFailure, Stage: StagePerPage, Page: page, Err: err}
	}
	if err := canvas.AddImagePage(img.PNG, width, height); err != nil {
		return &Error{Kind: RasterizationFailure, Stage: StagePerPage, Page: page, Err: err}
	}
	log.WithFields("width_pt", width, "height_pt", height, "width_px", img.Width, "height_px", img.Height).
		Debug("Placed page image")

	d := drawer{canvas: canvas, values: req.Values, pageWidth: width, pageHeight: height, logger: log}
	for _, f := range req.Fields {
		if f.Page != page {
			continue
		}
		drawErr, err := schema.Dispatch[error](f, d)
		if err != nil {
			log.WithFields("field", f.ID, "type", f.Type).Warn("Skipping field of unknown type")
			continue
		}
		if drawErr != nil {
			return &Error{Kind: OverlayFailure, Stage: StagePerPage, Page: page, Field: f.ID, Err: drawErr}
		}
	}
	return nil
}
