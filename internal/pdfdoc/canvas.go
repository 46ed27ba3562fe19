// Package pdfdoc assembles the exported PDF: full-page raster images with text drawn on top.
// Callers position text in PDF point space (origin bottom-left); the conversion to gopdf's
// top-left page coordinates happens here and nowhere else.
package pdfdoc

import (
	"bytes"
	"fmt"

	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/signintech/gopdf"
)

// fontFamily is the name the embedded overlay font is registered under
const fontFamily = "overlay"

// Canvas is one output document. It must not be shared between exports.
type Canvas struct {
	logger *logger.Logger
	pdf    gopdf.GoPdf

	fontLoaded bool
	pageHeight float64
	pages      int

	// err keeps the first measurement failure, since width callbacks cannot return one
	err error
}

// Config holds configuration for a new canvas
type Config struct {
	Logger *logger.Logger
	// Title, Creator and Producer populate the document information dictionary
	Title    string
	Creator  string
	Producer string
}

// New starts an empty document
func New(cfg *Config) *Canvas {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	c := &Canvas{logger: log}
	c.pdf.Start(gopdf.Config{
		Unit:     gopdf.UnitPT,
		PageSize: *gopdf.PageSizeA4,
	})
	c.pdf.SetInfo(gopdf.PdfInfo{
		Title:    cfg.Title,
		Creator:  cfg.Creator,
		Producer: cfg.Producer,
	})
	return c
}

// EmbedFont registers TrueType font data. Only glyphs that are drawn end up in the output.
func (c *Canvas) EmbedFont(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("font data is empty")
	}
	if err := c.pdf.AddTTFFontData(fontFamily, data); err != nil {
		return fmt.Errorf("failed to embed font: %w", err)
	}
	if err := c.pdf.SetFont(fontFamily, "", 10); err != nil {
		return fmt.Errorf("failed to select font: %w", err)
	}
	c.fontLoaded = true
	c.logger.WithFields("bytes", len(data)).Debug("Embedded overlay font")
	return nil
}

// AddImagePage appends a page of widthPt x heightPt covered edge to edge by the PNG
func (c *Canvas) AddImagePage(pngData []byte, widthPt, heightPt float64) error {
	if widthPt <= 0 || heightPt <= 0 {
		return fmt.Errorf("page size must be positive, got %vx%v", widthPt, heightPt)
	}

	holder, err := gopdf.ImageHolderByBytes(pngData)
	if err != nil {
		return fmt.Errorf("failed to load page image: %w", err)
	}

	size := &gopdf.Rect{W: widthPt, H: heightPt}
	c.pdf.AddPageWithOption(gopdf.PageOption{PageSize: size})
	if err := c.pdf.ImageByHolder(holder, 0, 0, size); err != nil {
		return fmt.Errorf("failed to place page image: %w", err)
	}

	c.pageHeight = heightPt
	c.pages++
	return nil
}

// DrawText draws text on the current page with its baseline starting at (x, y) in PDF space
func (c *Canvas) DrawText(text string, x, y, size float64) error {
	if c.pages == 0 {
		return fmt.Errorf("no page to draw on")
	}
	if !c.fontLoaded {
		return fmt.Errorf("no font embedded")
	}
	if err := c.pdf.SetFont(fontFamily, "", size); err != nil {
		return fmt.Errorf("failed to set font size %v: %w", size, err)
	}

	c.pdf.SetTextColor(0, 0, 0)
	c.pdf.SetXY(x, c.pageHeight-y)
	if err := c.pdf.Text(text); err != nil {
		return fmt.Errorf("failed to draw %q: %w", text, err)
	}
	return nil
}

// WidthOfTextAtSize measures text in points using the embedded font.
// Failures return 0 and are kept for Err.
func (c *Canvas) WidthOfTextAtSize(text string, size float64) float64 {
	if !c.fontLoaded {
		c.keep(fmt.Errorf("no font embedded"))
		return 0
	}
	if err := c.pdf.SetFont(fontFamily, "", size); err != nil {
		c.keep(fmt.Errorf("failed to set font size %v: %w", size, err))
		return 0
	}
	w, err := c.pdf.MeasureTextWidth(text)
	if err != nil {
		c.keep(fmt.Errorf("failed to measure %q: %w", text, err))
		return 0
	}
	return w
}

func (c *Canvas) keep(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Err returns the first measurement failure, if any
func (c *Canvas) Err() error {
	return c.err
}

// PageCount returns how many pages have been added
func (c *Canvas) PageCount() int {
	return c.pages
}

// Bytes serializes the document
func (c *Canvas) Bytes() ([]byte, error) {
	if c.pages == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	var buf bytes.Buffer
	if err := c.pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}
