package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jun787/CVA-cupping-forms/internal/assets"
	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/jun787/CVA-cupping-forms/internal/pdftest"
	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/unidoc/unipdf/v3/common/license"
)

// TestExport_RealDocument runs the whole pipeline on gopdf, pdfcpu and unipdf.
// It needs a TrueType font with a check glyph and a unipdf metered key.
func TestExport_RealDocument(t *testing.T) {
	fontPath := os.Getenv("CVAFORMS_TEST_FONT")
	key := os.Getenv("UNIDOC_LICENSE_API_KEY")
	if fontPath == "" || key == "" {
		t.Skip("CVAFORMS_TEST_FONT and UNIDOC_LICENSE_API_KEY are required")
	}
	if err := license.SetMeteredKey(key); err != nil {
		t.Fatalf("SetMeteredKey() error = %v", err)
	}

	pdfPath := filepath.Join(t.TempDir(), "cva.pdf")
	if err := os.WriteFile(pdfPath, pdftest.Build(pdftest.Letter, pdftest.A4, [2]float64{400, 300}), 0644); err != nil {
		t.Fatal(err)
	}

	exp, err := New(&Config{
		Logger: logger.NewNop(),
		Assets: assets.New(&assets.Config{Logger: logger.NewNop()}),
	})
	if err != nil {
		t.Fatal(err)
	}

	fields := []schema.FieldDef{
		{ID: "p3_text_001", Page: 3, Type: schema.TypeText, Rect: schema.Rect01{X: 0.1, Y: 0.1, W: 0.5, H: 0.2}},
		{ID: "p1_checkbox_001", Page: 1, Type: schema.TypeCheckbox, Rect: schema.Rect01{X: 0.2, Y: 0.2, W: 0.03, H: 0.03}},
		{ID: "p1_slider_001", Page: 1, Type: schema.TypeSlider, ValueAnchor: &schema.Point01{X: 0.5, Y: 0.5}},
		{ID: "p2_text_001", Page: 2, Type: schema.TypeText},
	}
	values := schema.Values{
		"p3_text_001":     "Bright citrus acidity, long sweet finish",
		"p1_checkbox_001": true,
		"p1_slider_001":   8.25,
		"p2_text_001":     " ",
	}

	data, err := exp.Export(context.Background(), Request{
		Fields: fields, Values: values, PDFPath: pdfPath, FontPath: fontPath, Title: "Sample",
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		t.Fatalf("output is not a readable PDF: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		t.Fatalf("failed to count output pages: %v", err)
	}
	if ctx.PageCount != 2 {
		t.Fatalf("output has %d pages, want 2 (pages 1 and 3)", ctx.PageCount)
	}

	wantSizes := [][2]float64{pdftest.Letter, {400, 300}}
	for i, want := range wantSizes {
		_, _, inh, err := ctx.PageDict(i+1, false)
		if err != nil {
			t.Fatal(err)
		}
		if w, h := inh.MediaBox.Width(), inh.MediaBox.Height(); w != want[0] || h != want[1] {
			t.Errorf("output page %d is %vx%v, want %vx%v", i+1, w, h, want[0], want[1])
		}
	}
}
