package pdfdoc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{B: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testFont(t *testing.T) []byte {
	t.Helper()
	path := os.Getenv("CVAFORMS_TEST_FONT")
	if path == "" {
		t.Skip("CVAFORMS_TEST_FONT not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read test font: %v", err)
	}
	return data
}

func readBack(t *testing.T, data []byte) *model.Context {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		t.Fatalf("output is not a readable PDF: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		t.Fatalf("failed to count output pages: %v", err)
	}
	return ctx
}

func TestCanvas_ImagePagesKeepTheirSizes(t *testing.T) {
	c := New(&Config{Logger: logger.NewNop(), Title: "Sample", Creator: "cvaforms", Producer: "cvaforms"})

	sizes := [][2]float64{{612, 792}, {300, 200}}
	for _, s := range sizes {
		if err := c.AddImagePage(testPNG(t, int(s[0]), int(s[1])), s[0], s[1]); err != nil {
			t.Fatalf("AddImagePage() error = %v", err)
		}
	}
	if c.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want 2", c.PageCount())
	}

	data, err := c.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	ctx := readBack(t, data)
	if ctx.PageCount != 2 {
		t.Fatalf("output has %d pages, want 2", ctx.PageCount)
	}
	for i, s := range sizes {
		_, _, inh, err := ctx.PageDict(i+1, false)
		if err != nil {
			t.Fatal(err)
		}
		if w, h := inh.MediaBox.Width(), inh.MediaBox.Height(); w != s[0] || h != s[1] {
			t.Errorf("page %d is %vx%v, want %vx%v", i+1, w, h, s[0], s[1])
		}
	}
}

func TestCanvas_Errors(t *testing.T) {
	c := New(&Config{Logger: logger.NewNop()})

	if _, err := c.Bytes(); err == nil {
		t.Error("Bytes() on an empty document should fail")
	}
	if err := c.DrawText("x", 1, 1, 10); err == nil {
		t.Error("DrawText() without a page should fail")
	}
	if err := c.AddImagePage([]byte("not a png"), 100, 100); err == nil {
		t.Error("AddImagePage() should reject non-image data")
	}
	if err := c.AddImagePage(testPNG(t, 2, 2), 0, 100); err == nil {
		t.Error("AddImagePage() should reject a zero width")
	}
	if err := c.EmbedFont(nil); err == nil {
		t.Error("EmbedFont(nil) should fail")
	}
	if err := c.EmbedFont([]byte("definitely not a font")); err == nil {
		t.Error("EmbedFont() should reject garbage")
	}

	if err := c.AddImagePage(testPNG(t, 2, 2), 100, 100); err != nil {
		t.Fatal(err)
	}
	if err := c.DrawText("x", 1, 1, 10); err == nil {
		t.Error("DrawText() without a font should fail")
	}
}

func TestCanvas_WidthWithoutFontIsSticky(t *testing.T) {
	c := New(&Config{Logger: logger.NewNop()})
	if w := c.WidthOfTextAtSize("abc", 10); w != 0 {
		t.Errorf("WidthOfTextAtSize() = %v, want 0", w)
	}
	if c.Err() == nil {
		t.Error("Err() should report the failed measurement")
	}
}

func TestCanvas_TextWithFont(t *testing.T) {
	font := testFont(t)

	c := New(&Config{Logger: logger.NewNop()})
	if err := c.EmbedFont(font); err != nil {
		t.Fatalf("EmbedFont() error = %v", err)
	}

	w10 := c.WidthOfTextAtSize("Hello", 10)
	w20 := c.WidthOfTextAtSize("Hello", 20)
	if w10 <= 0 || w20 <= w10 {
		t.Errorf("widths at 10/20pt = %v/%v, want positive and growing with size", w10, w20)
	}
	if c.Err() != nil {
		t.Fatalf("Err() = %v", c.Err())
	}

	if err := c.AddImagePage(testPNG(t, 60, 80), 600, 800); err != nil {
		t.Fatal(err)
	}
	if err := c.DrawText("Hello", 10, 720, 10); err != nil {
		t.Fatalf("DrawText() error = %v", err)
	}

	data, err := c.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if readBack(t, data).PageCount != 1 {
		t.Error("expected one page")
	}
}
