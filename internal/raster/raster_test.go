package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/jun787/CVA-cupping-forms/internal/logger"
)

func TestNew(t *testing.T) {
	r := New(&Config{Logger: logger.NewNop()})
	if r.MaxPixels() != DefaultMaxPixels {
		t.Errorf("MaxPixels() = %d, want %d", r.MaxPixels(), DefaultMaxPixels)
	}
	if r := New(&Config{Logger: logger.NewNop(), MaxPixels: 100}); r.MaxPixels() != 100 {
		t.Errorf("MaxPixels() = %d, want 100", r.MaxPixels())
	}
	if New(nil) == nil {
		t.Error("New(nil) should fall back to defaults")
	}
}

func TestPixelSize(t *testing.T) {
	tests := []struct {
		w, h, scale   float64
		wantW, wantH int
	}{
		{612, 792, 1, 612, 792},
		{612, 792, 2.2, 1347, 1743}, // 1346.4 and 1742.4 round up
		{595.28, 841.89, 2, 1191, 1684},
		{100, 50, 0.5, 50, 25},
	}

	for _, tt := range tests {
		w, h := PixelSize(tt.w, tt.h, tt.scale)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("PixelSize(%v, %v, %v) = %dx%d, want %dx%d", tt.w, tt.h, tt.scale, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestPixelSize_ProportionalToPoints(t *testing.T) {
	w1, h1 := PixelSize(300, 400, 2)
	w2, h2 := PixelSize(300, 400, 2)
	if w1 != w2 || h1 != h2 {
		t.Fatal("identical input must give identical dimensions")
	}
	if w1 != 600 || h1 != 800 {
		t.Errorf("got %dx%d, want 600x800", w1, h1)
	}
}

func TestEffectiveScale(t *testing.T) {
	if got := EffectiveScale(612, 792, 2.2, DefaultMaxPixels); got != 2.2 {
		t.Errorf("letter page at 2.2 fits the export budget, got scale %v", got)
	}
	if got := EffectiveScale(612, 792, 2.2, 0); got != 2.2 {
		t.Errorf("zero budget disables the cap, got %v", got)
	}

	// A0 at 2.2 is roughly 33 million pixels
	got := EffectiveScale(2384, 3370, 2.2, PreviewMaxPixels)
	if got >= 2.2 {
		t.Fatalf("expected a lower scale, got %v", got)
	}
	w, h := PixelSize(2384, 3370, got)
	if w*h > PreviewMaxPixels {
		t.Errorf("capped render is %dx%d = %d pixels, over %d", w, h, w*h, PreviewMaxPixels)
	}
	if w*h < PreviewMaxPixels*98/100 {
		t.Errorf("capped render %d pixels is much smaller than needed", w*h)
	}
}

func TestFitTo(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 9))
	if got := fitTo(src, 10, 9); got != image.Image(src) {
		t.Error("fitTo() should return the input when sizes already match")
	}

	got := fitTo(src, 10, 10)
	if b := got.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("fitTo() bounds = %v, want 10x10", b)
	}
}

func TestEncodePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 4 || decoded.Bounds().Dy() != 3 {
		t.Errorf("decoded bounds = %v", decoded.Bounds())
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r != 0xffff {
		t.Error("PNG must be lossless")
	}
}

func TestRenderPage_Preconditions(t *testing.T) {
	r := New(&Config{Logger: logger.NewNop()})
	if _, err := r.RenderPage(context.Background(), nil, 2); err == nil {
		t.Error("expected error for nil page")
	}
}

func TestEpochs_NewerRequestSupersedes(t *testing.T) {
	e := NewEpochs()

	ctx1, first := e.Begin(context.Background(), "page-1")
	ctx2, second := e.Begin(context.Background(), "page-1")

	if ctx1.Err() == nil {
		t.Error("starting a newer render should cancel the older one")
	}
	if ctx2.Err() != nil {
		t.Error("the newest render must stay live")
	}
	if e.Current(first) || !e.Current(second) {
		t.Error("only the newest ticket is current")
	}

	if err := e.Finish(first); !errors.Is(err, ErrSuperseded) {
		t.Errorf("Finish(stale) = %v, want ErrSuperseded", err)
	}
	if err := e.Finish(second); err != nil {
		t.Errorf("Finish(current) = %v", err)
	}
	if ctx2.Err() == nil {
		t.Error("Finish should release the context")
	}
}

func TestEpochs_ViewsAreIndependent(t *testing.T) {
	e := NewEpochs()
	ctxA, a := e.Begin(context.Background(), "a")
	_, b := e.Begin(context.Background(), "b")

	if ctxA.Err() != nil || !e.Current(a) || !e.Current(b) {
		t.Error("requests for different views must not supersede each other")
	}
	if e.Current(Ticket{View: "unknown", Token: 1}) {
		t.Error("unknown views are never current")
	}
}

func TestRun_DiscardsStaleResult(t *testing.T) {
	e := NewEpochs()
	started := make(chan struct{})
	release := make(chan struct{})

	var (
		wg       sync.WaitGroup
		staleErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = Run(context.Background(), e, "view", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()

	<-started
	got, err := Run(context.Background(), e, "view", func(ctx context.Context) (string, error) {
		return "new", nil
	})
	close(release)
	wg.Wait()

	if err != nil || got != "new" {
		t.Errorf("newest Run() = %q, %v", got, err)
	}
	if !IsSuperseded(staleErr) {
		t.Errorf("stale Run() error = %v, want ErrSuperseded", staleErr)
	}
}

func TestRun_PropagatesFailure(t *testing.T) {
	boom := errors.New("surface unavailable")
	_, err := Run(context.Background(), NewEpochs(), "v", func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if IsSuperseded(err) {
		t.Error("a genuine failure is not a supersede")
	}
}

func TestEpochs_FinishedViewsAreForgotten(t *testing.T) {
	e := NewEpochs()
	for i := 0; i < 100; i++ {
		_, tk := e.Begin(context.Background(), fmt.Sprintf("view-%d", i))
		if err := e.Finish(tk); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
	}
	if len(e.views) != 0 {
		t.Errorf("%d views still tracked after every request finished", len(e.views))
	}
}

func TestEpochs_StaleTicketAfterViewIsForgotten(t *testing.T) {
	e := NewEpochs()

	_, stale := e.Begin(context.Background(), "page-1")
	_, newer := e.Begin(context.Background(), "page-1")
	if err := e.Finish(newer); err != nil {
		t.Fatalf("Finish(newer) error = %v", err)
	}

	// the view starts over, and its first ticket must not match the stale one
	_, fresh := e.Begin(context.Background(), "page-1")
	if e.Current(stale) {
		t.Error("a stale ticket became current again")
	}
	if err := e.Finish(stale); !errors.Is(err, ErrSuperseded) {
		t.Errorf("Finish(stale) = %v, want ErrSuperseded", err)
	}
	if !e.Current(fresh) {
		t.Error("the fresh ticket must stay current")
	}
}
