package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/jun787/CVA-cupping-forms/internal/raster"
)

// DefaultView is the render view used when a preview request names none
const DefaultView = "main"

// maxPreviewScale rejects absurd zoom requests before they reach the pixel budget
const maxPreviewScale = 10

// previewer renders source pages. A new request for a view supersedes the one in flight.
type previewer struct {
	load   PageSourceLoader
	scale  float64
	epochs *raster.Epochs

	mu  sync.Mutex
	src PageSource
}

func newPreviewer(load PageSourceLoader, scale float64) *previewer {
	return &previewer{load: load, scale: scale, epochs: raster.NewEpochs()}
}

// source opens the page source once. A failed load is retried on the next request.
func (p *previewer) source(ctx context.Context) (PageSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src != nil {
		return p.src, nil
	}
	src, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	p.src = src
	return src, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	p := s.preview
	if p.load == nil {
		respondError(w, http.StatusServiceUnavailable, "previews are not configured", "")
		return
	}

	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid page number", "")
		return
	}

	scale := p.scale
	if raw := r.URL.Query().Get("scale"); raw != "" {
		scale, err = strconv.ParseFloat(raw, 64)
		if err != nil || scale <= 0 || scale > maxPreviewScale {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("scale must be in (0, %d]", maxPreviewScale), "")
			return
		}
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		view = DefaultView
	}

	src, err := p.source(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to open source PDF for preview")
		respondError(w, http.StatusServiceUnavailable, err.Error(), "")
		return
	}
	if page < 1 || page > src.PageCount() {
		respondError(w, http.StatusNotFound, fmt.Sprintf("page %d not found (PDF has %d pages)", page, src.PageCount()), "")
		return
	}

	img, err := raster.Run(r.Context(), p.epochs, view, func(ctx context.Context) (*raster.Image, error) {
		return src.Rasterize(ctx, page, scale)
	})
	if raster.IsSuperseded(err) {
		s.logger.WithPage(page).WithFields("view", view).Debug("Preview superseded")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.logger.WithPage(page).WithError(err).Error("Preview render failed")
		respondError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
	w.Header().Set("X-Render-Width", strconv.Itoa(img.Width))
	w.Header().Set("X-Render-Height", strconv.Itoa(img.Height))
	w.Header().Set("X-Render-Scale", strconv.FormatFloat(img.Scale, 'f', -1, 64))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.PNG)
}
