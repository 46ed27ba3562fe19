package server

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jun787/CVA-cupping-forms/internal/export"
	"github.com/jun787/CVA-cupping-forms/internal/filled"
)

// PagesResponse is the body of GET /sessions/{id}/pages
type PagesResponse struct {
	// Pages lists filled pages in ascending order
	Pages []int `json:"pages"`
	// Counts maps a page to its number of filled fields
	Counts map[int]int `json:"counts"`
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, PagesResponse{
		Pages:  filled.Pages(s.fields.Fields, sess.Values),
		Counts: filled.Count(s.fields.Fields, sess.Values),
	})
}

// handleExport answers 200 with the PDF, or 204 when no field is filled
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// one export at a time per session, and no edits while it reads the values
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Get(id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.status.ExportStarted()
	start := time.Now()
	data, err := s.exporter.Export(r.Context(), export.Request{
		Fields:    s.fields.Fields,
		Values:    sess.Values,
		PDFPath:   s.pdfPath,
		FontPath:  s.fontPath,
		Title:     sess.Title,
		SessionID: sess.ID,
	})
	s.status.ExportFinished(sess.ID, len(data), err, time.Since(start))

	if err != nil {
		kind := export.KindOf(err)
		s.logger.WithSession(sess.ID).WithError(err).WithFields("kind", kind.String()).Error("Export failed")
		respondError(w, exportStatus(err), err.Error(), kind.String())
		return
	}
	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.FileName(sess.Title)}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// exportStatus maps a failure to an HTTP status. Unreachable assets are a dependency
// outage and a cancelled request is reported as a timeout.
func exportStatus(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case export.IsKind(err, export.MissingAsset):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
