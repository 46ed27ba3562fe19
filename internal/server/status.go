package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/jun787/CVA-cupping-forms/internal/export"
)

// ExportSummary describes the most recent export
type ExportSummary struct {
	// SessionID is the exported session
	SessionID string `json:"session_id"`

	// At is when the export finished
	At time.Time `json:"at"`

	// Duration is how long the export took
	Duration time.Duration `json:"duration"`

	// Bytes is the output size, 0 when nothing was filled
	Bytes int `json:"bytes"`

	// Error is set when the export failed
	Error string `json:"error,omitempty"`

	// Kind classifies the failure
	Kind string `json:"kind,omitempty"`
}

// Status is served at /status
type Status struct {
	// InFlight is the number of exports currently running
	InFlight int `json:"in_flight"`

	// Exports counts finished exports, including empty ones
	Exports int `json:"exports"`

	// Empty counts exports that had nothing filled
	Empty int `json:"empty"`

	// Failures counts failed exports
	Failures int `json:"failures"`

	// LastExport is the most recent finished export
	LastExport *ExportSummary `json:"last_export,omitempty"`

	// UptimeSeconds is how long the server has been running
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// StatusTracker tracks export activity in a thread-safe manner
type StatusTracker struct {
	mu        sync.RWMutex
	startTime time.Time
	inFlight  int
	exports   int
	empty     int
	failures  int
	last      *ExportSummary
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{startTime: time.Now()}
}

// GetStatus returns the current status
func (st *StatusTracker) GetStatus() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var last *ExportSummary
	if st.last != nil {
		l := *st.last
		last = &l
	}

	return Status{
		InFlight:      st.inFlight,
		Exports:       st.exports,
		Empty:         st.empty,
		Failures:      st.failures,
		LastExport:    last,
		UptimeSeconds: int64(time.Since(st.startTime).Seconds()),
	}
}

// ExportStarted records the start of an export
func (st *StatusTracker) ExportStarted() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.inFlight++
}

// ExportFinished records the outcome of an export started with ExportStarted
func (st *StatusTracker) ExportFinished(sessionID string, size int, err error, duration time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.inFlight > 0 {
		st.inFlight--
	}
	st.exports++

	summary := &ExportSummary{
		SessionID: sessionID,
		At:        time.Now(),
		Duration:  duration,
		Bytes:     size,
	}
	switch {
	case err != nil:
		st.failures++
		summary.Error = err.Error()
		summary.Kind = export.KindOf(err).String()
	case size == 0:
		st.empty++
	}
	st.last = summary
}

// handleStatus serves the current status as JSON
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.status.GetStatus())
}
