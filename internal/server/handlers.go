package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/minhvu-dev/enricher/internal/core/domain"
	"github.com/minhvu-dev/enricher/internal/enrichment/dispatch"
	"github.com/minhvu-dev/enricher/internal/enrichment/progress"
)

// EnrichRequest is the POST /api/enrich payload.
type EnrichRequest struct {
	FileID            string           `json:"fileId,omitempty"`
	SourceLanguage    string           `json:"sourceLanguage"`
	TargetLanguage    string           `json:"targetLanguage,omitempty"`
	EnableAnnotations bool             `json:"enableAnnotations,omitempty"`
	EnableFurigana    bool             `json:"enableFurigana,omitempty"`
	Segments          []domain.Segment `json:"segments"`
}

// EnrichResponse carries one output per input segment.
type EnrichResponse struct {
	FileID   string                    `json:"fileId"`
	Segments []domain.ProcessedSegment `json:"segments"`
}

// Handlers holds the request handlers' dependencies.
type Handlers struct {
	dispatcher *dispatch.Dispatcher
	tracker    *progress.Tracker
	log        *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(d *dispatch.Dispatcher, tracker *progress.Tracker, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{dispatcher: d, tracker: tracker, log: log}
}

func (h *Handlers) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	if req.Segments == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "segments is required")
		return
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = "ja"
	}
	if req.FileID == "" {
		req.FileID = uuid.New().String()
	}

	steps := []progress.StepDef{
		{ID: progress.StepPreparing, Label: "Preparing segments", Estimate: progress.DefaultSteps()[0].Estimate},
		{ID: progress.StepPostprocess, Label: "Enriching segments", Estimate: progress.DefaultSteps()[3].Estimate},
	}
	h.tracker.StartFile(req.FileID, steps)
	h.tracker.Advance(req.FileID)

	opts := domain.EnrichOptions{
		TargetLanguage:    req.TargetLanguage,
		EnableAnnotations: req.EnableAnnotations,
		EnableFurigana:    req.EnableFurigana,
	}

	results, err := h.dispatcher.ProcessSegments(r.Context(), req.FileID, req.Segments, req.SourceLanguage, opts)
	if err != nil {
		// Only programmer-error inputs reach here; per-segment failures
		// are contained as fallback entries.
		h.tracker.Fail(req.FileID, err)
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	h.tracker.Complete(req.FileID)
	h.log.Info("file enriched", "fileID", req.FileID, "segments", len(results))

	writeJSON(w, http.StatusOK, EnrichResponse{FileID: req.FileID, Segments: results})
}

func (h *Handlers) handleProgress(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileID")
	snap, ok := h.tracker.Get(fileID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no progress tracked for file")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) handleProgressCleanup(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileID")
	h.tracker.Unsubscribe(fileID)
	h.tracker.Remove(fileID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
