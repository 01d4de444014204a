// Package handler exposes the indexer control plane over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
)

// Tracker is satisfied by *indexer.Tracker.
type Tracker interface {
	Start(kind string, fn indexer.RunFunc) error
	Status() indexer.Status
}

type Handler struct {
	tracker Tracker
	jobs    map[string]indexer.RunFunc
	logger  *slog.Logger
}

// New serves runs for the kinds present in jobs; a missing kind answers
// 503.
func New(tracker Tracker, jobs map[string]indexer.RunFunc) *Handler {
	return &Handler{
		tracker: tracker,
		jobs:    jobs,
		logger:  slog.Default().With("component", "indexer-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/index", h.start(events.KindTFIDF))
	mux.HandleFunc("POST /api/v1/index/vectors", h.start(events.KindVectors))
	mux.HandleFunc("GET /api/v1/index/status", h.Status)
}

func (h *Handler) start(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := h.jobs[kind]
		if !ok {
			h.writeError(w, http.StatusServiceUnavailable, kind+" indexing is disabled")
			return
		}
		if err := h.tracker.Start(kind, job); err != nil {
			status := apperrors.HTTPStatusCode(err)
			msg := "failed to start indexing"
			if m, ok := apperrors.Message(err); ok && status < http.StatusInternalServerError {
				msg = m
			}
			h.writeError(w, status, msg)
			return
		}
		h.logger.Info("indexing run started", "kind", kind)
		h.writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "started",
			"kind":    kind,
			"message": kind + " indexing started in background",
		})
	}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.tracker.Status())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
