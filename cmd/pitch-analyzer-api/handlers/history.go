package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListAnalyses handles GET /analyses.
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			failure(w, r, h.logger, "list_analyses", domain.ValidationError("limit must be a positive integer", err))
			return
		}
		limit = min(n, maxListLimit)
	}

	summaries, err := h.service.ListAnalyses(r.Context(), limit)
	if err != nil {
		failure(w, r, h.logger, "list_analyses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": summaries,
		"count":    len(summaries),
	})
}

// GetAnalysis handles GET /analyses/{id}.
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		failure(w, r, h.logger, "get_analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetMarkdown handles GET /analyses/{id}/markdown.
func (h *AnalysisHandler) GetMarkdown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.service.GetAnalysis(r.Context(), id)
	if err != nil {
		failure(w, r, h.logger, "get_markdown", err)
		return
	}
	if rec.Markdown == "" {
		failure(w, r, h.logger, "get_markdown", domain.NotFoundError("analysis has no markdown: "+id, nil))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rec.Markdown))
}
