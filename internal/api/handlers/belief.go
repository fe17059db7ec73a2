package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/service"
)

type BeliefHandler struct {
	pipeline *service.Pipeline
	cache    *service.BeliefCache
}

func NewBeliefHandler(pipeline *service.Pipeline, cache *service.BeliefCache) *BeliefHandler {
	return &BeliefHandler{pipeline: pipeline, cache: cache}
}

type ingestBeliefRequest struct {
	Text         string   `json:"text"`
	Source       string   `json:"source,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Scope        string   `json:"scope,omitempty"`
	Key          string   `json:"key,omitempty"`
	Polarity     *int     `json:"polarity,omitempty"`
	EmotionScore *float64 `json:"emotion_score,omitempty"`
}

func (req ingestBeliefRequest) toMap() map[string]any {
	m := map[string]any{"text": req.Text}
	if req.Source != "" {
		m["source"] = req.Source
	}
	if req.Confidence != nil {
		m["confidence"] = *req.Confidence
	}
	if len(req.Tags) > 0 {
		tags := make([]any, len(req.Tags))
		for i, t := range req.Tags {
			tags[i] = t
		}
		m["tags"] = tags
	}
	if req.Scope != "" {
		m["scope"] = req.Scope
	}
	if req.Key != "" {
		m["key"] = req.Key
	}
	if req.Polarity != nil {
		m["polarity"] = *req.Polarity
	}
	if req.EmotionScore != nil {
		m["emotion_score"] = *req.EmotionScore
	}
	return m
}

// Ingest runs one statement through detection and resolution.
func (h *BeliefHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestBeliefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), req.toMap())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSimulatedContent):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrEmptyBeliefText), errors.Is(err, domain.ErrUnsupportedBelief):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to ingest belief")
		}
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *BeliefHandler) Active(w http.ResponseWriter, r *http.Request) {
	beliefs := h.cache.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"beliefs":      beliefs,
		"count":        len(beliefs),
		"sources":      h.cache.SourceCounts(),
		"last_refresh": h.cache.LastRefreshAt(),
	})
}

type scanRequest struct {
	Record bool `json:"record"`
}

// Scan compares every pair in the active pool. record=true logs new conflicts.
func (h *BeliefHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	writeJSON(w, http.StatusOK, h.pipeline.Scan(r.Context(), req.Record))
}

// Refresh forces the active pool's refresh cycle.
func (h *BeliefHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.cache.Refresh()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":        h.cache.Size(),
		"last_refresh": h.cache.LastRefreshAt(),
	})
}
