package handlers

import (
	"net/http"
	"strings"

	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/Harshitk-cp/axiom/internal/service"
)

type DashboardHandler struct {
	dash     *service.Dashboard
	recorder *journal.Recorder
}

func NewDashboardHandler(dash *service.Dashboard, recorder *journal.Recorder) *DashboardHandler {
	return &DashboardHandler{dash: dash, recorder: recorder}
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Metrics(r.Context()))
}

func (h *DashboardHandler) Nag(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Nag(r.Context()))
}

func (h *DashboardHandler) DreamProbe(w http.ResponseWriter, r *http.Request) {
	req, ok := h.dash.DreamProbe(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no unresolved contradictions")
		return
	}
	writeJSON(w, http.StatusAccepted, req)
}

// Events lists recently journaled events, newest last.
func (h *DashboardHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(r, "limit", 100)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	var events []journal.Event
	if t := strings.TrimSpace(r.URL.Query().Get("type")); t != "" {
		events = h.recorder.OfType(t)
	} else {
		events = h.recorder.Events()
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	if events == nil {
		events = []journal.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
