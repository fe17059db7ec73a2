package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ContradictionHandler struct {
	monitor   *service.Monitor
	applier   *service.Applier
	advisor   *service.Advisor
	graphPath string
	logger    *zap.Logger
}

func NewContradictionHandler(monitor *service.Monitor, applier *service.Applier, advisor *service.Advisor, graphPath string, logger *zap.Logger) *ContradictionHandler {
	return &ContradictionHandler{
		monitor:   monitor,
		applier:   applier,
		advisor:   advisor,
		graphPath: graphPath,
		logger:    logger,
	}
}

// List returns logged conflicts. status=pending restricts to the backlog.
func (h *ContradictionHandler) List(w http.ResponseWriter, r *http.Request) {
	var conflicts []domain.Conflict
	switch r.URL.Query().Get("status") {
	case "", "all":
		conflicts = h.monitor.LoadAll(r.Context())
	case string(domain.ResolutionPending):
		conflicts = h.monitor.LoadPending(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "status must be one of: all, pending")
		return
	}
	if conflicts == nil {
		conflicts = []domain.Conflict{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": conflicts, "count": len(conflicts)})
}

func (h *ContradictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.monitor.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ContradictionHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	clusters := h.monitor.ClusterByTheme(r.Context(), h.monitor.LoadAll(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters, "themes": len(clusters)})
}

func (h *ContradictionHandler) Priority(w http.ResponseWriter, r *http.Request) {
	topN, ok := intQuery(r, "top_n", 5)
	if !ok {
		writeError(w, http.StatusBadRequest, "top_n must be a non-negative integer")
		return
	}
	ranked := h.monitor.PrioritizeByEmotion(r.Context(), h.monitor.LoadPending(r.Context()), topN)
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": ranked, "count": len(ranked)})
}

func (h *ContradictionHandler) Narrative(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(r, "limit", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	q := r.URL.Query()
	chain := h.monitor.NarrateChain(r.Context(), q.Get("key"), q.Get("theme"), limit)
	writeJSON(w, http.StatusOK, map[string]any{"narrative": chain})
}

type resolveRequest struct {
	Method string `json:"method"`
}

// Resolve records an external resolution outcome and propagates it.
func (h *ContradictionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Method = strings.TrimSpace(req.Method)
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "method is required")
		return
	}

	c, err := h.monitor.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.LogOutcome(r.Context(), c, req.Method))
}

// Apply executes the proposed resolution of a logged conflict.
func (h *ContradictionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	c, err := h.monitor.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	applied := h.applier.Apply(r.Context(), c)
	if err := h.monitor.Record(r.Context(), &applied); err != nil {
		h.logger.Warn("failed to record applied resolution", zap.String("id", applied.Identity()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record resolution")
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

type retestRequest struct {
	AgeDays  int     `json:"age_days,omitempty"`
	AgeHours float64 `json:"age_hours,omitempty"`
}

// Retest re-evaluates the backlog. With an age it only retests conflicts the
// scheduler selects.
func (h *ContradictionHandler) Retest(w http.ResponseWriter, r *http.Request) {
	var req retestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.AgeDays < 0 || req.AgeHours < 0 {
		writeError(w, http.StatusBadRequest, "age must be non-negative")
		return
	}

	var (
		retested []domain.Conflict
		outcome  *service.BatchOutcome
	)
	if req.AgeDays == 0 && req.AgeHours == 0 {
		retested, outcome = h.monitor.RetestUnresolved(r.Context())
	} else {
		pending := h.monitor.LoadPending(r.Context())
		scheduled := h.monitor.ScheduleRetest(r.Context(), pending, service.RetestThreshold(req.AgeDays, req.AgeHours))
		retested, outcome = h.monitor.RetestConflicts(r.Context(), scheduled)
	}
	if retested == nil {
		retested = []domain.Conflict{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": retested, "outcome": outcome})
}

func (h *ContradictionHandler) Safety(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.SafetyCheck(r.Context(), service.DefaultSafetyLimits()))
}

// Graph returns the conflict graph. export=true also writes it to disk.
func (h *ContradictionHandler) Graph(w http.ResponseWriter, r *http.Request) {
	conflicts := h.monitor.LoadAll(r.Context())
	if r.URL.Query().Get("export") != "true" {
		writeJSON(w, http.StatusOK, service.BuildGraph(conflicts))
		return
	}
	g, err := h.monitor.ExportGraph(r.Context(), conflicts, h.graphPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export graph")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type suggestRequest struct {
	Belief1 any `json:"belief_1"`
	Belief2 any `json:"belief_2"`
}

// Suggest proposes a resolution for two arbitrary belief representations.
func (h *ContradictionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.advisor.SuggestAny(req.Belief1, req.Belief2))
}

func (h *ContradictionHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrConflictNotFound) {
		writeError(w, http.StatusNotFound, "contradiction not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "failed to load contradiction")
}
