package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Harshitk-cp/axiom/internal/domain"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const dashboardSource = "contradiction_dashboard"

type MetricsSummary struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	ByTheme       map[string]int `json:"by_theme"`
	AvgConfidence float64        `json:"avg_confidence"`
	CacheSize     int            `json:"cache_size"`
	DreamBacklog  int            `json:"dream_backlog"`
	DreamDropped  int64          `json:"dream_dropped"`
}

type NagSummary struct {
	Pending      int     `json:"pending"`
	OldestUUID   string  `json:"oldest_uuid,omitempty"`
	OldestText   string  `json:"oldest,omitempty"`
	OldestAgeDay float64 `json:"oldest_age_days"`
}

type dashboardGauges struct {
	conflicts     *prometheus.GaugeVec
	avgConfidence prometheus.Gauge
	cacheSize     prometheus.Gauge
	dreamBacklog  prometheus.Gauge
	probes        prometheus.Counter
}

func newDashboardGauges(reg prometheus.Registerer) *dashboardGauges {
	factory := promauto.With(reg)
	return &dashboardGauges{
		conflicts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "axiom",
			Subsystem: "contradictions",
			Name:      "total",
			Help:      "Logged contradictions by resolution status",
		}, []string{"status"}),
		avgConfidence: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "axiom",
			Subsystem: "contradictions",
			Name:      "avg_confidence",
			Help:      "Mean confidence of logged contradictions",
		}),
		cacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "axiom",
			Subsystem: "beliefs",
			Name:      "active_cache_size",
			Help:      "Beliefs in the active comparison pool",
		}),
		dreamBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "axiom",
			Subsystem: "dreams",
			Name:      "queue_length",
			Help:      "Dream requests awaiting the simulation subsystem",
		}),
		probes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "axiom",
			Subsystem: "dreams",
			Name:      "probes_total",
			Help:      "Unresolved contradictions surfaced as dream probes",
		}),
	}
}

// Dashboard summarizes the contradiction backlog for operators.
type Dashboard struct {
	monitor *Monitor
	cache   *BeliefCache
	dreams  *DreamQueue
	gauges  *dashboardGauges
	journal journal.Sink
	logger  *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewDashboard registers its gauges with reg. cache and dreams may be nil.
func NewDashboard(monitor *Monitor, cache *BeliefCache, dreams *DreamQueue, reg prometheus.Registerer, j journal.Sink, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		monitor: monitor,
		cache:   cache,
		dreams:  dreams,
		gauges:  newDashboardGauges(reg),
		journal: journal.Safe(j, logger),
		logger:  logger,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRandSource makes dream probes reproducible.
func (d *Dashboard) SetRandSource(src rand.Source) {
	d.randMu.Lock()
	d.rand = rand.New(src)
	d.randMu.Unlock()
}

// Metrics computes the summary, updates the gauges and journals it.
func (d *Dashboard) Metrics(ctx context.Context) MetricsSummary {
	all := d.monitor.LoadAll(ctx)
	s := MetricsSummary{
		Total:    len(all),
		ByStatus: make(map[string]int),
		ByTheme:  make(map[string]int),
	}

	sum := 0.0
	for _, c := range all {
		status := string(c.Resolution)
		if status == "" {
			status = string(domain.ResolutionPending)
		}
		s.ByStatus[status]++
		s.ByTheme[d.monitor.themeOf(c)]++
		sum += c.Confidence
	}
	if len(all) > 0 {
		s.AvgConfidence = sum / float64(len(all))
	}
	if d.cache != nil {
		s.CacheSize = d.cache.Size()
	}
	if d.dreams != nil {
		s.DreamBacklog = d.dreams.Len()
		s.DreamDropped = d.dreams.Dropped()
	}

	d.gauges.conflicts.Reset()
	for status, n := range s.ByStatus {
		d.gauges.conflicts.WithLabelValues(status).Set(float64(n))
	}
	d.gauges.avgConfidence.Set(s.AvgConfidence)
	d.gauges.cacheSize.Set(float64(s.CacheSize))
	d.gauges.dreamBacklog.Set(float64(s.DreamBacklog))

	d.journal.Log(ctx, journal.New(journal.TypeMetrics, map[string]any{
		"total":          s.Total,
		"by_status":      s.ByStatus,
		"by_theme":       s.ByTheme,
		"avg_confidence": s.AvgConfidence,
		"cache_size":     s.CacheSize,
		"dream_backlog":  s.DreamBacklog,
	}), dashboardSource)
	return s
}

// Nag journals a reminder about the pending backlog and its oldest entry.
func (d *Dashboard) Nag(ctx context.Context) NagSummary {
	pending := d.monitor.LoadPending(ctx)
	n := NagSummary{Pending: len(pending)}

	var oldest *domain.Conflict
	for i := range pending {
		if oldest == nil || pending[i].ReferenceTime().Before(oldest.ReferenceTime()) {
			oldest = &pending[i]
		}
	}
	if oldest != nil {
		n.OldestUUID = oldest.Identity()
		n.OldestText = oldest.BeliefA + " / " + oldest.BeliefB
		n.OldestAgeDay = d.monitor.now().Sub(oldest.ReferenceTime()).Hours() / 24
	}

	if n.Pending > 0 {
		d.journal.Log(ctx, journal.New(journal.TypeNag, map[string]any{
			"pending":         n.Pending,
			"oldest_uuid":     n.OldestUUID,
			"oldest":          n.OldestText,
			"oldest_age_days": n.OldestAgeDay,
		}), dashboardSource)
	}
	return n
}

// DreamProbe surfaces one random unresolved conflict as a simulation prompt.
func (d *Dashboard) DreamProbe(ctx context.Context) (DreamRequest, bool) {
	pending := d.monitor.LoadPending(ctx)
	if len(pending) == 0 {
		return DreamRequest{}, false
	}

	d.randMu.Lock()
	pick := pending[d.rand.Intn(len(pending))]
	d.randMu.Unlock()

	req := DreamRequest{Kind: DreamKindProbe, Conflict: pick, Prompt: dreamPrompt(pick), QueuedAt: time.Now().UTC()}
	if d.dreams != nil {
		d.dreams.Publish(req)
	}
	d.gauges.probes.Inc()

	d.journal.Log(ctx, journal.New(journal.TypeDreamProbe, map[string]any{
		"uuid":   pick.Identity(),
		"prompt": req.Prompt,
	}), dashboardSource)
	return req, true
}
