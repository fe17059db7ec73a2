package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/axiom/internal/api/handlers"
	mw "github.com/Harshitk-cp/axiom/internal/api/middleware"
	"github.com/Harshitk-cp/axiom/internal/config"
	"github.com/Harshitk-cp/axiom/internal/journal"
	"github.com/Harshitk-cp/axiom/internal/service"
	"github.com/Harshitk-cp/axiom/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const recorderLimit = 1000

// App holds the router and the contradiction services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Registry  *prometheus.Registry
	Journal   journal.Sink
	Recorder  *journal.Recorder
	Cache     *service.BeliefCache
	Detector  *service.Detector
	Advisor   *service.Advisor
	Applier   *service.Applier
	Dreams    *service.DreamQueue
	Monitor   *service.Monitor
	Dashboard *service.Dashboard
	Pipeline  *service.Pipeline
	Worker    *service.MonitorWorker
	startTime time.Time
}

// NewApp wires the services on top of stores. cfg may be nil to use the
// process-wide contradiction config.
func NewApp(stores *store.Stores, cfg *config.ContradictionConfig, logger *zap.Logger) *App {
	if cfg == nil {
		cfg = config.Contradiction()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recorder := journal.NewRecorder(recorderLimit)
	sink := journal.Tee{journal.NewJournal(stores.Events, logger), recorder}

	// Services
	cache := service.NewBeliefCache(cfg.SeedBeliefs, time.Duration(cfg.RefreshSec)*time.Second, logger)
	advisor := service.NewAdvisor(logger)
	dreams := service.NewDreamQueue(0, logger)

	detector := service.NewDetector(cfg, sink, logger)
	detector.SetAdvisor(advisor)

	applier := service.NewApplier(sink, logger)
	applier.SetAdvisor(advisor)
	applier.SetDreamQueue(dreams)
	applier.SetBeliefStore(stores.Beliefs)

	monitor := service.NewMonitor(stores.Conflicts, stores.Beliefs, detector, cfg, sink, logger)
	dash := service.NewDashboard(monitor, cache, dreams, reg, sink, logger)
	pipeline := service.NewPipeline(cache, detector, applier, monitor, stores.Beliefs, sink, logger)

	limits := service.DefaultSafetyLimits()
	worker := service.NewMonitorWorker(monitor, service.DefaultRetestAge, limits, logger)
	worker.SetInterval(config.MonitorInterval())

	// Handlers
	beliefHandler := handlers.NewBeliefHandler(pipeline, cache)
	contradictionHandler := handlers.NewContradictionHandler(monitor, applier, advisor, config.GraphExportPath(), logger)
	dashboardHandler := handlers.NewDashboardHandler(dash, recorder)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Registry:  reg,
		Journal:   sink,
		Recorder:  recorder,
		Cache:     cache,
		Detector:  detector,
		Advisor:   advisor,
		Applier:   applier,
		Dreams:    dreams,
		Monitor:   monitor,
		Dashboard: dash,
		Pipeline:  pipeline,
		Worker:    worker,
		startTime: time.Now(),
	}

	httpMetrics := mw.NewHTTPMetrics(reg)

	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpMetrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", app.healthHandler(stores))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.BearerToken(config.APIToken()))

		r.Route("/beliefs", func(r chi.Router) {
			r.Post("/", beliefHandler.Ingest)
			r.Get("/active", beliefHandler.Active)
			r.Post("/refresh", beliefHandler.Refresh)
		})

		r.Route("/contradictions", func(r chi.Router) {
			r.Get("/", contradictionHandler.List)
			r.Get("/clusters", contradictionHandler.Clusters)
			r.Get("/priority", contradictionHandler.Priority)
			r.Get("/narrative", contradictionHandler.Narrative)
			r.Get("/safety", contradictionHandler.Safety)
			r.Get("/graph", contradictionHandler.Graph)
			r.Post("/retest", contradictionHandler.Retest)
			r.Post("/scan", beliefHandler.Scan)
			r.Post("/suggest", contradictionHandler.Suggest)
			r.Get("/{id}", contradictionHandler.Get)
			r.Post("/{id}/resolve", contradictionHandler.Resolve)
			r.Post("/{id}/apply", contradictionHandler.Apply)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", dashboardHandler.Metrics)
			r.Get("/nag", dashboardHandler.Nag)
			r.Post("/dream-probe", dashboardHandler.DreamProbe)
		})

		r.Get("/events", dashboardHandler.Events)
	})

	return app
}

func (app *App) healthHandler(stores *store.Stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":         "ok",
			"driver":         stores.Driver,
			"uptime_seconds": time.Since(app.startTime).Seconds(),
		}
		status := http.StatusOK
		if stores.Health != nil {
			if err := stores.Health.HealthCheck(r.Context()); err != nil {
				body["status"] = "error"
				body["error"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
