// Package api serves the operations HTTP surface: health, Prometheus
// metrics, job inspection and manual job runs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/monitoring"
	"github.com/sells-group/lead-radar/internal/scheduler"
	"github.com/sells-group/lead-radar/internal/store"
)

// Jobs lists background jobs.
type Jobs interface {
	ListJobs(ctx context.Context, filter store.JobFilter) ([]model.BackgroundJob, error)
}

// Runner executes a job on demand.
type Runner interface {
	RunNow(ctx context.Context, jobID string) (*scheduler.Outcome, error)
}

// Monitor produces a health snapshot and the alerts it would raise.
type Monitor interface {
	Collect(ctx context.Context, lookbackHours int) (*monitoring.MetricsSnapshot, error)
}

// Pinger reports backing store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind the routes. Nil members disable the
// routes that need them.
type Deps struct {
	Store         Pinger
	Jobs          Jobs
	Runner        Runner
	Monitor       Monitor
	Alerter       *monitoring.Alerter
	LookbackHours int
	AllowOrigins  []string
}

type server struct {
	deps Deps
	log  *zap.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	s := &server{deps: deps, log: zap.L().With(zap.String("component", "api"))}

	origins := deps.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.listJobs)
		r.Post("/{id}/run", s.runJob)
	})
	r.Get("/monitoring", s.snapshot)

	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.log.Warn("api: health ping failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) listJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeError(w, http.StatusNotImplemented, "jobs unavailable")
		return
	}

	q := r.URL.Query()
	filter := store.JobFilter{
		UserID:    q.Get("user_id"),
		ProductID: q.Get("product_id"),
		Status:    model.JobStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	jobs, err := s.deps.Jobs.ListJobs(r.Context(), filter)
	if err != nil {
		s.log.Error("api: list jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list jobs failed")
		return
	}
	if jobs == nil {
		jobs = []model.BackgroundJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *server) runJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, http.StatusNotImplemented, "scheduler unavailable")
		return
	}

	id := chi.URLParam(r, "id")
	out, err := s.deps.Runner.RunNow(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, scheduler.ErrJobNotRunnable), errors.Is(err, scheduler.ErrJobBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case out == nil && err != nil:
		s.log.Error("api: run job", zap.String("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}

	// A failed run still returns its outcome; the job is now in error status.
	writeJSON(w, http.StatusOK, out)
}

type monitoringResponse struct {
	Snapshot *monitoring.MetricsSnapshot `json:"snapshot"`
	Alerts   []monitoring.Alert          `json:"alerts"`
}

func (s *server) snapshot(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monitor == nil {
		writeError(w, http.StatusNotImplemented, "monitoring unavailable")
		return
	}

	snap, err := s.deps.Monitor.Collect(r.Context(), s.deps.LookbackHours)
	if err != nil {
		s.log.Error("api: collect metrics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "collect failed")
		return
	}

	resp := monitoringResponse{Snapshot: snap, Alerts: []monitoring.Alert{}}
	if s.deps.Alerter != nil {
		if alerts := s.deps.Alerter.Evaluate(snap); len(alerts) > 0 {
			resp.Alerts = alerts
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
