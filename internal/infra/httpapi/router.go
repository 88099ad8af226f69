package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finance_automation/internal/app"
	"finance_automation/internal/infra/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// JobRunner is the scheduler surface exposed over HTTP.
type JobRunner interface {
	Snapshot() []scheduler.JobStatus
	RunNow(ctx context.Context, name string) (app.RunStats, error)
}

// Pinger reports store reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type runResponse struct {
	Job   string       `json:"job"`
	Stats app.RunStats `json:"stats"`
	Error string       `json:"error,omitempty"`
}

func NewRouter(jobs JobRunner, db Pinger, logger *logrus.Entry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.WithError(err).Warn("Health check failed: database unreachable")
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	r.Get("/jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jobs.Snapshot())
	})

	r.Post("/jobs/{name}/run", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		log := logger.WithFields(logrus.Fields{"job": name, "request_id": middleware.GetReqID(r.Context())})

		stats, err := jobs.RunNow(r.Context(), name)
		resp := runResponse{Job: name, Stats: stats}
		switch {
		case errors.Is(err, scheduler.ErrUnknownJob):
			http.Error(w, "unknown job", http.StatusNotFound)
			return
		case errors.Is(err, scheduler.ErrJobAlreadyRunning):
			resp.Error = err.Error()
			writeJSON(w, http.StatusConflict, resp)
			return
		case err != nil:
			log.WithError(err).Error("Manual job run failed")
			resp.Error = err.Error()
			writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
		log.WithFields(stats.Fields()).Info("Manual job run finished")
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
