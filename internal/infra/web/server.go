package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"rss-digest/internal/domain"
	"rss-digest/internal/domain/model"
	"rss-digest/internal/domain/ports/repository"
)

// BranchRunner triggers a single workflow branch on demand.
type BranchRunner interface {
	RunBranch(ctx context.Context, workflow model.Workflow) error
}

type Server struct {
	runner     BranchRunner
	watermarks repository.WatermarkRepository
	auth       *AuthManager
	runTimeout time.Duration
	log        zerolog.Logger
}

func NewServer(runner BranchRunner, watermarks repository.WatermarkRepository, auth *AuthManager, runTimeout time.Duration, log zerolog.Logger) *Server {
	return &Server{
		runner:     runner,
		watermarks: watermarks,
		auth:       auth,
		runTimeout: runTimeout,
		log:        log.With().Str("component", "ops-server").Logger(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/api/v1/watermarks", s.handleWatermarks)
		r.Post("/api/v1/run/{workflow}", s.handleRun)
	})
	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWatermarks(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Workflow string `json:"workflow"`
		LastRun  string `json:"last_run,omitempty"`
	}
	out := make([]entry, 0, 2)
	for _, wf := range []model.Workflow{model.WorkflowEmail, model.WorkflowPodcast} {
		e := entry{Workflow: string(wf)}
		ts, err := s.watermarks.Get(r.Context(), wf)
		switch {
		case err == nil:
			e.LastRun = ts.UTC().Format(time.RFC3339)
		case errors.Is(err, domain.ErrNotFound):
			// never run yet
		default:
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		out = append(out, e)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// handleRun kicks off a branch in the background and replies immediately;
// a full run can take an hour and no client should hold the connection
// that long.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	workflow := model.Workflow(chi.URLParam(r, "workflow"))
	if !workflow.Valid() {
		http.Error(w, "Unknown workflow", http.StatusBadRequest)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()
		if err := s.runner.RunBranch(ctx, workflow); err != nil {
			s.log.Error().Err(err).Str("workflow", string(workflow)).Msg("manual run failed")
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "workflow": string(workflow)})
}
