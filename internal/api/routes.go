package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evdata/evdata/internal/config"
	"github.com/evdata/evdata/internal/job"
	"github.com/evdata/evdata/internal/metrics"
	"github.com/evdata/evdata/internal/query"
	"github.com/evdata/evdata/internal/ws"
)

func NewRouter(cfg *config.Config, engine *query.Engine, exec *job.Executor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	h := NewHandlers(cfg, engine, exec)
	wsServer := ws.NewServer(exec, cfg.WSPollInterval)

	// Health & Info
	r.Get("/health", h.Health)
	r.Get("/info", h.Info)
	r.Get("/stats", h.Stats)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/models", func(r chi.Router) {
		r.Get("/", h.GetModel)
		r.Get("/list", h.ListModels)
		r.Get("/summary", h.ModelSummary)
		r.Get("/detailed-report", h.SubmitReport)
		r.Post("/detailed-report", h.SubmitReport)
	})

	r.Route("/api/regions", func(r chi.Router) {
		r.Get("/", h.Region)
		r.Get("/states", h.States)
		r.Get("/cities", h.Cities)
		r.Get("/counties", h.Counties)
		r.Get("/count", h.StateCount)
		r.Get("/levels/{level}", h.RegionsByLevel)
	})

	r.Get("/api/vehicles", h.Vehicles)

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Get("/{id}", h.GetTask)
		r.Delete("/{id}", h.RevokeTask)
	})

	r.Get("/api/dataset", h.Dataset)
	r.Post("/api/dataset/reload", h.ReloadDataset)

	// WebSocket
	r.Get("/ws/tasks/{id}", wsServer.HandleTask)

	return r
}
