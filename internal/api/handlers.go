package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/config"
	"github.com/evdata/evdata/internal/job"
	"github.com/evdata/evdata/internal/logger"
	"github.com/evdata/evdata/internal/query"
)

const version = "0.1.0"

var startTime = time.Now()

type Handlers struct {
	cfg    *config.Config
	engine *query.Engine
	exec   *job.Executor
}

func NewHandlers(cfg *config.Config, engine *query.Engine, exec *job.Executor) *Handlers {
	return &Handlers{cfg: cfg, engine: engine, exec: exec}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":        h.cfg.NodeID,
		"version":        version,
		"uptime_seconds": int(time.Since(startTime).Seconds()),
		"dataset_file":   h.engine.File(),
		"result_backend": h.cfg.ResultBackend,
	})
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := job.Stats(h.exec.Store())
	if err != nil {
		writeError(w, err)
		return
	}
	loaded, records, at := h.engine.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":        h.cfg.NodeID,
		"uptime_seconds": int(time.Since(startTime).Seconds()),
		"dataset":        datasetInfo(loaded, records, at),
		"tasks":          counts,
	})
}

func datasetInfo(loaded bool, records int, at time.Time) map[string]any {
	info := map[string]any{"loaded": loaded, "records": records}
	if loaded {
		info["loaded_at"] = at
	}
	return info
}

// ok writes the success envelope.
func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps an error kind to a status code. Untyped errors are 500s.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal"
	switch k := common.KindOf(err); {
	case errors.Is(k, common.ErrNotFound), errors.Is(k, common.ErrNoData):
		status = http.StatusNotFound
		kind = k.Error()
	case errors.Is(k, common.ErrInvalidArgument):
		status = http.StatusBadRequest
		kind = k.Error()
	case k != nil:
		kind = k.Error()
	}
	if status == http.StatusInternalServerError {
		logger.Component("http").WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   kind,
		"message": err.Error(),
	})
}

// required returns the query parameter or an InvalidArgument error.
func required(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", common.InvalidArgumentf("query parameter %q is required", name)
	}
	return v, nil
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, common.InvalidArgumentf("query parameter %q must be a non-negative integer", name)
	}
	return n, nil
}
