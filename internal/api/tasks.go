package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/job"
)

const defaultTaskLimit = 20

// TaskResponse is the polling view of a job.
type TaskResponse struct {
	Success    bool       `json:"success"`
	TaskID     string     `json:"task_id"`
	Task       string     `json:"task"`
	Status     job.Status `json:"status"`
	Message    string     `json:"message"`
	Retries    int        `json:"retries"`
	MaxRetries int        `json:"max_retries"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func taskResponse(j *job.Job) TaskResponse {
	resp := TaskResponse{
		Success:    true,
		TaskID:     j.ID,
		Task:       j.Task,
		Status:     j.Status,
		Retries:    j.Retries,
		MaxRetries: j.MaxRetries,
	}
	switch j.Status {
	case job.StatusPending:
		resp.Message = "Task submitted, waiting to run"
	case job.StatusRunning:
		resp.Message = "Task is running"
	case job.StatusSuccess:
		resp.Message = "Task completed successfully"
		resp.Result = j.Result
	case job.StatusFailure:
		resp.Success = false
		reason := j.Error
		if reason == "" {
			reason = "unknown error"
		}
		resp.Message = "Task failed: " + reason
		resp.Error = j.Error
	case job.StatusRevoked:
		resp.Success = false
		resp.Message = "Task was revoked"
	case job.StatusRetrying:
		resp.Message = fmt.Sprintf("Task is retrying (retry %d of %d)", j.Retries, j.MaxRetries)
		resp.Error = j.Error
	default:
		resp.Message = fmt.Sprintf("Task is in state %s", j.Status)
	}
	return resp
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	j, err := h.exec.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse(j))
}

func (h *Handlers) RevokeTask(w http.ResponseWriter, r *http.Request) {
	j, err := h.exec.Revoke(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse(j))
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultTaskLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit == 0 {
		limit = defaultTaskLimit
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" && !job.Status(status).Valid() {
		writeError(w, common.InvalidArgumentf("unknown task status %q", status))
		return
	}

	jobs, total, err := h.exec.Store().List(limit, offset, status)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{
		"tasks":  jobs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
