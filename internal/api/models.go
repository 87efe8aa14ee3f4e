package api

import (
	"net/http"

	"github.com/evdata/evdata/internal/analytics"
	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/report"
)

func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.engine.ModelList(r.URL.Query().Get("brand"))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(models) == 0 {
		writeError(w, common.NotFoundf("no models found"))
		return
	}
	ok(w, models)
}

// GetModel returns the first matching record's vehicle fields.
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	brand, model, err := brandModel(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := h.engine.FindModel(brand, model)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(recs) == 0 {
		writeError(w, common.NotFoundf("no data for model %s %s", brand, model))
		return
	}
	rec := recs[0]
	ok(w, map[string]any{
		"brand":            rec.Make,
		"model":            rec.Model,
		"model_year":       rec.ModelYear,
		"ev_type":          rec.EVType,
		"electric_range":   rec.ElectricRange,
		"base_msrp":        rec.BaseMSRP,
		"cafv_eligibility": rec.CAFVEligibility,
	})
}

func (h *Handlers) ModelSummary(w http.ResponseWriter, r *http.Request) {
	brand, model, err := brandModel(r)
	if err != nil {
		writeError(w, err)
		return
	}
	all, err := h.engine.AllRecords()
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := analytics.ModelSummary(brand, model, all)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, summary)
}

// SubmitReport checks that the model exists and queues the report task.
func (h *Handlers) SubmitReport(w http.ResponseWriter, r *http.Request) {
	brand, model, err := brandModel(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := h.engine.FindModel(brand, model)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(recs) == 0 {
		writeError(w, common.NotFoundf("no data for model %s %s, cannot generate report", brand, model))
		return
	}

	id, err := h.exec.Submit(report.TaskName, brand, model)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"task_id": id,
		"status":  "pending",
		"message": "Detailed report task submitted",
	})
}

func brandModel(r *http.Request) (string, string, error) {
	brand, err := required(r, "brand")
	if err != nil {
		return "", "", err
	}
	model, err := required(r, "model")
	if err != nil {
		return "", "", err
	}
	return brand, model, nil
}
