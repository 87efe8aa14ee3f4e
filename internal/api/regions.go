package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evdata/evdata/internal/analytics"
	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/query"
)

const (
	defaultVehicleLimit = 50
	maxVehicleLimit     = 1000
)

func (h *Handlers) States(w http.ResponseWriter, r *http.Request) {
	states, err := h.engine.States()
	if err != nil {
		writeError(w, err)
		return
	}
	if len(states) == 0 {
		writeError(w, common.NotFoundf("no states found"))
		return
	}
	ok(w, states)
}

func (h *Handlers) Cities(w http.ResponseWriter, r *http.Request) {
	state, err := required(r, "state")
	if err != nil {
		writeError(w, err)
		return
	}
	cities, err := h.engine.CitiesByState(state)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(cities) == 0 {
		writeError(w, common.NotFoundf("no cities found for %s", state))
		return
	}
	ok(w, cities)
}

func (h *Handlers) Counties(w http.ResponseWriter, r *http.Request) {
	city, err := required(r, "city")
	if err != nil {
		writeError(w, err)
		return
	}
	counties, err := h.engine.CountiesByCity(city, r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(counties) == 0 {
		writeError(w, common.NotFoundf("no counties found for %s", city))
		return
	}
	ok(w, counties)
}

func (h *Handlers) RegionsByLevel(w http.ResponseWriter, r *http.Request) {
	values, err := h.engine.RegionsByLevel(chi.URLParam(r, "level"))
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, values)
}

func (h *Handlers) StateCount(w http.ResponseWriter, r *http.Request) {
	state, err := required(r, "state")
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := h.engine.StateEVCount(state)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"state": state, "ev_count": n})
}

func (h *Handlers) Region(w http.ResponseWriter, r *http.Request) {
	state, err := required(r, "state")
	if err != nil {
		writeError(w, err)
		return
	}
	city, county := r.URL.Query().Get("city"), r.URL.Query().Get("county")

	area, stateRecs, err := h.engine.Region(state, city, county)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(area) == 0 {
		writeError(w, common.NotFoundf("no data for region"))
		return
	}
	ok(w, analytics.SummarizeRegion(state, city, county, area, stateRecs))
}

func (h *Handlers) Vehicles(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultVehicleLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit == 0 || limit > maxVehicleLimit {
		limit = maxVehicleLimit
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	page, total, err := h.engine.Filter(query.Filter{
		Brand:  q.Get("brand"),
		State:  q.Get("state"),
		EVType: q.Get("ev_type"),
	}, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{
		"vehicles": page,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handlers) Dataset(w http.ResponseWriter, r *http.Request) {
	loaded, records, at := h.engine.Info()
	info := datasetInfo(loaded, records, at)
	info["file"] = h.engine.File()
	ok(w, info)
}

// ReloadDataset drops the caches and reads the file again.
func (h *Handlers) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reload(); err != nil {
		writeError(w, err)
		return
	}
	loaded, records, at := h.engine.Info()
	ok(w, datasetInfo(loaded, records, at))
}
