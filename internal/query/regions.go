package query

import (
	"sort"
	"strings"

	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/dataset"
)

// Region levels accepted by RegionsByLevel.
const (
	LevelState  = "state"
	LevelCity   = "city"
	LevelCounty = "county"
)

// BrandModel is one make/model pair as spelled in the dataset.
type BrandModel struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
}

// Brands lists distinct makes, sorted.
func (e *Engine) Brands() ([]string, error) {
	all, err := e.Records()
	if err != nil {
		return nil, err
	}
	return distinctSorted(all, func(r *dataset.Record) *string { return r.Make }), nil
}

// ModelList returns distinct make/model pairs, optionally restricted to makes
// containing brandFilter (case-insensitive), sorted by lowercase brand then model.
func (e *Engine) ModelList(brandFilter string) ([]BrandModel, error) {
	all, err := e.Records()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(brandFilter)

	seen := make(map[BrandModel]struct{})
	out := []BrandModel{}
	for _, r := range all {
		if r.Make == nil || r.Model == nil {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(*r.Make), needle) {
			continue
		}
		bm := BrandModel{Brand: *r.Make, Model: *r.Model}
		if _, ok := seen[bm]; ok {
			continue
		}
		seen[bm] = struct{}{}
		out = append(out, bm)
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := strings.ToLower(out[i].Brand), strings.ToLower(out[j].Brand)
		if bi != bj {
			return bi < bj
		}
		mi, mj := strings.ToLower(out[i].Model), strings.ToLower(out[j].Model)
		if mi != mj {
			return mi < mj
		}
		return out[i].Brand+out[i].Model < out[j].Brand+out[j].Model
	})
	return out, nil
}

// States lists distinct states, sorted, without the unknown placeholder.
func (e *Engine) States() ([]string, error) {
	all, err := e.Records()
	if err != nil {
		return nil, err
	}
	states := distinctSorted(all, func(r *dataset.Record) *string { return &r.State })
	out := states[:0]
	for _, s := range states {
		if s != dataset.UnknownState {
			out = append(out, s)
		}
	}
	return out, nil
}

// RegionsByLevel lists distinct values for state, city or county.
func (e *Engine) RegionsByLevel(level string) ([]string, error) {
	switch strings.ToLower(level) {
	case LevelState:
		return e.States()
	case LevelCity:
		all, err := e.Records()
		if err != nil {
			return nil, err
		}
		return distinctSorted(all, func(r *dataset.Record) *string { return r.City }), nil
	case LevelCounty:
		all, err := e.Records()
		if err != nil {
			return nil, err
		}
		return distinctSorted(all, func(r *dataset.Record) *string { return r.County }), nil
	default:
		return nil, common.InvalidArgumentf("unknown region level %q, want state, city or county", level)
	}
}

// CitiesByState lists the distinct cities of a state, sorted.
func (e *Engine) CitiesByState(state string) ([]string, error) {
	recs, err := e.ByState(state)
	if err != nil {
		return nil, err
	}
	return distinctSorted(recs, func(r *dataset.Record) *string { return r.City }), nil
}

// CountiesByCity lists the distinct counties of a city. An empty state matches
// the city in any state.
func (e *Engine) CountiesByCity(city, state string) ([]string, error) {
	recs, err := e.where(func(r *dataset.Record) bool {
		return equalFold(r.City, city) && (state == "" || strings.EqualFold(r.State, state))
	})
	if err != nil {
		return nil, err
	}
	return distinctSorted(recs, func(r *dataset.Record) *string { return r.County }), nil
}

// Region narrows a state's records by optional city and county.
// It returns the narrowed records and the full state records.
func (e *Engine) Region(state, city, county string) (area, stateRecs []dataset.Record, err error) {
	stateRecs, err = e.ByState(state)
	if err != nil {
		return nil, nil, err
	}
	area = []dataset.Record{}
	for _, r := range stateRecs {
		if city != "" && !equalFold(r.City, city) {
			continue
		}
		if county != "" && !equalFold(r.County, county) {
			continue
		}
		area = append(area, r)
	}
	return area, stateRecs, nil
}

// Filter selects records for listing. Empty fields do not restrict.
type Filter struct {
	Brand  string
	State  string
	EVType string
}

// Filter applies f and pages the result. total counts all matches.
func (e *Engine) Filter(f Filter, limit, offset int) (page []dataset.Record, total int, err error) {
	var recs []dataset.Record
	switch {
	case f.EVType != "":
		recs, err = e.ByEVType(f.EVType)
	case f.Brand != "":
		recs, err = e.ByBrand(f.Brand)
	case f.State != "":
		recs, err = e.ByState(f.State)
	default:
		recs, err = e.Records()
	}
	if err != nil {
		return nil, 0, err
	}

	matched := []dataset.Record{}
	for _, r := range recs {
		if f.Brand != "" && !equalFold(r.Make, f.Brand) {
			continue
		}
		if f.State != "" && !strings.EqualFold(r.State, f.State) {
			continue
		}
		if f.EVType != "" && !equalFold(r.EVType, f.EVType) {
			continue
		}
		matched = append(matched, r)
	}

	total = len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []dataset.Record{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}
