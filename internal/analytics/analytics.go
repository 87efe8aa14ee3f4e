// Package analytics computes derived statistics over slices of records.
// All functions are pure; none of them touch the query caches.
package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/dataset"
)

// RegionShare is one state's percentage of a record set's vehicle count.
type RegionShare struct {
	Region  string  `json:"region"`
	Percent float64 `json:"percent"`
}

// Summary describes one brand/model across the whole dataset.
type Summary struct {
	Brand              string        `json:"brand"`
	Model              string        `json:"model"`
	Range              *float64      `json:"range"`
	Price              *float64      `json:"price"`
	MarketShare        float64       `json:"market_share"`
	PopularRegion      *string       `json:"popular_region"`
	RegionDistribution []RegionShare `json:"region_distribution"`
	ModelYears         []int         `json:"model_years"`
	EVTypes            []string      `json:"ev_types"`
	TotalVehicles      int           `json:"total_vehicles"`
}

// Round rounds x to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// SumVehicles adds up vehicle counts.
func SumVehicles(records []dataset.Record) int {
	total := 0
	for _, r := range records {
		total += r.VehicleCount
	}
	return total
}

// percent returns part/whole*100 rounded, or 0 when whole is 0.
func percent(part, whole int, decimals int) float64 {
	if whole == 0 {
		return 0
	}
	return Round(float64(part)/float64(whole)*100, decimals)
}

// stateTotals accumulates vehicle counts per state, keeping first-seen order.
func stateTotals(records []dataset.Record) (order []string, totals map[string]int) {
	totals = make(map[string]int)
	for _, r := range records {
		if r.State == "" {
			continue
		}
		if _, ok := totals[r.State]; !ok {
			order = append(order, r.State)
		}
		totals[r.State] += r.VehicleCount
	}
	return order, totals
}

// RegionDistribution gives each state's share of the records' vehicle count,
// in order of first appearance, rounded to one decimal.
func RegionDistribution(records []dataset.Record) []RegionShare {
	order, totals := stateTotals(records)
	total := SumVehicles(records)

	out := make([]RegionShare, 0, len(order))
	for _, s := range order {
		out = append(out, RegionShare{Region: s, Percent: percent(totals[s], total, 1)})
	}
	return out
}

// PopularRegion returns the state with the largest vehicle count. Ties go to
// the state that appears first in records. ok is false for an empty input.
func PopularRegion(records []dataset.Record) (region string, ok bool) {
	order, totals := stateTotals(records)
	best := -1
	for _, s := range order {
		if totals[s] > best {
			region, best = s, totals[s]
		}
	}
	return region, best >= 0
}

// MarketShareWithinBrand is the model's percentage of its brand's vehicles,
// two decimals, 0 when the brand total is 0.
func MarketShareWithinBrand(modelRecords, brandRecords []dataset.Record) float64 {
	return percent(SumVehicles(modelRecords), SumVehicles(brandRecords), 2)
}

// ModelSummary aggregates the records matching brand and model (case-insensitive).
// It returns a NoData error when nothing matches.
func ModelSummary(brand, model string, all []dataset.Record) (*Summary, error) {
	var matched []dataset.Record
	for _, r := range all {
		if r.Make != nil && r.Model != nil &&
			strings.EqualFold(*r.Make, brand) && strings.EqualFold(*r.Model, model) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, common.NoDataf("no data for %s %s", brand, model)
	}

	var ranges, prices []float64
	years := make(map[int]struct{})
	var evTypes []string
	seenType := make(map[string]struct{})
	for _, r := range matched {
		if r.ElectricRange != nil {
			ranges = append(ranges, *r.ElectricRange)
		}
		if r.BaseMSRP != nil {
			prices = append(prices, *r.BaseMSRP)
		}
		if r.ModelYear != nil {
			years[*r.ModelYear] = struct{}{}
		}
		if r.EVType != nil {
			if _, ok := seenType[*r.EVType]; !ok {
				seenType[*r.EVType] = struct{}{}
				evTypes = append(evTypes, *r.EVType)
			}
		}
	}

	modelYears := make([]int, 0, len(years))
	for y := range years {
		modelYears = append(modelYears, y)
	}
	sort.Ints(modelYears)
	sort.Strings(evTypes)

	total := SumVehicles(matched)
	s := &Summary{
		Brand:              *matched[0].Make,
		Model:              *matched[0].Model,
		Range:              mean(ranges, 1),
		Price:              mean(prices, 2),
		MarketShare:        percent(total, SumVehicles(all), 2),
		RegionDistribution: RegionDistribution(matched),
		ModelYears:         modelYears,
		EVTypes:            evTypes,
		TotalVehicles:      total,
	}
	if evTypes == nil {
		s.EVTypes = []string{}
	}
	if region, ok := PopularRegion(matched); ok {
		s.PopularRegion = &region
	}
	return s, nil
}

// mean returns the rounded average, or nil when there are no values.
func mean(values []float64, decimals int) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := Round(sum/float64(len(values)), decimals)
	return &m
}
