package analytics

import (
	"sort"

	"github.com/evdata/evdata/internal/dataset"
)

// TypeCount is the vehicle count for one electric-vehicle type.
type TypeCount struct {
	EVType string `json:"ev_type"`
	Count  int    `json:"count"`
}

// RegionSummary describes a state, optionally narrowed to a city and county.
type RegionSummary struct {
	State              string      `json:"state"`
	City               *string     `json:"city"`
	County             *string     `json:"county"`
	EVCount            int         `json:"ev_count"`
	EVRatio            float64     `json:"ev_ratio"`
	ElectricUtilities  []string    `json:"electric_utilities"`
	EVTypeDistribution []TypeCount `json:"ev_type_distribution"`
	RecordCount        int         `json:"record_count"`
}

// SummarizeRegion aggregates area, a subset of stateRecords. EVRatio is the
// area's percentage of the state's vehicles.
func SummarizeRegion(state, city, county string, area, stateRecords []dataset.Record) *RegionSummary {
	s := &RegionSummary{
		State:              state,
		EVCount:            SumVehicles(area),
		ElectricUtilities:  []string{},
		EVTypeDistribution: []TypeCount{},
		RecordCount:        len(area),
	}
	if city != "" {
		s.City = &city
	}
	if county != "" {
		s.County = &county
	}
	s.EVRatio = percent(s.EVCount, SumVehicles(stateRecords), 2)

	utilities := make(map[string]struct{})
	typeIdx := make(map[string]int)
	for _, r := range area {
		if r.ElectricUtility != nil {
			if _, ok := utilities[*r.ElectricUtility]; !ok {
				utilities[*r.ElectricUtility] = struct{}{}
				s.ElectricUtilities = append(s.ElectricUtilities, *r.ElectricUtility)
			}
		}
		if r.EVType != nil {
			i, ok := typeIdx[*r.EVType]
			if !ok {
				i = len(s.EVTypeDistribution)
				typeIdx[*r.EVType] = i
				s.EVTypeDistribution = append(s.EVTypeDistribution, TypeCount{EVType: *r.EVType})
			}
			s.EVTypeDistribution[i].Count += r.VehicleCount
		}
	}
	sort.Strings(s.ElectricUtilities)
	return s
}
