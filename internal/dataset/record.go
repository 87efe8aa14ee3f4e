package dataset

import (
	"math"
	"strconv"
	"strings"
)

// UnknownState replaces a blank State cell so state is never empty.
const UnknownState = "unknown"

// Source column names.
const (
	ColVIN             = "VIN (1-10)"
	ColCounty          = "County"
	ColCity            = "City"
	ColState           = "State"
	ColModelYear       = "Model Year"
	ColMake            = "Make"
	ColModel           = "Model"
	ColEVType          = "Electric Vehicle Type"
	ColCAFVEligibility = "Clean Alternative Fuel Vehicle (CAFV) Eligibility"
	ColElectricRange   = "Electric Range"
	ColBaseMSRP        = "Base MSRP"
	ColElectricUtility = "Electric Utility"
	ColVehicleCount    = "Vehicle Count"
)

// Record is one normalized row. Nil pointers mark absent values.
// Records are shared between callers and must not be modified.
type Record struct {
	ID              int      `json:"id"`
	VIN             *string  `json:"vin_1_to_10"`
	County          *string  `json:"county"`
	City            *string  `json:"city"`
	State           string   `json:"state"`
	ModelYear       *int     `json:"model_year"`
	Make            *string  `json:"make"`
	Model           *string  `json:"model"`
	EVType          *string  `json:"ev_type"`
	CAFVEligibility *string  `json:"cafv_eligibility"`
	ElectricRange   *float64 `json:"electric_range"`
	BaseMSRP        *float64 `json:"base_msrp"`
	ElectricUtility *string  `json:"electric_utility"`
	VehicleCount    int      `json:"vehicle_count"`
}

// Normalize converts every row of t into a Record, ids starting at 1.
// Malformed cells degrade to absent or default values; it never fails.
func Normalize(t *Table) []Record {
	records := make([]Record, 0, t.Len())
	for i := range t.Rows {
		records = append(records, normalizeRow(t, i))
	}
	return records
}

func normalizeRow(t *Table, i int) Record {
	cell := func(col string) string {
		v, _ := t.Value(i, col)
		return v
	}

	state := strings.TrimSpace(cell(ColState))
	if state == "" {
		state = UnknownState
	}

	count := 1
	if n, ok := parseInt(cell(ColVehicleCount)); ok && n >= 0 {
		count = n
	}

	rec := Record{
		ID:              i + 1,
		VIN:             optString(cell(ColVIN)),
		County:          optString(cell(ColCounty)),
		City:            optString(cell(ColCity)),
		State:           state,
		Make:            optString(cell(ColMake)),
		Model:           optString(cell(ColModel)),
		EVType:          optString(cell(ColEVType)),
		CAFVEligibility: optString(cell(ColCAFVEligibility)),
		ElectricUtility: optString(cell(ColElectricUtility)),
		ElectricRange:   optFloat(cell(ColElectricRange)),
		BaseMSRP:        optFloat(cell(ColBaseMSRP)),
		VehicleCount:    count,
	}
	if y, ok := parseInt(cell(ColModelYear)); ok {
		rec.ModelYear = &y
	}
	return rec
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// parseInt accepts plain integers and integral floats such as "2022.0".
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func optFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}

// Label returns the value of an optional string or the fallback when absent.
func Label(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
