package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/dataset"
	"github.com/evdata/evdata/internal/dataset/datasettest"
)

func sampleRecords(t *testing.T) []dataset.Record {
	t.Helper()
	dir := datasettest.WriteSample(t, "sample.csv")
	tbl, err := dataset.NewLoader(dir).Load("sample.csv")
	require.NoError(t, err)
	return dataset.Normalize(tbl)
}

func rec(state string, count int) dataset.Record {
	return dataset.Record{State: state, VehicleCount: count}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 266.3, Round(266.25, 1))
	assert.Equal(t, 66.67, Round(200.0/3, 2))
	assert.Equal(t, 40.0, Round(40, 2))
}

func TestRegionDistribution_SumsToHundred(t *testing.T) {
	dist := RegionDistribution(sampleRecords(t))
	require.Len(t, dist, 3)

	assert.Equal(t, "WA", dist[0].Region)
	assert.Equal(t, 70.0, dist[0].Percent)
	assert.Equal(t, "CA", dist[1].Region)
	assert.Equal(t, 20.0, dist[1].Percent)
	assert.Equal(t, dataset.UnknownState, dist[2].Region)

	var sum float64
	for _, d := range dist {
		sum += d.Percent
	}
	assert.InDelta(t, 100, sum, 0.2)
}

func TestRegionDistribution_ZeroTotal(t *testing.T) {
	dist := RegionDistribution([]dataset.Record{rec("WA", 0), rec("OR", 0)})
	require.Len(t, dist, 2)
	assert.Zero(t, dist[0].Percent)
	assert.Zero(t, dist[1].Percent)

	assert.Empty(t, RegionDistribution(nil))
}

func TestPopularRegion(t *testing.T) {
	region, ok := PopularRegion([]dataset.Record{rec("OR", 2), rec("WA", 1), rec("WA", 3)})
	require.True(t, ok)
	assert.Equal(t, "WA", region)

	_, ok = PopularRegion(nil)
	assert.False(t, ok)
}

func TestPopularRegion_TieGoesToFirstSeen(t *testing.T) {
	region, ok := PopularRegion([]dataset.Record{rec("OR", 2), rec("WA", 2), rec("CA", 1)})
	require.True(t, ok)
	assert.Equal(t, "OR", region)

	region, _ = PopularRegion([]dataset.Record{rec("WA", 0), rec("OR", 0)})
	assert.Equal(t, "WA", region)
}

func TestMarketShareWithinBrand(t *testing.T) {
	brand := []dataset.Record{rec("WA", 1), rec("WA", 1), rec("WA", 1)}
	assert.Equal(t, 66.67, MarketShareWithinBrand(brand[:2], brand))
	assert.Equal(t, 0.0, MarketShareWithinBrand(nil, []dataset.Record{rec("WA", 0)}))
}

func TestModelSummary(t *testing.T) {
	s, err := ModelSummary("tesla", "MODEL 3", sampleRecords(t))
	require.NoError(t, err)

	assert.Equal(t, "TESLA", s.Brand)
	assert.Equal(t, "Model 3", s.Model)
	assert.Equal(t, 4, s.TotalVehicles)
	require.NotNil(t, s.Range)
	assert.Equal(t, 266.3, *s.Range)
	require.NotNil(t, s.Price)
	assert.Equal(t, 19995.0, *s.Price)
	assert.Equal(t, 40.0, s.MarketShare)
	assert.Equal(t, []int{2018, 2019, 2020}, s.ModelYears)
	assert.Equal(t, []string{"Battery Electric Vehicle (BEV)"}, s.EVTypes)
	require.NotNil(t, s.PopularRegion)
	assert.Equal(t, "WA", *s.PopularRegion)
	assert.Equal(t, []RegionShare{{"WA", 75}, {"CA", 25}}, s.RegionDistribution)
}

func TestModelSummary_AbsentMeans(t *testing.T) {
	s, err := ModelSummary("ford", "escape", sampleRecords(t))
	require.NoError(t, err)
	assert.Nil(t, s.Price)
	require.NotNil(t, s.Range)
	assert.Equal(t, 14.0, *s.Range)
	assert.Empty(t, s.ModelYears)
}

func TestModelSummary_NoData(t *testing.T) {
	_, err := ModelSummary("Rivian", "R1T", sampleRecords(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoData)
	assert.Contains(t, err.Error(), "no data")
}

func TestSummarizeRegion(t *testing.T) {
	all := sampleRecords(t)
	var wa, seattle []dataset.Record
	for _, r := range all {
		if r.State != "WA" {
			continue
		}
		wa = append(wa, r)
		if r.City != nil && *r.City == "Seattle" {
			seattle = append(seattle, r)
		}
	}

	s := SummarizeRegion("WA", "Seattle", "", seattle, wa)
	assert.Equal(t, 2, s.EVCount)
	assert.Equal(t, 2, s.RecordCount)
	assert.Equal(t, 28.57, s.EVRatio)
	require.NotNil(t, s.City)
	assert.Nil(t, s.County)
	assert.Equal(t, []string{"CITY OF SEATTLE - (WA)"}, s.ElectricUtilities)
	assert.Equal(t, []TypeCount{{EVType: "Battery Electric Vehicle (BEV)", Count: 2}}, s.EVTypeDistribution)

	empty := SummarizeRegion("XX", "", "", nil, nil)
	assert.Zero(t, empty.EVRatio)
	assert.NotNil(t, empty.ElectricUtilities)
}
