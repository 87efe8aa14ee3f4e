package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(header []string, rows ...[]string) *Table {
	return NewTable(header, rows)
}

func TestNormalize_RoundTrip(t *testing.T) {
	tbl := table(
		[]string{ColMake, ColModel, ColState, ColModelYear, ColElectricRange},
		[]string{" Tesla ", "Model 3", "WA", "2022", "250.5"},
	)

	recs := Normalize(tbl)
	require.Len(t, recs, 1)
	r := recs[0]

	assert.Equal(t, 1, r.ID)
	require.NotNil(t, r.ModelYear)
	assert.Equal(t, 2022, *r.ModelYear)
	require.NotNil(t, r.ElectricRange)
	assert.Equal(t, 250.5, *r.ElectricRange)
	assert.Equal(t, 1, r.VehicleCount)
	assert.Equal(t, "Tesla", *r.Make)
	assert.Nil(t, r.BaseMSRP)
	assert.Nil(t, r.VIN)
}

func TestNormalize_MalformedRow(t *testing.T) {
	tbl := table(
		[]string{ColMake, ColState, ColModelYear, ColElectricRange, ColBaseMSRP, ColVehicleCount},
		[]string{"NISSAN", "  ", "N/A", "far", "-5", "lots"},
		[]string{"NISSAN", "OR", "2019.0", "NaN", "32000", "3"},
	)

	recs := Normalize(tbl)
	require.Len(t, recs, 2)

	bad := recs[0]
	assert.Nil(t, bad.ModelYear)
	assert.Nil(t, bad.ElectricRange)
	assert.Nil(t, bad.BaseMSRP)
	assert.Equal(t, UnknownState, bad.State)
	assert.Equal(t, 1, bad.VehicleCount)

	good := recs[1]
	require.NotNil(t, good.ModelYear)
	assert.Equal(t, 2019, *good.ModelYear)
	assert.Nil(t, good.ElectricRange)
	assert.Equal(t, 32000.0, *good.BaseMSRP)
	assert.Equal(t, 3, good.VehicleCount)
	assert.Equal(t, 2, good.ID)
}

func TestNormalize_SequentialIDs(t *testing.T) {
	rows := make([][]string, 25)
	for i := range rows {
		rows[i] = []string{"KIA"}
	}
	recs := Normalize(NewTable([]string{ColMake}, rows))

	require.Len(t, recs, 25)
	for i, r := range recs {
		assert.Equal(t, i+1, r.ID)
		assert.Equal(t, UnknownState, r.State)
	}
}

func TestNormalize_ShortRowAndMissingColumns(t *testing.T) {
	tbl := table([]string{ColMake, ColModel, ColCity}, []string{"KIA"})

	r := Normalize(tbl)[0]
	assert.Nil(t, r.Model)
	assert.Nil(t, r.City)
	assert.Nil(t, r.County)
	assert.Equal(t, 1, r.VehicleCount)
}

func TestNormalize_ZeroVehicleCountKept(t *testing.T) {
	tbl := table([]string{ColMake, ColVehicleCount}, []string{"KIA", "0"})
	assert.Equal(t, 0, Normalize(tbl)[0].VehicleCount)
}

func TestLabel(t *testing.T) {
	s := "BEV"
	assert.Equal(t, "BEV", Label(&s, "unknown"))
	assert.Equal(t, "unknown", Label(nil, "unknown"))
}
