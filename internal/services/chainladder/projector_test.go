package chainladder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectReserves(t *testing.T) {
	tri := NewTriangle(map[int]map[int]float64{
		2020: {1: 100, 2: 150, 3: 180},
		2021: {},
	})
	sel := NewSelectedFactors(map[int]float64{2: 1.5, 3: 1.2}, 1.1, 3)
	p := ProjectReserves(tri, CumulativeFactors(sel, tri.DevPeriods()))

	require.Len(t, p.Summary, 2)
	r := p.Summary[0]
	assert.Equal(t, 2020, r.Origin)
	assert.Equal(t, 3, r.LatestDev)
	assert.Equal(t, 180.0, r.LatestPaid)
	assert.InDelta(t, 198.0, r.Ultimate, 1e-9)
	assert.InDelta(t, 18.0, r.IBNR, 1e-9)
	assert.InDelta(t, 9.0909, r.IBNRPercent, 1e-4)

	empty := p.Summary[1]
	assert.Equal(t, 2021, empty.Origin)
	assert.Zero(t, empty.LatestPaid)
	assert.Zero(t, empty.Ultimate)
	assert.Zero(t, empty.IBNR)
	assert.Zero(t, empty.IBNRPercent)

	assert.Equal(t, map[int]float64{2020: 180, 2021: 0}, p.Latest)
	assert.InDelta(t, 180.0, p.TotalPaid, 1e-9)
	assert.InDelta(t, 198.0, p.TotalUltimate, 1e-9)
	assert.InDelta(t, 18.0, p.TotalIBNR, 1e-9)
	assert.InDelta(t, 9.0909, p.OverallIBNRPercent, 1e-4)
}

func TestProjectReservesUsesLatestPresentCell(t *testing.T) {
	tri := NewTriangle(map[int]map[int]float64{
		2020: {1: 100, 2: 0},
		2021: {1: 50},
	})
	sel := NewSelectedFactors(map[int]float64{2: 2.0}, 1.0, 2)
	p := ProjectReserves(tri, CumulativeFactors(sel, tri.DevPeriods()))

	// a present zero is the latest observation even though dev 1 was positive
	assert.Equal(t, 2, p.Summary[0].LatestDev)
	assert.Zero(t, p.Summary[0].Ultimate)
	assert.Zero(t, p.Summary[0].IBNRPercent)

	assert.InDelta(t, 100.0, p.Summary[1].Ultimate, 1e-9)
	assert.InDelta(t, 50.0, p.Summary[1].IBNR, 1e-9)
}

func TestProjectReservesUnitFactorsReserveNothing(t *testing.T) {
	tri := NewTriangle(map[int]map[int]float64{
		2020: {1: 100, 2: 100, 3: 100},
		2021: {1: 50, 2: 50},
		2022: {1: 70},
	})
	sel := NewSelectedFactors(map[int]float64{2: 1, 3: 1}, 1.0, 3)
	p := ProjectReserves(tri, CumulativeFactors(sel, tri.DevPeriods()))

	for _, r := range p.Summary {
		assert.Equal(t, r.LatestPaid, r.Ultimate, "origin %d", r.Origin)
		assert.Zero(t, r.IBNR)
	}
	assert.Zero(t, p.TotalIBNR)
	assert.Zero(t, p.OverallIBNRPercent)
}
