package chainladder

import (
	"math"
	"testing"

	"ClaimReserve/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// column 2 factors: 2.0, 1.5, 1.0; column 3 factors: 1.5, 1.2
func selectorTriangle() *Triangle {
	return NewTriangle(map[int]map[int]float64{
		2019: {1: 100, 2: 200, 3: 300},
		2020: {1: 100, 2: 150, 3: 180},
		2021: {1: 100, 2: 100},
		2022: {1: 100},
	})
}

func TestSelectFactorsMethods(t *testing.T) {
	tests := []struct {
		method models.Method
		want2  float64
		want3  float64
	}{
		{models.MethodSimpleAverage, 1.5, 1.35},
		{models.MethodMedian, 1.5, 1.35},
		{models.MethodGeometricMean, math.Cbrt(3.0), math.Sqrt(1.8)},
		// columns are weighted by their share of the five defined factors
		{models.MethodWeightedAverage, 3 * 4.5 / 5, 2 * 2.7 / 5},
	}
	tri := selectorTriangle()
	ata := DevelopmentFactors(tri)
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			sel := SelectFactors(ata, tt.method, 1.0, tri.MaxDev())

			f, ok := sel.Factor(2)
			require.True(t, ok)
			assert.InDelta(t, tt.want2, f, 1e-9)
			f, ok = sel.Factor(3)
			require.True(t, ok)
			assert.InDelta(t, tt.want3, f, 1e-9)
		})
	}
}

func TestSelectFactorsUnknownMethodIsSimpleAverage(t *testing.T) {
	tri := selectorTriangle()
	ata := DevelopmentFactors(tri)
	got := SelectFactors(ata, models.Method("bogus"), 1.05, tri.MaxDev())
	want := SelectFactors(ata, models.MethodSimpleAverage, 1.05, tri.MaxDev())
	assert.Equal(t, want.Entries(), got.Entries())
}

func TestSelectFactorsEntries(t *testing.T) {
	tri := selectorTriangle()
	sel := SelectFactors(DevelopmentFactors(tri), models.MethodSimpleAverage, 1.1, tri.MaxDev())

	entries := sel.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "1 to 2", entries[0].Period)
	assert.Equal(t, "2 to 3", entries[1].Period)
	assert.Equal(t, UltimateLabel, entries[2].Period)
	assert.True(t, entries[2].Tail)
	assert.Equal(t, 4, entries[2].ToDev)
	assert.Equal(t, 4, sel.TailTo())
	assert.Equal(t, 1.1, sel.Tail())
}

func TestSelectFactorsMedian(t *testing.T) {
	odd := NewTriangle(map[int]map[int]float64{
		2019: {1: 100, 2: 100},
		2020: {1: 100, 2: 200},
		2021: {1: 10, 2: 100},
	})
	sel := SelectFactors(DevelopmentFactors(odd), models.MethodMedian, 1.0, odd.MaxDev())
	f, _ := sel.Factor(2)
	assert.InDelta(t, 2.0, f, 1e-12)

	even := NewTriangle(map[int]map[int]float64{
		2019: {1: 100, 2: 100},
		2020: {1: 100, 2: 200},
		2021: {1: 10, 2: 100},
		2022: {1: 100, 2: 300},
	})
	sel = SelectFactors(DevelopmentFactors(even), models.MethodMedian, 1.0, even.MaxDev())
	f, _ = sel.Factor(2)
	assert.InDelta(t, 2.5, f, 1e-12)
}

func TestSelectFactorsColumnWithoutFactors(t *testing.T) {
	tri := NewTriangle(map[int]map[int]float64{
		2020: {1: 0, 2: 0},
		2021: {1: 0},
	})
	for _, m := range models.Methods() {
		sel := SelectFactors(DevelopmentFactors(tri), m, 1.0, tri.MaxDev())
		f, ok := sel.Factor(2)
		require.True(t, ok)
		assert.Equal(t, 1.0, f, "method %s", m)
	}
}

func TestNewSelectedFactorsIgnoresTransitionsPastMaxDev(t *testing.T) {
	sel := NewSelectedFactors(map[int]float64{2: 1.5, 5: 9}, 1.2, 3)
	_, ok := sel.Factor(5)
	assert.False(t, ok)
	tail, ok := sel.Factor(4)
	require.True(t, ok)
	assert.Equal(t, 1.2, tail)
	assert.Len(t, sel.Entries(), 2)
}
