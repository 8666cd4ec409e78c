package chainladder

import (
	"testing"

	"ClaimReserve/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCumulativeFactors(t *testing.T) {
	sel := NewSelectedFactors(map[int]float64{2: 1.5, 3: 1.2}, 1.1, 3)
	cdfs := CumulativeFactors(sel, []int{1, 2, 3})

	want := map[int]float64{3: 1.1, 2: 1.32, 1: 1.98}
	for dev, w := range want {
		got, ok := cdfs.At(dev)
		require.True(t, ok, "dev %d", dev)
		assert.InDelta(t, w, got, 1e-9, "dev %d", dev)
	}

	list := cdfs.List()
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Dev)
	assert.Equal(t, 3, list[2].Dev)
}

func TestCumulativeFactorsNonIncreasing(t *testing.T) {
	sel := NewSelectedFactors(map[int]float64{2: 1.8, 3: 1.3, 4: 1.0, 5: 1.05, 6: 1.01}, 1.02, 6)
	list := CumulativeFactors(sel, []int{1, 2, 3, 4, 5, 6}).List()

	require.Len(t, list, 6)
	assert.InDelta(t, 1.02, list[len(list)-1].CDF, 1e-12)
	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, list[i-1].CDF, list[i].CDF, "dev %d", list[i-1].Dev)
	}
}

func TestCumulativeFactorsMissingTransition(t *testing.T) {
	// dev 3 has no selected factor and counts as 1
	sel := NewSelectedFactors(map[int]float64{2: 2.0}, 1.5, 3)
	cdfs := CumulativeFactors(sel, []int{1, 2, 3})

	c2, _ := cdfs.At(2)
	c1, _ := cdfs.At(1)
	assert.InDelta(t, 1.5, c2, 1e-12)
	assert.InDelta(t, 3.0, c1, 1e-12)
}

func TestCumulativeFactorsEmpty(t *testing.T) {
	cdfs := CumulativeFactors(NewSelectedFactors(nil, 1.0, 0), nil)
	assert.Equal(t, []models.CDF{}, cdfs.List())
}
