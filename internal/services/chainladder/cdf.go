package chainladder

import (
	"slices"

	"ClaimReserve/internal/domain/models"
)

// CDFs maps development periods to their to-ultimate multiplier.
type CDFs struct {
	devs   []int
	values map[int]float64
}

// CumulativeFactors multiplies selected factors from the tail backwards:
// CDF(max) = tail and CDF(k) = CDF(k+1) * f(k -> k+1). A transition without a
// selected factor contributes 1.
func CumulativeFactors(sel *SelectedFactors, devs []int) *CDFs {
	c := &CDFs{devs: slices.Clone(devs), values: make(map[int]float64, len(devs))}
	slices.Sort(c.devs)
	if len(c.devs) == 0 {
		return c
	}

	wanted := make(map[int]bool, len(c.devs))
	for _, d := range c.devs {
		wanted[d] = true
	}
	start := sel.TailTo()
	if last := c.devs[len(c.devs)-1] + 1; last > start {
		start = last
	}
	product := 1.0
	for to := start; to > c.devs[0]; to-- {
		if f, ok := sel.Factor(to); ok {
			product *= f
		}
		if wanted[to-1] {
			c.values[to-1] = product
		}
	}
	return c
}

// At returns the CDF at a development period.
func (c *CDFs) At(dev int) (float64, bool) {
	v, ok := c.values[dev]
	return v, ok
}

// List returns the CDFs in development order.
func (c *CDFs) List() []models.CDF {
	out := make([]models.CDF, 0, len(c.devs))
	for _, d := range c.devs {
		out = append(out, models.CDF{Dev: d, CDF: c.values[d]})
	}
	return out
}
