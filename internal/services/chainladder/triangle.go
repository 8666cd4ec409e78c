package chainladder

import (
	"maps"
	"slices"

	"ClaimReserve/internal/domain/models"
)

// Triangle is a cumulative loss triangle. A cell is either present (possibly 0)
// or absent; absent cells have not been observed and are never read as zero.
type Triangle struct {
	origins []int
	devs    []int
	cells   map[int]map[int]float64
}

// TriangleOption configures BuildTriangle.
type TriangleOption func(*triangleConfig)

type triangleConfig struct {
	devWindow  int
	evaluation int
}

// WithDevelopmentWindow drops observations beyond development period n.
func WithDevelopmentWindow(n int) TriangleOption {
	return func(c *triangleConfig) { c.devWindow = n }
}

// WithEvaluationPeriod drops observations whose calendar period
// (origin + dev - 1) lies after period p.
func WithEvaluationPeriod(p int) TriangleOption {
	return func(c *triangleConfig) { c.evaluation = p }
}

// BuildTriangle sums observations into (origin, dev) cells. Every origin seen
// in obs becomes a row, even if all of its observations were dropped.
func BuildTriangle(obs []models.ClaimObservation, opts ...TriangleOption) *Triangle {
	cfg := &triangleConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	cells := make(map[int]map[int]float64)
	for _, o := range obs {
		row, ok := cells[o.Origin]
		if !ok {
			row = make(map[int]float64)
			cells[o.Origin] = row
		}
		if o.Dev < 1 {
			continue
		}
		if cfg.devWindow > 0 && o.Dev > cfg.devWindow {
			continue
		}
		if cfg.evaluation != 0 && o.Origin+o.Dev-1 > cfg.evaluation {
			continue
		}
		row[o.Dev] += o.Paid
	}
	return newTriangle(cells)
}

// NewTriangle builds a triangle from cumulative amounts already known.
// The map is copied.
func NewTriangle(cells map[int]map[int]float64) *Triangle {
	cp := make(map[int]map[int]float64, len(cells))
	for origin, row := range cells {
		cp[origin] = maps.Clone(row)
		if cp[origin] == nil {
			cp[origin] = make(map[int]float64)
		}
	}
	return newTriangle(cp)
}

func newTriangle(cells map[int]map[int]float64) *Triangle {
	devSet := make(map[int]struct{})
	for _, row := range cells {
		for dev := range row {
			devSet[dev] = struct{}{}
		}
	}
	return &Triangle{
		origins: slices.Sorted(maps.Keys(cells)),
		devs:    slices.Sorted(maps.Keys(devSet)),
		cells:   cells,
	}
}

// Origins returns origin periods in ascending order.
func (t *Triangle) Origins() []int { return slices.Clone(t.origins) }

// DevPeriods returns every development period with at least one present cell.
func (t *Triangle) DevPeriods() []int { return slices.Clone(t.devs) }

// MaxDev returns the highest development period, or 0 for an empty triangle.
func (t *Triangle) MaxDev() int {
	if len(t.devs) == 0 {
		return 0
	}
	return t.devs[len(t.devs)-1]
}

// Value returns the cumulative amount and whether the cell is present.
func (t *Triangle) Value(origin, dev int) (float64, bool) {
	v, ok := t.cells[origin][dev]
	return v, ok
}

// Latest returns the highest present development period of an origin.
func (t *Triangle) Latest(origin int) (dev int, amount float64, ok bool) {
	for i := len(t.devs) - 1; i >= 0; i-- {
		if v, present := t.Value(origin, t.devs[i]); present {
			return t.devs[i], v, true
		}
	}
	return 0, 0, false
}

// Map exports present cells only.
func (t *Triangle) Map() map[int]map[int]float64 {
	out := make(map[int]map[int]float64, len(t.cells))
	for origin, row := range t.cells {
		out[origin] = maps.Clone(row)
	}
	return out
}
