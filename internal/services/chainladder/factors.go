package chainladder

import (
	"slices"

	"ClaimReserve/internal/domain/models"
)

// FactorTable holds age-to-age factors keyed by the "to" development period:
// column k carries cum(k)/cum(k-1). Only defined factors are stored.
type FactorTable struct {
	origins []int
	columns []int
	values  map[int]map[int]float64
}

// DevelopmentFactors derives ATA factors from t. A factor is defined only when
// both cells are present and strictly positive.
func DevelopmentFactors(t *Triangle) *FactorTable {
	devs := t.DevPeriods()
	ft := &FactorTable{
		origins: t.Origins(),
		values:  make(map[int]map[int]float64),
	}
	// every transition between the first and last period gets a column, so a
	// gap in the triangle shows up as undefined factors
	if len(devs) > 1 {
		for to := devs[0] + 1; to <= devs[len(devs)-1]; to++ {
			ft.columns = append(ft.columns, to)
		}
	}
	for _, origin := range ft.origins {
		for _, to := range ft.columns {
			prev, okPrev := t.Value(origin, to-1)
			cur, okCur := t.Value(origin, to)
			if !okPrev || !okCur || prev <= 0 || cur <= 0 {
				continue
			}
			row, ok := ft.values[origin]
			if !ok {
				row = make(map[int]float64)
				ft.values[origin] = row
			}
			row[to] = cur / prev
		}
	}
	return ft
}

// Columns returns the "to" development periods.
func (f *FactorTable) Columns() []int { return slices.Clone(f.columns) }

// Value returns the factor into development period to, if defined.
func (f *FactorTable) Value(origin, to int) (float64, bool) {
	v, ok := f.values[origin][to]
	return v, ok
}

// Defined returns the defined factors of one column in origin order.
func (f *FactorTable) Defined(to int) []float64 {
	out := make([]float64, 0, len(f.origins))
	for _, origin := range f.origins {
		if v, ok := f.Value(origin, to); ok {
			out = append(out, v)
		}
	}
	return out
}

// Table exports the factors with nil markers for undefined cells.
func (f *FactorTable) Table() models.ATATable {
	rows := make([]models.ATARow, 0, len(f.origins))
	for _, origin := range f.origins {
		factors := make(map[int]*float64, len(f.columns))
		for _, to := range f.columns {
			if v, ok := f.Value(origin, to); ok {
				factors[to] = &v
			} else {
				factors[to] = nil
			}
		}
		rows = append(rows, models.ATARow{Origin: origin, Factors: factors})
	}
	return models.ATATable{Columns: f.Columns(), Rows: rows}
}
