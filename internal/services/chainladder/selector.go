package chainladder

import (
	"fmt"
	"slices"

	"ClaimReserve/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// UltimateLabel marks the tail entry of the selected factors.
const UltimateLabel = "Ultimate"

// noDevelopment is selected for a transition without any defined factor.
const noDevelopment = 1.0

// SelectedFactors holds one factor per transition plus the tail, keyed by the
// "to" development period. The tail is keyed maxDev+1.
type SelectedFactors struct {
	entries []models.SelectedFactor
	byTo    map[int]float64
	tailTo  int
}

// SelectFactors condenses every column of ata with method and appends the tail
// transition after maxDev.
func SelectFactors(ata *FactorTable, method models.Method, tail float64, maxDev int) *SelectedFactors {
	columns := ata.Columns()
	values := make(map[int][]float64, len(columns))
	for _, to := range columns {
		values[to] = ata.Defined(to)
	}

	var picked map[int]float64
	switch method {
	case models.MethodWeightedAverage:
		picked = weightedAverage(columns, values)
	case models.MethodGeometricMean:
		picked = perColumn(columns, values, geometricMean)
	case models.MethodMedian:
		picked = perColumn(columns, values, median)
	default:
		// simple_average and anything unrecognized
		picked = perColumn(columns, values, mean)
	}
	return NewSelectedFactors(picked, tail, maxDev)
}

// NewSelectedFactors assembles selected factors directly. Keys of factors are
// "to" development periods; entries beyond maxDev are ignored.
func NewSelectedFactors(factors map[int]float64, tail float64, maxDev int) *SelectedFactors {
	tos := make([]int, 0, len(factors))
	for to := range factors {
		if to <= maxDev {
			tos = append(tos, to)
		}
	}
	slices.Sort(tos)

	s := &SelectedFactors{
		entries: make([]models.SelectedFactor, 0, len(tos)+1),
		byTo:    make(map[int]float64, len(tos)+1),
		tailTo:  maxDev + 1,
	}
	for _, to := range tos {
		s.entries = append(s.entries, models.SelectedFactor{
			Period: fmt.Sprintf("%d to %d", to-1, to),
			ToDev:  to,
			Factor: factors[to],
		})
		s.byTo[to] = factors[to]
	}
	s.entries = append(s.entries, models.SelectedFactor{
		Period: UltimateLabel,
		ToDev:  s.tailTo,
		Factor: tail,
		Tail:   true,
	})
	s.byTo[s.tailTo] = tail
	return s
}

// Factor returns the factor into development period to.
func (s *SelectedFactors) Factor(to int) (float64, bool) {
	v, ok := s.byTo[to]
	return v, ok
}

// Tail returns the tail factor.
func (s *SelectedFactors) Tail() float64 { return s.byTo[s.tailTo] }

// TailTo returns the key of the tail transition.
func (s *SelectedFactors) TailTo() int { return s.tailTo }

// Entries returns the factors in transition order, tail last.
func (s *SelectedFactors) Entries() []models.SelectedFactor { return slices.Clone(s.entries) }

func perColumn(columns []int, values map[int][]float64, fn func([]float64) float64) map[int]float64 {
	out := make(map[int]float64, len(columns))
	for _, to := range columns {
		if len(values[to]) == 0 {
			out[to] = noDevelopment
			continue
		}
		out[to] = fn(values[to])
	}
	return out
}

// weightedAverage weights each column by its share of all defined factors:
// count_k * sum_k / sum_j count_j.
func weightedAverage(columns []int, values map[int][]float64) map[int]float64 {
	total := 0
	for _, to := range columns {
		total += len(values[to])
	}
	out := make(map[int]float64, len(columns))
	for _, to := range columns {
		n := len(values[to])
		if n == 0 || total == 0 {
			out[to] = noDevelopment
			continue
		}
		sum := 0.0
		for _, v := range values[to] {
			sum += v
		}
		out[to] = float64(n) * sum / float64(total)
	}
	return out
}

func mean(xs []float64) float64 { return stat.Mean(xs, nil) }

// geometricMean expects strictly positive factors, which DevelopmentFactors guarantees.
func geometricMean(xs []float64) float64 { return stat.GeometricMean(xs, nil) }

func median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
