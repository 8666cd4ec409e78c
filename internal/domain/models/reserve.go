package models

import "time"

// Method names a factor selection strategy.
type Method string

const (
	MethodSimpleAverage   Method = "simple_average"
	MethodWeightedAverage Method = "weighted_average"
	MethodGeometricMean   Method = "geometric_mean"
	MethodMedian          Method = "median"
)

// DefaultMethod is used whenever a method name is empty or not recognized.
const DefaultMethod = MethodSimpleAverage

// DefaultTailFactor assumes no development beyond the last observed period.
const DefaultTailFactor = 1.0

// Methods lists the supported selection methods.
func Methods() []Method {
	return []Method{MethodSimpleAverage, MethodWeightedAverage, MethodGeometricMean, MethodMedian}
}

// Valid returns true if m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodSimpleAverage, MethodWeightedAverage, MethodGeometricMean, MethodMedian:
		return true
	default:
		return false
	}
}

// ParseMethod converts a raw method name to a Method.
// Unknown names fall back to simple average rather than failing.
func ParseMethod(s string) Method {
	m := Method(s)
	if m.Valid() {
		return m
	}
	return DefaultMethod
}

// AnalysisOptions are the caller-facing knobs of a reserve analysis.
type AnalysisOptions struct {
	Method     Method  `json:"method"`
	TailFactor float64 `json:"tail_factor" validate:"gte=0"`
}

// DefaultAnalysisOptions returns simple average with no tail development.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{Method: DefaultMethod, TailFactor: DefaultTailFactor}
}

// ATATable holds age-to-age factors. Columns are the "to" development periods.
type ATATable struct {
	Columns []int    `json:"columns"`
	Rows    []ATARow `json:"data"`
}

// ATARow carries one origin's factors; nil marks an undefined factor.
type ATARow struct {
	Origin  int              `json:"origin_year"`
	Factors map[int]*float64 `json:"factors"`
}

// SelectedFactor is the factor chosen for one development transition.
type SelectedFactor struct {
	Period string  `json:"period"` // "1 to 2", ..., "Ultimate"
	ToDev  int     `json:"to_dev"`
	Factor float64 `json:"factor"`
	Tail   bool    `json:"tail,omitempty"`
}

// CDF is the to-ultimate multiplier at a development period.
type CDF struct {
	Dev int     `json:"dev_year"`
	CDF float64 `json:"cdf"`
}

// OriginReserve summarizes the projection for one origin period.
type OriginReserve struct {
	Origin      int     `json:"origin_year"`
	LatestDev   int     `json:"latest_dev_year"`
	LatestPaid  float64 `json:"latest_paid_claims"`
	Ultimate    float64 `json:"ultimate_claims"`
	IBNR        float64 `json:"ibnr_reserve"`
	IBNRPercent float64 `json:"ibnr_percentage_of_ultimate"`
}

// ReserveResult is the complete output of a Chain-Ladder run.
type ReserveResult struct {
	RunID              string                  `json:"run_id,omitempty"`
	Method             Method                  `json:"method"`
	TailFactor         float64                 `json:"tail_factor"`
	Triangle           map[int]map[int]float64 `json:"triangle"`
	ATAFactors         ATATable                `json:"ata_factors"`
	SelectedFactors    []SelectedFactor        `json:"selected_factors"`
	CDFs               []CDF                   `json:"cdfs"`
	LatestDiagonal     map[int]float64         `json:"latest_claims_diagonal"`
	Summary            []OriginReserve         `json:"results_summary"`
	TotalIBNR          float64                 `json:"total_ibnr_reserve"`
	TotalUltimate      float64                 `json:"total_ultimate_claims"`
	TotalPaid          float64                 `json:"total_paid_claims"`
	OverallIBNRPercent float64                 `json:"overall_ibnr_percentage"`
	ComputedAt         time.Time               `json:"computed_at"`
}
