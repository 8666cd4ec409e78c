package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReserveComputedEvent is published after every successful analysis.
// Money amounts are rounded to cents.
type ReserveComputedEvent struct {
	RunID              string          `json:"run_id"`
	RequestID          string          `json:"request_id,omitempty"`
	Source             string          `json:"source"` // "upload", "json", "portfolio", "kafka"
	Method             Method          `json:"method"`
	TailFactor         float64         `json:"tail_factor"`
	Policies           int             `json:"policies"`
	Origins            int             `json:"origins"`
	TotalPaid          decimal.Decimal `json:"total_paid_claims"`
	TotalUltimate      decimal.Decimal `json:"total_ultimate_claims"`
	TotalIBNR          decimal.Decimal `json:"total_ibnr_reserve"`
	OverallIBNRPercent decimal.Decimal `json:"overall_ibnr_percentage"`
	ComputedAt         time.Time       `json:"computed_at"`
}

// NewReserveComputedEvent condenses a result into its event form.
func NewReserveComputedEvent(res *ReserveResult, source, requestID string, policies int) ReserveComputedEvent {
	return ReserveComputedEvent{
		RunID:              res.RunID,
		RequestID:          requestID,
		Source:             source,
		Method:             res.Method,
		TailFactor:         res.TailFactor,
		Policies:           policies,
		Origins:            len(res.Summary),
		TotalPaid:          Money(res.TotalPaid),
		TotalUltimate:      Money(res.TotalUltimate),
		TotalIBNR:          Money(res.TotalIBNR),
		OverallIBNRPercent: decimal.NewFromFloat(res.OverallIBNRPercent).Round(4),
		ComputedAt:         res.ComputedAt,
	}
}

// Money rounds an amount to two decimal places.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
