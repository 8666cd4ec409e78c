package service

import "ClaimReserve/internal/domain/models"

// ReserveAnalyzer runs a complete reserve analysis over a policy table.
// Implementations must be deterministic for a given input and safe for
// concurrent use.
type ReserveAnalyzer interface {
	Analyze(policies []models.Policy, opts models.AnalysisOptions) (*models.ReserveResult, error)
}
