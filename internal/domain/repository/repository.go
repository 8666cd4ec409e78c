package repository

import (
	"context"
	"errors"

	"ClaimReserve/internal/domain/models"
)

// ErrPortfolioNotFound is returned when a portfolio has no policies.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// PolicySource loads stored policy tables.
type PolicySource interface {
	ListPolicies(ctx context.Context, portfolio string) ([]models.Policy, error)
}

// ResultPublisher announces finished analyses.
type ResultPublisher interface {
	PublishReserve(ctx context.Context, event models.ReserveComputedEvent) error
}

// Metrics defines metrics recording interface.
type Metrics interface {
	RecordAnalysis(source, method string)
	RecordError(kind string)
	RecordPolicies(source string, n int)
	RecordReserve(source string, totalIBNR float64)
	RecordCache(hit bool)
	RecordLatency(op string, seconds float64)
}
