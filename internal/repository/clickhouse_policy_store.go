package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"ClaimReserve/internal/domain/models"
	"ClaimReserve/internal/domain/repository"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

type queryFunc func(ctx context.Context, query string, args ...interface{}) (rowScanner, error)

// CHPolicyStore reads portfolio policy tables from ClickHouse.
type CHPolicyStore struct {
	query queryFunc
	table string
	limit int
}

// NewCHPolicyStore creates a store over table. limit <= 0 reads every row.
func NewCHPolicyStore(db *sql.DB, table string, limit int) (*CHPolicyStore, error) {
	return newCHPolicyStore(func(ctx context.Context, q string, args ...interface{}) (rowScanner, error) {
		return db.QueryContext(ctx, q, args...)
	}, table, limit)
}

func newCHPolicyStore(query queryFunc, table string, limit int) (*CHPolicyStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid policy table name %q", table)
	}
	return &CHPolicyStore{query: query, table: table, limit: limit}, nil
}

func (s *CHPolicyStore) statement() string {
	q := fmt.Sprintf(`SELECT toString(policy_id), toFloat64(subscription_length), toFloat64(vehicle_age),
	toFloat64(customer_age), toString(fuel_type), toFloat64(ncap_rating), toInt32(claim_status)
FROM %s WHERE portfolio = ? ORDER BY policy_id`, s.table)
	if s.limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", s.limit+1)
	}
	return q
}

// ListPolicies returns the policies of a portfolio in policy_id order.
func (s *CHPolicyStore) ListPolicies(ctx context.Context, portfolio string) ([]models.Policy, error) {
	rows, err := s.query(ctx, s.statement(), portfolio)
	if err != nil {
		return nil, fmt.Errorf("query portfolio %s: %w", portfolio, err)
	}
	defer rows.Close()

	var policies []models.Policy
	for rows.Next() {
		var (
			p      models.Policy
			status int32
		)
		if err := rows.Scan(&p.PolicyID, &p.SubscriptionLength, &p.VehicleAge,
			&p.CustomerAge, &p.FuelType, &p.NCAPRating, &status); err != nil {
			return nil, fmt.Errorf("scan portfolio %s: %w", portfolio, err)
		}
		p.ClaimStatus = int(status)
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read portfolio %s: %w", portfolio, err)
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrPortfolioNotFound, portfolio)
	}
	if s.limit > 0 && len(policies) > s.limit {
		return nil, fmt.Errorf("portfolio %s exceeds %d policies", portfolio, s.limit)
	}
	return policies, nil
}

var _ repository.PolicySource = (*CHPolicyStore)(nil)
