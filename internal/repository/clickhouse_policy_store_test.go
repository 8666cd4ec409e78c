package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClaimReserve/internal/domain/models"
	domrepo "ClaimReserve/internal/domain/repository"
)

type fakeRows struct {
	data   [][]interface{}
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := r.data[r.pos-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *float64:
			*p = row[i].(float64)
		case *int32:
			*p = row[i].(int32)
		default:
			return errors.New("unexpected scan target")
		}
	}
	return nil
}

func (r *fakeRows) Err() error   { return r.err }
func (r *fakeRows) Close() error { r.closed = true; return nil }

func storeWith(t *testing.T, rows *fakeRows, limit int) (*CHPolicyStore, *[]interface{}) {
	t.Helper()
	var args []interface{}
	s, err := newCHPolicyStore(func(_ context.Context, q string, a ...interface{}) (rowScanner, error) {
		assert.Contains(t, q, "FROM reserving.policies WHERE portfolio = ?")
		args = a
		return rows, nil
	}, "reserving.policies", limit)
	require.NoError(t, err)
	return s, &args
}

func TestCHPolicyStoreListPolicies(t *testing.T) {
	rows := &fakeRows{data: [][]interface{}{
		{"P1", 9.3, 1.2, 41.0, "Petrol", 3.0, int32(1)},
		{"P2", 0.6, 2.0, 35.0, "Diesel", 0.0, int32(0)},
	}}
	s, args := storeWith(t, rows, 0)

	got, err := s.ListPolicies(context.Background(), "motor-2023")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"motor-2023"}, *args)
	assert.True(t, rows.closed)
	assert.Equal(t, []models.Policy{
		{PolicyID: "P1", SubscriptionLength: 9.3, VehicleAge: 1.2, CustomerAge: 41, FuelType: "Petrol", NCAPRating: 3, ClaimStatus: 1},
		{PolicyID: "P2", SubscriptionLength: 0.6, VehicleAge: 2, CustomerAge: 35, FuelType: "Diesel", NCAPRating: 0, ClaimStatus: 0},
	}, got)
}

func TestCHPolicyStoreNotFound(t *testing.T) {
	s, _ := storeWith(t, &fakeRows{}, 0)
	_, err := s.ListPolicies(context.Background(), "missing")
	assert.ErrorIs(t, err, domrepo.ErrPortfolioNotFound)
}

func TestCHPolicyStoreLimit(t *testing.T) {
	rows := &fakeRows{data: [][]interface{}{
		{"P1", 1.0, 1.0, 30.0, "Petrol", 3.0, int32(0)},
		{"P2", 1.0, 1.0, 30.0, "Petrol", 3.0, int32(0)},
	}}
	s, _ := storeWith(t, rows, 1)
	assert.Contains(t, s.statement(), "LIMIT 2")

	_, err := s.ListPolicies(context.Background(), "big")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 1 policies")
}

func TestCHPolicyStoreRowsError(t *testing.T) {
	s, _ := storeWith(t, &fakeRows{err: errors.New("connection reset")}, 0)
	_, err := s.ListPolicies(context.Background(), "p")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domrepo.ErrPortfolioNotFound)
}

func TestNewCHPolicyStoreRejectsTableNames(t *testing.T) {
	for _, name := range []string{"", "policies; DROP TABLE x", "a.b.c", "1abc"} {
		_, err := newCHPolicyStore(nil, name, 0)
		assert.Error(t, err, name)
	}
	_, err := newCHPolicyStore(nil, "db_1.policies", 0)
	assert.NoError(t, err)
}
