package chainladder

import (
	"testing"

	"ClaimReserve/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRand returns fixed values so development amounts are exact.
type stubRand struct {
	intN  int
	float float64
	norm  float64
}

func (s stubRand) IntN(int) int         { return s.intN }
func (s stubRand) Float64() float64     { return s.float }
func (s stubRand) NormFloat64() float64 { return s.norm }

func TestOriginPeriodClampsToWindow(t *testing.T) {
	s := NewSynthesizer(2023, stubRand{})
	cases := []struct {
		sub  float64
		want int
	}{
		{0, 2023},
		{0.4, 2023},
		{1.6, 2021},
		{2.5, 2021}, // half rounds to even
		{3.5, 2019},
		{5, 2018},
		{12, 2018},
		{-3, 2023},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, s.OriginPeriod(models.Policy{SubscriptionLength: c.sub}), "subscription_length=%v", c.sub)
	}
}

func TestOriginPeriodCustomWindow(t *testing.T) {
	s := NewSynthesizer(2030, stubRand{}, WithHistoryWindow(3))
	assert.Equal(t, 2028, s.OriginPeriod(models.Policy{SubscriptionLength: 9}))
}

func TestBaseSeverity(t *testing.T) {
	diesel := models.Policy{VehicleAge: 1, CustomerAge: 50, FuelType: "Diesel", NCAPRating: 5}
	assert.InDelta(t, 50000*1.2*1.5*1.2*1.0, BaseSeverity(diesel), 1e-6)

	unrated := models.Policy{FuelType: "Petrol"}
	assert.InDelta(t, 65000.0, BaseSeverity(unrated), 1e-9)

	rated := models.Policy{FuelType: "CNG", NCAPRating: 2}
	assert.InDelta(t, 50000*1.3, BaseSeverity(rated), 1e-6)
}

func TestSynthesizeObservedClaimDevelopsLinearly(t *testing.T) {
	p := models.Policy{SubscriptionLength: 1, FuelType: "Petrol", ClaimStatus: 1}
	obs := NewSynthesizer(2023, stubRand{}).Synthesize([]models.Policy{p})

	require.Len(t, obs, 6)
	for i, o := range obs {
		assert.Equal(t, 2022, o.Origin)
		assert.Equal(t, i+1, o.Dev)
		assert.InDelta(t, 65000*(1+0.25*float64(i)), o.Paid, 1e-6)
	}
}

func TestSynthesizeFillsOriginWithoutClaims(t *testing.T) {
	policies := []models.Policy{
		{SubscriptionLength: 0, FuelType: "Petrol"},
		{SubscriptionLength: 0, FuelType: "Diesel"},
	}
	obs := NewSynthesizer(2023, stubRand{intN: 0, float: 0.5}).Synthesize(policies)

	// IntN(10)=0 gives the minimum of five claims, each at the middle of the range.
	require.Len(t, obs, 5*6)
	for _, o := range obs {
		assert.Equal(t, 2023, o.Origin)
		want := 90000 * (1 + 0.25*float64(o.Dev-1))
		assert.InDelta(t, want, o.Paid, 1e-6)
	}
}

func TestSynthesizeFloorsDevelopmentFactor(t *testing.T) {
	p := models.Policy{FuelType: "Petrol", ClaimStatus: 1}
	obs := NewSynthesizer(2023, stubRand{norm: -100}).Synthesize([]models.Policy{p})

	require.Len(t, obs, 6)
	for _, o := range obs {
		assert.InDelta(t, 65000*0.8, o.Paid, 1e-6)
	}
}

func TestSynthesizeSyntheticCountBounds(t *testing.T) {
	policies := []models.Policy{{SubscriptionLength: 3, FuelType: "Petrol"}}
	for seed := uint64(0); seed < 50; seed++ {
		obs := NewSynthesizer(2023, NewRandomSource(seed)).Synthesize(policies)
		claims := len(obs) / 6
		require.Zero(t, len(obs)%6)
		require.GreaterOrEqual(t, claims, 5)
		require.LessOrEqual(t, claims, 14)
		for _, o := range obs {
			require.GreaterOrEqual(t, o.Paid, 30000*0.8)
			require.LessOrEqual(t, o.Paid, 150000*4.0)
		}
	}
}

func TestSynthesizeIsReproducibleForSeed(t *testing.T) {
	policies := samplePolicies()
	a := NewSynthesizer(2023, NewRandomSource(42)).Synthesize(policies)
	b := NewSynthesizer(2023, NewRandomSource(42)).Synthesize(policies)
	c := NewSynthesizer(2023, NewRandomSource(7)).Synthesize(policies)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func samplePolicies() []models.Policy {
	return []models.Policy{
		{PolicyID: "P1", SubscriptionLength: 0.2, VehicleAge: 1.2, CustomerAge: 41, FuelType: "Diesel", NCAPRating: 3, ClaimStatus: 1},
		{PolicyID: "P2", SubscriptionLength: 1.1, VehicleAge: 0.4, CustomerAge: 35, FuelType: "Petrol", NCAPRating: 0, ClaimStatus: 0},
		{PolicyID: "P3", SubscriptionLength: 1.4, VehicleAge: 2.0, CustomerAge: 52, FuelType: "CNG", NCAPRating: 2, ClaimStatus: 1},
		{PolicyID: "P4", SubscriptionLength: 2.9, VehicleAge: 0.8, CustomerAge: 29, FuelType: "Petrol", NCAPRating: 5, ClaimStatus: 0},
		{PolicyID: "P5", SubscriptionLength: 4.1, VehicleAge: 3.1, CustomerAge: 63, FuelType: "Diesel", NCAPRating: 4, ClaimStatus: 1},
		{PolicyID: "P6", SubscriptionLength: 5.0, VehicleAge: 1.0, CustomerAge: 47, FuelType: "Petrol", NCAPRating: 1, ClaimStatus: 0},
		{PolicyID: "P8", SubscriptionLength: 2.2, VehicleAge: 1.7, CustomerAge: 44, FuelType: "Diesel", NCAPRating: 3, ClaimStatus: 0},
		{PolicyID: "P7", SubscriptionLength: 9.7, VehicleAge: 0.1, CustomerAge: 38, FuelType: "CNG", NCAPRating: 0, ClaimStatus: 1},
	}
}
