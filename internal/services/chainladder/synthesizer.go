package chainladder

import (
	"math"
	"math/rand/v2"
	"slices"

	"ClaimReserve/internal/domain/models"
)

const (
	// DefaultHistoryWindow is the number of origin periods policies are spread over.
	DefaultHistoryWindow = 6
	// DefaultDevelopmentPeriods is the number of observations generated per claim.
	DefaultDevelopmentPeriods = 6

	referenceSeverity = 50000.0
	dieselFactor      = 1.2
	unratedNCAPFactor = 1.3

	devRamp       = 0.25
	devNoiseSigma = 0.1
	minDevFactor  = 0.8

	minSyntheticClaims   = 5
	maxSyntheticClaims   = 14
	minSyntheticSeverity = 30000.0
	maxSyntheticSeverity = 150000.0
)

// RandomSource is the only randomness the synthesizer consumes.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
	Float64() float64
	NormFloat64() float64
}

// NewRandomSource returns a deterministic source for seed.
func NewRandomSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed))
}

// Synthesizer turns policy records into per-period claim observations.
type Synthesizer struct {
	currentPeriod int
	window        int
	devPeriods    int
	rng           RandomSource
}

// SynthesizerOption configures Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithHistoryWindow sets how many origin periods back policies may start.
func WithHistoryWindow(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithDevelopmentPeriods sets the number of observations generated per claim.
func WithDevelopmentPeriods(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.devPeriods = n
		}
	}
}

// NewSynthesizer creates a synthesizer evaluating at currentPeriod.
// The rng is consumed, so a synthesizer should serve a single run.
func NewSynthesizer(currentPeriod int, rng RandomSource, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		currentPeriod: currentPeriod,
		window:        DefaultHistoryWindow,
		devPeriods:    DefaultDevelopmentPeriods,
		rng:           rng,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OriginPeriod derives the cohort of a policy from its subscription length,
// clamped to the history window.
func (s *Synthesizer) OriginPeriod(p models.Policy) int {
	origin := s.currentPeriod - int(math.RoundToEven(p.SubscriptionLength))
	oldest := s.currentPeriod - s.window + 1
	if origin < oldest {
		return oldest
	}
	if origin > s.currentPeriod {
		return s.currentPeriod
	}
	return origin
}

// BaseSeverity scales the reference amount by the policy's risk factors.
func BaseSeverity(p models.Policy) float64 {
	vehicleAge := 1 + p.VehicleAge*0.2
	customerAge := 1 + p.CustomerAge/100
	fuel := 1.0
	if p.FuelType == "Diesel" {
		fuel = dieselFactor
	}
	ncap := unratedNCAPFactor
	if p.NCAPRating > 0 {
		ncap = 1.5 - p.NCAPRating*0.1
	}
	return referenceSeverity * vehicleAge * customerAge * fuel * ncap
}

// Synthesize produces devPeriods observations for every claim. Origins are
// visited in ascending order so the rng is consumed reproducibly.
func (s *Synthesizer) Synthesize(policies []models.Policy) []models.ClaimObservation {
	byOrigin := make(map[int][]models.Policy)
	for _, p := range policies {
		o := s.OriginPeriod(p)
		byOrigin[o] = append(byOrigin[o], p)
	}
	origins := make([]int, 0, len(byOrigin))
	for o := range byOrigin {
		origins = append(origins, o)
	}
	slices.Sort(origins)

	out := make([]models.ClaimObservation, 0, len(policies)*s.devPeriods)
	for _, origin := range origins {
		severities := make([]float64, 0)
		for _, p := range byOrigin[origin] {
			if p.HasClaim() {
				severities = append(severities, BaseSeverity(p))
			}
		}
		if len(severities) == 0 {
			severities = s.syntheticSeverities()
		}
		for _, severity := range severities {
			out = s.develop(out, origin, severity)
		}
	}
	return out
}

// syntheticSeverities fills an origin period that has no observed claims.
func (s *Synthesizer) syntheticSeverities() []float64 {
	n := minSyntheticClaims + s.rng.IntN(maxSyntheticClaims-minSyntheticClaims+1)
	out := make([]float64, n)
	for i := range out {
		out[i] = minSyntheticSeverity + s.rng.Float64()*(maxSyntheticSeverity-minSyntheticSeverity)
	}
	return out
}

func (s *Synthesizer) develop(out []models.ClaimObservation, origin int, severity float64) []models.ClaimObservation {
	for dev := 1; dev <= s.devPeriods; dev++ {
		factor := 1 + float64(dev-1)*devRamp + s.rng.NormFloat64()*devNoiseSigma
		factor = math.Max(minDevFactor, factor)
		out = append(out, models.ClaimObservation{
			Origin: origin,
			Dev:    dev,
			Paid:   math.Max(0, severity*factor),
		})
	}
	return out
}
