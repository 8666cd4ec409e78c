package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ClaimReserve/internal/domain/models"
	domrepo "ClaimReserve/internal/domain/repository"
	"ClaimReserve/internal/domain/service"
	"ClaimReserve/internal/services/chainladder"
	"ClaimReserve/pkg/cache"
	applogger "ClaimReserve/pkg/logger"
)

// Analysis sources, used as metric labels and in published events.
const (
	SourceUpload    = "upload"
	SourceJSON      = "json"
	SourcePortfolio = "portfolio"
	SourceKafka     = "kafka"
)

// ErrPortfolioSourceDisabled is returned when no policy store is configured.
var ErrPortfolioSourceDisabled = errors.New("portfolio source is not configured")

// AnalysisInput is one analysis request after transport decoding.
type AnalysisInput struct {
	Source    string
	RequestID string
	Policies  []models.Policy
	Options   models.AnalysisOptions
}

// ReserveAnalysis runs analyses for every entry point, memoizes results and
// announces them.
type ReserveAnalysis struct {
	analyzer  service.ReserveAnalyzer
	metrics   domrepo.Metrics
	policies  domrepo.PolicySource
	publisher domrepo.ResultPublisher
	cache     cache.Service
	cacheTTL  time.Duration
	// fingerprint identifies the engine configuration inside cache keys.
	fingerprint string
	log         *applogger.Logger
	newID       func() string
}

// Option configures ReserveAnalysis.
type Option func(*ReserveAnalysis)

// WithPolicySource enables portfolio analyses.
func WithPolicySource(src domrepo.PolicySource) Option {
	return func(u *ReserveAnalysis) { u.policies = src }
}

// WithPublisher publishes a ReserveComputedEvent after every analysis.
func WithPublisher(pub domrepo.ResultPublisher) Option {
	return func(u *ReserveAnalysis) { u.publisher = pub }
}

// WithResultCache memoizes results for ttl. fingerprint must change whenever
// the engine configuration does.
func WithResultCache(c cache.Service, ttl time.Duration, fingerprint string) Option {
	return func(u *ReserveAnalysis) {
		u.cache = c
		u.cacheTTL = ttl
		u.fingerprint = fingerprint
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(u *ReserveAnalysis) {
		if l != nil {
			u.log = l
		}
	}
}

// NewReserveAnalysis creates the use case. analyzer and metrics are required.
func NewReserveAnalysis(analyzer service.ReserveAnalyzer, metrics domrepo.Metrics, opts ...Option) *ReserveAnalysis {
	u := &ReserveAnalysis{
		analyzer: analyzer,
		metrics:  metrics,
		log:      applogger.NewNop(),
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// PortfolioEnabled reports whether AnalyzePortfolio can serve requests.
func (u *ReserveAnalysis) PortfolioEnabled() bool { return u.policies != nil }

// Analyze runs (or recalls) an analysis and stamps it with a fresh run ID.
func (u *ReserveAnalysis) Analyze(ctx context.Context, in AnalysisInput) (*models.ReserveResult, error) {
	start := time.Now()
	in.Options.Method = models.ParseMethod(string(in.Options.Method))
	log := u.log.With(applogger.String("source", in.Source), applogger.String("method", string(in.Options.Method)))

	key := u.cacheKey(in)
	res, hit := u.recall(ctx, key, log)
	if !hit {
		var err error
		res, err = u.analyzer.Analyze(in.Policies, in.Options)
		if err != nil {
			if errors.Is(err, chainladder.ErrInvalidInput) {
				u.metrics.RecordError("analysis_invalid")
			} else {
				u.metrics.RecordError("analysis")
				log.Error("analysis failed", applogger.Error(err))
			}
			return nil, err
		}
		u.remember(ctx, key, res, log)
	}

	res.RunID = u.newID()
	elapsed := time.Since(start)
	u.metrics.RecordAnalysis(in.Source, string(res.Method))
	u.metrics.RecordPolicies(in.Source, len(in.Policies))
	u.metrics.RecordReserve(in.Source, res.TotalIBNR)
	u.metrics.RecordLatency("analysis", elapsed.Seconds())

	log.Info("reserve analysis completed",
		applogger.String("run_id", res.RunID),
		applogger.Int("policies", len(in.Policies)),
		applogger.Int("origins", len(res.Summary)),
		applogger.Float64("total_ibnr", res.TotalIBNR),
		applogger.Bool("cached", hit),
		applogger.Duration("duration", elapsed),
	)

	u.publish(ctx, in, res, log)
	return res, nil
}

// AnalyzePortfolio loads a stored portfolio and analyzes it.
func (u *ReserveAnalysis) AnalyzePortfolio(ctx context.Context, portfolio, requestID string, opts models.AnalysisOptions) (*models.ReserveResult, error) {
	if u.policies == nil {
		return nil, ErrPortfolioSourceDisabled
	}
	start := time.Now()
	policies, err := u.policies.ListPolicies(ctx, portfolio)
	u.metrics.RecordLatency("policy_load", time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, domrepo.ErrPortfolioNotFound) {
			u.metrics.RecordError("policy_load")
		}
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	return u.Analyze(ctx, AnalysisInput{
		Source:    SourcePortfolio,
		RequestID: requestID,
		Policies:  policies,
		Options:   opts,
	})
}

func (u *ReserveAnalysis) cacheKey(in AnalysisInput) string {
	if u.cache == nil {
		return ""
	}
	b, err := json.Marshal(struct {
		Engine   string                 `json:"engine"`
		Options  models.AnalysisOptions `json:"options"`
		Policies []models.Policy        `json:"policies"`
	}{u.fingerprint, in.Options, in.Policies})
	if err != nil {
		return ""
	}
	return cache.GenerateKeyWithParams("reserve", cache.HashKey(b))
}

func (u *ReserveAnalysis) recall(ctx context.Context, key string, log *applogger.Logger) (*models.ReserveResult, bool) {
	if key == "" {
		return nil, false
	}
	res, err := cache.GetTyped[*models.ReserveResult](ctx, u.cache, key)
	switch {
	case err == nil && res != nil:
		u.metrics.RecordCache(true)
		return res, true
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		log.Warn("result cache get failed", applogger.Error(err))
	}
	u.metrics.RecordCache(false)
	return nil, false
}

func (u *ReserveAnalysis) remember(ctx context.Context, key string, res *models.ReserveResult, log *applogger.Logger) {
	if key == "" {
		return
	}
	if err := u.cache.Set(ctx, key, res, u.cacheTTL); err != nil {
		log.Warn("result cache set failed", applogger.Error(err))
	}
}

func (u *ReserveAnalysis) publish(ctx context.Context, in AnalysisInput, res *models.ReserveResult, log *applogger.Logger) {
	if u.publisher == nil {
		return
	}
	ev := models.NewReserveComputedEvent(res, in.Source, in.RequestID, len(in.Policies))
	if err := u.publisher.PublishReserve(ctx, ev); err != nil {
		u.metrics.RecordError("publish")
		log.Error("publish reserve event failed", applogger.String("run_id", res.RunID), applogger.Error(err))
	}
}
