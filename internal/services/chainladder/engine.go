package chainladder

import (
	"time"

	"ClaimReserve/internal/domain/models"
)

// Config holds the engine settings that are fixed per deployment.
type Config struct {
	CurrentPeriod      int
	Seed               uint64
	HistoryWindow      int
	DevelopmentPeriods int
	// MaskUnobserved drops cells after the current period so the triangle is ragged.
	MaskUnobserved bool
}

// DefaultConfig evaluates at 2023 with seed 42 over six origins and six
// development periods.
func DefaultConfig() Config {
	return Config{
		CurrentPeriod:      2023,
		Seed:               42,
		HistoryWindow:      DefaultHistoryWindow,
		DevelopmentPeriods: DefaultDevelopmentPeriods,
		MaskUnobserved:     true,
	}
}

// Engine runs the Chain-Ladder pipeline. It holds no per-run state and may be
// shared between goroutines.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine creates an engine. Zero period, window and development settings
// take their defaults; Seed and MaskUnobserved are used as given.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.CurrentPeriod == 0 {
		cfg.CurrentPeriod = def.CurrentPeriod
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.DevelopmentPeriods <= 0 {
		cfg.DevelopmentPeriods = def.DevelopmentPeriods
	}
	return &Engine{cfg: cfg, now: time.Now}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Analyze validates policies and opts, then runs synthesizer, triangle,
// factors, selection, CDFs and projection in order.
func (e *Engine) Analyze(policies []models.Policy, opts models.AnalysisOptions) (*models.ReserveResult, error) {
	if err := ValidatePolicies(policies); err != nil {
		return nil, err
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	opts.Method = models.ParseMethod(string(opts.Method))

	syn := NewSynthesizer(e.cfg.CurrentPeriod, NewRandomSource(e.cfg.Seed),
		WithHistoryWindow(e.cfg.HistoryWindow),
		WithDevelopmentPeriods(e.cfg.DevelopmentPeriods),
	)
	obs := syn.Synthesize(policies)

	triOpts := []TriangleOption{WithDevelopmentWindow(e.cfg.DevelopmentPeriods)}
	if e.cfg.MaskUnobserved {
		triOpts = append(triOpts, WithEvaluationPeriod(e.cfg.CurrentPeriod))
	}
	tri := BuildTriangle(obs, triOpts...)

	return e.AnalyzeTriangle(tri, opts), nil
}

// AnalyzeTriangle runs the stages after the triangle builder. opts are used
// as given.
func (e *Engine) AnalyzeTriangle(tri *Triangle, opts models.AnalysisOptions) *models.ReserveResult {
	ata := DevelopmentFactors(tri)
	sel := SelectFactors(ata, opts.Method, opts.TailFactor, tri.MaxDev())
	cdfs := CumulativeFactors(sel, tri.DevPeriods())
	proj := ProjectReserves(tri, cdfs)

	return &models.ReserveResult{
		Method:             opts.Method,
		TailFactor:         opts.TailFactor,
		Triangle:           tri.Map(),
		ATAFactors:         ata.Table(),
		SelectedFactors:    sel.Entries(),
		CDFs:               cdfs.List(),
		LatestDiagonal:     proj.Latest,
		Summary:            proj.Summary,
		TotalIBNR:          proj.TotalIBNR,
		TotalUltimate:      proj.TotalUltimate,
		TotalPaid:          proj.TotalPaid,
		OverallIBNRPercent: proj.OverallIBNRPercent,
		ComputedAt:         e.now().UTC(),
	}
}
