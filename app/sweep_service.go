package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"cloneselect/domain/clone"
	"cloneselect/domain/core"
	"cloneselect/domain/workflow"
	"cloneselect/internal"
	"cloneselect/ports"
)

// ComparisonCorrelation is the fixed correlation used to compare 2-step and 3-step plans
const ComparisonCorrelation = 0.5

// CorrelationRange returns min, min+step, ... up to max inclusive, each
// rounded to two decimals.
func CorrelationRange(min, max, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, core.NewConfigurationError("correlation step must be positive, got %g", step)
	}
	if min > max {
		return nil, core.NewConfigurationError("correlation min (%g) exceeds max (%g)", min, max)
	}
	if min < 0 || max > 1 {
		return nil, core.NewConfigurationError("correlation range [%g, %g] must lie within [0, 1]", min, max)
	}

	n := int(math.Floor((max-min)/step+1e-9)) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Round((min+float64(i)*step)*100) / 100
	}
	return values, nil
}

// Histogram is the frequency of each success count 0..final keep
type Histogram struct {
	Frequencies []int   `json:"frequencies"`
	Mean        float64 `json:"mean"`
}

// SuccessHistogram tallies per-trial success counts
func SuccessHistogram(counts []int, finalKeep int) Histogram {
	h := Histogram{Frequencies: make([]int, finalKeep+1)}
	for _, c := range counts {
		if c >= 0 && c <= finalKeep {
			h.Frequencies[c]++
		}
	}
	if mean, err := stats.Mean(stats.LoadRawData(counts)); err == nil {
		h.Mean = mean
	}
	return h
}

// SweepPoint is the outcome of one correlation value
type SweepPoint struct {
	Correlation   float64   `json:"correlation"`
	Probability   float64   `json:"probability"`
	SuccessCounts []int     `json:"success_counts"`
	SkippedTrials int       `json:"skipped_trials"`
	Histogram     Histogram `json:"histogram"`
}

// SweepSummary holds the key findings across a correlation sweep
type SweepSummary struct {
	MaxProbability     float64 `json:"max_probability"`
	MinProbability     float64 `json:"min_probability"`
	MeanProbability    float64 `json:"mean_probability"`
	OptimalCorrelation float64 `json:"optimal_correlation"`
	ImprovementRange   float64 `json:"improvement_range"`
}

// SweepResult is the full output of a correlation sweep
type SweepResult struct {
	RunID       core.RunID            `json:"run_id"`
	Fingerprint core.Hash             `json:"fingerprint"`
	Config      workflow.Config       `json:"config"`
	Points      []SweepPoint          `json:"points"`
	Model       *workflow.FittedModel `json:"fitted_model,omitempty"`
	Summary     SweepSummary          `json:"summary"`
	Efficiency  workflow.Efficiency   `json:"efficiency"`
	RuntimeMs   int64                 `json:"runtime_ms"`
}

// Correlations returns the swept correlation values in order
func (r *SweepResult) Correlations() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Correlation
	}
	return out
}

// Probabilities returns the success probabilities in sweep order
func (r *SweepResult) Probabilities() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Probability
	}
	return out
}

// WorkflowComparison reports the 2-step and 3-step probabilities at a common correlation
type WorkflowComparison struct {
	Correlation float64 `json:"correlation"`
	TwoStep     float64 `json:"two_step"`
	ThreeStep   float64 `json:"three_step"`
}

// SweepService drives the simulator across correlation values and
// workflow shapes.
type SweepService struct {
	simulator ports.WorkflowSimulator
	logger    *internal.Logger
}

// NewSweepService creates a sweep service
func NewSweepService(simulator ports.WorkflowSimulator, logger *internal.Logger) *SweepService {
	return &SweepService{
		simulator: simulator,
		logger:    logger.WithComponent("Sweep"),
	}
}

// ProgressFunc is called after each correlation of a sweep completes
type ProgressFunc func(done, total int, point SweepPoint)

// SweepCorrelations runs one simulation per correlation. Unlike the
// sensitivity driver, a failing configuration aborts the sweep: every point
// shares the same keep-counts, so the first failure applies to all of them.
func (s *SweepService) SweepCorrelations(ctx context.Context, observed []float64, table *clone.Table, cfg workflow.Config, correlations []float64) (*SweepResult, error) {
	return s.SweepCorrelationsWithProgress(ctx, observed, table, cfg, correlations, nil)
}

// SweepCorrelationsWithProgress is SweepCorrelations reporting each finished point
func (s *SweepService) SweepCorrelationsWithProgress(ctx context.Context, observed []float64, table *clone.Table, cfg workflow.Config, correlations []float64, progress ProgressFunc) (*SweepResult, error) {
	startTime := time.Now()

	if len(correlations) == 0 {
		return nil, core.NewConfigurationError("at least one correlation is required")
	}

	cfg = cfg.Normalize()
	efficiency, err := workflow.WorkflowEfficiency(cfg.Step1Keep, cfg.Step2Keep, cfg.Step3Keep, cfg.WorkflowSteps)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{
		RunID:       core.NewRunID(),
		Fingerprint: core.ComputeFingerprint(cfg, correlations, len(observed), table.CriteriaColumns()),
		Config:      cfg,
		Points:      make([]SweepPoint, 0, len(correlations)),
		Efficiency:  efficiency,
	}

	for _, rho := range correlations {
		run := cfg
		run.Correlation = rho

		simResult, err := s.simulator.Simulate(ctx, observed, table, run)
		if err != nil {
			return nil, fmt.Errorf("correlation %.2f: %w", rho, err)
		}

		point := SweepPoint{
			Correlation:   rho,
			Probability:   simResult.Probability,
			SuccessCounts: simResult.SuccessCounts,
			SkippedTrials: simResult.SkippedTrials,
			Histogram:     SuccessHistogram(simResult.SuccessCounts, simResult.FinalKeep),
		}
		result.Model = simResult.Model
		result.Points = append(result.Points, point)
		if progress != nil {
			progress(len(result.Points), len(correlations), point)
		}
	}

	result.Summary = summarize(result.Points)
	result.RuntimeMs = time.Since(startTime).Milliseconds()

	s.logger.Info("run %s (%s): swept %d correlations, max probability %.3f at rho=%.2f",
		result.RunID, result.Fingerprint.Short(), len(result.Points), result.Summary.MaxProbability, result.Summary.OptimalCorrelation)
	return result, nil
}

// CompareWorkflows evaluates the same keep-counts as a 2-step plan (final =
// step2) and as a 3-step plan, both at ComparisonCorrelation.
func (s *SweepService) CompareWorkflows(ctx context.Context, observed []float64, table *clone.Table, cfg workflow.Config) (*WorkflowComparison, error) {
	two := cfg
	two.WorkflowSteps = 2
	two.Step3Keep = two.Step2Keep
	two.Correlation = ComparisonCorrelation

	three := cfg
	three.WorkflowSteps = 3
	three.Correlation = ComparisonCorrelation

	twoResult, err := s.simulator.Simulate(ctx, observed, table, two)
	if err != nil {
		return nil, fmt.Errorf("2-step workflow: %w", err)
	}
	threeResult, err := s.simulator.Simulate(ctx, observed, table, three)
	if err != nil {
		return nil, fmt.Errorf("3-step workflow: %w", err)
	}

	s.logger.Info("2-step %.3f vs 3-step %.3f at rho=%.2f", twoResult.Probability, threeResult.Probability, ComparisonCorrelation)
	return &WorkflowComparison{
		Correlation: ComparisonCorrelation,
		TwoStep:     twoResult.Probability,
		ThreeStep:   threeResult.Probability,
	}, nil
}

func summarize(points []SweepPoint) SweepSummary {
	if len(points) == 0 {
		return SweepSummary{}
	}

	probs := make(stats.Float64Data, len(points))
	best := 0
	for i, p := range points {
		probs[i] = p.Probability
		if p.Probability > points[best].Probability {
			best = i
		}
	}

	maxP, _ := probs.Max()
	minP, _ := probs.Min()
	meanP, _ := probs.Mean()

	return SweepSummary{
		MaxProbability:     maxP,
		MinProbability:     minP,
		MeanProbability:    meanP,
		OptimalCorrelation: points[best].Correlation,
		ImprovementRange:   maxP - minP,
	}
}
