package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"cloneselect/adapters/stats/criteria"
	"cloneselect/adapters/stats/distribution"
	"cloneselect/domain/clone"
	"cloneselect/domain/workflow"
	"cloneselect/internal"
	"cloneselect/ports"
)

// SyntheticOverlaySize is the sample size used for real-vs-synthetic overlays
const SyntheticOverlaySize = 10000

// SimulationService runs Monte Carlo evaluations of multi-stage clone
// selection workflows.
type SimulationService struct {
	rngPort ports.RNGPort
	logger  *internal.Logger
}

// NewSimulationService creates a simulation service
func NewSimulationService(rngPort ports.RNGPort, logger *internal.Logger) *SimulationService {
	return &SimulationService{
		rngPort: rngPort,
		logger:  logger.WithComponent("Simulation"),
	}
}

// skippedTrial marks a repetition that was abandoned; it never escapes Simulate
type skippedTrial struct {
	reason string
}

func (e skippedTrial) Error() string { return e.reason }

func skip(format string, args ...interface{}) error {
	return skippedTrial{reason: fmt.Sprintf(format, args...)}
}

// Simulate fits the model once, runs cfg.NRep independent trials and
// aggregates them. Configuration problems are returned before any trial runs;
// a trial that cannot complete is skipped and still counts in the NRep
// denominator.
func (s *SimulationService) Simulate(ctx context.Context, observed []float64, table *clone.Table, cfg workflow.Config) (*workflow.Result, error) {
	startTime := time.Now()

	cfg = cfg.Normalize()
	if err := cfg.Validate(len(observed)); err != nil {
		return nil, err
	}

	runner, model, err := s.newTrialRunner(ctx, observed, table, cfg)
	if err != nil {
		return nil, err
	}

	result := &workflow.Result{
		Model:         model,
		SuccessCounts: make([]int, 0, cfg.NRep),
		Cutoff:        runner.cutoff,
		Correlation:   cfg.Correlation,
		FinalKeep:     cfg.FinalKeep(),
		NRep:          cfg.NRep,
	}

	for rep := 0; rep < cfg.NRep; rep++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := runner.run()
		if err != nil {
			result.SkippedTrials++
			s.logger.Trace("trial %d skipped: %v", rep, err)
			continue
		}

		result.SuccessCounts = append(result.SuccessCounts, outcome.SuccessCount)
		if outcome.FullySuccessful {
			result.SuccessfulCount++
		}
	}

	result.Probability = float64(result.SuccessfulCount) / float64(cfg.NRep)

	if result.SkippedTrials > 0 {
		s.logger.Debug("%d of %d trials skipped (rho=%.2f)", result.SkippedTrials, cfg.NRep, cfg.Correlation)
	}
	s.logger.Info("rho=%.2f steps=%d n_rep=%d probability=%.4f in %v",
		cfg.Correlation, cfg.WorkflowSteps, cfg.NRep, result.Probability, time.Since(startTime))

	return result, nil
}

// Synthetic draws an overlay sample comparable to observed, reusing model
// when one is supplied.
func (s *SimulationService) Synthetic(ctx context.Context, observed []float64, count int, method workflow.Method, model *workflow.FittedModel, seed int64) ([]float64, error) {
	rng, err := s.rngPort.SeededStream(ctx, "synthetic", seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create random stream: %w", err)
	}
	return distribution.Generate(rng, observed, count, method, model)
}

// newTrialRunner fits the model, builds the sampler and seeds the trial
// stream for an already validated cfg.
func (s *SimulationService) newTrialRunner(ctx context.Context, observed []float64, table *clone.Table, cfg workflow.Config) (*trialRunner, *workflow.FittedModel, error) {
	var model *workflow.FittedModel
	if cfg.Method == workflow.MethodLognormal {
		fitted, err := distribution.FitLognormal(observed)
		if err != nil {
			return nil, nil, err
		}
		model = fitted
	}

	// One estimator per run; KDE resampling is identical whether or not it is rebuilt per trial
	sampler, err := distribution.NewSampler(observed, cfg.Method, model)
	if err != nil {
		return nil, nil, err
	}

	cutoff, err := distribution.SuccessCutoff(observed, cfg.TopXPercent)
	if err != nil {
		return nil, nil, err
	}

	rng, err := s.rngPort.SeededStream(ctx, "workflow", cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create random stream: %w", err)
	}

	return &trialRunner{
		cfg:     cfg,
		table:   table,
		sampler: sampler,
		cutoff:  cutoff,
		rng:     rng,
		size:    len(observed),
	}, model, nil
}

// trialRunner holds the read-only state shared by every trial of one run
type trialRunner struct {
	cfg     workflow.Config
	table   *clone.Table
	sampler distribution.Sampler
	cutoff  float64
	rng     *rand.Rand
	size    int
}

// run executes one trial: selection through every stage, then the optional
// final criteria check and success counting.
func (r *trialRunner) run() (workflow.TrialOutcome, error) {
	cfg := r.cfg

	finalProxy, finalRows, err := r.selectFinal()
	if err != nil {
		return workflow.TrialOutcome{}, err
	}

	if cfg.ApplyCriteriaAtFinalStep {
		mask, err := criteria.Passes(r.table, cfg.Criteria, finalRows)
		if err != nil {
			return workflow.TrialOutcome{}, skip("final criteria: %v", err)
		}
		if !criteria.AllPass(mask) {
			return workflow.TrialOutcome{}, skip("a final clone failed criteria")
		}
	}

	count := 0
	for _, v := range finalProxy {
		if v >= r.cutoff {
			count++
		}
	}

	return workflow.TrialOutcome{
		SuccessCount:    count,
		FullySuccessful: count == cfg.Step3Keep,
	}, nil
}

// selectFinal draws one trial's measurements and returns the tracked merit
// and table row of each final survivor. Each clone's tracked merit lags one
// stage behind the measurement that ranks it: stage-1 values are carried as
// the proxy through every later cut.
func (r *trialRunner) selectFinal() ([]float64, []int, error) {
	cfg := r.cfg

	stage1 := r.sampler.Sample(r.rng, r.size)
	rows := identityRows(r.size)

	if !cfg.ApplyCriteriaAtFinalStep && len(cfg.Criteria) > 0 {
		mask, err := criteria.Passes(r.table, cfg.Criteria, rows)
		if err != nil {
			return nil, nil, skip("up-front criteria: %v", err)
		}
		stage1, rows = keepMasked(stage1, rows, mask)
		if len(stage1) < cfg.Step1Keep {
			return nil, nil, skip("only %d clones pass criteria, need %d", len(stage1), cfg.Step1Keep)
		}
	}

	top1 := topK(stage1, cfg.Step1Keep)
	top1Proxy := gather(stage1, top1)
	top1Rows := gatherRows(rows, top1)

	stage2 := correlatedMix(top1Proxy, r.sampler.Sample(r.rng, cfg.Step1Keep), cfg.Correlation)
	if len(stage2) < cfg.Step2Keep {
		return nil, nil, skip("stage 2 produced %d values, need %d", len(stage2), cfg.Step2Keep)
	}

	top2 := topK(stage2, cfg.Step2Keep)
	top2Proxy := gather(top1Proxy, top2)
	top2Rows := gatherRows(top1Rows, top2)

	if cfg.WorkflowSteps == 3 {
		// mixing base is the survivors' carried stage-1 proxy, not their stage-2 measurement
		stage3 := correlatedMix(top2Proxy, r.sampler.Sample(r.rng, cfg.Step2Keep), cfg.Correlation)
		if len(stage3) < cfg.Step3Keep {
			return nil, nil, skip("stage 3 produced %d values, need %d", len(stage3), cfg.Step3Keep)
		}
		final := topK(stage3, cfg.Step3Keep)
		return gather(top2Proxy, final), gatherRows(top2Rows, final), nil
	}

	final := topK(stage2, cfg.Step3Keep)
	return gather(top1Proxy, final), gatherRows(top1Rows, final), nil
}
