package app

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"cloneselect/domain/clone"
	"cloneselect/domain/workflow"
	"cloneselect/internal"
	"cloneselect/ports"
)

const (
	// DefaultSensitivityTrials bounds the cost of every candidate run regardless of the baseline n_rep
	DefaultSensitivityTrials = 1000
	// DefaultSensitivityCorrelation is used when the caller supplies no correlation
	DefaultSensitivityCorrelation = 0.5
)

var (
	keepMultipliers = []float64{0.5, 0.75, 1.0, 1.25, 1.5}
	topXCandidates  = []float64{1, 2, 5, 10, 15}
)

// ParameterRange describes one swept parameter: how to derive its candidate
// values from a baseline and how to apply a candidate to a configuration.
type ParameterRange struct {
	Name       string
	Candidates func(base workflow.Config) []float64
	Apply      func(cfg workflow.Config, value float64) workflow.Config
}

// DefaultParameterRanges sweeps step1_keep, step2_keep and top_x_percent
func DefaultParameterRanges() []ParameterRange {
	return []ParameterRange{
		{
			Name:       "step1_keep",
			Candidates: func(base workflow.Config) []float64 { return scaledKeeps(base.Step1Keep) },
			Apply: func(cfg workflow.Config, value float64) workflow.Config {
				cfg.Step1Keep = int(value)
				return clampDependent(cfg, 1)
			},
		},
		{
			Name:       "step2_keep",
			Candidates: func(base workflow.Config) []float64 { return scaledKeeps(base.Step2Keep) },
			Apply: func(cfg workflow.Config, value float64) workflow.Config {
				cfg.Step2Keep = int(value)
				return clampDependent(cfg, 2)
			},
		},
		{
			Name: "top_x_percent",
			Candidates: func(workflow.Config) []float64 {
				return append([]float64(nil), topXCandidates...)
			},
			Apply: func(cfg workflow.Config, value float64) workflow.Config {
				cfg.TopXPercent = value
				return cfg
			},
		},
	}
}

// scaledKeeps truncates each multiple of base toward zero
func scaledKeeps(base int) []float64 {
	out := make([]float64, len(keepMultipliers))
	for i, m := range keepMultipliers {
		out[i] = float64(int(float64(base) * m))
	}
	return out
}

// clampDependent lowers only the keep-counts after the swept step. The swept
// value itself is never touched, so a step-2 candidate above step 1 reaches
// the simulator as-is, fails validation and scores 0.
func clampDependent(cfg workflow.Config, swept int) workflow.Config {
	if swept < 2 && cfg.Step2Keep > cfg.Step1Keep {
		cfg.Step2Keep = cfg.Step1Keep
	}
	if cfg.Step3Keep > cfg.Step2Keep {
		cfg.Step3Keep = cfg.Step2Keep
	}
	return cfg
}

// SensitivityService varies one parameter at a time around a baseline
// configuration and records the resulting success probabilities.
type SensitivityService struct {
	simulator ports.WorkflowSimulator
	rngPort   ports.RNGPort
	logger    *internal.Logger
	sem       *semaphore.Weighted
	trials    int
	ranges    []ParameterRange
}

// NewSensitivityService creates a sensitivity driver. workers bounds how many
// candidate simulations run at once; trials <= 0 selects DefaultSensitivityTrials.
func NewSensitivityService(simulator ports.WorkflowSimulator, rngPort ports.RNGPort, workers, trials int, logger *internal.Logger) *SensitivityService {
	if workers <= 0 {
		workers = 1
	}
	if trials <= 0 {
		trials = DefaultSensitivityTrials
	}
	return &SensitivityService{
		simulator: simulator,
		rngPort:   rngPort,
		logger:    logger.WithComponent("Sensitivity"),
		sem:       semaphore.NewWeighted(int64(workers)),
		trials:    trials,
		ranges:    DefaultParameterRanges(),
	}
}

// WithRanges replaces the swept parameter table
func (s *SensitivityService) WithRanges(ranges []ParameterRange) *SensitivityService {
	s.ranges = ranges
	return s
}

type candidateJob struct {
	param string
	index int
	cfg   workflow.Config
}

// Analyze sweeps every parameter range using the first of correlations (or
// DefaultSensitivityCorrelation). A candidate whose simulation fails reports
// probability 0; only context cancellation aborts the sweep.
func (s *SensitivityService) Analyze(ctx context.Context, observed []float64, table *clone.Table, baseline workflow.Config, correlations []float64) (map[string]workflow.SensitivityCurve, error) {
	startTime := time.Now()

	rho := DefaultSensitivityCorrelation
	if len(correlations) > 0 {
		rho = correlations[0]
	}

	curves := make(map[string]workflow.SensitivityCurve, len(s.ranges))
	var jobs []candidateJob
	for _, pr := range s.ranges {
		values := pr.Candidates(baseline)
		curves[pr.Name] = workflow.SensitivityCurve{
			Values:        values,
			Probabilities: make([]float64, len(values)),
		}
		for i, v := range values {
			cfg := pr.Apply(baseline, v)
			cfg.Correlation = rho
			cfg.NRep = s.trials
			cfg.Seed = s.rngPort.DeriveSeed(baseline.Seed, pr.Name, i)
			jobs = append(jobs, candidateJob{param: pr.Name, index: i, cfg: cfg})
		}
	}

	var wg sync.WaitGroup
	var acquireErr error
	for _, job := range jobs {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			acquireErr = err
			break
		}

		wg.Add(1)
		go func(job candidateJob) {
			defer wg.Done()
			defer s.sem.Release(1)

			probability := 0.0
			result, err := s.simulator.Simulate(ctx, observed, table, job.cfg)
			if err != nil {
				s.logger.Warn("%s candidate %d failed, recording 0: %v", job.param, job.index, err)
			} else {
				probability = result.Probability
			}
			// each job owns a distinct slot
			curves[job.param].Probabilities[job.index] = probability
		}(job)
	}
	wg.Wait()

	if acquireErr != nil {
		return nil, acquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Info("sensitivity sweep of %d candidates at rho=%.2f finished in %v", len(jobs), rho, time.Since(startTime))
	return curves, nil
}
