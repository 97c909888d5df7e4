package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"cloneselect/domain/workflow"
	"cloneselect/internal/errors"
)

// CorrelationSpec describes the correlation values a scenario sweeps
type CorrelationSpec struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// Scenario is a saved simulation setup: workflow parameters, the
// correlations to sweep and optionally the data to run against.
type Scenario struct {
	Workflow     workflow.Config `yaml:"workflow"`
	Correlations CorrelationSpec `yaml:"correlations"`
	DataFile     string          `yaml:"data_file,omitempty"`
	Sheet        string          `yaml:"sheet,omitempty"`
}

// DefaultScenario matches the defaults of the interactive dashboard
func DefaultScenario() Scenario {
	cfg := workflow.DefaultConfig()
	cfg.Step3Keep = 6
	return Scenario{
		Workflow:     cfg,
		Correlations: CorrelationSpec{Min: 0.1, Max: 0.9, Step: 0.01},
	}
}

// LoadScenario reads a YAML scenario. Keys missing from the file keep their
// defaults; unknown keys are rejected.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to open scenario: %w", err))
	}
	defer f.Close()

	scenario := DefaultScenario()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to parse scenario %s: %w", path, err))
	}

	scenario.Workflow.Method = workflow.ParseMethod(string(scenario.Workflow.Method))
	return &scenario, nil
}

// SaveScenario writes s as YAML
func SaveScenario(path string, s Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to encode scenario")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write scenario")
	}
	return nil
}
