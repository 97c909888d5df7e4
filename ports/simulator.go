package ports

import (
	"context"

	"cloneselect/domain/clone"
	"cloneselect/domain/workflow"
)

// WorkflowSimulator runs one Monte Carlo evaluation of a selection workflow
type WorkflowSimulator interface {
	Simulate(ctx context.Context, observed []float64, table *clone.Table, cfg workflow.Config) (*workflow.Result, error)
}
