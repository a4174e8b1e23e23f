// Package pipeline runs one analysis of a trading export: load, select
// sheets, infer columns, filter, analyse, aggregate and optionally narrate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/trace"
)

// ErrTimeout is returned when an analysis exceeds its time budget.
var ErrTimeout = errors.New("analysis timed out")

// PipelineStep represents a single step of an analysis.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	AnalysisID string
	Filename   string
	GCSURI     string
	Data       []byte

	Workbook      *domain.Workbook
	Tables        []*domain.Table
	SheetsSkipped []string

	// Roles, Trading and ExcludedRows are keyed by table name.
	Roles        map[string]domain.ColumnRoleMap
	Trading      map[string]*domain.Table
	ExcludedRows map[string]int

	Sheets       []domain.SheetStatistics
	Summary      domain.PortfolioSummary
	Transactions []domain.Transaction
	Narrative    string
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially. It stops before the
// next step once ctx is done.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d not started: %w", i+1, err)
		}

		stepCtx, span := trace.StartSpan(ctx, stepName(step), attribute.Int("step", i+1))
		err := step.Execute(stepCtx, state)
		trace.End(span, err)
		if err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

func stepName(step PipelineStep) string {
	name := fmt.Sprintf("%T", step)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "Step")
}
