// Package pipeline runs voice submissions end to end: audio storage,
// transcription, interpretation, the command log and dispatch.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/voice-inventory/internal/actions"
	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/intent"
)

// PipelineStep represents a single step of a voice submission.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	OwnerID  string
	Filename string
	Audio    []byte

	// AudioKey is set once the upload has been persisted and must be
	// released by the caller.
	AudioKey string

	Transcript string
	Command    intent.Command
	LogEntry   *domain.CommandLogEntry
	Result     actions.Result
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
