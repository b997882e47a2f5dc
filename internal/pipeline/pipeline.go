package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/pagegrab/internal/model"
)

// Step processes a fetched document after extraction.
// Steps may be called concurrently for different documents.
type Step interface {
	// Do handles doc. Returning an error marks the document as rejected.
	Do(ctx context.Context, doc *model.ScrapedDocument) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs a fixed sequence of steps over each document.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later steps after one fails.
// Execute still returns the first error.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step over doc in order. Cancellation is checked
// before each step.
func (p *Pipeline) Execute(ctx context.Context, doc *model.ScrapedDocument) error {
	var firstErr error

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"url", doc.URL,
				"reason", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			return firstErr
		}

		if err := step.Do(ctx, doc); err != nil {
			p.logger.Warn("step failed",
				"step", step.Name(),
				"url", doc.URL,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				return firstErr
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"url", doc.URL,
		)
	}

	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
