package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Step processes one discovered address.
type Step interface {
	// Do handles addr. A returned error stops the pipeline unless
	// WithContinueOnError is set.
	Do(ctx context.Context, addr string) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs every consumed address through its steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
	limit           int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError logs step failures and keeps going instead of
// stopping the pipeline.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// WithLimit stops Run after n addresses. 0 means no limit.
func WithLimit(n int) Option {
	return func(p *Pipeline) {
		p.limit = max(n, 0)
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
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

// Execute runs every step for a single address.
func (p *Pipeline) Execute(ctx context.Context, addr string) error {
	for _, step := range p.steps {
		if err := step.Do(ctx, addr); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", addr,
				"error", err,
			)
			if !p.continueOnError {
				return fmt.Errorf("%s: %w", step.Name(), err)
			}
		}
	}
	return nil
}

// Run consumes in until it is closed, the limit is reached, a step fails or
// ctx is cancelled, and returns the number of addresses consumed.
//
// The error is nil when in was closed or the limit was reached, ctx.Err()
// on cancellation, and the step error otherwise. Run does not drain in
// after it returns; the caller cancels the crawl.
func (p *Pipeline) Run(ctx context.Context, in <-chan string) (int, error) {
	consumed := 0
	for {
		if p.LimitReached(consumed) {
			p.logger.Debug("result limit reached", "limit", p.limit)
			return consumed, nil
		}

		var addr string
		select {
		case <-ctx.Done():
			return consumed, ctx.Err()
		case a, ok := <-in:
			if !ok {
				return consumed, nil
			}
			addr = a
		}

		consumed++
		p.logger.Debug("emitted", "url", addr, "count", consumed)
		if err := p.Execute(ctx, addr); err != nil {
			return consumed, err
		}
	}
}

// LimitReached reports whether consumed addresses exhaust the limit.
func (p *Pipeline) LimitReached(consumed int) bool {
	return p.limit > 0 && consumed >= p.limit
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
