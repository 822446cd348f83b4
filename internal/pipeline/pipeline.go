package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/deepscan/internal/model"
)

// Scan is the state of one page scan as it moves through the pipeline.
type Scan struct {
	// Metadata is the scan request. Steps never modify it.
	Metadata *model.ScanMetadata

	// Result is the page scan result built by the steps.
	Result *model.OnDemandPageScanResult

	// Page is the page the scan loads. It is owned by the caller.
	Page Page

	// PerformedSteps lists the names of the steps that ran, in order.
	PerformedSteps []string

	// Error is the last step error, if any.
	Error error

	// ErrorMessage is the string form of Error, kept for serialization.
	ErrorMessage string

	// StartedAt is when the pipeline started executing.
	StartedAt time.Time

	// FinishedAt is when the pipeline finished executing.
	FinishedAt time.Time
}

// NewScan creates a Scan for a request and its result.
func NewScan(metadata *model.ScanMetadata, result *model.OnDemandPageScanResult, page Page) *Scan {
	return &Scan{
		Metadata:       metadata,
		Result:         result,
		Page:           page,
		PerformedSteps: make([]string, 0),
	}
}

// Failed reports whether a step failed.
func (s *Scan) Failed() bool {
	return s.Error != nil
}

// Step is one stage of a page scan.
type Step interface {
	// Do executes the step. A returned error fails the step; what happens
	// next depends on the pipeline's continue-on-error setting.
	Do(ctx context.Context, scan *Scan) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after one fails. The failure is still recorded on the Scan.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
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

// Execute runs all steps in sequence. Cancellation is checked before each
// step; steps handle their own timeouts.
//
// It returns the first error if continueOnError is false. Otherwise it
// returns the last step error, which is also recorded on the Scan.
func (p *Pipeline) Execute(ctx context.Context, scan *Scan) error {
	scan.StartedAt = time.Now()
	defer func() { scan.FinishedAt = time.Now() }()

	var lastErr error
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"scanId", scan.Metadata.ID,
				"reason", ctx.Err(),
			)
			scan.Error = ctx.Err()
			scan.ErrorMessage = ctx.Err().Error()
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"scanId", scan.Metadata.ID,
			"url", scan.Metadata.URL,
		)

		if err := step.Do(ctx, scan); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"scanId", scan.Metadata.ID,
				"url", scan.Metadata.URL,
				"error", err,
			)

			scan.Error = err
			scan.ErrorMessage = err.Error()
			lastErr = err

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"scanId", scan.Metadata.ID,
			)
		}

		scan.PerformedSteps = append(scan.PerformedSteps, step.Name())
	}

	return lastErr
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
