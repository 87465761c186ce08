package flash

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/hyrodium/roBa-writer/internal/firmware"
	"github.com/hyrodium/roBa-writer/internal/volumes"
)

// Decision is the operator's answer to a failed step.
type Decision int

const (
	// Retry re-runs the failed step from AwaitingDevice, same file.
	Retry Decision = iota
	// SkipStep abandons the failed step and moves on; the run can then
	// finish as at most a partial success.
	SkipStep
	// Abort ends the whole run.
	Abort
)

// Decider is consulted at the Programmer's decision points. Implementations
// may block (interactive prompt); the run waits.
type Decider interface {
	OnStepFailed(stepIndex int, step firmware.Step, err error) Decision
}

// DeciderFunc adapts a plain function to the Decider interface.
type DeciderFunc func(stepIndex int, step firmware.Step, err error) Decision

// OnStepFailed calls the wrapped function.
func (f DeciderFunc) OnStepFailed(stepIndex int, step firmware.Step, err error) Decision {
	return f(stepIndex, step, err)
}

// Outcome is the terminal result of one run.
type Outcome int

const (
	// Success means every plan step completed.
	Success Outcome = iota
	// PartialSuccess means the run finished but at least one step was skipped.
	PartialSuccess
	// Aborted means the operator (or a cancelled context) ended the run.
	Aborted
	// Failed means the run ended on an unrecovered error.
	Failed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case PartialSuccess:
		return "partial success"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result carries the run outcome plus the per-step ledger.
type Result struct {
	Outcome   Outcome
	Completed []firmware.Step // steps that reached StepComplete, in order
	Skipped   []firmware.Step // steps the operator skipped
	Err       error           // terminal error for Failed outcomes
}

// Config wires a Programmer together.
type Config struct {
	Plan    *firmware.Plan
	Monitor *volumes.Monitor

	// PollInterval for the volume monitor. Zero selects the default.
	PollInterval time.Duration

	// Decider resolves failed steps. Nil makes any step failure terminal
	// (the run ends as Failed).
	Decider Decider

	// OnProgress receives engine status reports (optional).
	OnProgress ProgressFunc

	// Logger receives the session log (optional).
	Logger *log.Logger

	ArriveTimeout time.Duration
	DepartTimeout time.Duration

	// ExpectedLabel restricts which volume labels the engine claims.
	ExpectedLabel string

	// copier overrides the firmware copy operation (tests).
	copier func(srcPath, mountPath string) error
}

// Programmer owns one full run: it starts the volume monitor, drives the
// engine step by step, and consults the Decider when a step fails. The
// Programmer is the sole retry-vs-abort decision point; the engine only
// reports.
type Programmer struct {
	plan         *firmware.Plan
	monitor      *volumes.Monitor
	pollInterval time.Duration
	decider      Decider
	logger       *log.Logger
	engine       *Engine
}

// New creates a Programmer from the given configuration.
func New(config *Config) *Programmer {
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Programmer{
		plan:         config.Plan,
		monitor:      config.Monitor,
		pollInterval: config.PollInterval,
		decider:      config.Decider,
		logger:       logger,
		engine: NewEngine(EngineConfig{
			ArriveTimeout: config.ArriveTimeout,
			DepartTimeout: config.DepartTimeout,
			ExpectedLabel: config.ExpectedLabel,
			OnProgress:    config.OnProgress,
			Logger:        logger,
			Copier:        config.copier,
		}),
	}
}

// Run executes the whole plan. Cancelling the context aborts the run at the
// next state-machine transition boundary; an in-flight copy always finishes
// or fails first.
func (p *Programmer) Run(ctx context.Context) Result {
	// Volumes already attached at startup are not arrivals.
	p.monitor.Prime()

	events := make(chan volumes.Event, 16)
	monCtx, stopMonitor := context.WithCancel(context.Background())
	go p.monitor.Run(monCtx, p.pollInterval, events)
	defer func() {
		stopMonitor()
		for range events {
			// Drain so the monitor's final deliveries never block.
		}
	}()

	p.logger.Printf("run started: %s, %d step(s)", p.plan.Mode, len(p.plan.Steps))

	var result Result
	for i, step := range p.plan.Steps {
	attempt:
		for {
			err := p.engine.RunStep(ctx, i, len(p.plan.Steps), step, events)
			if err == nil {
				p.logger.Printf("step %d (%s) complete", i, step.Label)
				result.Completed = append(result.Completed, step)
				break attempt
			}

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				p.logger.Printf("run aborted during step %d (%s)", i, step.Label)
				result.Outcome = Aborted
				return result
			}

			p.logger.Printf("step %d (%s) failed: %v", i, step.Label, err)
			if p.decider == nil {
				// Headless run with nobody to ask: the error is terminal.
				result.Outcome = Failed
				result.Err = err
				return result
			}
			switch p.decider.OnStepFailed(i, step, err) {
			case Retry:
				p.logger.Printf("step %d (%s): retrying", i, step.Label)
				continue
			case SkipStep:
				p.logger.Printf("step %d (%s): skipped", i, step.Label)
				result.Skipped = append(result.Skipped, step)
				break attempt
			default:
				p.logger.Printf("run aborted by operator after step %d (%s) failed", i, step.Label)
				result.Outcome = Aborted
				result.Err = err
				return result
			}
		}
	}

	if len(result.Skipped) > 0 {
		result.Outcome = PartialSuccess
	} else {
		result.Outcome = Success
	}
	p.logger.Printf("run finished: %s (%d completed, %d skipped)",
		result.Outcome, len(result.Completed), len(result.Skipped))
	return result
}
