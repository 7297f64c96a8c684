// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

type (
	// Pipeline runs a plan's steps strictly in order and stops at the first
	// failure. A failed run has no recovery transition; run it again from START.
	Pipeline struct {
		logger *log.Logger
		now    func() time.Time
		newID  func() string
	}

	// PipelineOption configures a Pipeline.
	PipelineOption func(*Pipeline)

	// Transition records one state change of a run.
	Transition struct {
		From     State         `json:"from"`
		To       State         `json:"to"`
		Step     StepID        `json:"step"`
		Duration time.Duration `json:"duration_ns"`
	}

	// Report describes a finished run.
	Report struct {
		RunID       string        `json:"run_id"`
		Target      Target        `json:"target"`
		StartedAt   time.Time     `json:"started_at"`
		Duration    time.Duration `json:"duration_ns"`
		Steps       []StepID      `json:"steps"`
		Transitions []Transition  `json:"transitions"`
		Final       State         `json:"final"`
		FailedStep  StepID        `json:"failed_step,omitempty"`
		Kind        ErrorKind     `json:"kind,omitempty"`
		ExitCode    int           `json:"exit_code"`
		Error       string        `json:"error,omitempty"`
	}
)

// WithLogger sets the logger. Defaults to a warn-level logger on stderr.
func WithLogger(l *log.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithClock sets the time source used for transition durations.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithRunID sets the generator for run identifiers.
func WithRunID(newID func() string) PipelineOption {
	return func(p *Pipeline) {
		p.newID = newID
	}
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
	}
	return p
}

// Run executes plan through x. It returns a report in every case; on failure
// the report's final state is FAILED and the error is a *StepError.
func (p *Pipeline) Run(ctx context.Context, plan *Plan, x Executor) (*Report, error) {
	runID := p.newID()
	started := p.now()
	report := &Report{
		RunID:     runID,
		Target:    plan.Target,
		StartedAt: started,
		Steps:     plan.IDs(),
		Final:     StateStart,
	}

	if err := plan.Validate(); err != nil {
		return p.fail(report, &StepError{State: StateStart, Kind: KindPackageManager, ExitCode: 1, Err: err})
	}

	logger := p.logger.With("run_id", runID, "target", plan.Target)
	ctx = log.WithContext(ctx, logger)
	logger.Info("provisioning started", "steps", len(plan.Steps))

	state := StateStart
	groupStart := started
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return p.fail(report, newStepError(step, state, err))
		}

		if sa, ok := x.(StepAware); ok {
			sa.BeginStep(step)
		}

		stepStart := p.now()
		logger.Debug("step started", "step", step.ID, "summary", step.Summary)
		if err := step.Apply(ctx, x); err != nil {
			se := newStepError(step, state, err)
			logger.Error("step failed", "step", step.ID, "state", state, "kind", se.Kind, "exit_code", se.ExitCode, "err", err)
			return p.fail(report, se)
		}
		logger.Debug("step finished", "step", step.ID, "duration", p.now().Sub(stepStart))

		if plan.reachesMilestone(i) {
			now := p.now()
			report.Transitions = append(report.Transitions, Transition{
				From:     state,
				To:       step.Milestone,
				Step:     step.ID,
				Duration: now.Sub(groupStart),
			})
			logger.Info("milestone reached", "state", step.Milestone, "step", step.ID)
			state = step.Milestone
			groupStart = now
		}
	}

	report.Final = state
	report.Duration = p.now().Sub(started)
	logger.Info("provisioning finished", "state", state, "duration", report.Duration)
	return report, nil
}

func (p *Pipeline) fail(report *Report, se *StepError) (*Report, error) {
	report.Transitions = append(report.Transitions, Transition{From: se.State, To: StateFailed, Step: se.Step})
	report.Final = StateFailed
	report.Duration = p.now().Sub(report.StartedAt)
	report.FailedStep = se.Step
	report.Kind = se.Kind
	report.ExitCode = se.ExitCode
	report.Error = se.Err.Error()
	return report, se
}

// Succeeded reports whether the run reached READY.
func (r *Report) Succeeded() bool {
	return r.Final == StateReady
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
