// Package executor drives workflow runs: validate, order, execute
// steps sequentially, and maintain the per-step lifecycle.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid-io/flowgrid/internal/dispatch"
	"github.com/flowgrid-io/flowgrid/internal/graph"
	"github.com/flowgrid-io/flowgrid/internal/logger"
	"github.com/flowgrid-io/flowgrid/internal/model"
	"github.com/flowgrid-io/flowgrid/internal/state"
	"github.com/flowgrid-io/flowgrid/internal/stepcheck"
	"github.com/flowgrid-io/flowgrid/internal/template"
)

// OnStepComplete observes terminal step transitions (SUCCESS, FAILED
// or SKIPPED). It receives an immutable snapshot of the result and is
// invoked in topological order, before the next step begins. Panics
// in the callback are caught and logged.
type OnStepComplete func(result model.StepResult)

// Options configures a single run.
type Options struct {
	runID          string
	onStepComplete OnStepComplete
	client         *dispatch.Client
}

// Option configures the executor for one run.
type Option func(*Options)

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(o *Options) { o.runID = id }
}

// WithOnStepComplete registers the progress callback.
func WithOnStepComplete(fn OnStepComplete) Option {
	return func(o *Options) { o.onStepComplete = fn }
}

// WithDispatchClient overrides the HTTP dispatch client.
func WithDispatchClient(client *dispatch.Client) Option {
	return func(o *Options) { o.client = client }
}

// Execute runs the workflow to completion and returns the final run.
// Step-level failures never surface as errors: the run carries them.
// Execute returns an error only for validation failures, unknown
// tools, or internal errors, all of which occur before any step runs.
//
// Steps execute sequentially in deterministic topological order. The
// first FAILED step halts the run; remaining steps are marked
// SKIPPED. Cancellation via ctx is cooperative: it is checked between
// steps, and an in-flight HTTP call fails its step with a cancelled
// error once it returns.
func Execute(
	ctx context.Context,
	wf *model.Workflow,
	tools map[string]*model.ToolDefinition,
	userInputs map[string]any,
	toolConfigs map[string]map[string]string,
	opts ...Option,
) (*model.Run, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.runID == "" {
		options.runID = uuid.New().String()
	}
	if options.client == nil {
		options.client = dispatch.New()
	}

	normalised, err := graph.Validate(wf, tools)
	if err != nil {
		return nil, err
	}
	order, err := graph.TopologicalSort(normalised)
	if err != nil {
		return nil, err
	}

	run := model.NewRun(options.runID, wf.ID, userInputs, order)
	st := state.New(userInputs)

	logger.Info(ctx, "run started", "run", run.ID, "workflow", wf.ID, "steps", len(order))

	failed := false
	for i, stepID := range order {
		if ctx.Err() != nil {
			markSkipped(ctx, run, order[i:], options.onStepComplete)
			failed = true
			break
		}

		step := normalised.StepByID(stepID)
		tool := tools[step.ToolID]
		result := run.StepResults[stepID]
		result.Status = model.StepRunning
		result.StartedAt = time.Now().UTC()

		output, warnings, stepErr := executeStep(ctx, options.client, step, tool, st, toolConfigs[step.ToolID])
		result.Warnings = warnings
		result.FinishedAt = time.Now().UTC()

		if stepErr != nil {
			result.Status = model.StepFailed
			result.Error = stepErr.Error()
			result.ErrorKind = classify(ctx, stepErr)
			if result.ErrorKind == model.ErrKindCancelled {
				result.Error = "cancelled"
			}
			logger.Error(ctx, "step failed", "run", run.ID, "step", stepID, "kind", string(result.ErrorKind), "err", stepErr)
			notify(ctx, options.onStepComplete, *result)
			markSkipped(ctx, run, order[i+1:], options.onStepComplete)
			failed = true
			break
		}

		result.Status = model.StepSuccess
		result.Output = output
		st.Record(stepID, output)
		logger.Info(ctx, "step finished", "run", run.ID, "step", stepID)
		notify(ctx, options.onStepComplete, *result)
	}

	run.FinishedAt = time.Now().UTC()
	if failed {
		run.Status = model.RunFailed
	} else {
		run.Status = model.RunSuccess
	}
	logger.Info(ctx, "run finished", "run", run.ID, "status", string(run.Status))
	return run, nil
}

// executeStep resolves the step's inputs, runs the input checks,
// dispatches the call and runs the output checks.
func executeStep(
	ctx context.Context,
	client *dispatch.Client,
	step *model.Step,
	tool *model.ToolDefinition,
	st *state.Manager,
	toolConfig map[string]string,
) (output any, warnings []string, err error) {
	resolved, err := st.Resolve(step.InputMapping)
	if err != nil {
		return nil, nil, err
	}

	inputResult := stepcheck.Run(resolved, step.Validations, model.CheckInput)
	warnings = append(warnings, inputResult.Warnings...)
	if err := inputResult.Err(model.CheckInput); err != nil {
		return nil, warnings, err
	}

	output, err = client.Call(ctx, tool, resolved, toolConfig)
	if err != nil {
		return nil, warnings, err
	}

	outputResult := stepcheck.Run(output, step.Validations, model.CheckOutput)
	warnings = append(warnings, outputResult.Warnings...)
	if err := outputResult.Err(model.CheckOutput); err != nil {
		return output, warnings, err
	}

	return output, warnings, nil
}

// markSkipped transitions the still-pending steps to SKIPPED, in
// order, emitting a callback for each.
func markSkipped(ctx context.Context, run *model.Run, stepIDs []string, fn OnStepComplete) {
	now := time.Now().UTC()
	for _, stepID := range stepIDs {
		result := run.StepResults[stepID]
		if result.Status != model.StepPending {
			continue
		}
		result.Status = model.StepSkipped
		result.FinishedAt = now
		notify(ctx, fn, *result)
	}
}

// notify invokes the callback with a snapshot, shielding the run from
// callback panics.
func notify(ctx context.Context, fn OnStepComplete, snapshot model.StepResult) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "step callback panicked", "step", snapshot.StepID, "panic", r)
		}
	}()
	fn(snapshot)
}

// classify maps a step error onto its machine-readable kind.
func classify(ctx context.Context, err error) model.ErrorKind {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return model.ErrKindCancelled
	}
	var (
		resolutionErr *state.ResolutionError
		keyErr        *template.KeyError
		extractErr    *dispatch.ExtractionError
		dispatchErr   *dispatch.Error
		checkErr      *stepcheck.Error
	)
	switch {
	case errors.As(err, &resolutionErr):
		return model.ErrKindState
	case errors.As(err, &keyErr):
		return model.ErrKindTemplate
	case errors.As(err, &extractErr):
		return model.ErrKindExtraction
	case errors.As(err, &checkErr):
		return model.ErrKindCheck
	case errors.As(err, &dispatchErr):
		if ctx.Err() != nil {
			return model.ErrKindCancelled
		}
		return model.ErrKindDispatch
	default:
		if ctx.Err() != nil {
			return model.ErrKindCancelled
		}
		return model.ErrKindDispatch
	}
}
