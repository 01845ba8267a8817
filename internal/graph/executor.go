// Package graph drives the stage pipeline for one run: stage registration,
// fixed-order or router-based sequencing, partial-update merging, and the
// step ceiling that bounds routing cycles.
package graph

import (
	"context"
	"errors"
	"fmt"

	"nion/internal/logging"
	"nion/internal/state"
)

// DefaultMaxSteps bounds stage invocations per run. The conditional router is
// not guaranteed acyclic by construction, so the ceiling is the only defense
// against a routing cycle.
const DefaultMaxSteps = 25

// ErrStepLimit marks a run aborted because the step ceiling was exceeded.
var ErrStepLimit = errors.New("stage invocation ceiling exceeded")

// AbortError is the terminal whole-run failure: a stage returned an
// unrecoverable error or the executor hit its step ceiling. No partial state
// is guaranteed consistent after it.
type AbortError struct {
	Stage string
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("orchestration aborted at stage %s: %v", e.Stage, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Invocation identifies one stage execution within a run. Seq is 1-based and
// counted per stage, so a stage that somehow runs twice gets distinct result
// keys instead of silently overwriting its first result.
type Invocation struct {
	Stage string
	Seq   int
}

// ResultKey builds the execution-result key for this invocation.
func (inv Invocation) ResultKey() string {
	return fmt.Sprintf("%s_%03d", inv.Stage, inv.Seq)
}

// StageFunc transforms a read-only view of the run state into a partial
// update. Implementations receive a deep clone and must express every change
// through the returned update.
type StageFunc func(ctx context.Context, inv Invocation, run *state.State) (*state.Update, error)

// Router selects the next stage after the one it is attached to, based on
// the current state. Returning the empty string terminates the run.
type Router func(run *state.State) string

// Executor owns the registered stages and their sequencing. Build one per
// pipeline variant; an executor is immutable after construction and safe for
// concurrent Run calls.
type Executor struct {
	stages   map[string]StageFunc
	edges    map[string]string
	routers  map[string]Router
	start    string
	maxSteps int
	logger   logging.Logger
}

// NewExecutor creates an empty executor. maxSteps <= 0 selects
// DefaultMaxSteps.
func NewExecutor(maxSteps int, logger logging.Logger) *Executor {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Executor{
		stages:   make(map[string]StageFunc),
		edges:    make(map[string]string),
		routers:  make(map[string]Router),
		maxSteps: maxSteps,
		logger:   logging.OrNop(logger),
	}
}

// AddStage registers a stage under a unique name. The first stage added
// becomes the start stage unless SetStart overrides it.
func (e *Executor) AddStage(name string, fn StageFunc) error {
	if name == "" {
		return fmt.Errorf("stage name is required")
	}
	if fn == nil {
		return fmt.Errorf("stage %s: nil stage function", name)
	}
	if _, exists := e.stages[name]; exists {
		return fmt.Errorf("stage %s already registered", name)
	}
	e.stages[name] = fn
	if e.start == "" {
		e.start = name
	}
	return nil
}

// SetStart overrides the run's first stage.
func (e *Executor) SetStart(name string) { e.start = name }

// AddEdge wires a fixed transition from one stage to the next.
func (e *Executor) AddEdge(from, to string) {
	e.edges[from] = to
}

// SetRouter attaches a routing decision after the given stage. A router
// takes precedence over a fixed edge from the same stage.
func (e *Executor) SetRouter(from string, router Router) {
	e.routers[from] = router
}

// Run executes the pipeline over a fresh state built from input. Each stage
// sees a clone of the current state; its partial update is fully applied
// before the next stage or router runs. Stages never run concurrently within
// a run.
func (e *Executor) Run(ctx context.Context, input state.InputMessage) (*state.State, error) {
	run := state.New(input)
	e.logger.Info("starting orchestration %s", run.RunID)

	invocations := make(map[string]int)
	steps := 0

	for current := e.start; current != ""; {
		steps++
		if steps > e.maxSteps {
			e.logger.Error("run %s exceeded step ceiling (%d)", run.RunID, e.maxSteps)
			return nil, &AbortError{Stage: current, Err: ErrStepLimit}
		}

		fn, ok := e.stages[current]
		if !ok {
			return nil, &AbortError{Stage: current, Err: fmt.Errorf("stage not registered")}
		}

		invocations[current]++
		inv := Invocation{Stage: current, Seq: invocations[current]}
		e.logger.Debug("run %s: executing stage %s (step %d)", run.RunID, current, steps)

		update, err := fn(ctx, inv, run.Clone())
		if err != nil {
			e.logger.Error("run %s: stage %s failed: %v", run.RunID, current, err)
			return nil, &AbortError{Stage: current, Err: err}
		}
		run.Apply(update)

		current = e.next(current, run)
	}

	e.logger.Info("orchestration %s completed after %d steps", run.RunID, steps)
	return run, nil
}

func (e *Executor) next(current string, run *state.State) string {
	if router, ok := e.routers[current]; ok {
		return router(run)
	}
	return e.edges[current]
}

// RouteByPriority builds the conditional router: an empty plan routes to
// fallback, otherwise the task with the numerically smallest priority is
// selected and its domain resolved to a stage name. Ties keep the first such
// task in plan order, so routing is deterministic for a given plan. An
// unrecognized domain routes to fallback.
func RouteByPriority(resolve func(state.Domain) (string, bool), fallback string, logger logging.Logger) Router {
	logger = logging.OrNop(logger)
	return func(run *state.State) string {
		if len(run.Plan) == 0 {
			logger.Info("router: empty plan, routing to %s", fallback)
			return fallback
		}

		next := run.Plan[0]
		for _, task := range run.Plan[1:] {
			if task.Priority < next.Priority {
				next = task
			}
		}

		stage, ok := resolve(next.Domain)
		if !ok {
			logger.Warn("router: unrecognized domain %q on task %s, routing to %s", next.Domain, next.TaskID, fallback)
			return fallback
		}
		logger.Info("router: task %s (priority %d) routes to %s", next.TaskID, next.Priority, stage)
		return stage
	}
}
