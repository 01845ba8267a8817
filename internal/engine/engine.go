// Package engine assembles the orchestration pipeline: the planner, the two
// domain coordinators, the knowledge stage, and the evaluator, wired into
// both the conditional-routing and fixed-order executors.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	nionerrors "nion/internal/errors"
	"nion/internal/extract"
	"nion/internal/graph"
	"nion/internal/knowledge"
	"nion/internal/llm"
	"nion/internal/logging"
	"nion/internal/state"
)

// nowFunc is swapped by tests that need deterministic durations.
var nowFunc = time.Now

// Stage names as they appear in routing tables, result keys, and logs.
const (
	StagePlanner       = "L1_Orchestrator"
	StageTracking      = "L2_Tracking"
	StageCommunication = "L2_Communication"
	StageKnowledge     = "Cross_Knowledge"
	StageEvaluator     = "Evaluator"
)

// Options tunes engine construction. The zero value selects defaults.
type Options struct {
	// MaxSteps bounds stage invocations per run. <= 0 selects the
	// executor default.
	MaxSteps int
	// Retry is the rate-limit retry policy applied to every generation
	// operation.
	Retry nionerrors.RetryConfig
	// Registerer receives the engine's Prometheus collectors. Nil selects
	// the shared default registry.
	Registerer prometheus.Registerer
	// Logger receives engine-level log lines. Nil selects a component
	// logger.
	Logger logging.Logger
}

// Engine owns the stage implementations and the two executor variants. Safe
// for concurrent Run calls; each run gets a fresh state.
type Engine struct {
	planClient  llm.Client
	extractor   *extract.Extractor
	knowledge   *knowledge.Service
	conditional *graph.Executor
	linear      *graph.Executor
	metrics     *Metrics
	logger      logging.Logger
}

// New builds an engine around a generation client and a knowledge service.
func New(client llm.Client, know *knowledge.Service, opts Options) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("engine: generation client is required")
	}
	if know == nil {
		return nil, fmt.Errorf("engine: knowledge service is required")
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = nionerrors.DefaultRetryConfig()
	}

	e := &Engine{
		planClient: llm.WithRetry(client, OpCreatePlan, opts.Retry),
		extractor:  extract.NewExtractor(client, opts.Retry),
		knowledge:  know,
		logger:     logging.OrNop(opts.Logger),
	}
	if opts.Logger == nil {
		e.logger = logging.NewComponentLogger("engine")
	}
	if opts.Registerer != nil {
		e.metrics = MustNewMetrics(opts.Registerer)
	} else {
		e.metrics = defaultMetrics()
	}

	var err error
	if e.conditional, err = e.buildConditional(opts.MaxSteps); err != nil {
		return nil, err
	}
	if e.linear, err = e.buildLinear(opts.MaxSteps); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) registerStages(exec *graph.Executor) error {
	stages := []struct {
		name string
		fn   graph.StageFunc
	}{
		{StagePlanner, e.stagePlanner},
		{StageTracking, e.stageTracking},
		{StageCommunication, e.stageCommunication},
		{StageKnowledge, e.stageKnowledge},
		{StageEvaluator, e.stageEvaluator},
	}
	for _, s := range stages {
		if err := exec.AddStage(s.name, e.instrument(s.name, s.fn)); err != nil {
			return err
		}
	}
	exec.SetStart(StagePlanner)
	return nil
}

// buildConditional wires the router variant: the planner's plan routes to
// exactly one coordinator, every coordinator routes to the evaluator, and the
// evaluator is terminal.
func (e *Engine) buildConditional(maxSteps int) (*graph.Executor, error) {
	exec := graph.NewExecutor(maxSteps, e.logger)
	if err := e.registerStages(exec); err != nil {
		return nil, err
	}
	exec.SetRouter(StagePlanner, graph.RouteByPriority(resolveDomain, StageEvaluator, e.logger))
	exec.AddEdge(StageTracking, StageEvaluator)
	exec.AddEdge(StageCommunication, StageEvaluator)
	exec.AddEdge(StageKnowledge, StageEvaluator)
	return exec, nil
}

// buildLinear wires the fixed total order; every stage runs exactly once.
func (e *Engine) buildLinear(maxSteps int) (*graph.Executor, error) {
	exec := graph.NewExecutor(maxSteps, e.logger)
	if err := e.registerStages(exec); err != nil {
		return nil, err
	}
	exec.AddEdge(StagePlanner, StageTracking)
	exec.AddEdge(StageTracking, StageCommunication)
	exec.AddEdge(StageCommunication, StageKnowledge)
	exec.AddEdge(StageKnowledge, StageEvaluator)
	return exec, nil
}

func resolveDomain(d state.Domain) (string, bool) {
	switch d {
	case state.DomainTracking:
		return StageTracking, true
	case state.DomainCommunication:
		return StageCommunication, true
	case state.DomainKnowledge:
		return StageKnowledge, true
	}
	return "", false
}

// instrument wraps a stage with duration and failure metrics. The recorded
// status is the stage's own execution-result status where it produced one,
// otherwise SUCCESS/ERROR by whether the stage returned an error.
func (e *Engine) instrument(name string, fn graph.StageFunc) graph.StageFunc {
	return func(ctx context.Context, inv graph.Invocation, run *state.State) (*state.Update, error) {
		start := nowFunc()
		update, err := fn(ctx, inv, run)
		elapsed := nowFunc().Sub(start)

		status := "SUCCESS"
		switch {
		case err != nil:
			status = "ERROR"
		case update != nil:
			if result, ok := update.Results[inv.ResultKey()]; ok {
				status = string(result.Status)
			}
		}
		e.metrics.observeStage(name, status, elapsed)
		return update, err
	}
}

// Run executes the conditional-routing pipeline for one input message.
func (e *Engine) Run(ctx context.Context, input state.InputMessage) (*state.State, error) {
	return e.run(ctx, "conditional", e.conditional, input)
}

// RunFixedOrder executes the linear pipeline; every stage runs exactly once.
func (e *Engine) RunFixedOrder(ctx context.Context, input state.InputMessage) (*state.State, error) {
	return e.run(ctx, "linear", e.linear, input)
}

func (e *Engine) run(ctx context.Context, variant string, exec *graph.Executor, input state.InputMessage) (*state.State, error) {
	e.metrics.runStarted()
	run, err := exec.Run(ctx, input)
	if err != nil {
		e.metrics.runFinished(variant, "aborted")
		return nil, err
	}
	e.metrics.runFinished(variant, "completed")
	return run, nil
}
