package engine

import (
	"context"
	"fmt"

	"nion/internal/graph"
	"nion/internal/state"
)

// stageKnowledge performs the cached project lookup and publishes the record
// both as an execution result and into the run's cross-cutting context.
func (e *Engine) stageKnowledge(ctx context.Context, inv graph.Invocation, run *state.State) (*state.Update, error) {
	start := nowFunc()
	key := inv.ResultKey()

	result := state.ExecutionResult{
		TaskID:   key,
		TaskType: state.DomainKnowledge,
		Status:   state.ResultSuccess,
	}

	record, err := e.knowledge.Lookup(ctx, run.Input.ProjectID)
	if err != nil {
		e.logger.Error("[Cross_Knowledge] lookup failed: %v", err)
		result.Status = state.ResultFailed
		result.Error = err.Error()
		record = map[string]any{}
	}
	result.Output = map[string]any{"knowledge_context": record}
	result.DurationMS = float64(nowFunc().Sub(start).Milliseconds())

	return &state.Update{
		Results: map[string]state.ExecutionResult{key: result},
		Context: record,
		Logs:    []string{fmt.Sprintf("[Cross_Knowledge] Retrieved context for %s", run.Input.ProjectID)},
	}, nil
}
