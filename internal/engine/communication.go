package engine

import (
	"context"
	"fmt"

	"nion/internal/graph"
	"nion/internal/state"
)

// stageCommunication runs the communication coordinator: knowledge lookup
// plus Q&A generation. A generation failure is recorded as a FAILED result
// and the run continues.
func (e *Engine) stageCommunication(ctx context.Context, inv graph.Invocation, run *state.State) (*state.Update, error) {
	start := nowFunc()
	key := inv.ResultKey()

	knowledgeContext := e.lookupKnowledge(ctx, run.Input.ProjectID)

	qna, err := e.extractor.QnA(ctx, run.Input, knowledgeContext)
	result := state.ExecutionResult{
		TaskID:   key,
		TaskType: state.DomainCommunication,
		Status:   state.ResultSuccess,
		Output: map[string]any{
			"qna_records":                 nonNil(qna.Records),
			state.KeyGenerationConfidence: qna.Confidence,
		},
		DurationMS: float64(nowFunc().Sub(start).Milliseconds()),
	}
	if err != nil {
		e.logger.Error("[L2_Communication] Q&A generation failed: %v", err)
		result.Status = state.ResultFailed
		result.Error = err.Error()
	}

	return &state.Update{
		Results: map[string]state.ExecutionResult{key: result},
		Logs:    []string{fmt.Sprintf("[L2_Communication] Completed: %d Q&A records", len(qna.Records))},
	}, nil
}
