package engine

import (
	"context"
	"fmt"
	"strings"

	"nion/internal/graph"
	"nion/internal/state"
)

// decisionPhrase triggers the synthesized budget decision. A fixed textual
// rule over the raw message, not a model call.
const decisionPhrase = "willing to pay"

// stageTracking runs the tracking coordinator: knowledge lookup, the two
// extraction operations, and the decision heuristic. Extraction failures are
// recorded as a FAILED execution result; they never abort the run.
func (e *Engine) stageTracking(ctx context.Context, inv graph.Invocation, run *state.State) (*state.Update, error) {
	start := nowFunc()
	key := inv.ResultKey()

	knowledgeContext := e.lookupKnowledge(ctx, run.Input.ProjectID)

	var failures []string
	actions, err := e.extractor.ActionItems(ctx, run.Input, knowledgeContext)
	if err != nil {
		e.logger.Error("[L2_Tracking] action item extraction failed: %v", err)
		failures = append(failures, fmt.Sprintf("action items: %v", err))
	}
	risks, err := e.extractor.Risks(ctx, run.Input, knowledgeContext)
	if err != nil {
		e.logger.Error("[L2_Tracking] risk extraction failed: %v", err)
		failures = append(failures, fmt.Sprintf("risks: %v", err))
	}

	decisions := []state.Decision{}
	if strings.Contains(strings.ToLower(run.Input.Message), decisionPhrase) {
		decisions = append(decisions, state.Decision{
			ID:        "DEC-001",
			Title:     "Budget increase approved by customer",
			Rationale: "Customer feedback indicates willingness to fund feature enhancement",
			Impact:    "Enables accelerated feature roadmap",
		})
	}

	result := state.ExecutionResult{
		TaskID:   key,
		TaskType: state.DomainTracking,
		Status:   state.ResultSuccess,
		Output: map[string]any{
			"action_items":                nonNil(actions.Items),
			"risks":                       nonNil(risks.Risks),
			"decisions":                   decisions,
			state.KeyExtractionConfidence: (actions.Confidence + risks.Confidence) / 2,
		},
		DurationMS: float64(nowFunc().Sub(start).Milliseconds()),
	}
	if len(failures) > 0 {
		result.Status = state.ResultFailed
		result.Error = strings.Join(failures, "; ")
	}

	return &state.Update{
		Results: map[string]state.ExecutionResult{key: result},
		Logs: []string{fmt.Sprintf("[L2_Tracking] Completed: %d actions, %d risks",
			len(actions.Items), len(risks.Risks))},
	}, nil
}

// lookupKnowledge fetches the project record for a coordinator. Lookup
// problems degrade to an empty context so extraction can still proceed on the
// message alone.
func (e *Engine) lookupKnowledge(ctx context.Context, projectID string) map[string]any {
	record, err := e.knowledge.Lookup(ctx, projectID)
	if err != nil {
		e.logger.Warn("knowledge lookup for %s failed: %v", projectID, err)
		return map[string]any{}
	}
	return record
}

// nonNil keeps empty record lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
