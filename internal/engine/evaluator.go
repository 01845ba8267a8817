package engine

import (
	"context"
	"fmt"

	"nion/internal/graph"
	"nion/internal/state"
)

// lowConfidenceThreshold is the strict lower bound below which the evaluator
// recommends a re-run. An average of exactly 0.75 passes.
const lowConfidenceThreshold = 0.75

// Evaluation summarizes one run's execution results.
type Evaluation struct {
	TotalTasks        int      `json:"total_tasks"`
	SuccessfulTasks   int      `json:"successful_tasks"`
	FailedTasks       int      `json:"failed_tasks"`
	AverageConfidence float64  `json:"average_confidence"`
	OverallStatus     string   `json:"overall_status"`
	Recommendations   []string `json:"recommendations"`
}

// Evaluate aggregates execution results into an Evaluation. Pure over its
// input; a run with zero results reports zero averages and COMPLETED.
func Evaluate(results map[string]state.ExecutionResult) Evaluation {
	eval := Evaluation{
		TotalTasks:      len(results),
		OverallStatus:   "COMPLETED",
		Recommendations: []string{},
	}

	var totalConfidence float64
	var confidenceCount int
	for _, result := range results {
		switch result.Status {
		case state.ResultSuccess:
			eval.SuccessfulTasks++
		case state.ResultFailed:
			eval.FailedTasks++
		}
		if c, ok := confidenceOf(result.Output); ok {
			totalConfidence += c
			confidenceCount++
		}
	}
	if confidenceCount > 0 {
		eval.AverageConfidence = totalConfidence / float64(confidenceCount)
	}

	if eval.FailedTasks > 0 {
		eval.OverallStatus = "PARTIAL"
		eval.Recommendations = append(eval.Recommendations, "Review failed tasks for issues")
	}
	if eval.AverageConfidence < lowConfidenceThreshold {
		eval.Recommendations = append(eval.Recommendations, "Consider re-running with higher model precision")
	}
	return eval
}

// confidenceOf scans an output payload for a confidence-like field. The
// extraction key wins when both are present.
func confidenceOf(output map[string]any) (float64, bool) {
	for _, key := range []string{state.KeyExtractionConfidence, state.KeyGenerationConfidence} {
		if raw, ok := output[key]; ok {
			if c, ok := asFloat(raw); ok {
				return c, true
			}
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// stageEvaluator appends the run summary to the logs. Terminal in both
// pipeline variants.
func (e *Engine) stageEvaluator(ctx context.Context, inv graph.Invocation, run *state.State) (*state.Update, error) {
	eval := Evaluate(run.Results)
	logs := []string{fmt.Sprintf("[Evaluator] %s: %d/%d tasks successful",
		eval.OverallStatus, eval.SuccessfulTasks, eval.TotalTasks)}
	for _, rec := range eval.Recommendations {
		logs = append(logs, fmt.Sprintf("[Evaluator] Recommendation: %s", rec))
	}
	return &state.Update{Logs: logs}, nil
}
