package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nion/internal/state"
)

func TestEvaluateEmptyResults(t *testing.T) {
	eval := Evaluate(nil)
	require.Equal(t, 0, eval.TotalTasks)
	require.Zero(t, eval.AverageConfidence)
	require.Equal(t, "COMPLETED", eval.OverallStatus)
	// Zero average is still below the threshold.
	require.Contains(t, eval.Recommendations, "Consider re-running with higher model precision")
}

func TestEvaluateConfidenceBoundaryIsStrict(t *testing.T) {
	results := map[string]state.ExecutionResult{
		"L2_Tracking_001": {
			Status: state.ResultSuccess,
			Output: map[string]any{state.KeyExtractionConfidence: 0.9},
		},
		"L2_Communication_001": {
			Status: state.ResultSuccess,
			Output: map[string]any{state.KeyGenerationConfidence: 0.6},
		},
		"Cross_Knowledge_001": {
			Status: state.ResultFailed,
			Output: map[string]any{},
		},
	}

	eval := Evaluate(results)
	require.Equal(t, 3, eval.TotalTasks)
	require.Equal(t, 2, eval.SuccessfulTasks)
	require.Equal(t, 1, eval.FailedTasks)
	require.InDelta(t, 0.75, eval.AverageConfidence, 1e-9)
	require.Equal(t, "PARTIAL", eval.OverallStatus)
	require.Contains(t, eval.Recommendations, "Review failed tasks for issues")
	// 0.75 is not strictly below 0.75, so the re-run recommendation must
	// be absent.
	require.NotContains(t, eval.Recommendations, "Consider re-running with higher model precision")
}

func TestEvaluateAllSucceededHighConfidence(t *testing.T) {
	results := map[string]state.ExecutionResult{
		"L2_Tracking_001": {
			Status: state.ResultSuccess,
			Output: map[string]any{state.KeyExtractionConfidence: 0.9},
		},
	}

	eval := Evaluate(results)
	require.Equal(t, "COMPLETED", eval.OverallStatus)
	require.Empty(t, eval.Recommendations)
}

func TestEvaluateSkipsResultsWithoutConfidence(t *testing.T) {
	results := map[string]state.ExecutionResult{
		"Cross_Knowledge_001": {
			Status: state.ResultSuccess,
			Output: map[string]any{"knowledge_context": map[string]any{}},
		},
		"L2_Tracking_001": {
			Status: state.ResultSuccess,
			Output: map[string]any{state.KeyExtractionConfidence: 0.8},
		},
	}

	eval := Evaluate(results)
	require.InDelta(t, 0.8, eval.AverageConfidence, 1e-9)
	require.Empty(t, eval.Recommendations)
}
