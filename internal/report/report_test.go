package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"nion/internal/state"
)

func sampleRun() *state.State {
	run := state.New(state.InputMessage{
		Message:   "The customer demo went great! They are willing to pay for real-time notifications.",
		Sender:    "Sarah Chen",
		ProjectID: "PRJ-ALPHA",
		MessageID: "MSG-001",
	})
	run.Plan = []state.Task{
		{TaskID: "PLAN-001", Domain: state.DomainTracking, Description: "Analyze message for actions", Priority: 1, Status: state.TaskInProgress},
	}
	run.Results["L2_Tracking_001"] = state.ExecutionResult{
		TaskID:   "L2_Tracking_001",
		TaskType: state.DomainTracking,
		Status:   state.ResultSuccess,
		Output: map[string]any{
			"action_items": []state.ActionItem{
				{ID: "ACT-1001", Title: "Scope real-time notifications", Priority: "MEDIUM", Status: "OPEN"},
			},
			"risks": []state.Risk{
				{ID: "RSK-1001", Title: "WebSocket infra missing", Severity: "HIGH", Mitigation: "Reuse PRJ-BETA precedent"},
			},
			"decisions": []state.Decision{
				{ID: "DEC-001", Title: "Budget increase approved by customer", Rationale: "Customer willing to fund"},
			},
			state.KeyExtractionConfidence: 0.85,
		},
		DurationMS: 12.5,
	}
	run.Results["Cross_Knowledge_001"] = state.ExecutionResult{
		TaskID:   "Cross_Knowledge_001",
		TaskType: state.DomainKnowledge,
		Status:   state.ResultSuccess,
		Output: map[string]any{
			"knowledge_context": map[string]any{
				"project_name": "Project Alpha - Real-time Customer Platform",
				"budget":       float64(150000),
				"timeline":     "Q1-Q2 2025",
				"team_members": []any{"Sarah Chen", "John Doe"},
				"tech_stack":   []any{"Python", "React"},
				"constraints":  "Real-time features require WebSocket infrastructure.",
			},
		},
	}
	run.Logs = []string{"[L1] Created plan with 1 tasks", "[L2_Tracking] Completed: 1 actions, 1 risks"}
	return run
}

func TestMapContainsEverySection(t *testing.T) {
	text := Map(sampleRun())

	for _, want := range []string{
		"NION ORCHESTRATION MAP",
		"MESSAGE METADATA",
		"=== L1 PLAN ===",
		"=== L2/L3 EXECUTION ===",
		"=== EXECUTION SUMMARY ===",
		"=== EXECUTION LOGS ===",
		"[TASK-001] Domain: L2_Tracking",
		"ACT-1001: Scope real-time notifications",
		"RSK-1001: WebSocket infra missing",
		"DEC-001: Budget increase approved by customer",
		"KNOWLEDGE CONTEXT:",
		"Budget: $150000",
		"Team Size: 2",
		"Tech Stack: Python, React",
		"Total Tasks Executed: 2",
		"Overall Status: COMPLETED",
	} {
		require.Contains(t, text, want)
	}
}

func TestMapResultsAreSortedByKey(t *testing.T) {
	text := Map(sampleRun())
	require.Less(t, strings.Index(text, "[Cross_Knowledge_001]"), strings.Index(text, "[L2_Tracking_001]"))
}

func TestMapTruncatesLongMessagesAndLogs(t *testing.T) {
	run := state.New(state.InputMessage{Message: strings.Repeat("x", 150), Sender: "s", ProjectID: "p"})
	for i := 0; i < 15; i++ {
		run.Logs = append(run.Logs, "log line")
	}
	run.Logs = append(run.Logs, "final line")

	text := Map(run)
	require.Contains(t, text, strings.Repeat("x", 100)+"...")
	require.NotContains(t, text, strings.Repeat("x", 101))
	require.Equal(t, maxLogLines, strings.Count(text, "\n  log line")+strings.Count(text, "\n  final line"))
	require.Contains(t, text, "final line")
}

func TestMapEmptyRun(t *testing.T) {
	run := state.New(state.InputMessage{Sender: "s", ProjectID: "p"})
	text := Map(run)
	require.Contains(t, text, "No tasks planned")
	require.Contains(t, text, "No execution results")
	require.Contains(t, text, "Message ID: AUTO-GENERATED")
}

func TestMapMarksFailuresInSummary(t *testing.T) {
	run := sampleRun()
	result := run.Results["L2_Tracking_001"]
	result.Status = state.ResultFailed
	result.Error = "extraction failed"
	run.Results["L2_Tracking_001"] = result

	text := Map(run)
	require.Contains(t, text, "Failed: 1")
	require.Contains(t, text, "Overall Status: FAILED")
	require.Contains(t, text, "Error: extraction failed")
}

func TestJSONDocumentShape(t *testing.T) {
	run := sampleRun()
	doc := JSON(run)

	require.Equal(t, run.RunID, doc["state_id"])

	meta, ok := doc["message_metadata"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Sarah Chen", meta["sender"])
	require.Equal(t, "PRJ-ALPHA", meta["project_id"])

	plan, ok := doc["plan"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, plan, 1)
	require.Equal(t, "L2_Tracking", plan[0]["domain"])

	results, ok := doc["execution_results"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, results, "L2_Tracking_001")
	require.Contains(t, results, "Cross_Knowledge_001")
}
