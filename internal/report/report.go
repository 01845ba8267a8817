// Package report renders a finished orchestration run as the plain-text
// orchestration map or as a detailed JSON document.
package report

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"nion/internal/state"
)

const ruleWidth = 90

// maxLogLines bounds how many trailing log lines the map includes.
const maxLogLines = 10

// Map renders the NION ORCHESTRATION MAP for a finished run.
func Map(run *state.State) string {
	var b builder

	b.rule("=")
	b.line("NION ORCHESTRATION MAP")
	b.rule("=")

	b.line("")
	b.line("MESSAGE METADATA")
	b.rule("-")
	messageID := run.Input.MessageID
	if messageID == "" {
		messageID = "AUTO-GENERATED"
	}
	timestamp := run.Input.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	b.line("  Message ID: %s", messageID)
	b.line("  Sender: %s", run.Input.Sender)
	b.line("  Project: %s", run.Input.ProjectID)
	b.line("  Timestamp: %s", timestamp.Format(time.RFC3339))
	b.line("  State ID: %s", run.RunID)
	b.line("  Message: %s", truncate(run.Input.Message, 100))

	b.line("")
	b.line("=== L1 PLAN ===")
	b.rule("-")
	if len(run.Plan) == 0 {
		b.line("  No tasks planned")
	}
	for i, task := range run.Plan {
		b.line("  [TASK-%03d] Domain: %s", i+1, task.Domain)
		b.line("    Task ID: %s", task.TaskID)
		b.line("    Description: %s", task.Description)
		b.line("    Priority: P%d", task.Priority)
		b.line("    Status: %s", task.Status)
		b.line("")
	}

	b.line("")
	b.line("=== L2/L3 EXECUTION ===")
	b.rule("-")
	if len(run.Results) == 0 {
		b.line("  No execution results")
	}
	for _, key := range slices.Sorted(maps.Keys(run.Results)) {
		result := run.Results[key]
		b.line("  [%s] %s", key, result.TaskType)
		b.line("    Status: %s", result.Status)
		b.line("    Duration: %.2fms", result.DurationMS)
		if result.Error != "" {
			b.line("    Error: %s", result.Error)
		}
		b.writeOutput(result.Output)
		b.line("")
	}

	b.line("")
	b.line("=== EXECUTION SUMMARY ===")
	b.rule("-")
	var succeeded, failed, partial int
	for _, result := range run.Results {
		switch result.Status {
		case state.ResultSuccess:
			succeeded++
		case state.ResultFailed:
			failed++
		case state.ResultPartial:
			partial++
		}
	}
	overall := "COMPLETED"
	if failed > 0 {
		overall = "FAILED"
	}
	b.line("  Total Tasks Executed: %d", len(run.Results))
	b.line("  Successful: %d", succeeded)
	b.line("  Failed: %d", failed)
	b.line("  Partial: %d", partial)
	b.line("  Overall Status: %s", overall)

	if len(run.Logs) > 0 {
		b.line("")
		b.line("=== EXECUTION LOGS ===")
		b.rule("-")
		logs := run.Logs
		if len(logs) > maxLogLines {
			logs = logs[len(logs)-maxLogLines:]
		}
		for _, log := range logs {
			b.line("  %s", log)
		}
	}

	b.line("")
	b.rule("=")
	return b.String()
}

// JSON builds the detailed JSON document for a finished run.
func JSON(run *state.State) map[string]any {
	var timestamp any
	if !run.Input.Timestamp.IsZero() {
		timestamp = run.Input.Timestamp.Format(time.RFC3339)
	}

	plan := make([]map[string]any, 0, len(run.Plan))
	for _, task := range run.Plan {
		plan = append(plan, map[string]any{
			"task_id":     task.TaskID,
			"domain":      string(task.Domain),
			"description": task.Description,
			"priority":    task.Priority,
			"status":      string(task.Status),
		})
	}

	results := make(map[string]any, len(run.Results))
	for key, result := range run.Results {
		entry := map[string]any{
			"task_id":     result.TaskID,
			"task_type":   string(result.TaskType),
			"status":      string(result.Status),
			"duration_ms": result.DurationMS,
			"output":      result.Output,
		}
		if result.Error != "" {
			entry["error"] = result.Error
		}
		results[key] = entry
	}

	return map[string]any{
		"state_id": run.RunID,
		"message_metadata": map[string]any{
			"message_id": run.Input.MessageID,
			"sender":     run.Input.Sender,
			"project_id": run.Input.ProjectID,
			"timestamp":  timestamp,
		},
		"plan":              plan,
		"execution_results": results,
		"logs":              run.Logs,
	}
}

// builder accumulates map lines.
type builder struct {
	sb strings.Builder
}

func (b *builder) line(format string, args ...any) {
	fmt.Fprintf(&b.sb, format, args...)
	b.sb.WriteByte('\n')
}

func (b *builder) rule(ch string) {
	b.sb.WriteString(strings.Repeat(ch, ruleWidth))
	b.sb.WriteByte('\n')
}

func (b *builder) String() string {
	return strings.TrimSuffix(b.sb.String(), "\n")
}

// writeOutput renders the known output sections of a result payload. Unknown
// keys are skipped; the JSON view carries the complete payload.
func (b *builder) writeOutput(output map[string]any) {
	if items, ok := output["action_items"].([]state.ActionItem); ok && len(items) > 0 {
		b.line("    ACTION ITEMS (%d):", len(items))
		for _, item := range items {
			b.line("      * %s: %s", item.ID, item.Title)
			owner := item.Owner
			if owner == "" {
				owner = "Unassigned"
			}
			b.line("        Owner: %s, Priority: %s, Status: %s", owner, item.Priority, item.Status)
			if item.DueDate != "" {
				b.line("        Due: %s", item.DueDate)
			}
		}
	}

	if risks, ok := output["risks"].([]state.Risk); ok && len(risks) > 0 {
		b.line("    RISKS (%d):", len(risks))
		for _, risk := range risks {
			b.line("      * %s: %s", risk.ID, risk.Title)
			owner := risk.Owner
			if owner == "" {
				owner = "TBD"
			}
			b.line("        Severity: %s, Owner: %s", risk.Severity, owner)
			if risk.Mitigation != "" {
				b.line("        Mitigation: %s", risk.Mitigation)
			}
		}
	}

	if decisions, ok := output["decisions"].([]state.Decision); ok && len(decisions) > 0 {
		b.line("    DECISIONS (%d):", len(decisions))
		for _, decision := range decisions {
			b.line("      * %s: %s", decision.ID, decision.Title)
			b.line("        Rationale: %s", decision.Rationale)
			if decision.Impact != "" {
				b.line("        Impact: %s", decision.Impact)
			}
		}
	}

	if records, ok := output["qna_records"].([]state.QnARecord); ok && len(records) > 0 {
		b.line("    Q&A RECORDS (%d):", len(records))
		for _, record := range records {
			b.line("      Q: %s", record.Question)
			b.line("      A: %s", record.Answer)
			b.line("      Confidence: %.2f", record.Confidence)
		}
	}

	if knowledge, ok := output["knowledge_context"].(map[string]any); ok && len(knowledge) > 0 {
		if _, errored := knowledge["error"]; !errored {
			b.line("    KNOWLEDGE CONTEXT:")
			b.line("      Project: %s", stringOr(knowledge["project_name"], "Unknown"))
			b.line("      Budget: $%s", formatNumber(knowledge["budget"]))
			b.line("      Timeline: %s", stringOr(knowledge["timeline"], "N/A"))
			b.line("      Team Size: %d", lenOfList(knowledge["team_members"]))
			b.line("      Tech Stack: %s", joinList(knowledge["tech_stack"]))
			if constraints, ok := knowledge["constraints"].(string); ok && constraints != "" {
				b.line("      Constraints: %s", constraints)
			}
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func formatNumber(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.0f", n)
	case int:
		return fmt.Sprintf("%d", n)
	}
	return "N/A"
}

func lenOfList(v any) int {
	if list, ok := v.([]any); ok {
		return len(list)
	}
	return 0
}

func joinList(v any) string {
	list, ok := v.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
