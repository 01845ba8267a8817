package engine

import (
	"context"
	"fmt"

	"nion/internal/extract"
	"nion/internal/graph"
	"nion/internal/state"
)

// OpCreatePlan is the retry operation identity for plan generation.
const OpCreatePlan = "create_plan"

const plannerSystemPrompt = `You are the L1 Orchestrator for the Nion system.
Your role is to analyze incoming messages and create a high-level delegation plan.

CRITICAL CONSTRAINT: You MUST ONLY delegate to these L2 Domain Coordinators:
1. L2_Tracking - For action items, risks, decisions
2. L2_Communication - For Q&A and communication needs
3. Cross_Knowledge - For knowledge retrieval

You CANNOT directly access or delegate to L3 workers (action_item_extractor, risk_extractor, etc.).
L2 coordinators will manage L3 execution internally.

Output a JSON with:
{
  "tasks": [
    {"task_id": "PLAN-001", "domain": "L2_Tracking", "description": "...", "priority": 1},
    ...
  ],
  "reasoning": "..."
}`

type planPayload struct {
	Tasks []struct {
		TaskID      string `json:"task_id"`
		Domain      string `json:"domain"`
		Description string `json:"description"`
		Priority    *int   `json:"priority"`
	} `json:"tasks"`
	Reasoning string `json:"reasoning"`
}

// fallbackPlan is used when the generation response cannot be decoded into a
// plan at all.
func fallbackPlan() []state.Task {
	return []state.Task{
		{TaskID: "PLAN-001", Domain: state.DomainTracking, Description: "Analyze message for actions", Priority: 1, Status: state.TaskInProgress},
		{TaskID: "PLAN-002", Domain: state.DomainKnowledge, Description: "Retrieve project context", Priority: 1, Status: state.TaskInProgress},
	}
}

// stagePlanner asks the model for a delegation plan over the input message.
// A generation failure aborts the run; an unparseable response degrades to
// the fixed fallback plan.
func (e *Engine) stagePlanner(ctx context.Context, inv graph.Invocation, run *state.State) (*state.Update, error) {
	userPrompt := fmt.Sprintf(`Analyze this message and create an orchestration plan:

Message: %s
Sender: %s
Project: %s

Output JSON following the schema.`, run.Input.Message, run.Input.Sender, run.Input.ProjectID)

	raw, err := e.planClient.Generate(ctx, plannerSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpCreatePlan, err)
	}

	logs := make([]string, 0, 2)
	var payload planPayload
	if decodeErr := extract.Decode(raw, &payload); decodeErr != nil {
		e.logger.Warn("[L1] plan response unparseable, using fallback plan: %v", decodeErr)
		logs = append(logs, "[L1] Plan response unparseable, using fallback plan")
		plan := fallbackPlan()
		logs = append(logs, fmt.Sprintf("[L1] Created plan with %d tasks", len(plan)))
		return &state.Update{Plan: plan, Logs: logs}, nil
	}

	plan := make([]state.Task, 0, len(payload.Tasks))
	for _, rec := range payload.Tasks {
		task := state.Task{
			TaskID:      rec.TaskID,
			Domain:      state.DomainTracking,
			Description: rec.Description,
			Priority:    1,
			Status:      state.TaskInProgress,
		}
		if task.TaskID == "" {
			task.TaskID = fmt.Sprintf("PLAN-%d", len(plan)+1)
		}
		if domain, ok := state.ParseDomain(rec.Domain); ok {
			task.Domain = domain
		} else if rec.Domain != "" {
			e.logger.Warn("[L1] unknown domain %q on task %s, defaulting to %s", rec.Domain, task.TaskID, state.DomainTracking)
		}
		if rec.Priority != nil {
			task.Priority = *rec.Priority
		}
		plan = append(plan, task)
	}

	if len(plan) == 0 {
		// Keep the replacement non-nil so an empty decoded plan still
		// overwrites; the router then goes straight to the evaluator.
		plan = []state.Task{}
	}

	e.logger.Info("[L1] plan created with %d tasks (reasoning: %s)", len(plan), payload.Reasoning)
	logs = append(logs, fmt.Sprintf("[L1] Created plan with %d tasks", len(plan)))
	return &state.Update{Plan: plan, Logs: logs}, nil
}
