package llm

import (
	"context"
	"strings"
	"time"

	"nion/internal/logging"
)

// MockClient returns deterministic, schema-valid responses without calling
// any external service. It is the default client when no API key is
// configured, so the engine stays runnable end to end.
type MockClient struct {
	logger logging.Logger
}

// NewMockClient creates a mock generation client.
func NewMockClient() *MockClient {
	return &MockClient{logger: logging.NewComponentLogger("llm-mock")}
}

func (m *MockClient) Model() string { return "mock" }

func (m *MockClient) Generate(ctx context.Context, systemPrompt, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(5 * time.Millisecond):
		// Mimic a little transport latency so durations are non-zero.
	}

	m.logger.Debug("returning canned response")
	switch {
	case strings.Contains(systemPrompt, "'action_items'"):
		return `{"action_items": [{"id": "ACT-001", "title": "Follow up on the request", "owner": "Unassigned", "priority": "MEDIUM", "due_date": ""}], "extraction_confidence": 0.85}`, nil
	case strings.Contains(systemPrompt, "'risks'"):
		return `{"risks": [{"id": "RSK-001", "title": "Scope may grow beyond estimate", "severity": "MEDIUM", "mitigation_strategy": "Re-estimate before committing"}], "extraction_confidence": 0.85}`, nil
	case strings.Contains(systemPrompt, "'qna_records'"):
		return `{"qna_records": [{"question": "What was requested?", "answer": "See the message content.", "confidence": 0.9}], "generation_confidence": 0.85}`, nil
	default:
		return `{"tasks": [{"task_id": "PLAN-001", "domain": "L2_Tracking", "description": "Analyze message for actions", "priority": 1}, {"task_id": "PLAN-002", "domain": "L2_Communication", "description": "Prepare stakeholder Q&A", "priority": 2}], "reasoning": "Canned plan from the mock client."}`, nil
	}
}

var _ Client = (*MockClient)(nil)
