package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	nionerrors "nion/internal/errors"
	"nion/internal/llm"
	"nion/internal/state"
)

var testRetry = nionerrors.RetryConfig{MaxAttempts: 1, InitialDelay: 0}

func fixedClient(response string) llm.Client {
	return llm.GenerateFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return response, nil
	})
}

func failingClient(err error) llm.Client {
	return llm.GenerateFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "", err
	})
}

func TestActionItemsAppliesRecordDefaults(t *testing.T) {
	response := `{"action_items": [
		{"title": "Ship the estimate"},
		{"id": "ACT-007", "title": "Schedule review", "owner": "Sarah Chen", "priority": "HIGH", "due_date": "2025-01-15"}
	], "extraction_confidence": 0.92}`
	ex := NewExtractor(fixedClient(response), testRetry)

	result, err := ex.ActionItems(context.Background(), state.InputMessage{Message: "m"}, nil)
	require.NoError(t, err)
	require.InDelta(t, 0.92, result.Confidence, 1e-9)
	require.Len(t, result.Items, 2)

	require.Equal(t, "ACT-1001", result.Items[0].ID)
	require.Equal(t, state.PriorityMedium, result.Items[0].Priority)
	require.Equal(t, "OPEN", result.Items[0].Status)

	require.Equal(t, "ACT-007", result.Items[1].ID)
	require.Equal(t, "HIGH", result.Items[1].Priority)
}

func TestActionItemsDropsUntitledRecords(t *testing.T) {
	response := `{"action_items": [{"id": "ACT-001"}, {"title": "Keep me"}], "extraction_confidence": 0.8}`
	ex := NewExtractor(fixedClient(response), testRetry)

	result, err := ex.ActionItems(context.Background(), state.InputMessage{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "Keep me", result.Items[0].Title)
}

func TestActionItemsUnparseableResponseDegradesToEmpty(t *testing.T) {
	ex := NewExtractor(fixedClient("I could not produce JSON today."), testRetry)

	result, err := ex.ActionItems(context.Background(), state.InputMessage{}, nil)
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.Zero(t, result.Confidence)
}

func TestActionItemsRecoversFencedAndMalformedJSON(t *testing.T) {
	response := "```json\n{\"action_items\": [{\"title\": \"Fix the build\",}], \"extraction_confidence\": 0.7}\n```"
	ex := NewExtractor(fixedClient(response), testRetry)

	result, err := ex.ActionItems(context.Background(), state.InputMessage{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.InDelta(t, 0.7, result.Confidence, 1e-9)
}

func TestActionItemsTransportErrorIsReturned(t *testing.T) {
	boom := errors.New("connection refused")
	ex := NewExtractor(failingClient(boom), testRetry)

	_, err := ex.ActionItems(context.Background(), state.InputMessage{}, nil)
	require.ErrorIs(t, err, boom)
}

func TestRisksAppliesRecordDefaults(t *testing.T) {
	response := `{"risks": [{"title": "Timeline slip"}], "extraction_confidence": 0.88}`
	ex := NewExtractor(fixedClient(response), testRetry)

	result, err := ex.Risks(context.Background(), state.InputMessage{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Risks, 1)
	require.Equal(t, "RSK-1001", result.Risks[0].ID)
	require.Equal(t, state.SeverityMedium, result.Risks[0].Severity)
}

func TestQnAConfidenceDefaults(t *testing.T) {
	response := `{"qna_records": [
		{"question": "What is the cost?", "answer": "About 18% over budget."},
		{"question": "When?", "answer": "Six weeks.", "confidence": 0.4}
	]}`
	ex := NewExtractor(fixedClient(response), testRetry)

	result, err := ex.QnA(context.Background(), state.InputMessage{}, nil)
	require.NoError(t, err)
	require.InDelta(t, 0.85, result.Confidence, 1e-9)
	require.Len(t, result.Records, 2)
	require.InDelta(t, 0.9, result.Records[0].Confidence, 1e-9)
	require.InDelta(t, 0.4, result.Records[1].Confidence, 1e-9)
}

func TestMockClientResponsesMatchEveryOperation(t *testing.T) {
	ex := NewExtractor(llm.NewMockClient(), testRetry)
	ctx := context.Background()
	input := state.InputMessage{Message: "Please add export to the dashboard.", Sender: "customer"}

	actions, err := ex.ActionItems(ctx, input, nil)
	require.NoError(t, err)
	require.NotEmpty(t, actions.Items)

	risks, err := ex.Risks(ctx, input, nil)
	require.NoError(t, err)
	require.NotEmpty(t, risks.Risks)

	qna, err := ex.QnA(ctx, input, nil)
	require.NoError(t, err)
	require.NotEmpty(t, qna.Records)
}
