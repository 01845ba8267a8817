package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	nionerrors "nion/internal/errors"
)

func TestWithRetryRecoversFromRateLimits(t *testing.T) {
	calls := 0
	client := WithRetry(GenerateFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		if calls == 1 {
			return "", nionerrors.NewRateLimitError(errors.New("quota"), "429")
		}
		return "text", nil
	}), "create_plan", nionerrors.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})

	out, err := client.Generate(context.Background(), "s", "u")
	require.NoError(t, err)
	require.Equal(t, "text", out)
	require.Equal(t, 2, calls)
}

func TestWithRetryNamesOperationOnExhaustion(t *testing.T) {
	client := WithRetry(GenerateFunc(func(ctx context.Context, system, user string) (string, error) {
		return "", errors.New("HTTP 429: Too Many Requests")
	}), "extract_risks", nionerrors.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})

	_, err := client.Generate(context.Background(), "s", "u")
	require.Error(t, err)

	var exhausted *nionerrors.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, "extract_risks", exhausted.Op)
}

func TestMockClientRespondsPerOperation(t *testing.T) {
	mock := NewMockClient()
	ctx := context.Background()

	plan, err := mock.Generate(ctx, "You are the L1 Orchestrator.", "message")
	require.NoError(t, err)
	require.Contains(t, plan, `"tasks"`)

	actions, err := mock.Generate(ctx, "Return a JSON with 'action_items' array", "message")
	require.NoError(t, err)
	require.Contains(t, actions, `"action_items"`)

	risks, err := mock.Generate(ctx, "Return a JSON with 'risks' array", "message")
	require.NoError(t, err)
	require.Contains(t, risks, `"risks"`)

	qna, err := mock.Generate(ctx, "Return a JSON with 'qna_records' array", "message")
	require.NoError(t, err)
	require.Contains(t, qna, `"qna_records"`)
}
