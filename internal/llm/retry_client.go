package llm

import (
	"context"

	nionerrors "nion/internal/errors"
)

// retryClient wraps a Client with the rate-limit retry policy. The op label
// names the wrapped operation in logs and in the retries-exhausted error.
type retryClient struct {
	underlying Client
	op         string
	config     nionerrors.RetryConfig
}

// WithRetry returns a client whose Generate calls retry rate-limit classified
// failures with exponential backoff. Call sites compose this explicitly, one
// wrapped client value per logical operation.
func WithRetry(client Client, op string, config nionerrors.RetryConfig) Client {
	return &retryClient{underlying: client, op: op, config: config}
}

func (c *retryClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return nionerrors.RetryWithResult(ctx, c.op, c.config, func(ctx context.Context) (string, error) {
		return c.underlying.Generate(ctx, systemPrompt, userPrompt)
	})
}

func (c *retryClient) Model() string { return c.underlying.Model() }

var _ Client = (*retryClient)(nil)
