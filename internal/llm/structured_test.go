package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/repocompare/internal/parsing"
	"github.com/jonathan/repocompare/internal/retry"
	"github.com/jonathan/repocompare/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLLMClient implements Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{}`, nil
}

func (m *MockLLMClient) GetModel(_ ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

const validChunk = `{"summary":"ok","techniques":[],"gaps":[],"risks":[]}`

func noWait() retry.Policy {
	return retry.Policy{MaxRetries: 2, BaseDelay: 0}
}

func TestGenerateStructured_FirstAttempt(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier ModelTier) (string, error) {
			calls++
			assert.Equal(t, "base prompt", prompt)
			assert.Equal(t, TierStandard, tier)
			return validChunk, nil
		},
	}

	var result types.ChunkResult
	raw, err := GenerateStructured(context.Background(), client, StructuredRequest{
		Name: "chunk 1 of 1", Prompt: "base prompt", Schema: "chunk_result", Tier: TierStandard, Policy: noWait(),
	}, &result)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, validChunk, raw)
	assert.Equal(t, "ok", result.Summary)
}

func TestGenerateStructured_RetriesWithFeedback(t *testing.T) {
	var prompts []string
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ ModelTier) (string, error) {
			prompts = append(prompts, prompt)
			if len(prompts) == 1 {
				return `{"summary":"missing lists"}`, nil
			}
			return validChunk, nil
		},
	}

	var result types.ChunkResult
	_, err := GenerateStructured(context.Background(), client, StructuredRequest{
		Name: "c", Prompt: "base", Schema: "chunk_result", Policy: noWait(),
	}, &result)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "base", prompts[0])
	assert.True(t, strings.HasPrefix(prompts[1], "base"))
	assert.Contains(t, prompts[1], "previous response was invalid")
	assert.Contains(t, prompts[1], "techniques")
}

func TestGenerateStructured_Exhausted(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ ModelTier) (string, error) {
			calls++
			return "not json at all", nil
		},
	}

	var result types.ChunkResult
	_, err := GenerateStructured(context.Background(), client, StructuredRequest{
		Name: "chunk 2 of 8", Prompt: "p", Schema: "chunk_result", Policy: noWait(),
	}, &result)
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "chunk 2 of 8", exhausted.Name)

	var pe *parsing.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestGenerateStructured_TransientThenSuccess(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ ModelTier) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("429 too many requests")
			}
			assert.Equal(t, "p", prompt)
			return validChunk, nil
		},
	}

	var result types.ChunkResult
	_, err := GenerateStructured(context.Background(), client, StructuredRequest{
		Name: "c", Prompt: "p", Schema: "chunk_result", Policy: noWait(),
	}, &result)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGenerateStructured_PerCallTimeoutIsRetried(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(ctx context.Context, _ string, _ ModelTier) (string, error) {
			calls++
			if calls == 1 {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return validChunk, nil
		},
	}

	var result types.ChunkResult
	_, err := GenerateStructured(context.Background(), client, StructuredRequest{
		Name: "c", Prompt: "p", Schema: "chunk_result", Timeout: 20 * time.Millisecond, Policy: noWait(),
	}, &result)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGenerateStructured_PermanentStopsEarly(t *testing.T) {
	calls := 0
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ ModelTier) (string, error) {
			calls++
			return "", errors.New("googleapi: Error 400: API key not valid")
		},
	}

	var result types.ChunkResult
	_, err := GenerateStructured(context.Background(), client, StructuredRequest{
		Name: "c", Prompt: "p", Schema: "chunk_result", Policy: noWait(),
	}, &result)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, exhausted.Attempts)
}

func TestGenerateStructured_CancellationNotExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ ModelTier) (string, error) {
			cancel()
			return "", context.Canceled
		},
	}

	var result types.ChunkResult
	_, err := GenerateStructured(ctx, client, StructuredRequest{
		Name: "c", Prompt: "p", Schema: "chunk_result", Policy: noWait(),
	}, &result)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}
