package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/jonathan/repocompare/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultConfig(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "openai"}, "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestExtractTextFromResponse(t *testing.T) {
	_, err := extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = extractTextFromResponse(nil)
	assert.Error(t, err)

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
		}},
	}
	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
}

func TestExtractTextFromResponse_Blocked(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
	}
	_, err := extractTextFromResponse(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt blocked")
}

// codedError mimics provider errors that expose their HTTP status through a method.
type codedError struct{ code int }

func (e codedError) Error() string { return fmt.Sprintf("rpc error %d", e.code) }
func (e codedError) HTTPCode() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		permanent bool
		transient bool
	}{
		{name: "bad request", err: &googleapi.Error{Code: 400, Message: "invalid argument"}, code: 400, permanent: true},
		{name: "forbidden", err: fmt.Errorf("call: %w", &googleapi.Error{Code: 403, Message: "denied"}), code: 403, permanent: true},
		{name: "overloaded", err: &googleapi.Error{Code: 503, Message: "try later"}, code: 503, transient: true},
		{name: "rate limited", err: codedError{code: 429}, code: 429, transient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.code, pe.Code)
			assert.Equal(t, tt.permanent, retry.IsPermanent(err))
			assert.Equal(t, tt.transient, retry.IsTransient(err))
		})
	}
}

func TestProviderError_AuthFailure(t *testing.T) {
	for code, want := range map[int]bool{400: false, 401: true, 403: true, 404: false, 503: false} {
		pe := &ProviderError{Code: code}
		assert.Equal(t, want, pe.AuthFailure(), "code %d", code)
	}
}

func TestClassify_PlainError(t *testing.T) {
	err := classify(errors.New("stream closed"))
	var pe *ProviderError
	assert.False(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "failed to generate content")

	// Methods reporting no HTTP status are not provider errors
	err = classify(codedError{code: -1})
	assert.False(t, errors.As(err, &pe))
}
