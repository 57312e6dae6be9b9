package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get(AnalysisFile, "compare-chunk")
	require.NoError(t, err)
	assert.Contains(t, prompt, "SOURCE")
	assert.Contains(t, prompt, "{{.Digest}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(AnalysisFile, "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestFormat(t *testing.T) {
	out := Format("Hello {{.Name}}, {{.Missing}}", map[string]string{"Name": "world"})
	assert.Equal(t, "Hello world, {{.Missing}}", out)
}

func TestRender_MissingValue(t *testing.T) {
	ClearCache()

	_, err := Render(RetryFile, "invalid-response", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{{.Reason}}")

	out, err := Render(RetryFile, "invalid-response", map[string]string{"Reason": "summary: is required {{.X}}"})
	require.NoError(t, err)
	assert.Contains(t, out, "summary: is required")
}

func TestList_AllFiles(t *testing.T) {
	ClearCache()

	tests := []struct {
		file string
		keys []string
	}{
		{AnalysisFile, []string{"all-areas", "compare-chunk", "empty-side", "no-digest"}},
		{CandidatesFile, []string{"generate-candidates", "refine-candidates"}},
		{ReviewsFile, []string{"review-feasibility", "review-impact", "review-risk"}},
		{RetryFile, []string{"invalid-response"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			keys, err := List(tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestReviewPrompts_SharePlaceholders(t *testing.T) {
	for _, key := range []string{"review-feasibility", "review-impact", "review-risk"} {
		prompt := MustGet(ReviewsFile, key)
		assert.Contains(t, prompt, "{{.Candidates}}", key)
		assert.Contains(t, prompt, "{{.Aggregate}}", key)
		assert.Contains(t, prompt, "{{.Schema}}", key)
	}
}

func TestFormat_DoesNotExpandValues(t *testing.T) {
	out := Format("{{.A}}|{{.B}}", map[string]string{"A": "{{.B}}", "B": "b"})
	assert.Equal(t, "{{.B}}|b", out)
}
