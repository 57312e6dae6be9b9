package feedback

import (
	"testing"

	"github.com/jonathan/repocompare/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		input string
		want  types.Directive
	}{
		{"approve", types.DirectiveApprove},
		{"  APPROVE \n", types.DirectiveApprove},
		{"Refine: shorter titles", types.DirectiveRefine},
		{"filter priority>=3", types.DirectiveFilter},
		{"change_focus", types.DirectiveChangeFocus},
		{"change-focus: auth", types.DirectiveChangeFocus},
		{"Change Focus auth", types.DirectiveChangeFocus},
		{"focus: caching", types.DirectiveChangeFocus},
		{"skip", types.DirectiveSkip},
		{"", types.DirectiveSkip},
		{"looks good to me", types.DirectiveSkip},
		{"approved", types.DirectiveSkip},
		{"interrupted", types.DirectiveSkip},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDirective(tt.input))
		})
	}
}

func TestParseResponse_Refine(t *testing.T) {
	resp := ParseResponse("refine: merge the caching items; drop anything about CI\nmention metrics")
	assert.Equal(t, types.DirectiveRefine, resp.Directive)
	assert.Equal(t, []string{"merge the caching items", "drop anything about CI", "mention metrics"}, resp.Payload.FeedbackItems)
	assert.Contains(t, resp.Payload.Raw, "mention metrics")
}

func TestParseResponse_Filter(t *testing.T) {
	resp := ParseResponse("FILTER: priority>=4 category=Reliability,obs complexity<=2 bogus=1")
	assert.Equal(t, types.DirectiveFilter, resp.Directive)
	assert.Equal(t, types.FilterCriteria{
		MinPriority:   4,
		Categories:    []string{"reliability", "obs"},
		MaxComplexity: 2,
	}, resp.Payload.Filter)

	empty := ParseResponse("filter")
	assert.True(t, empty.Payload.Filter.IsZero())
}

func TestParseResponse_ChangeFocus(t *testing.T) {
	resp := ParseResponse("change focus: auth, storage ,  ")
	assert.Equal(t, types.DirectiveChangeFocus, resp.Directive)
	assert.Equal(t, []string{"auth", "storage"}, resp.Payload.FocusAreas)
}

func TestParseResponse_UnknownIsSkip(t *testing.T) {
	resp := ParseResponse("what now?")
	assert.Equal(t, types.DirectiveSkip, resp.Directive)
	assert.Empty(t, resp.Payload.FeedbackItems)
}
