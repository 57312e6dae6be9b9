package feedback

import (
	"testing"

	"github.com/jonathan/repocompare/internal/types"
	"github.com/stretchr/testify/assert"
)

// apply runs one guarded directive and records it the way the controller does.
func apply(g Guard, state *types.PipelineState, d types.Directive) types.Directive {
	got := g.Apply(state, d)
	state.AppendFeedback(types.FeedbackEntry{Directive: got, Requested: d})
	return got
}

func TestGuard_RefineCap(t *testing.T) {
	state := types.NewPipelineState("s", 10)
	g := Guard{RefineCap: 3}

	var applied []types.Directive
	for i := 0; i < 4; i++ {
		applied = append(applied, apply(g, state, types.DirectiveRefine))
	}

	assert.Equal(t, []types.Directive{
		types.DirectiveRefine, types.DirectiveRefine, types.DirectiveRefine, types.DirectiveNull,
	}, applied)
	assert.True(t, state.RefineBlocked)
	assert.Equal(t, 3, state.SameCount)

	assert.Equal(t, types.DirectiveNull, apply(g, state, types.DirectiveRefine))

	assert.Equal(t, types.DirectiveFilter, apply(g, state, types.DirectiveFilter))
	assert.False(t, state.RefineBlocked)
	assert.Equal(t, 0, state.SameCount)
	assert.Equal(t, types.DirectiveRefine, apply(g, state, types.DirectiveRefine))
}

func TestGuard_OtherDirectivesReset(t *testing.T) {
	state := types.NewPipelineState("s", 10)
	g := Guard{}

	apply(g, state, types.DirectiveRefine)
	apply(g, state, types.DirectiveRefine)
	assert.Equal(t, 1, state.SameCount)

	apply(g, state, types.DirectiveChangeFocus)
	assert.Equal(t, 0, state.SameCount)

	for i := 0; i < 3; i++ {
		assert.Equal(t, types.DirectiveRefine, apply(g, state, types.DirectiveRefine))
	}
	assert.Equal(t, types.DirectiveNull, apply(g, state, types.DirectiveRefine))
}

func TestGuard_FilterRepeatsAreUnbounded(t *testing.T) {
	state := types.NewPipelineState("s", 10)
	for i := 0; i < 6; i++ {
		assert.Equal(t, types.DirectiveFilter, apply(Guard{}, state, types.DirectiveFilter))
	}
	assert.Equal(t, 0, state.SameCount)
}
