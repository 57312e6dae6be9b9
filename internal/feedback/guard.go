package feedback

import "github.com/jonathan/repocompare/internal/types"

// DefaultRefineCap is how many consecutive repeated refines are allowed before refine is blocked.
const DefaultRefineCap = 3

// Guard stops a run of repeated refine directives.
type Guard struct {
	RefineCap int
}

// Apply returns the directive to act on and updates the loop counters on state.
// A refine that follows a refine increments the counter. When the counter reaches the cap the
// directive becomes null and refine stays blocked until some other directive is applied.
// Any other directive resets the counter.
func (g Guard) Apply(state *types.PipelineState, requested types.Directive) types.Directive {
	if requested != types.DirectiveRefine {
		state.SameCount = 0
		state.RefineBlocked = false
		return requested
	}
	if state.RefineBlocked {
		return types.DirectiveNull
	}

	if state.LastDirective() == types.DirectiveRefine {
		state.SameCount++
	} else {
		state.SameCount = 0
	}
	if state.SameCount >= g.refineCap() {
		state.RefineBlocked = true
		return types.DirectiveNull
	}
	return types.DirectiveRefine
}

func (g Guard) refineCap() int {
	if g.RefineCap <= 0 {
		return DefaultRefineCap
	}
	return g.RefineCap
}
