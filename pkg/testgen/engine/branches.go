package engine

import "ai-testgen-be/pkg/store"

// next names the node a finished generation round hands control to.
type next int

const (
	nextAskL2 next = iota
	nextWaitL1Selection
	nextAskL3
	nextWaitL2Selection
	nextBuildTree
	nextWaitL3Completion
)

// afterL1Cases routes a stored L1 round. A selection that survived the
// round (answers resubmitted mid-branch) flows straight into the L2
// questions for it; cases without a selection wait for one; an empty
// round degenerates to the tree.
func afterL1Cases(st *store.GenerationState) next {
	switch {
	case st.SelectedL1 != nil && st.SelectedL1Index != nil:
		return nextAskL2
	case len(st.L1Cases) > 0:
		return nextWaitL1Selection
	default:
		return nextBuildTree
	}
}

// afterL2Cases routes a stored L2 round, the same shape one level down.
// The round itself clears both selections, so the ask-L3 arm only fires
// on states that arrive with a selection already in place.
func afterL2Cases(st *store.GenerationState) next {
	switch {
	case st.SelectedL2 != nil && st.SelectedL2Index != nil:
		return nextAskL3
	case len(st.L2Cases) > 0:
		return nextWaitL2Selection
	default:
		return nextBuildTree
	}
}

// afterL3Cases routes a stored L3 round: any cases at all close the
// session, none parks it so another L2 branch can be explored.
func afterL3Cases(st *store.GenerationState) next {
	if len(st.L3Cases) > 0 {
		return nextBuildTree
	}
	return nextWaitL3Completion
}
