// Package tree assembles the final hierarchical output of a completed
// session from the flat per-level case lists.
package tree

import (
	"ai-testgen-be/pkg/store"
)

// Builder groups L2 cases under their L1 parents and L3 cases under their
// L2 parents. It is a pure aggregation: no model calls, no state writes.
type Builder struct{}

// NewBuilder creates a new tree builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns the tree for the given state. Cases whose parent id does
// not match any case one level up are dropped; they belong to a parent
// that was regenerated away.
func (b *Builder) Build(st *store.GenerationState) *store.TestCaseTree {
	tree := &store.TestCaseTree{
		L1Cases:    []store.L1TreeNode{},
		SessionID:  st.SessionID,
		UserPrompt: st.UserPrompt,
	}

	for _, l1 := range st.L1Cases {
		l1Node := store.L1TreeNode{
			ID:          l1.ID,
			Title:       l1.Title,
			Description: l1.Description,
			L2Cases:     []store.L2TreeNode{},
		}

		for _, l2 := range st.L2Cases {
			if l2.ParentL1ID != l1.ID {
				continue
			}
			l2Node := store.L2TreeNode{
				ID:          l2.ID,
				Title:       l2.Title,
				Description: l2.Description,
				L3Cases:     []store.L3TreeNode{},
			}

			for _, l3 := range st.L3Cases {
				if l3.ParentL2ID != l2.ID {
					continue
				}
				l2Node.L3Cases = append(l2Node.L3Cases, store.L3TreeNode{
					ID:             l3.ID,
					Title:          l3.Title,
					Description:    l3.Description,
					TestSteps:      append([]string{}, l3.TestSteps...),
					ExpectedResult: l3.ExpectedResult,
				})
			}

			l1Node.L2Cases = append(l1Node.L2Cases, l2Node)
		}

		tree.L1Cases = append(tree.L1Cases, l1Node)
	}

	return tree
}
