// Package hierarchy reconciles freshly generated test cases with the
// cases already accumulated at a level.
package hierarchy

import (
	"ai-testgen-be/pkg/store"
)

// Merger merges one generation round into the level's case list.
// Regenerating under a parent replaces that parent's whole group while
// groups under other parents stay untouched, so a user can revisit an
// earlier selection without losing work done under its siblings.
type Merger struct{}

// NewMerger creates a new hierarchy merger
func NewMerger() *Merger {
	return &Merger{}
}

// MergeL2 merges generated L2 cases into existing, keyed by L1 parent.
func (m *Merger) MergeL2(existing []store.TestCase, generated []store.TestCase, parentL1ID string) []store.TestCase {
	return merge(existing, generated, parentL1ID, func(tc store.TestCase) string {
		return tc.ParentL1ID
	})
}

// MergeL3 merges generated L3 cases into existing, keyed by L2 parent.
func (m *Merger) MergeL3(existing []store.TestCase, generated []store.TestCase, parentL2ID string) []store.TestCase {
	return merge(existing, generated, parentL2ID, func(tc store.TestCase) string {
		return tc.ParentL2ID
	})
}

func merge(existing []store.TestCase, generated []store.TestCase, parentID string, parentOf func(store.TestCase) string) []store.TestCase {
	merged := make([]store.TestCase, 0, len(existing)+len(generated))
	for _, tc := range existing {
		if parentOf(tc) != parentID {
			merged = append(merged, tc)
		}
	}
	return append(merged, generated...)
}
