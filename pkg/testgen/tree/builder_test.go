package tree

import (
	"encoding/json"
	"strings"
	"testing"

	"ai-testgen-be/pkg/store"
)

func buildState() *store.GenerationState {
	st := store.NewGenerationState("session_abc12345", "Order management system")
	st.L1Cases = []store.TestCase{
		{ID: "L1_001", Title: "Order placement", Description: "Placing orders"},
		{ID: "L1_002", Title: "Order tracking", Description: "Tracking orders"},
	}
	st.L2Cases = []store.TestCase{
		{ID: "L2_001", Title: "Happy path", ParentL1ID: "L1_001"},
		{ID: "L2_002", Title: "Out of stock", ParentL1ID: "L1_001"},
		{ID: "L2_003", Title: "Status updates", ParentL1ID: "L1_002"},
	}
	st.L3Cases = []store.TestCase{
		{
			ID: "L3_001", Title: "Place order with one item",
			TestSteps:      []string{"Add item to cart", "Checkout"},
			ExpectedResult: "Order confirmed",
			ParentL2ID:     "L2_001",
		},
	}
	return st
}

func TestBuildGroupsByParent(t *testing.T) {
	b := NewBuilder()
	tree := b.Build(buildState())

	if tree.SessionID != "session_abc12345" || tree.UserPrompt != "Order management system" {
		t.Errorf("tree identity = %q / %q, want session and prompt carried over", tree.SessionID, tree.UserPrompt)
	}
	if len(tree.L1Cases) != 2 {
		t.Fatalf("L1 node count = %d, want 2", len(tree.L1Cases))
	}

	first := tree.L1Cases[0]
	if first.ID != "L1_001" || len(first.L2Cases) != 2 {
		t.Fatalf("L1_001 node = %+v, want 2 L2 children", first)
	}
	if len(first.L2Cases[0].L3Cases) != 1 {
		t.Fatalf("L2_001 L3 count = %d, want 1", len(first.L2Cases[0].L3Cases))
	}
	leaf := first.L2Cases[0].L3Cases[0]
	if leaf.ExpectedResult != "Order confirmed" || len(leaf.TestSteps) != 2 {
		t.Errorf("leaf = %+v, want steps and expected result carried over", leaf)
	}

	second := tree.L1Cases[1]
	if len(second.L2Cases) != 1 || second.L2Cases[0].ID != "L2_003" {
		t.Errorf("L1_002 node = %+v, want only L2_003 under it", second)
	}
}

func TestBuildDropsDanglingParents(t *testing.T) {
	st := buildState()
	// Point the leaf at an L2 id that no longer exists.
	st.L3Cases[0].ParentL2ID = "L2_999"

	tree := NewBuilder().Build(st)

	for _, l1 := range tree.L1Cases {
		for _, l2 := range l1.L2Cases {
			if len(l2.L3Cases) != 0 {
				t.Errorf("L2 node %s has %d L3 cases, want dangling leaf dropped", l2.ID, len(l2.L3Cases))
			}
		}
	}
}

func TestBuildEmptyState(t *testing.T) {
	st := store.NewGenerationState("session_abc12345", "p")
	tree := NewBuilder().Build(st)

	if tree.L1Cases == nil {
		t.Fatal("L1Cases should be an empty slice, not nil")
	}
	if len(tree.L1Cases) != 0 {
		t.Errorf("L1 node count = %d, want 0", len(tree.L1Cases))
	}

	// Empty tree still serializes with all keys present.
	raw, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(raw), `"l1_cases":[]`) {
		t.Errorf("marshaled tree = %s, want l1_cases as empty array", raw)
	}
}

func TestBuildCopiesSteps(t *testing.T) {
	st := buildState()
	tree := NewBuilder().Build(st)

	tree.L1Cases[0].L2Cases[0].L3Cases[0].TestSteps[0] = "changed"

	if st.L3Cases[0].TestSteps[0] != "Add item to cart" {
		t.Error("tree shares step slices with the state")
	}
}
