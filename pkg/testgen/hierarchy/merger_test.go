package hierarchy

import (
	"reflect"
	"testing"

	"ai-testgen-be/pkg/store"
)

func TestMergeL2ReplacesParentGroup(t *testing.T) {
	m := NewMerger()

	first := []store.TestCase{
		{ID: "L2_001", Title: "Basic checkout", ParentL1ID: "L1_001"},
		{ID: "L2_002", Title: "Guest checkout", ParentL1ID: "L1_001"},
	}
	merged := m.MergeL2([]store.TestCase{}, first, "L1_001")
	if !reflect.DeepEqual(merged, first) {
		t.Errorf("merge into empty = %+v, want %+v", merged, first)
	}

	// A second round for the same parent replaces, never accumulates.
	second := []store.TestCase{
		{ID: "L2_010", Title: "Checkout with coupon", ParentL1ID: "L1_001"},
	}
	merged = m.MergeL2(merged, second, "L1_001")
	if !reflect.DeepEqual(merged, second) {
		t.Errorf("re-merge = %+v, want exactly the new round %+v", merged, second)
	}
}

func TestMergeL2KeepsOtherParents(t *testing.T) {
	m := NewMerger()

	existing := []store.TestCase{
		{ID: "L2_001", ParentL1ID: "L1_001"},
		{ID: "L2_002", ParentL1ID: "L1_002"},
	}
	generated := []store.TestCase{
		{ID: "L2_010", ParentL1ID: "L1_001"},
	}

	merged := m.MergeL2(existing, generated, "L1_001")

	if len(merged) != 2 {
		t.Fatalf("merged length = %d, want 2", len(merged))
	}
	if merged[0].ID != "L2_002" {
		t.Errorf("surviving case = %s, want L2_002 from the other parent", merged[0].ID)
	}
	if merged[1].ID != "L2_010" {
		t.Errorf("appended case = %s, want L2_010", merged[1].ID)
	}
}

func TestMergeL3ReplacesByL2Parent(t *testing.T) {
	m := NewMerger()

	existing := []store.TestCase{
		{ID: "L3_001", ParentL2ID: "L2_001"},
		{ID: "L3_002", ParentL2ID: "L2_002"},
	}
	generated := []store.TestCase{
		{ID: "L3_010", ParentL2ID: "L2_002"},
		{ID: "L3_011", ParentL2ID: "L2_002"},
	}

	merged := m.MergeL3(existing, generated, "L2_002")

	wantIDs := []string{"L3_001", "L3_010", "L3_011"}
	if len(merged) != len(wantIDs) {
		t.Fatalf("merged length = %d, want %d", len(merged), len(wantIDs))
	}
	for i, want := range wantIDs {
		if merged[i].ID != want {
			t.Errorf("merged[%d].ID = %s, want %s", i, merged[i].ID, want)
		}
	}
}

func TestMergeEmptyGeneration(t *testing.T) {
	m := NewMerger()

	existing := []store.TestCase{
		{ID: "L2_001", ParentL1ID: "L1_001"},
		{ID: "L2_002", ParentL1ID: "L1_002"},
	}

	// An empty round wipes the parent's group and adds nothing.
	merged := m.MergeL2(existing, []store.TestCase{}, "L1_001")

	if len(merged) != 1 || merged[0].ID != "L2_002" {
		t.Errorf("merged = %+v, want only L2_002", merged)
	}
}
