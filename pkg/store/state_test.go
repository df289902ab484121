package store

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()

	if !strings.HasPrefix(id, "session_") {
		t.Errorf("NewSessionID() = %q, want session_ prefix", id)
	}
	if len(id) != len("session_")+8 {
		t.Errorf("NewSessionID() length = %d, want %d", len(id), len("session_")+8)
	}
	for _, c := range id[len("session_"):] {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("NewSessionID() suffix contains non-hex char %q in %q", c, id)
		}
	}

	if NewSessionID() == id {
		t.Error("two NewSessionID() calls returned the same id")
	}
}

func TestNewGenerationState(t *testing.T) {
	st := NewGenerationState("session_abc12345", "Order management system")

	if st.SessionID != "session_abc12345" {
		t.Errorf("SessionID = %q, want session_abc12345", st.SessionID)
	}
	if st.UserPrompt != "Order management system" {
		t.Errorf("UserPrompt = %q, want the business prompt", st.UserPrompt)
	}
	if st.CurrentLevel != LevelL1 {
		t.Errorf("CurrentLevel = %q, want %q", st.CurrentLevel, LevelL1)
	}
	if st.Status != StatusWaitL1Answers {
		t.Errorf("Status = %q, want %q", st.Status, StatusWaitL1Answers)
	}
	if st.L1Questions == nil || st.L1Answers == nil || st.L1Cases == nil {
		t.Error("L1 collections should be initialized, not nil")
	}
	if st.AnsweredHistory == nil {
		t.Error("AnsweredHistory should be initialized, not nil")
	}
	if st.Tree != nil {
		t.Error("Tree should be nil for a fresh session")
	}

	// Empty session id gets generated.
	st = NewGenerationState("", "x")
	if !strings.HasPrefix(st.SessionID, "session_") {
		t.Errorf("generated SessionID = %q, want session_ prefix", st.SessionID)
	}
}

func TestGenerationStateWireFormat(t *testing.T) {
	st := NewGenerationState("session_abc12345", "Order management system")

	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	payload := string(raw)

	wantKeys := []string{
		`"user_initial_prompt":"Order management system"`,
		`"session_id":"session_abc12345"`,
		`"l1_clarification_questions":[]`,
		`"l1_clarification_answers":{}`,
		`"l1_test_cases":[]`,
		`"selected_l1_case":null`,
		`"selected_l1_index":null`,
		`"answered_history":[]`,
		`"global_summary":""`,
		`"current_level":"l1"`,
		`"status":"WAIT_L1_ANSWERS"`,
	}
	for _, key := range wantKeys {
		if !strings.Contains(payload, key) {
			t.Errorf("marshaled state missing %s", key)
		}
	}

	// The tree key is omitted until a tree exists.
	if strings.Contains(payload, "full_tree_data") {
		t.Error("fresh state should omit full_tree_data")
	}
	st.Tree = &TestCaseTree{L1Cases: []L1TreeNode{}, SessionID: st.SessionID, UserPrompt: st.UserPrompt}
	raw, _ = json.Marshal(st)
	if !strings.Contains(string(raw), `"full_tree_data"`) {
		t.Error("state with a tree should include full_tree_data")
	}
}

func TestNormalize(t *testing.T) {
	st := &GenerationState{SessionID: "session_a", UserPrompt: "p"}
	st.Normalize()

	if st.L1Questions == nil || st.L2Questions == nil || st.L3Questions == nil {
		t.Error("Normalize should replace nil question slices")
	}
	if st.L1Answers == nil || st.L2Answers == nil || st.L3Answers == nil {
		t.Error("Normalize should replace nil answer maps")
	}
	if st.L1Cases == nil || st.L2Cases == nil || st.L3Cases == nil {
		t.Error("Normalize should replace nil case slices")
	}
	if st.AnsweredHistory == nil {
		t.Error("Normalize should replace nil history")
	}
	if st.CurrentLevel != LevelL1 {
		t.Errorf("CurrentLevel = %q, want %q", st.CurrentLevel, LevelL1)
	}
	if st.Status != StatusWaitL1Answers {
		t.Errorf("Status = %q, want %q", st.Status, StatusWaitL1Answers)
	}
}

func TestNormalizeDerivesStatus(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(st *GenerationState)
		wantStatus string
	}{
		{
			name:       "fresh session waits for L1 answers",
			mutate:     func(st *GenerationState) {},
			wantStatus: StatusWaitL1Answers,
		},
		{
			name: "L1 cases present waits for selection",
			mutate: func(st *GenerationState) {
				st.L1Cases = []TestCase{{ID: "L1_001", Title: "t"}}
			},
			wantStatus: StatusWaitL1Selection,
		},
		{
			name: "L2 questions present waits for L2 answers",
			mutate: func(st *GenerationState) {
				st.L1Cases = []TestCase{{ID: "L1_001"}}
				st.L2Questions = []Question{{Text: "q", SuggestedAnswers: []string{}}}
			},
			wantStatus: StatusWaitL2Answers,
		},
		{
			name: "L2 cases present waits for L2 selection",
			mutate: func(st *GenerationState) {
				st.L1Cases = []TestCase{{ID: "L1_001"}}
				st.L2Cases = []TestCase{{ID: "L2_001", ParentL1ID: "L1_001"}}
			},
			wantStatus: StatusWaitL2Selection,
		},
		{
			name: "L3 questions present waits for L3 answers",
			mutate: func(st *GenerationState) {
				st.L1Cases = []TestCase{{ID: "L1_001"}}
				st.L2Cases = []TestCase{{ID: "L2_001", ParentL1ID: "L1_001"}}
				st.L3Questions = []Question{{Text: "q", SuggestedAnswers: []string{}}}
			},
			wantStatus: StatusWaitL3Answers,
		},
		{
			name: "complete level wins over everything",
			mutate: func(st *GenerationState) {
				st.L1Cases = []TestCase{{ID: "L1_001"}}
				st.CurrentLevel = LevelComplete
			},
			wantStatus: StatusComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewGenerationState("session_a", "p")
			st.Status = ""
			tt.mutate(st)
			st.Normalize()

			if st.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", st.Status, tt.wantStatus)
			}
		})
	}
}

func TestFindL1Case(t *testing.T) {
	st := NewGenerationState("session_a", "p")
	st.L1Cases = []TestCase{
		{ID: "L1_001", Title: "Checkout"},
		{ID: "L1_002", Title: "Refunds"},
	}

	if got := st.FindL1Case("L1_002"); got == nil || got.Title != "Refunds" {
		t.Errorf("FindL1Case(L1_002) = %+v, want the Refunds case", got)
	}
	if got := st.FindL1Case("L1_999"); got != nil {
		t.Errorf("FindL1Case(L1_999) = %+v, want nil", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	idx := 0
	st := NewGenerationState("session_a", "p")
	st.L1Questions = []Question{{Text: "q1", SuggestedAnswers: []string{"a", "b"}}}
	st.L1Answers = map[string]string{"q1": "a1"}
	st.L1Cases = []TestCase{{ID: "L1_001", Title: "t", TestSteps: []string{"s1"}}}
	st.SelectedL1 = &st.L1Cases[0]
	st.SelectedL1Index = &idx
	st.AnsweredHistory = []AnsweredQuestion{{Question: "q1", Answer: "a1", Level: "L1", Context: "Initial business clarification"}}
	st.Tree = &TestCaseTree{
		SessionID:  "session_a",
		UserPrompt: "p",
		L1Cases: []L1TreeNode{{
			ID: "L1_001", Title: "t",
			L2Cases: []L2TreeNode{{ID: "L2_001", L3Cases: []L3TreeNode{{ID: "L3_001", TestSteps: []string{"s1"}}}}},
		}},
	}

	clone := st.Clone()

	// Mutate every collection on the clone.
	clone.L1Questions[0].Text = "changed"
	clone.L1Questions[0].SuggestedAnswers[0] = "changed"
	clone.L1Answers["q1"] = "changed"
	clone.L1Cases[0].Title = "changed"
	clone.L1Cases[0].TestSteps[0] = "changed"
	clone.SelectedL1.Title = "changed"
	*clone.SelectedL1Index = 9
	clone.AnsweredHistory[0].Answer = "changed"
	clone.Tree.L1Cases[0].Title = "changed"
	clone.Tree.L1Cases[0].L2Cases[0].L3Cases[0].TestSteps[0] = "changed"

	if st.L1Questions[0].Text != "q1" || st.L1Questions[0].SuggestedAnswers[0] != "a" {
		t.Error("clone shares question data with the original")
	}
	if st.L1Answers["q1"] != "a1" {
		t.Error("clone shares the answers map with the original")
	}
	if st.L1Cases[0].Title != "t" || st.L1Cases[0].TestSteps[0] != "s1" {
		t.Error("clone shares case data with the original")
	}
	if st.SelectedL1.Title != "t" {
		t.Error("clone shares the selected case with the original")
	}
	if *st.SelectedL1Index != 0 {
		t.Error("clone shares the selection index with the original")
	}
	if st.AnsweredHistory[0].Answer != "a1" {
		t.Error("clone shares the history with the original")
	}
	if st.Tree.L1Cases[0].Title != "t" {
		t.Error("clone shares the tree with the original")
	}
	if st.Tree.L1Cases[0].L2Cases[0].L3Cases[0].TestSteps[0] != "s1" {
		t.Error("clone shares nested tree steps with the original")
	}
}

func TestCloneNilFields(t *testing.T) {
	st := &GenerationState{SessionID: "session_a"}
	clone := st.Clone()

	if clone.SelectedL1 != nil || clone.SelectedL1Index != nil || clone.Tree != nil {
		t.Error("clone invented values for nil fields")
	}
}
