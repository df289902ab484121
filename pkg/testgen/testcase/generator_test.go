package testcase

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"ai-testgen-be/pkg/llm"
	"ai-testgen-be/pkg/store"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	for _, msg := range history {
		if msg.Role == "user" {
			f.lastUser = msg.Content
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return f.response, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, fn llm.StreamFunc, options ...llm.Option) (string, error) {
	response, err := f.Chat(ctx, history)
	if err != nil {
		return "", err
	}
	if err := fn(response); err != nil {
		return "", err
	}
	return response, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestGenerateL1ReplacesCases(t *testing.T) {
	provider := &fakeLLM{response: `[
		{"id": "L1_001", "title": "Order placement", "description": "Placing orders"},
		{"id": "L1_002", "title": "Order tracking", "description": "Tracking orders"}
	]`}
	g := NewGenerator(provider, testLogger())

	st := store.NewGenerationState("session_abc12345", "Order management system")
	st.L1Cases = []store.TestCase{{ID: "OLD_001", Title: "stale"}}
	st.L1Questions = []store.Question{{Text: "Who uses it?", SuggestedAnswers: []string{}}}
	st.L1Answers = map[string]string{"Who uses it?": "Store admins"}

	if err := g.GenerateL1(context.Background(), st, nil); err != nil {
		t.Fatalf("GenerateL1 failed: %v", err)
	}

	if len(st.L1Cases) != 2 || st.L1Cases[0].ID != "L1_001" {
		t.Errorf("L1Cases = %+v, want the freshly generated round", st.L1Cases)
	}
	if !strings.Contains(provider.lastUser, "Q: Who uses it?\nA: Store admins") {
		t.Errorf("prompt missing Q/A line, got:\n%s", provider.lastUser)
	}
}

func TestGenerateL1FallsBackOnGarbage(t *testing.T) {
	provider := &fakeLLM{response: "no json here"}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	if err := g.GenerateL1(context.Background(), st, nil); err != nil {
		t.Fatalf("GenerateL1 failed: %v", err)
	}

	if len(st.L1Cases) != 2 {
		t.Fatalf("placeholder count = %d, want 2", len(st.L1Cases))
	}
	if st.L1Cases[0].Title != "Core Functionality Test" || st.L1Cases[1].Title != "Integration Test" {
		t.Errorf("placeholders = %+v, want the builtin pair", st.L1Cases)
	}
}

func TestGenerateL1EmptyArrayMeansNoCases(t *testing.T) {
	provider := &fakeLLM{response: "[]"}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	if err := g.GenerateL1(context.Background(), st, nil); err != nil {
		t.Fatalf("GenerateL1 failed: %v", err)
	}
	if len(st.L1Cases) != 0 {
		t.Errorf("case count = %d, want 0 for an explicit empty array", len(st.L1Cases))
	}
}

func TestGenerateL1PropagatesCancellation(t *testing.T) {
	provider := &fakeLLM{response: "[]"}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")
	st.L1Cases = []store.TestCase{{ID: "KEEP"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := g.GenerateL1(ctx, st, nil); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(st.L1Cases) != 1 || st.L1Cases[0].ID != "KEEP" {
		t.Error("cases mutated after cancellation")
	}
}

func selectedState() *store.GenerationState {
	idx := 0
	st := store.NewGenerationState("session_abc12345", "Order management system")
	st.L1Cases = []store.TestCase{
		{ID: "L1_001", Title: "Order placement", Description: "Placing orders"},
		{ID: "L1_002", Title: "Order tracking", Description: "Tracking orders"},
	}
	st.SelectedL1 = &st.L1Cases[0]
	st.SelectedL1Index = &idx
	st.L2Questions = []store.Question{{Text: "Scenario?", SuggestedAnswers: []string{}}}
	st.L2Answers = map[string]string{"Scenario?": "Happy path first"}
	return st
}

func TestGenerateL2MergesAndClears(t *testing.T) {
	provider := &fakeLLM{response: `[
		{"id": "L2_010", "title": "Single item order", "description": "d"},
		{"id": "L2_011", "title": "Bulk order", "description": "d", "parent_l1_id": "L1_001"}
	]`}
	g := NewGenerator(provider, testLogger())

	st := selectedState()
	st.L2Cases = []store.TestCase{
		{ID: "L2_001", Title: "stale same parent", ParentL1ID: "L1_001"},
		{ID: "L2_002", Title: "other parent", ParentL1ID: "L1_002"},
	}
	st.L3Questions = []store.Question{{Text: "stale", SuggestedAnswers: []string{}}}
	st.L3Answers = map[string]string{"stale": "x"}

	if err := g.GenerateL2(context.Background(), st, nil); err != nil {
		t.Fatalf("GenerateL2 failed: %v", err)
	}

	// Old L1_001 group replaced, L1_002 group kept, new cases appended.
	wantIDs := []string{"L2_002", "L2_010", "L2_011"}
	if len(st.L2Cases) != len(wantIDs) {
		t.Fatalf("L2 case count = %d, want %d", len(st.L2Cases), len(wantIDs))
	}
	for i, want := range wantIDs {
		if st.L2Cases[i].ID != want {
			t.Errorf("L2Cases[%d].ID = %s, want %s", i, st.L2Cases[i].ID, want)
		}
	}

	// The case without an explicit parent inherits the selection.
	if st.L2Cases[1].ParentL1ID != "L1_001" {
		t.Errorf("defaulted parent = %q, want L1_001", st.L2Cases[1].ParentL1ID)
	}

	// Selections and the question state of both lower levels reset.
	if st.SelectedL1 != nil || st.SelectedL1Index != nil || st.SelectedL2 != nil || st.SelectedL2Index != nil {
		t.Error("selections should be cleared after the L2 round")
	}
	if len(st.L2Questions) != 0 || len(st.L2Answers) != 0 {
		t.Error("L2 question state should be cleared after the L2 round")
	}
	if len(st.L3Questions) != 0 || len(st.L3Answers) != 0 {
		t.Error("L3 question state should be cleared after the L2 round")
	}
}

func TestGenerateL2WithoutSelection(t *testing.T) {
	g := NewGenerator(&fakeLLM{}, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	if err := g.GenerateL2(context.Background(), st, nil); err == nil {
		t.Fatal("GenerateL2 without a selection should error")
	}
}

func TestGenerateL2FallbackCarriesParent(t *testing.T) {
	provider := &fakeLLM{err: fmt.Errorf("boom")}
	g := NewGenerator(provider, testLogger())
	st := selectedState()

	if err := g.GenerateL2(context.Background(), st, nil); err != nil {
		t.Fatalf("GenerateL2 should degrade to placeholders, got: %v", err)
	}

	if len(st.L2Cases) != 2 {
		t.Fatalf("placeholder count = %d, want 2", len(st.L2Cases))
	}
	for _, tc := range st.L2Cases {
		if tc.ParentL1ID != "L1_001" {
			t.Errorf("placeholder parent = %q, want L1_001", tc.ParentL1ID)
		}
	}
}

func l2SelectedState() *store.GenerationState {
	idx := 0
	st := store.NewGenerationState("session_abc12345", "Order management system")
	st.L1Cases = []store.TestCase{{ID: "L1_001", Title: "Order placement"}}
	st.L2Cases = []store.TestCase{
		{ID: "L2_001", Title: "Happy path", ParentL1ID: "L1_001"},
		{ID: "L2_002", Title: "Out of stock", ParentL1ID: "L1_001"},
	}
	st.SelectedL2 = &st.L2Cases[0]
	st.SelectedL2Index = &idx
	st.L3Questions = []store.Question{{Text: "Steps?", SuggestedAnswers: []string{}}}
	st.L3Answers = map[string]string{"Steps?": "Add then checkout"}
	return st
}

func TestGenerateL3MergesAndClears(t *testing.T) {
	provider := &fakeLLM{response: `[
		{"id": "L3_010", "title": "Place single item order", "description": "d",
		 "test_steps": ["Add item", "Checkout", "Pay"], "expected_result": "Order confirmed"}
	]`}
	g := NewGenerator(provider, testLogger())

	st := l2SelectedState()
	st.L3Cases = []store.TestCase{
		{ID: "L3_001", ParentL2ID: "L2_001"},
		{ID: "L3_002", ParentL2ID: "L2_002"},
	}

	if err := g.GenerateL3(context.Background(), st, nil); err != nil {
		t.Fatalf("GenerateL3 failed: %v", err)
	}

	wantIDs := []string{"L3_002", "L3_010"}
	if len(st.L3Cases) != len(wantIDs) {
		t.Fatalf("L3 case count = %d, want %d", len(st.L3Cases), len(wantIDs))
	}
	for i, want := range wantIDs {
		if st.L3Cases[i].ID != want {
			t.Errorf("L3Cases[%d].ID = %s, want %s", i, st.L3Cases[i].ID, want)
		}
	}
	if st.L3Cases[1].ParentL2ID != "L2_001" {
		t.Errorf("defaulted parent = %q, want L2_001", st.L3Cases[1].ParentL2ID)
	}
	if len(st.L3Cases[1].TestSteps) != 3 || st.L3Cases[1].ExpectedResult != "Order confirmed" {
		t.Errorf("detailed fields lost: %+v", st.L3Cases[1])
	}

	if st.SelectedL2 != nil || st.SelectedL2Index != nil {
		t.Error("L2 selection should be cleared after the L3 round")
	}
	if len(st.L3Questions) != 0 || len(st.L3Answers) != 0 {
		t.Error("L3 question state should be cleared after the L3 round")
	}
	// The L2 list itself survives so other branches can still be explored.
	if len(st.L2Cases) != 2 {
		t.Errorf("L2 case count = %d, want untouched", len(st.L2Cases))
	}
}

func TestGenerateL3PromptCarriesBothAnswerSets(t *testing.T) {
	provider := &fakeLLM{response: "[]"}
	g := NewGenerator(provider, testLogger())

	st := l2SelectedState()
	st.L2Questions = []store.Question{{Text: "Scenario?", SuggestedAnswers: []string{}}}
	st.L2Answers = map[string]string{"Scenario?": "Happy path first"}

	if err := g.GenerateL3(context.Background(), st, nil); err != nil {
		t.Fatalf("GenerateL3 failed: %v", err)
	}

	if !strings.Contains(provider.lastUser, "Q: Scenario?\nA: Happy path first") {
		t.Error("prompt missing the L2 answers")
	}
	if !strings.Contains(provider.lastUser, "Q: Steps?\nA: Add then checkout") {
		t.Error("prompt missing the L3 answers")
	}
}

func TestGenerateL3FallbackSingleCase(t *testing.T) {
	provider := &fakeLLM{response: "not json"}
	g := NewGenerator(provider, testLogger())
	st := l2SelectedState()

	if err := g.GenerateL3(context.Background(), st, nil); err != nil {
		t.Fatalf("GenerateL3 failed: %v", err)
	}

	if len(st.L3Cases) != 1 {
		t.Fatalf("placeholder count = %d, want 1", len(st.L3Cases))
	}
	got := st.L3Cases[0]
	if got.ID != "L3_001" || got.ParentL2ID != "L2_001" {
		t.Errorf("placeholder = %+v, want L3_001 under L2_001", got)
	}
	if len(got.TestSteps) != 2 || got.ExpectedResult != "Expected result" {
		t.Errorf("placeholder detail = %+v, want builtin steps and result", got)
	}
}
