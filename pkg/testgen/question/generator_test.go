package question

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

// ChatStream delivers the response in two fragments so sinks see real
// incremental behavior.
func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, fn llm.StreamFunc, options ...llm.Option) (string, error) {
	response, err := f.Chat(ctx, history)
	if err != nil {
		return "", err
	}
	half := len(response) / 2
	for _, fragment := range []string{response[:half], response[half:]} {
		if fragment == "" {
			continue
		}
		if err := fn(fragment); err != nil {
			return "", err
		}
	}
	return response, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestAskL1ParsesQuestions(t *testing.T) {
	provider := &fakeLLM{response: `[
		{"question": "Who uses the system?", "suggested_answers": ["Admins", "Customers"]},
		{"question": "What is the peak load?", "suggested_answers": []}
	]`}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "Order management system")

	if err := g.AskL1(context.Background(), st, nil); err != nil {
		t.Fatalf("AskL1 failed: %v", err)
	}

	if len(st.L1Questions) != 2 {
		t.Fatalf("question count = %d, want 2", len(st.L1Questions))
	}
	if st.L1Questions[0].Text != "Who uses the system?" {
		t.Errorf("first question = %q, want parsed text", st.L1Questions[0].Text)
	}
	if st.CurrentLevel != store.LevelL1 {
		t.Errorf("CurrentLevel = %q, want l1", st.CurrentLevel)
	}
	if !strings.Contains(provider.lastUser, "Order management system") {
		t.Error("prompt should carry the business prompt")
	}
}

func TestAskL1FallsBackOnGarbage(t *testing.T) {
	provider := &fakeLLM{response: "I cannot answer that."}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	if err := g.AskL1(context.Background(), st, nil); err != nil {
		t.Fatalf("AskL1 failed: %v", err)
	}

	want := DefaultL1Questions()
	if len(st.L1Questions) != len(want) {
		t.Fatalf("question count = %d, want %d defaults", len(st.L1Questions), len(want))
	}
	if st.L1Questions[0].Text != want[0].Text {
		t.Errorf("first question = %q, want default %q", st.L1Questions[0].Text, want[0].Text)
	}
}

func TestAskL1FallsBackOnProviderError(t *testing.T) {
	provider := &fakeLLM{err: fmt.Errorf("connection refused")}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	if err := g.AskL1(context.Background(), st, nil); err != nil {
		t.Fatalf("AskL1 should degrade to defaults, got: %v", err)
	}
	if len(st.L1Questions) != 3 {
		t.Errorf("question count = %d, want 3 defaults", len(st.L1Questions))
	}
}

func TestAskL1PropagatesCancellation(t *testing.T) {
	provider := &fakeLLM{response: "[]"}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.AskL1(ctx, st, nil)
	if err == nil {
		t.Fatal("AskL1 should propagate context cancellation")
	}
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(st.L1Questions) != 0 {
		t.Errorf("questions written after cancellation: %d", len(st.L1Questions))
	}
}

func TestAskL1EmptyArrayIsValid(t *testing.T) {
	provider := &fakeLLM{response: "[]"}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	if err := g.AskL1(context.Background(), st, nil); err != nil {
		t.Fatalf("AskL1 failed: %v", err)
	}

	// An explicit empty array means no questions, not a fallback.
	if len(st.L1Questions) != 0 {
		t.Errorf("question count = %d, want 0 for empty array", len(st.L1Questions))
	}
}

func TestAskL2WithoutSelectionRollsBack(t *testing.T) {
	provider := &fakeLLM{response: "should not be called"}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")
	st.L2Questions = []store.Question{{Text: "stale", SuggestedAnswers: []string{}}}

	if err := g.AskL2(context.Background(), st, nil); err != nil {
		t.Fatalf("AskL2 failed: %v", err)
	}

	if len(st.L2Questions) != 0 {
		t.Errorf("L2 questions = %d, want cleared", len(st.L2Questions))
	}
	if st.CurrentLevel != store.LevelL1 {
		t.Errorf("CurrentLevel = %q, want rolled back to l1", st.CurrentLevel)
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0 without a selection", provider.calls)
	}
}

func TestAskL2ScopesToSelectedCase(t *testing.T) {
	provider := &fakeLLM{response: `[{"question": "Scenario?", "suggested_answers": ["Happy path"]}]`}
	g := NewGenerator(provider, testLogger())

	st := store.NewGenerationState("session_abc12345", "p")
	st.SelectedL1 = &store.TestCase{ID: "L1_001", Title: "Order placement", Description: "Placing orders"}

	if err := g.AskL2(context.Background(), st, nil); err != nil {
		t.Fatalf("AskL2 failed: %v", err)
	}

	if len(st.L2Questions) != 1 || st.L2Questions[0].Text != "Scenario?" {
		t.Errorf("L2 questions = %+v, want the parsed question", st.L2Questions)
	}
	if st.CurrentLevel != store.LevelL2 {
		t.Errorf("CurrentLevel = %q, want l2", st.CurrentLevel)
	}
	if !strings.Contains(provider.lastUser, "Order placement") {
		t.Error("prompt should carry the selected L1 title")
	}
}

func TestAskL3ResolvesParentFromLiveList(t *testing.T) {
	provider := &fakeLLM{response: `[{"question": "Steps?", "suggested_answers": []}]`}
	g := NewGenerator(provider, testLogger())

	st := store.NewGenerationState("session_abc12345", "p")
	st.L1Cases = []store.TestCase{{ID: "L1_001", Title: "Order placement"}}
	// The L1 selection was already cleared by the L2 generation round.
	st.SelectedL2 = &store.TestCase{ID: "L2_001", Title: "Happy path", ParentL1ID: "L1_001"}

	if err := g.AskL3(context.Background(), st, nil); err != nil {
		t.Fatalf("AskL3 failed: %v", err)
	}

	if st.CurrentLevel != store.LevelL3 {
		t.Errorf("CurrentLevel = %q, want l3", st.CurrentLevel)
	}
	if !strings.Contains(provider.lastUser, "Order placement") {
		t.Error("prompt should name the parent L1 case resolved by id")
	}
	if !strings.Contains(provider.lastUser, "Happy path") {
		t.Error("prompt should name the selected L2 case")
	}
}

func TestAskL3WithoutSelectionRollsBack(t *testing.T) {
	provider := &fakeLLM{}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	if err := g.AskL3(context.Background(), st, nil); err != nil {
		t.Fatalf("AskL3 failed: %v", err)
	}
	if st.CurrentLevel != store.LevelL2 {
		t.Errorf("CurrentLevel = %q, want l2", st.CurrentLevel)
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0", provider.calls)
	}
}

func TestAskL1StreamsThroughSink(t *testing.T) {
	provider := &fakeLLM{response: `[{"question": "Who?", "suggested_answers": []}]`}
	g := NewGenerator(provider, testLogger())
	st := store.NewGenerationState("session_abc12345", "p")

	var tokens []string
	var lastFull string
	sink := func(token string, fullText string) error {
		tokens = append(tokens, token)
		lastFull = fullText
		return nil
	}

	if err := g.AskL1(context.Background(), st, sink); err != nil {
		t.Fatalf("AskL1 failed: %v", err)
	}

	if len(tokens) < 2 {
		t.Errorf("sink received %d fragments, want incremental delivery", len(tokens))
	}
	if lastFull != provider.response {
		t.Errorf("accumulated text = %q, want the full response", lastFull)
	}
	if len(st.L1Questions) != 1 {
		t.Errorf("question count = %d, want parsed from streamed text", len(st.L1Questions))
	}
}

func TestDefaultQuestionTitles(t *testing.T) {
	tests := []struct {
		name  string
		got   []store.Question
		want  string
		count int
	}{
		{"L2 with title", DefaultL2Questions("Checkout"), "What are the specific scenarios for Checkout?", 3},
		{"L2 without title", DefaultL2Questions(""), "What are the specific scenarios for this functionality?", 3},
		{"L3 with title", DefaultL3Questions("Happy path"), "What are the specific test steps for Happy path?", 3},
		{"L3 without title", DefaultL3Questions(""), "What are the specific test steps for this scenario?", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.got) != tt.count {
				t.Fatalf("count = %d, want %d", len(tt.got), tt.count)
			}
			if tt.got[0].Text != tt.want {
				t.Errorf("first question = %q, want %q", tt.got[0].Text, tt.want)
			}
			for _, q := range tt.got {
				if len(q.SuggestedAnswers) == 0 {
					t.Errorf("question %q has no suggested answers", q.Text)
				}
			}
		})
	}
}
