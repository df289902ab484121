package summary

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

func answeredState() *store.GenerationState {
	st := store.NewGenerationState("session_abc12345", "Order management system")
	st.L1Questions = []store.Question{
		{Text: "Who are the users?", SuggestedAnswers: []string{}},
		{Text: "Which payment methods?", SuggestedAnswers: []string{}},
	}
	st.L1Answers = map[string]string{
		"Who are the users?":     "Store admins",
		"Which payment methods?": "   ", // whitespace only, must be skipped
	}
	return st
}

func TestCollectRecordsAnsweredQuestions(t *testing.T) {
	a := NewAccumulator(&fakeLLM{}, testLogger())
	st := answeredState()

	a.Collect(st)

	if len(st.AnsweredHistory) != 1 {
		t.Fatalf("history length = %d, want 1 (whitespace answer skipped)", len(st.AnsweredHistory))
	}
	entry := st.AnsweredHistory[0]
	if entry.Question != "Who are the users?" || entry.Answer != "Store admins" {
		t.Errorf("entry = %+v, want the answered L1 pair", entry)
	}
	if entry.Level != "L1" {
		t.Errorf("Level = %q, want L1", entry.Level)
	}
	if entry.Context != "Initial business clarification" {
		t.Errorf("Context = %q, want Initial business clarification", entry.Context)
	}
}

func TestCollectIsIdempotent(t *testing.T) {
	a := NewAccumulator(&fakeLLM{}, testLogger())
	st := answeredState()

	a.Collect(st)
	a.Collect(st)
	a.Collect(st)

	if len(st.AnsweredHistory) != 1 {
		t.Errorf("history length after repeated Collect = %d, want 1", len(st.AnsweredHistory))
	}
}

func TestCollectLevelContexts(t *testing.T) {
	a := NewAccumulator(&fakeLLM{}, testLogger())

	st := store.NewGenerationState("session_abc12345", "p")
	st.SelectedL1 = &store.TestCase{ID: "L1_001", Title: "Order placement"}
	st.L2Questions = []store.Question{{Text: "Max cart size?", SuggestedAnswers: []string{}}}
	st.L2Answers = map[string]string{"Max cart size?": "100 items"}
	st.L3Questions = []store.Question{{Text: "Timeout?", SuggestedAnswers: []string{}}}
	st.L3Answers = map[string]string{"Timeout?": "30s"}

	a.Collect(st)

	if len(st.AnsweredHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(st.AnsweredHistory))
	}
	if st.AnsweredHistory[0].Context != "L1: Order placement" {
		t.Errorf("L2 context = %q, want L1: Order placement", st.AnsweredHistory[0].Context)
	}
	// No L2 selected, so the L3 context falls back to N/A.
	if st.AnsweredHistory[1].Context != "L2: N/A" {
		t.Errorf("L3 context = %q, want L2: N/A", st.AnsweredHistory[1].Context)
	}
}

func TestUpdateEmptyHistoryClearsSummary(t *testing.T) {
	provider := &fakeLLM{response: "should never be called"}
	a := NewAccumulator(provider, testLogger())

	st := store.NewGenerationState("session_abc12345", "p")
	st.GlobalSummary = "stale text"

	if err := a.Update(context.Background(), st); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if st.GlobalSummary != "" {
		t.Errorf("GlobalSummary = %q, want empty for empty history", st.GlobalSummary)
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0 with nothing to summarize", provider.calls)
	}
}

func TestUpdateSummarizesHistory(t *testing.T) {
	provider := &fakeLLM{response: "  The system serves store admins.  \n"}
	a := NewAccumulator(provider, testLogger())
	st := answeredState()

	if err := a.Update(context.Background(), st); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if st.GlobalSummary != "The system serves store admins." {
		t.Errorf("GlobalSummary = %q, want trimmed response", st.GlobalSummary)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
	// The prompt carries the Q&A lines in [LEVEL] question: answer form.
	if !strings.Contains(provider.lastUser, "[L1] Who are the users?: Store admins") {
		t.Errorf("summary prompt missing Q&A line, got:\n%s", provider.lastUser)
	}
}

func TestUpdateFailureIsHard(t *testing.T) {
	provider := &fakeLLM{err: fmt.Errorf("model unreachable")}
	a := NewAccumulator(provider, testLogger())
	st := answeredState()

	err := a.Update(context.Background(), st)
	if err == nil {
		t.Fatal("Update should surface summarization failures")
	}
	if !strings.Contains(err.Error(), "summarize answered questions") {
		t.Errorf("error = %v, want wrapped summarize error", err)
	}
	// History is still collected even when summarization fails.
	if len(st.AnsweredHistory) != 1 {
		t.Errorf("history length = %d, want 1", len(st.AnsweredHistory))
	}
}

func TestSummaryEmptyIffHistoryEmpty(t *testing.T) {
	provider := &fakeLLM{response: "summary"}
	a := NewAccumulator(provider, testLogger())

	st := store.NewGenerationState("session_abc12345", "p")
	if err := a.Update(context.Background(), st); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if (st.GlobalSummary == "") != (len(st.AnsweredHistory) == 0) {
		t.Errorf("summary %q vs history %d: emptiness must match", st.GlobalSummary, len(st.AnsweredHistory))
	}

	st.L1Questions = []store.Question{{Text: "q", SuggestedAnswers: []string{}}}
	st.L1Answers = map[string]string{"q": "a"}
	if err := a.Update(context.Background(), st); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if (st.GlobalSummary == "") != (len(st.AnsweredHistory) == 0) {
		t.Errorf("summary %q vs history %d: emptiness must match", st.GlobalSummary, len(st.AnsweredHistory))
	}
}
