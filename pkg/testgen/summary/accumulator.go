// Package summary maintains the cross-level memory of a session: the
// deduplicated history of every answered question and the rolling global
// summary distilled from it.
package summary

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-testgen-be/pkg/llm"
	"ai-testgen-be/pkg/store"
	"ai-testgen-be/pkg/testgen/prompt"
)

// Accumulator folds answered questions into the global history and keeps
// the summary in sync. Unlike the generators, a failed summarization is a
// hard error: a stale summary would silently poison every later prompt.
type Accumulator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

// NewAccumulator creates a new summary accumulator
func NewAccumulator(llmProvider llm.LLMProvider, logger *log.Logger) *Accumulator {
	return &Accumulator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Collect appends every newly answered question to the history. An entry
// is new only if no existing entry matches on all four fields, so calling
// Collect repeatedly on the same state never grows the history. Questions
// whose answer is empty or whitespace are ignored.
func (a *Accumulator) Collect(st *store.GenerationState) {
	if st.AnsweredHistory == nil {
		st.AnsweredHistory = []store.AnsweredQuestion{}
	}

	collectLevel(st, st.L1Questions, st.L1Answers, "L1", "Initial business clarification")

	l1Context := "L1: N/A"
	if st.SelectedL1 != nil {
		l1Context = "L1: " + st.SelectedL1.Title
	}
	collectLevel(st, st.L2Questions, st.L2Answers, "L2", l1Context)

	l2Context := "L2: N/A"
	if st.SelectedL2 != nil {
		l2Context = "L2: " + st.SelectedL2.Title
	}
	collectLevel(st, st.L3Questions, st.L3Answers, "L3", l2Context)
}

// Update runs Collect and then recomputes the global summary. With an
// empty history the summary is cleared without any model call.
func (a *Accumulator) Update(ctx context.Context, st *store.GenerationState) error {
	a.Collect(st)

	if len(st.AnsweredHistory) == 0 {
		st.GlobalSummary = ""
		return nil
	}

	lines := make([]string, len(st.AnsweredHistory))
	for i, item := range st.AnsweredHistory {
		lines[i] = fmt.Sprintf("[%s] %s: %s", item.Level, item.Question, item.Answer)
	}
	qaText := strings.Join(lines, "\n")

	promptText := prompt.Summary(st.UserPrompt, st.GlobalSummary, qaText)
	messages := []llm.Message{
		{Role: "system", Content: prompt.SystemSummary},
		{Role: "user", Content: promptText},
	}

	response, err := a.llmProvider.Chat(ctx, messages)
	if err != nil {
		return fmt.Errorf("summarize answered questions: %w", err)
	}

	st.GlobalSummary = strings.TrimSpace(response)
	a.logger.Printf("[SUMMARY] updated from %d answered questions (%d chars)",
		len(st.AnsweredHistory), len(st.GlobalSummary))
	return nil
}

func collectLevel(st *store.GenerationState, questions []store.Question, answers map[string]string, level string, context string) {
	for _, q := range questions {
		answer, ok := answers[q.Text]
		if !ok || strings.TrimSpace(answer) == "" {
			continue
		}
		pair := store.AnsweredQuestion{
			Question: q.Text,
			Answer:   answer,
			Level:    level,
			Context:  context,
		}
		if !containsPair(st.AnsweredHistory, pair) {
			st.AnsweredHistory = append(st.AnsweredHistory, pair)
		}
	}
}

func containsPair(history []store.AnsweredQuestion, pair store.AnsweredQuestion) bool {
	for _, existing := range history {
		if existing == pair {
			return true
		}
	}
	return false
}
