// Package testcase generates the per-level test cases and folds them into
// the session state.
package testcase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-testgen-be/pkg/llm"
	"ai-testgen-be/pkg/store"
	"ai-testgen-be/pkg/testgen/hierarchy"
	"ai-testgen-be/pkg/testgen/parse"
	"ai-testgen-be/pkg/testgen/prompt"
)

// Generator produces test cases for each level. L1 rounds replace the
// whole list; L2 and L3 rounds are merged per parent so earlier work under
// other branches survives. Generation failures degrade to placeholder
// cases instead of aborting the session.
type Generator struct {
	llmProvider llm.LLMProvider
	merger      *hierarchy.Merger
	logger      *log.Logger
}

// NewGenerator creates a new test case generator
func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		merger:      hierarchy.NewMerger(),
		logger:      logger,
	}
}

// GenerateL1 replaces st.L1Cases with a fresh round generated from the
// business prompt, the global summary, and the answered L1 questions.
func (g *Generator) GenerateL1(ctx context.Context, st *store.GenerationState, sink store.TokenSink) error {
	answersText := answeredLines(st.L1Questions, st.L1Answers)
	promptText := prompt.L1Cases(st.UserPrompt, st.GlobalSummary, answersText)

	cases, err := g.generate(ctx, promptText, sink, fallbackL1Cases)
	if err != nil {
		return err
	}

	st.L1Cases = cases
	g.logger.Printf("[CASES] L1 round produced %d cases", len(cases))
	return nil
}

// GenerateL2 generates cases under the selected L1 case and merges them
// into st.L2Cases. Afterwards the selections and the L2/L3 question state
// are cleared so the user can pick another L1 branch with a clean slate.
func (g *Generator) GenerateL2(ctx context.Context, st *store.GenerationState, sink store.TokenSink) error {
	if st.SelectedL1 == nil {
		return fmt.Errorf("no L1 case selected")
	}
	selected := *st.SelectedL1

	answersText := answeredLines(st.L2Questions, st.L2Answers)
	promptText := prompt.L2Cases(selected, st.UserPrompt, st.GlobalSummary, answersText)

	cases, err := g.generate(ctx, promptText, sink, func() []store.TestCase {
		return fallbackL2Cases(selected.ID)
	})
	if err != nil {
		return err
	}

	for i := range cases {
		if cases[i].ParentL1ID == "" {
			cases[i].ParentL1ID = selected.ID
		}
	}
	st.L2Cases = g.merger.MergeL2(st.L2Cases, cases, selected.ID)
	g.logger.Printf("[CASES] L2 round under %s produced %d cases (%d total)",
		selected.ID, len(cases), len(st.L2Cases))

	st.SelectedL1 = nil
	st.SelectedL1Index = nil
	st.SelectedL2 = nil
	st.SelectedL2Index = nil
	st.L2Questions = []store.Question{}
	st.L2Answers = map[string]string{}
	st.L3Questions = []store.Question{}
	st.L3Answers = map[string]string{}
	return nil
}

// GenerateL3 generates detailed cases under the selected L2 case and
// merges them into st.L3Cases, then clears the L2 selection and the L3
// question state.
func (g *Generator) GenerateL3(ctx context.Context, st *store.GenerationState, sink store.TokenSink) error {
	if st.SelectedL2 == nil {
		return fmt.Errorf("no L2 case selected")
	}
	selected := *st.SelectedL2
	parentL1 := resolveParentL1(st, selected)

	l2AnswersText := answeredLines(st.L2Questions, st.L2Answers)
	l3AnswersText := answeredLines(st.L3Questions, st.L3Answers)
	promptText := prompt.L3Cases(parentL1, selected, st.UserPrompt, st.GlobalSummary, l2AnswersText, l3AnswersText)

	cases, err := g.generate(ctx, promptText, sink, func() []store.TestCase {
		return fallbackL3Cases(selected.ID)
	})
	if err != nil {
		return err
	}

	for i := range cases {
		if cases[i].ParentL2ID == "" {
			cases[i].ParentL2ID = selected.ID
		}
	}
	st.L3Cases = g.merger.MergeL3(st.L3Cases, cases, selected.ID)
	g.logger.Printf("[CASES] L3 round under %s produced %d cases (%d total)",
		selected.ID, len(cases), len(st.L3Cases))

	st.SelectedL2 = nil
	st.SelectedL2Index = nil
	st.L3Questions = []store.Question{}
	st.L3Answers = map[string]string{}
	return nil
}

// generate runs one case round: prompt the model, parse, and fall back to
// placeholders when the response is unusable. Only context cancellation is
// surfaced as an error.
func (g *Generator) generate(ctx context.Context, promptText string, sink store.TokenSink, fallback func() []store.TestCase) ([]store.TestCase, error) {
	raw, err := g.complete(ctx, promptText, sink)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Printf("[ERROR] case generation failed, using placeholders: %v", err)
		return fallback(), nil
	}

	cases, ok := parse.Cases(raw)
	if !ok {
		g.logger.Printf("[CASES] unparseable response (%d chars), using placeholders", len(raw))
		return fallback(), nil
	}
	return cases, nil
}

func (g *Generator) complete(ctx context.Context, promptText string, sink store.TokenSink) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: prompt.SystemCases},
		{Role: "user", Content: promptText},
	}

	if sink == nil {
		return g.llmProvider.Chat(ctx, messages)
	}

	var full strings.Builder
	return g.llmProvider.ChatStream(ctx, messages, func(token string) error {
		full.WriteString(token)
		return sink(token, full.String())
	})
}

// answeredLines formats answered questions as Q/A pairs for the prompts.
// Questions without a non-empty answer are skipped; answers to questions
// that were never asked are ignored.
func answeredLines(questions []store.Question, answers map[string]string) string {
	var lines []string
	for _, q := range questions {
		answer, ok := answers[q.Text]
		if !ok || strings.TrimSpace(answer) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("Q: %s\nA: %s", q.Text, answer))
	}
	return strings.Join(lines, "\n")
}

func resolveParentL1(st *store.GenerationState, l2 store.TestCase) store.TestCase {
	if l2.ParentL1ID != "" {
		if parent := st.FindL1Case(l2.ParentL1ID); parent != nil {
			return *parent
		}
	}
	if st.SelectedL1 != nil {
		return *st.SelectedL1
	}
	return store.TestCase{}
}

func fallbackL1Cases() []store.TestCase {
	return []store.TestCase{
		{ID: "L1_001", Title: "Core Functionality Test", Description: "Test core business functionality"},
		{ID: "L1_002", Title: "Integration Test", Description: "Test system integrations"},
	}
}

func fallbackL2Cases(parentL1ID string) []store.TestCase {
	if parentL1ID == "" {
		parentL1ID = "L1_001"
	}
	return []store.TestCase{
		{ID: "L2_001", Title: "Basic Scenario", Description: "Test basic scenario", ParentL1ID: parentL1ID},
		{ID: "L2_002", Title: "Advanced Scenario", Description: "Test advanced scenario", ParentL1ID: parentL1ID},
	}
}

func fallbackL3Cases(parentL2ID string) []store.TestCase {
	if parentL2ID == "" {
		parentL2ID = "L2_001"
	}
	return []store.TestCase{
		{
			ID:             "L3_001",
			Title:          "Detailed Test Case 1",
			Description:    "Test detailed scenario 1",
			TestSteps:      []string{"Step 1", "Step 2"},
			ExpectedResult: "Expected result",
			ParentL2ID:     parentL2ID,
		},
	}
}
