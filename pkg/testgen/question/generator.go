// Package question generates the optional clarification questions that
// precede each test case generation round.
package question

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-testgen-be/pkg/llm"
	"ai-testgen-be/pkg/store"
	"ai-testgen-be/pkg/testgen/parse"
	"ai-testgen-be/pkg/testgen/prompt"
)

// Generator produces clarification questions for each level. Generation
// failures never abort the flow: unparseable or failed responses degrade
// to the built-in defaults so the session can always continue.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

// NewGenerator creates a new question generator
func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// AskL1 fills st.L1Questions from the business prompt and the global summary.
func (g *Generator) AskL1(ctx context.Context, st *store.GenerationState, sink store.TokenSink) error {
	promptText := prompt.L1Questions(st.UserPrompt, st.GlobalSummary)

	questions, err := g.generate(ctx, promptText, sink, func() []store.Question {
		return DefaultL1Questions()
	})
	if err != nil {
		return err
	}

	st.L1Questions = questions
	st.CurrentLevel = store.LevelL1
	return nil
}

// AskL2 fills st.L2Questions for the selected L1 case. Without a selection
// it clears the questions and rolls the level back, mirroring the guard on
// the generation side.
func (g *Generator) AskL2(ctx context.Context, st *store.GenerationState, sink store.TokenSink) error {
	if st.SelectedL1 == nil {
		st.L2Questions = []store.Question{}
		st.CurrentLevel = store.LevelL1
		return nil
	}
	selected := *st.SelectedL1

	g.logger.Printf("[QUESTIONS] L2 questions for %s - %s (summary: %d chars)",
		selected.ID, selected.Title, len(st.GlobalSummary))

	promptText := prompt.L2Questions(selected, st.UserPrompt, st.GlobalSummary)

	questions, err := g.generate(ctx, promptText, sink, func() []store.Question {
		return DefaultL2Questions(selected.Title)
	})
	if err != nil {
		return err
	}

	st.L2Questions = questions
	st.CurrentLevel = store.LevelL2
	return nil
}

// AskL3 fills st.L3Questions for the selected L2 case. The parent L1 case
// is resolved from the L2 case's parent id because the L1 selection may
// already have been cleared by an earlier generation round.
func (g *Generator) AskL3(ctx context.Context, st *store.GenerationState, sink store.TokenSink) error {
	if st.SelectedL2 == nil {
		st.L3Questions = []store.Question{}
		st.CurrentLevel = store.LevelL2
		return nil
	}
	selected := *st.SelectedL2
	parentL1 := resolveParentL1(st, selected)

	g.logger.Printf("[QUESTIONS] L3 questions for %s - %s (parent L1: %s)",
		selected.ID, selected.Title, parentL1.ID)

	promptText := prompt.L3Questions(parentL1, selected, st.UserPrompt, st.GlobalSummary)

	questions, err := g.generate(ctx, promptText, sink, func() []store.Question {
		return DefaultL3Questions(selected.Title)
	})
	if err != nil {
		return err
	}

	st.L3Questions = questions
	st.CurrentLevel = store.LevelL3
	return nil
}

// generate runs one question round: prompt the model, parse, and fall back
// to the defaults when the response is unusable. Only context cancellation
// is surfaced as an error.
func (g *Generator) generate(ctx context.Context, promptText string, sink store.TokenSink, defaults func() []store.Question) ([]store.Question, error) {
	raw, err := g.complete(ctx, promptText, sink)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Printf("[ERROR] question generation failed, using defaults: %v", err)
		return defaults(), nil
	}

	questions, ok := parse.Questions(raw)
	if !ok {
		g.logger.Printf("[QUESTIONS] unparseable response (%d chars), using defaults", len(raw))
		return defaults(), nil
	}
	return questions, nil
}

func (g *Generator) complete(ctx context.Context, promptText string, sink store.TokenSink) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: prompt.SystemQuestions},
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

// resolveParentL1 looks the parent case up by id, preferring the live L1
// list over the possibly stale selection snapshot.
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

// DefaultL1Questions are used when the model's response cannot be parsed.
func DefaultL1Questions() []store.Question {
	return []store.Question{
		{Text: "What are the main software systems you use?", SuggestedAnswers: []string{"ERP System", "CRM Platform", "Custom Web Application"}},
		{Text: "What are your critical business workflows?", SuggestedAnswers: []string{"Order Processing", "Customer Onboarding", "Payment Processing"}},
		{Text: "What are the key integration points between systems?", SuggestedAnswers: []string{"API Integration", "Database Sync", "File Transfer"}},
	}
}

// DefaultL2Questions are scoped to the selected L1 case title.
func DefaultL2Questions(selectedTitle string) []store.Question {
	title := selectedTitle
	if title == "" {
		title = "this functionality"
	}
	return []store.Question{
		{Text: fmt.Sprintf("What are the specific scenarios for %s?", title), SuggestedAnswers: []string{"Happy Path", "Error Handling", "Edge Cases"}},
		{Text: "What are the edge cases to consider?", SuggestedAnswers: []string{"Invalid Input", "Boundary Conditions", "Concurrent Access"}},
		{Text: "What are the integration points?", SuggestedAnswers: []string{"API Calls", "Database Access", "External Services"}},
	}
}

// DefaultL3Questions are scoped to the selected L2 case title.
func DefaultL3Questions(selectedTitle string) []store.Question {
	title := selectedTitle
	if title == "" {
		title = "this scenario"
	}
	return []store.Question{
		{Text: fmt.Sprintf("What are the specific test steps for %s?", title), SuggestedAnswers: []string{"Setup", "Execute", "Verify", "Cleanup"}},
		{Text: "What are the expected results?", SuggestedAnswers: []string{"Success", "Failure", "Partial Success", "Error"}},
		{Text: "What are the test data requirements?", SuggestedAnswers: []string{"Valid Data", "Invalid Data", "Boundary Values", "Null Values"}},
	}
}
