// Package engine drives a generation session through its stages.
//
// Every operation follows the same shape: validate, clone the previous
// snapshot, run the level components against the clone, park it at the
// next status, and return it. Failed operations return an error and leave
// the caller holding the untouched previous snapshot, so persistence is a
// plain swap.
package engine

import (
	"context"
	"fmt"
	"log"

	"ai-testgen-be/pkg/llm"
	"ai-testgen-be/pkg/store"
	"ai-testgen-be/pkg/testgen/question"
	"ai-testgen-be/pkg/testgen/summary"
	"ai-testgen-be/pkg/testgen/testcase"
	"ai-testgen-be/pkg/testgen/tree"
)

// StageMachine owns the question, case, summary and tree components and
// sequences them per operation. It is stateless between calls; session
// state travels in and out as *store.GenerationState.
type StageMachine struct {
	llmProvider llm.LLMProvider
	questions   *question.Generator
	cases       *testcase.Generator
	summarizer  *summary.Accumulator
	treeBuilder *tree.Builder
	logger      *log.Logger
}

// NewStageMachine creates a stage machine with all level components wired
func NewStageMachine(llmProvider llm.LLMProvider, logger *log.Logger) *StageMachine {
	return &StageMachine{
		llmProvider: llmProvider,
		questions:   question.NewGenerator(llmProvider, logger),
		cases:       testcase.NewGenerator(llmProvider, logger),
		summarizer:  summary.NewAccumulator(llmProvider, logger),
		treeBuilder: tree.NewBuilder(),
		logger:      logger,
	}
}

// StartSession creates a fresh state for the business prompt, asks the L1
// clarification questions, and parks at WAIT_L1_ANSWERS. It never
// auto-advances past the question stage.
func (m *StageMachine) StartSession(ctx context.Context, sessionID string, userPrompt string, sink store.TokenSink) (*store.GenerationState, error) {
	m.logger.Printf("[MACHINE] %s: starting session (%d char prompt)", sessionID, len(userPrompt))

	st := store.NewGenerationState(sessionID, userPrompt)
	if err := m.questions.AskL1(ctx, st, sink); err != nil {
		return nil, err
	}

	st.Status = store.StatusWaitL1Answers
	m.logger.Printf("[MACHINE] %s: asked %d L1 questions", sessionID, len(st.L1Questions))
	return st, nil
}

// SubmitL1Answers records the L1 answers, generates (or regenerates) the
// L1 cases, and refreshes the global summary. Where the session goes next
// depends on the state the round left behind: straight into L2 questions
// when an L1 selection survived the round, WAIT_L1_SELECTION when there
// are cases to pick from, or a completed empty tree when the round yielded
// nothing.
func (m *StageMachine) SubmitL1Answers(ctx context.Context, prev *store.GenerationState, answers map[string]string, sink store.TokenSink) (*store.GenerationState, error) {
	st := prev.Clone()
	st.L1Answers = copyAnswers(answers)

	if err := m.cases.GenerateL1(ctx, st, sink); err != nil {
		return nil, err
	}
	if err := m.summarizer.Update(ctx, st); err != nil {
		return nil, err
	}

	switch afterL1Cases(st) {
	case nextAskL2:
		m.logger.Printf("[MACHINE] %s: L1 selection survived the round, regenerating its L2 questions", st.SessionID)
		if err := m.questions.AskL2(ctx, st, sink); err != nil {
			return nil, err
		}
		return m.afterL2Questions(ctx, st, sink)
	case nextWaitL1Selection:
		st.Status = store.StatusWaitL1Selection
		return st, nil
	default:
		m.complete(st)
		return st, nil
	}
}

// SelectL1Case scopes the session to one L1 case and asks the L2
// clarification questions for it. Any L2/L3 question state from a
// previously explored branch is discarded first so the new branch starts
// clean. The index is validated before anything is mutated.
func (m *StageMachine) SelectL1Case(ctx context.Context, prev *store.GenerationState, index int, sink store.TokenSink) (*store.GenerationState, error) {
	if index < 0 || index >= len(prev.L1Cases) {
		return nil, fmt.Errorf("%w: %d of %d L1 cases", ErrInvalidSelection, index, len(prev.L1Cases))
	}

	st := prev.Clone()
	selected := st.L1Cases[index]
	idx := index
	st.SelectedL1 = &selected
	st.SelectedL1Index = &idx
	st.SelectedL2 = nil
	st.SelectedL2Index = nil
	st.L2Questions = []store.Question{}
	st.L2Answers = map[string]string{}
	st.L3Questions = []store.Question{}
	st.L3Answers = map[string]string{}
	m.logger.Printf("[MACHINE] %s: selected L1 case %s (%q)", st.SessionID, selected.ID, selected.Title)

	if err := m.questions.AskL2(ctx, st, sink); err != nil {
		return nil, err
	}

	st.Status = store.StatusWaitL2Answers
	return st, nil
}

// SubmitL2Answers records the L2 answers and runs an L2 round under the
// selected L1 case. An empty answer map still generates; it just means no
// Q&A got recorded. Without a selection there is nothing to generate
// under, so the call is a no-op that hands the previous state back.
func (m *StageMachine) SubmitL2Answers(ctx context.Context, prev *store.GenerationState, answers map[string]string, sink store.TokenSink) (*store.GenerationState, error) {
	if prev.SelectedL1 == nil {
		m.logger.Printf("[MACHINE] %s: L2 answers ignored, no L1 case selected", prev.SessionID)
		return prev, nil
	}

	st := prev.Clone()
	st.L2Answers = copyAnswers(answers)
	return m.runL2Round(ctx, st, sink)
}

// afterL2Questions advances past a question stage only when the answers
// are already in state; a fresh round of questions always waits for the
// user.
func (m *StageMachine) afterL2Questions(ctx context.Context, st *store.GenerationState, sink store.TokenSink) (*store.GenerationState, error) {
	if len(st.L2Answers) == 0 {
		st.Status = store.StatusWaitL2Answers
		return st, nil
	}
	return m.runL2Round(ctx, st, sink)
}

// runL2Round folds the L2 answers into the global summary, generates and
// merges the L2 cases, and routes on what the round left behind.
func (m *StageMachine) runL2Round(ctx context.Context, st *store.GenerationState, sink store.TokenSink) (*store.GenerationState, error) {
	if err := m.summarizer.Update(ctx, st); err != nil {
		return nil, err
	}
	if err := m.cases.GenerateL2(ctx, st, sink); err != nil {
		return nil, err
	}

	switch afterL2Cases(st) {
	case nextAskL3:
		if err := m.questions.AskL3(ctx, st, sink); err != nil {
			return nil, err
		}
		return m.afterL3Questions(ctx, st, sink)
	case nextWaitL2Selection:
		st.Status = store.StatusWaitL2Selection
		return st, nil
	default:
		m.complete(st)
		return st, nil
	}
}

// SelectL2Case scopes the session to one L2 case and asks the L3
// clarification questions for it. The index is validated before anything
// is mutated.
func (m *StageMachine) SelectL2Case(ctx context.Context, prev *store.GenerationState, index int, sink store.TokenSink) (*store.GenerationState, error) {
	if index < 0 || index >= len(prev.L2Cases) {
		return nil, fmt.Errorf("%w: %d of %d L2 cases", ErrInvalidSelection, index, len(prev.L2Cases))
	}

	st := prev.Clone()
	selected := st.L2Cases[index]
	idx := index
	st.SelectedL2 = &selected
	st.SelectedL2Index = &idx
	st.L3Questions = []store.Question{}
	st.L3Answers = map[string]string{}
	m.logger.Printf("[MACHINE] %s: selected L2 case %s (%q)", st.SessionID, selected.ID, selected.Title)

	if err := m.questions.AskL3(ctx, st, sink); err != nil {
		return nil, err
	}

	st.Status = store.StatusWaitL3Answers
	return st, nil
}

// SubmitL3Answers records the L3 answers and runs an L3 round under the
// selected L2 case. When any L3 cases exist afterwards the full tree is
// assembled and the session completes; otherwise it parks at
// WAIT_L3_COMPLETION so the user can select another branch. Without an L2
// selection the call is a no-op that hands the previous state back.
func (m *StageMachine) SubmitL3Answers(ctx context.Context, prev *store.GenerationState, answers map[string]string, sink store.TokenSink) (*store.GenerationState, error) {
	if prev.SelectedL2 == nil {
		m.logger.Printf("[MACHINE] %s: L3 answers ignored, no L2 case selected", prev.SessionID)
		return prev, nil
	}

	st := prev.Clone()
	st.L3Answers = copyAnswers(answers)
	return m.runL3Round(ctx, st, sink)
}

// afterL3Questions is the L3 twin of afterL2Questions.
func (m *StageMachine) afterL3Questions(ctx context.Context, st *store.GenerationState, sink store.TokenSink) (*store.GenerationState, error) {
	if len(st.L3Answers) == 0 {
		st.Status = store.StatusWaitL3Answers
		return st, nil
	}
	return m.runL3Round(ctx, st, sink)
}

// runL3Round folds the L3 answers into the global summary, generates and
// merges the L3 cases, and either completes the session or parks it.
func (m *StageMachine) runL3Round(ctx context.Context, st *store.GenerationState, sink store.TokenSink) (*store.GenerationState, error) {
	if err := m.summarizer.Update(ctx, st); err != nil {
		return nil, err
	}
	if err := m.cases.GenerateL3(ctx, st, sink); err != nil {
		return nil, err
	}

	if afterL3Cases(st) == nextBuildTree {
		m.complete(st)
		return st, nil
	}
	st.Status = store.StatusWaitL3Completion
	return st, nil
}

// Tree returns the assembled tree for a completed session, or builds a
// snapshot of whatever hierarchy exists so far without mutating state.
func (m *StageMachine) Tree(st *store.GenerationState) *store.TestCaseTree {
	if st.Tree != nil {
		return st.Tree.Clone()
	}
	return m.treeBuilder.Build(st)
}

// complete assembles the final tree and marks the session COMPLETE.
func (m *StageMachine) complete(st *store.GenerationState) {
	st.Tree = m.treeBuilder.Build(st)
	st.CurrentLevel = store.LevelComplete
	st.Status = store.StatusComplete
	m.logger.Printf("[MACHINE] %s: complete (%d L1 / %d L2 / %d L3 cases)",
		st.SessionID, len(st.L1Cases), len(st.L2Cases), len(st.L3Cases))
}

func copyAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
