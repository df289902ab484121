package store

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// TokenSink receives incremental LLM output during a streaming operation:
// the new fragment and the accumulated text so far. A nil sink means the
// caller wants the blocking behavior.
type TokenSink func(token string, fullText string) error

// Question is a clarification question offered to the user before a
// generation round. SuggestedAnswers is always non-nil so clients can
// render answer chips without a null check.
type Question struct {
	Text             string   `json:"question"`
	SuggestedAnswers []string `json:"suggested_answers"`
}

// TestCase is a single generated test case. L1 cases carry no parent,
// L2 cases reference their L1 parent, L3 cases reference their L2 parent
// and additionally carry executable steps.
type TestCase struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	TestSteps      []string `json:"test_steps,omitempty"`
	ExpectedResult string   `json:"expected_result,omitempty"`
	ParentL1ID     string   `json:"parent_l1_id,omitempty"`
	ParentL2ID     string   `json:"parent_l2_id,omitempty"`
}

// AnsweredQuestion is one resolved Q&A pair kept in the global history.
// Two entries are the same answer only if all four fields match.
type AnsweredQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Level    string `json:"level"`
	Context  string `json:"context"`
}

// L3TreeNode is a leaf of the final tree.
type L3TreeNode struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	TestSteps      []string `json:"test_steps"`
	ExpectedResult string   `json:"expected_result"`
}

// L2TreeNode groups the L3 cases generated under one L2 case.
type L2TreeNode struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	L3Cases     []L3TreeNode `json:"l3_cases"`
}

// L1TreeNode groups the L2 cases generated under one L1 case.
type L1TreeNode struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	L2Cases     []L2TreeNode `json:"l2_cases"`
}

// TestCaseTree is the final hierarchical output of a completed session.
type TestCaseTree struct {
	L1Cases    []L1TreeNode `json:"l1_cases"`
	SessionID  string       `json:"session_id"`
	UserPrompt string       `json:"user_prompt"`
}

// Stage values for GenerationState.CurrentLevel.
const (
	LevelL1       = "l1"
	LevelL2       = "l2"
	LevelL3       = "l3"
	LevelComplete = "complete"
)

// Status values describing where the flow is parked between operations.
const (
	StatusWaitL1Answers    = "WAIT_L1_ANSWERS"
	StatusWaitL1Selection  = "WAIT_L1_SELECTION"
	StatusWaitL2Answers    = "WAIT_L2_ANSWERS"
	StatusWaitL2Selection  = "WAIT_L2_SELECTION"
	StatusWaitL3Answers    = "WAIT_L3_ANSWERS"
	StatusWaitL3Completion = "WAIT_L3_COMPLETION"
	StatusComplete         = "COMPLETE"
)

// GenerationState is the full state of one test case generation session.
// It is the unit of persistence: the whole struct is serialized into the
// session row after every operation and rehydrated before the next one.
// Operations never mutate a caller's state; they work on a Clone.
type GenerationState struct {
	UserPrompt string `json:"user_initial_prompt"`
	SessionID  string `json:"session_id"`

	L1Questions []Question        `json:"l1_clarification_questions"`
	L1Answers   map[string]string `json:"l1_clarification_answers"`
	L1Cases     []TestCase        `json:"l1_test_cases"`

	SelectedL1      *TestCase `json:"selected_l1_case"`
	SelectedL1Index *int      `json:"selected_l1_index"`

	L2Questions []Question        `json:"l2_clarification_questions"`
	L2Answers   map[string]string `json:"l2_clarification_answers"`
	L2Cases     []TestCase        `json:"l2_test_cases"`

	SelectedL2      *TestCase `json:"selected_l2_case"`
	SelectedL2Index *int      `json:"selected_l2_index"`

	L3Questions []Question        `json:"l3_clarification_questions"`
	L3Answers   map[string]string `json:"l3_clarification_answers"`
	L3Cases     []TestCase        `json:"l3_test_cases"`

	// Cross-level memory. Never cleared once written.
	AnsweredHistory []AnsweredQuestion `json:"answered_history"`
	GlobalSummary   string             `json:"global_summary"`

	Tree *TestCaseTree `json:"full_tree_data,omitempty"`

	CurrentLevel string `json:"current_level"`
	Status       string `json:"status"`
}

// NewSessionID produces a short session identifier.
func NewSessionID() string {
	id := uuid.New()
	return "session_" + hex.EncodeToString(id[:])[:8]
}

// NewGenerationState creates an empty state for a fresh session.
func NewGenerationState(sessionID string, userPrompt string) *GenerationState {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	return &GenerationState{
		UserPrompt:      userPrompt,
		SessionID:       sessionID,
		L1Questions:     []Question{},
		L1Answers:       map[string]string{},
		L1Cases:         []TestCase{},
		L2Questions:     []Question{},
		L2Answers:       map[string]string{},
		L2Cases:         []TestCase{},
		L3Questions:     []Question{},
		L3Answers:       map[string]string{},
		L3Cases:         []TestCase{},
		AnsweredHistory: []AnsweredQuestion{},
		GlobalSummary:   "",
		CurrentLevel:    LevelL1,
		Status:          StatusWaitL1Answers,
	}
}

// Normalize repairs a state loaded from persistence: nil maps and slices
// become empty ones and a missing status is derived from the content, so
// blobs written by older builds stay usable.
func (s *GenerationState) Normalize() {
	if s.L1Questions == nil {
		s.L1Questions = []Question{}
	}
	if s.L1Answers == nil {
		s.L1Answers = map[string]string{}
	}
	if s.L1Cases == nil {
		s.L1Cases = []TestCase{}
	}
	if s.L2Questions == nil {
		s.L2Questions = []Question{}
	}
	if s.L2Answers == nil {
		s.L2Answers = map[string]string{}
	}
	if s.L2Cases == nil {
		s.L2Cases = []TestCase{}
	}
	if s.L3Questions == nil {
		s.L3Questions = []Question{}
	}
	if s.L3Answers == nil {
		s.L3Answers = map[string]string{}
	}
	if s.L3Cases == nil {
		s.L3Cases = []TestCase{}
	}
	if s.AnsweredHistory == nil {
		s.AnsweredHistory = []AnsweredQuestion{}
	}
	if s.CurrentLevel == "" {
		s.CurrentLevel = LevelL1
	}
	if s.Status == "" {
		s.Status = s.deriveStatus()
	}
}

// deriveStatus reconstructs the parked position from state content.
// Order matters: later stages shadow earlier ones.
func (s *GenerationState) deriveStatus() string {
	switch {
	case s.CurrentLevel == LevelComplete:
		return StatusComplete
	case len(s.L3Questions) > 0:
		return StatusWaitL3Answers
	case len(s.L2Cases) > 0:
		return StatusWaitL2Selection
	case len(s.L2Questions) > 0:
		return StatusWaitL2Answers
	case len(s.L1Cases) > 0:
		return StatusWaitL1Selection
	default:
		return StatusWaitL1Answers
	}
}

// FindL1Case returns the L1 case with the given id, or nil.
func (s *GenerationState) FindL1Case(id string) *TestCase {
	for i := range s.L1Cases {
		if s.L1Cases[i].ID == id {
			return &s.L1Cases[i]
		}
	}
	return nil
}

// Clone returns a deep copy. The copy shares nothing with the receiver,
// so mutating it cannot leak into a state another caller still holds.
func (s *GenerationState) Clone() *GenerationState {
	if s == nil {
		return nil
	}
	out := *s
	out.L1Questions = cloneQuestions(s.L1Questions)
	out.L1Answers = cloneAnswers(s.L1Answers)
	out.L1Cases = cloneCases(s.L1Cases)
	out.SelectedL1 = s.SelectedL1.clone()
	out.SelectedL1Index = cloneIndex(s.SelectedL1Index)
	out.L2Questions = cloneQuestions(s.L2Questions)
	out.L2Answers = cloneAnswers(s.L2Answers)
	out.L2Cases = cloneCases(s.L2Cases)
	out.SelectedL2 = s.SelectedL2.clone()
	out.SelectedL2Index = cloneIndex(s.SelectedL2Index)
	out.L3Questions = cloneQuestions(s.L3Questions)
	out.L3Answers = cloneAnswers(s.L3Answers)
	out.L3Cases = cloneCases(s.L3Cases)
	if s.AnsweredHistory != nil {
		out.AnsweredHistory = make([]AnsweredQuestion, len(s.AnsweredHistory))
		copy(out.AnsweredHistory, s.AnsweredHistory)
	}
	out.Tree = s.Tree.Clone()
	return &out
}

func (c *TestCase) clone() *TestCase {
	if c == nil {
		return nil
	}
	out := *c
	if c.TestSteps != nil {
		out.TestSteps = make([]string, len(c.TestSteps))
		copy(out.TestSteps, c.TestSteps)
	}
	return &out
}

// Clone deep-copies the tree.
func (t *TestCaseTree) Clone() *TestCaseTree {
	if t == nil {
		return nil
	}
	out := *t
	out.L1Cases = make([]L1TreeNode, len(t.L1Cases))
	for i, l1 := range t.L1Cases {
		node := l1
		node.L2Cases = make([]L2TreeNode, len(l1.L2Cases))
		for j, l2 := range l1.L2Cases {
			inner := l2
			inner.L3Cases = make([]L3TreeNode, len(l2.L3Cases))
			for k, l3 := range l2.L3Cases {
				leaf := l3
				leaf.TestSteps = append([]string{}, l3.TestSteps...)
				inner.L3Cases[k] = leaf
			}
			node.L2Cases[j] = inner
		}
		out.L1Cases[i] = node
	}
	return &out
}

func cloneQuestions(in []Question) []Question {
	if in == nil {
		return nil
	}
	out := make([]Question, len(in))
	for i, q := range in {
		cp := q
		if q.SuggestedAnswers != nil {
			cp.SuggestedAnswers = make([]string, len(q.SuggestedAnswers))
			copy(cp.SuggestedAnswers, q.SuggestedAnswers)
		}
		out[i] = cp
	}
	return out
}

func cloneAnswers(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneCases(in []TestCase) []TestCase {
	if in == nil {
		return nil
	}
	out := make([]TestCase, len(in))
	for i := range in {
		out[i] = *in[i].clone()
	}
	return out
}

func cloneIndex(in *int) *int {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
