package parse

import (
	"testing"
)

func TestQuestions(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantOK        bool
		wantCount     int
		wantFirstText string
	}{
		{
			name:          "strict array of objects",
			raw:           `[{"question": "What systems do you use?", "suggested_answers": ["ERP", "CRM"]}]`,
			wantOK:        true,
			wantCount:     1,
			wantFirstText: "What systems do you use?",
		},
		{
			name:          "legacy bare string items",
			raw:           `["What systems do you use?", "What are your workflows?"]`,
			wantOK:        true,
			wantCount:     2,
			wantFirstText: "What systems do you use?",
		},
		{
			name:      "empty array is a valid result",
			raw:       `[]`,
			wantOK:    true,
			wantCount: 0,
		},
		{
			name:          "markdown fenced block",
			raw:           "Here you go:\n```json\n[{\"question\": \"What is the scope?\"}]\n```\nHope that helps.",
			wantOK:        true,
			wantCount:     1,
			wantFirstText: "What is the scope?",
		},
		{
			name:          "array buried in prose",
			raw:           `Sure! The questions are [{"question": "Which roles exist?", "suggested_answers": ["Admin"]}] as requested.`,
			wantOK:        true,
			wantCount:     1,
			wantFirstText: "Which roles exist?",
		},
		{
			name:          "trailing comma recovered",
			raw:           "```json\n[{\"question\": \"Which DB?\", \"suggested_answers\": [\"Postgres\",]},]\n```",
			wantOK:        true,
			wantCount:     1,
			wantFirstText: "Which DB?",
		},
		{
			name:          "single object wrapped",
			raw:           `{"question": "What is the deployment target?"}`,
			wantOK:        true,
			wantCount:     1,
			wantFirstText: "What is the deployment target?",
		},
		{
			name:          "question mark lines fallback",
			raw:           "Some intro\nWhat systems are involved?\nJust a statement\nHow are orders placed?",
			wantOK:        true,
			wantCount:     2,
			wantFirstText: "What systems are involved?",
		},
		{
			name:      "items without question field dropped",
			raw:       `[{"foo": "bar"}, {"question": "Kept?"}]`,
			wantOK:    true,
			wantCount: 1,
		},
		{
			name:   "nothing parseable",
			raw:    "I cannot answer that right now.",
			wantOK: false,
		},
		{
			name:   "empty response",
			raw:    "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions, ok := Questions(tt.raw)

			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(questions) != tt.wantCount {
				t.Fatalf("count = %d, want %d", len(questions), tt.wantCount)
			}
			if tt.wantFirstText != "" && questions[0].Text != tt.wantFirstText {
				t.Errorf("first question = %q, want %q", questions[0].Text, tt.wantFirstText)
			}
			for i, q := range questions {
				if q.SuggestedAnswers == nil {
					t.Errorf("question %d has nil suggested answers", i)
				}
			}
		})
	}
}

func TestQuestionsKeepsSuggestedAnswers(t *testing.T) {
	questions, ok := Questions(`[{"question": "Which flows matter?", "suggested_answers": ["Checkout", "Refund", "Returns"]}]`)
	if !ok || len(questions) != 1 {
		t.Fatalf("unexpected parse result: ok=%v count=%d", ok, len(questions))
	}
	if len(questions[0].SuggestedAnswers) != 3 {
		t.Errorf("suggested answers = %d, want 3", len(questions[0].SuggestedAnswers))
	}
}

func TestCases(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantOK      bool
		wantCount   int
		wantFirstID string
	}{
		{
			name:        "strict array",
			raw:         `[{"id": "L1_001", "title": "Auth", "description": "Login flows"}]`,
			wantOK:      true,
			wantCount:   1,
			wantFirstID: "L1_001",
		},
		{
			name:      "empty array is a valid result",
			raw:       `[]`,
			wantOK:    true,
			wantCount: 0,
		},
		{
			name:        "single object wrapped",
			raw:         `{"id": "L2_003", "title": "Edge", "description": "Boundary", "parent_l1_id": "L1_001"}`,
			wantOK:      true,
			wantCount:   1,
			wantFirstID: "L2_003",
		},
		{
			name:        "fenced with prose around it",
			raw:         "Of course.\n```json\n[{\"id\": \"L3_001\", \"title\": \"Step detail\", \"description\": \"d\", \"test_steps\": [\"a\", \"b\"], \"expected_result\": \"ok\", \"parent_l2_id\": \"L2_001\"}]\n```",
			wantOK:      true,
			wantCount:   1,
			wantFirstID: "L3_001",
		},
		{
			name:        "array buried in prose with trailing comma",
			raw:         `Result: [{"id": "L1_002", "title": "T", "description": "D",},] done`,
			wantOK:      true,
			wantCount:   1,
			wantFirstID: "L1_002",
		},
		{
			name:   "free text",
			raw:    "Unable to comply.",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases, ok := Cases(tt.raw)

			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(cases) != tt.wantCount {
				t.Fatalf("count = %d, want %d", len(cases), tt.wantCount)
			}
			if tt.wantFirstID != "" && cases[0].ID != tt.wantFirstID {
				t.Errorf("first id = %q, want %q", cases[0].ID, tt.wantFirstID)
			}
		})
	}
}

func TestCasesKeepsStepsAndParents(t *testing.T) {
	raw := `[{"id": "L3_001", "title": "Valid Email Login", "description": "d", "test_steps": ["Navigate", "Enter email", "Submit"], "expected_result": "Logged in", "parent_l2_id": "L2_001"}]`
	cases, ok := Cases(raw)
	if !ok || len(cases) != 1 {
		t.Fatalf("unexpected parse result: ok=%v count=%d", ok, len(cases))
	}
	got := cases[0]
	if len(got.TestSteps) != 3 {
		t.Errorf("test steps = %d, want 3", len(got.TestSteps))
	}
	if got.ExpectedResult != "Logged in" {
		t.Errorf("expected result = %q", got.ExpectedResult)
	}
	if got.ParentL2ID != "L2_001" {
		t.Errorf("parent l2 id = %q", got.ParentL2ID)
	}
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`"title": "Auth", // inline note`, `"title": "Auth",`},
		{`"url": "https://example.com/path"`, `"url": "https://example.com/path"`},
		{`// whole line comment`, ``},
		{`"escaped \" // still in string"`, `"escaped \" // still in string"`},
	}

	for _, tt := range tests {
		if got := stripLineComment(tt.line); got != tt.want {
			t.Errorf("stripLineComment(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
