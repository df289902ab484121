// FILE: test/integration/ollama_integration_test.go
// PURPOSE: Live Ollama integration for the generation stages.
// NOTE: Requires a local Ollama server. Every test skips itself when the
//       server is unreachable, so the suite stays green on machines
//       without Ollama installed.

package integration

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"ai-testgen-be/pkg/llm"
	"ai-testgen-be/pkg/llm/ollama"
	"ai-testgen-be/pkg/store"
	"ai-testgen-be/pkg/testgen/engine"
	"ai-testgen-be/pkg/testgen/question"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3"
)

func ollamaBaseURL() string {
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		return v
	}
	return defaultOllamaBaseURL
}

func ollamaModel() string {
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		return v
	}
	return defaultOllamaModel
}

// requireOllama skips the test when no Ollama server is reachable.
func requireOllama(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ollamaBaseURL(), nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		t.Skipf("Skipping: Ollama not running at %s: %v", ollamaBaseURL(), err)
	}
	res.Body.Close()
}

func testProvider() *ollama.OllamaProvider {
	return ollama.NewOllamaProvider(ollamaBaseURL(), ollamaModel())
}

func testLogger() *log.Logger {
	return log.New(os.Stdout, "[LLM-TEST] ", log.LstdFlags)
}

// TestOllamaConnection verifies Ollama is running and accessible
func TestOllamaConnection(t *testing.T) {
	requireOllama(t)
	t.Logf("✅ Ollama is running at %s", ollamaBaseURL())
}

// TestOllamaSimpleResponse tests basic prompt completion through the provider
func TestOllamaSimpleResponse(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	response, err := testProvider().Generate(ctx, "Hello! Say 'Ollama works!' in one sentence.")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	t.Logf("✅ Response: %s", response)

	if response == "" {
		t.Error("Response should not be empty")
	}
}

// TestOllamaMultiTurnConversation tests context retention
func TestOllamaMultiTurnConversation(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	conversation := []llm.Message{
		{Role: "user", Content: "My name is John"},
		{Role: "assistant", Content: "Nice to meet you, John!"},
		{Role: "user", Content: "What is my name?"},
	}

	response, err := testProvider().Chat(ctx, conversation)
	if err != nil {
		t.Fatalf("Multi-turn conversation failed: %v", err)
	}

	t.Logf("✅ Response: %s", response)

	// Check if response mentions "John"
	if !strings.Contains(response, "John") {
		t.Logf("⚠️ Response may not correctly remember the name. Response: %s", response)
	}
}

// TestOllamaStreaming verifies the stream delivers fragments and that their
// concatenation equals the returned full text
func TestOllamaStreaming(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	var collected strings.Builder
	fragments := 0

	full, err := testProvider().ChatStream(ctx, []llm.Message{
		{Role: "user", Content: "Count from 1 to 5, one number per line."},
	}, func(token string) error {
		collected.WriteString(token)
		fragments++
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	t.Logf("✅ Received %d fragments", fragments)

	if fragments == 0 {
		t.Error("Expected at least one streamed fragment")
	}
	if collected.String() != full {
		t.Errorf("Streamed fragments do not concatenate to the returned text.\nStreamed: %q\nReturned: %q", collected.String(), full)
	}
}

// TestOllamaQuestionStage runs the real L1 question generator against the
// live model. The generator falls back to canned questions when the model
// output cannot be parsed, so this asserts the stage contract, not model
// quality.
func TestOllamaQuestionStage(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	st := store.NewGenerationState("", "A ticket booking site where visitors pick a movie, choose seats, and pay online.")
	gen := question.NewGenerator(testProvider(), testLogger())

	if err := gen.AskL1(ctx, st, nil); err != nil {
		t.Fatalf("AskL1 failed: %v", err)
	}

	if len(st.L1Questions) == 0 {
		t.Fatal("Expected at least one L1 question")
	}
	for i, q := range st.L1Questions {
		if q.SuggestedAnswers == nil {
			t.Errorf("Question %d has nil SuggestedAnswers", i)
		}
		t.Logf("Q%d: %s", i+1, q.Text)
	}
	t.Logf("✅ Generated %d L1 questions", len(st.L1Questions))
}

// TestOllamaStageWalkthrough drives the first two stage operations of the
// machine end to end against the live model
func TestOllamaStageWalkthrough(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping live walkthrough in short mode")
	}
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Second)
	defer cancel()

	machine := engine.NewStageMachine(testProvider(), testLogger())

	st, err := machine.StartSession(ctx, "", "A parking app where drivers find a free spot, reserve it, and pay per hour.", nil)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if st.Status != store.StatusWaitL1Answers {
		t.Fatalf("Expected %s after start, got %s", store.StatusWaitL1Answers, st.Status)
	}
	t.Logf("Start: %d L1 questions", len(st.L1Questions))

	// Skip all questions, the stage treats an empty answer set as valid
	next, err := machine.SubmitL1Answers(ctx, st, map[string]string{}, nil)
	if err != nil {
		t.Fatalf("SubmitL1Answers failed: %v", err)
	}
	if len(next.L1Cases) == 0 {
		t.Fatal("Expected L1 cases after submitting answers")
	}
	if next.Status != store.StatusWaitL1Selection {
		t.Fatalf("Expected %s after L1 answers, got %s", store.StatusWaitL1Selection, next.Status)
	}

	t.Logf("✅ Walkthrough produced %d L1 cases", len(next.L1Cases))
	for i, c := range next.L1Cases {
		t.Logf("  [%d] %s", i, c.Title)
	}
}
