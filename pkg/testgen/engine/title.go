package engine

import (
	"context"
	"strings"

	"ai-testgen-be/pkg/llm"
	"ai-testgen-be/pkg/testgen/prompt"
)

// GenerateTitle produces a short display title for a session from its
// business prompt. Model failures fall back to a truncated prompt so
// session creation never blocks on naming.
func (m *StageMachine) GenerateTitle(ctx context.Context, userPrompt string) string {
	messages := []llm.Message{
		{Role: "system", Content: prompt.SystemTitle},
		{Role: "user", Content: prompt.SessionTitle(userPrompt)},
	}

	// Low temperature and a tight cap: titles should come out short and
	// the same prompt should name its session roughly the same way twice
	raw, err := m.llmProvider.Chat(ctx, messages, llm.WithTemperature(0.3), llm.WithMaxTokens(60))
	if err != nil {
		m.logger.Printf("[MACHINE] title generation failed, using prompt excerpt: %v", err)
		return fallbackTitle(userPrompt)
	}

	title := sanitizeTitle(raw)
	if title == "" {
		return fallbackTitle(userPrompt)
	}
	return title
}

// sanitizeTitle keeps the first non-empty line and strips the quoting and
// labels models like to add anyway.
func sanitizeTitle(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "\"'`")
		line = strings.TrimPrefix(line, "Title:")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return truncate(line, 80)
	}
	return ""
}

func fallbackTitle(userPrompt string) string {
	title := strings.TrimSpace(userPrompt)
	if title == "" {
		return "Untitled Session"
	}
	return truncate(title, 60)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
