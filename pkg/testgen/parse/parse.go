// Package parse recovers structured questions and test cases from raw LLM
// output. Models are asked for plain JSON arrays but routinely wrap them in
// markdown fences, prepend prose, or emit trailing commas, so each entry
// point walks an ordered list of strategies from strict to permissive.
// A false result means no strategy matched and the caller should fall back
// to its built-in defaults.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"ai-testgen-be/pkg/store"
)

var (
	// fencedBlockPattern captures the body of a ```json ... ``` block.
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Questions parses an LLM response into clarification questions.
// Strategies, in order: strict JSON array (objects or bare strings),
// fenced code block, bracketed substring with cleanup, then plain lines
// containing a question mark. A successfully parsed empty array is a
// valid result: it means the model decided no clarification is needed.
func Questions(raw string) ([]store.Question, bool) {
	trimmed := strings.TrimSpace(raw)

	if questions, ok := decodeQuestionList(trimmed); ok {
		return questions, true
	}
	if fenced := extractFenced(trimmed); fenced != "" {
		if questions, ok := decodeQuestionList(cleanJSON(fenced)); ok {
			return questions, true
		}
	}
	if candidate := extractArray(trimmed); candidate != "" {
		if questions, ok := decodeQuestionList(cleanJSON(candidate)); ok {
			return questions, true
		}
	}
	if questions := questionLines(trimmed); len(questions) > 0 {
		return questions, true
	}
	return nil, false
}

// Cases parses an LLM response into test cases. A bare object is wrapped
// into a single-element list, covering models that return one case instead
// of an array of one.
func Cases(raw string) ([]store.TestCase, bool) {
	trimmed := strings.TrimSpace(raw)

	if cases, ok := decodeCaseList(trimmed); ok {
		return cases, true
	}
	if fenced := extractFenced(trimmed); fenced != "" {
		if cases, ok := decodeCaseList(cleanJSON(fenced)); ok {
			return cases, true
		}
	}
	if candidate := extractArray(trimmed); candidate != "" {
		if cases, ok := decodeCaseList(cleanJSON(candidate)); ok {
			return cases, true
		}
	}
	return nil, false
}

type questionItem struct {
	Question         string   `json:"question"`
	SuggestedAnswers []string `json:"suggested_answers"`
}

func (q questionItem) toStore() store.Question {
	answers := q.SuggestedAnswers
	if answers == nil {
		answers = []string{}
	}
	return store.Question{Text: q.Question, SuggestedAnswers: answers}
}

func decodeQuestionList(data string) ([]store.Question, bool) {
	if data == "" || data == "null" {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		// Not an array: a single question object still counts.
		var single questionItem
		if err := json.Unmarshal([]byte(data), &single); err != nil || single.Question == "" {
			return nil, false
		}
		return []store.Question{single.toStore()}, true
	}

	questions := make([]store.Question, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			if strings.TrimSpace(text) == "" {
				continue
			}
			questions = append(questions, store.Question{Text: text, SuggestedAnswers: []string{}})
			continue
		}
		var obj questionItem
		if err := json.Unmarshal(item, &obj); err == nil && obj.Question != "" {
			questions = append(questions, obj.toStore())
		}
		// Items in neither shape are dropped.
	}
	return questions, true
}

func decodeCaseList(data string) ([]store.TestCase, bool) {
	if data == "" || data == "null" {
		return nil, false
	}

	var cases []store.TestCase
	if err := json.Unmarshal([]byte(data), &cases); err == nil {
		if cases == nil {
			cases = []store.TestCase{}
		}
		return cases, true
	}

	if !strings.HasPrefix(data, "{") {
		return nil, false
	}
	var single store.TestCase
	if err := json.Unmarshal([]byte(data), &single); err != nil {
		return nil, false
	}
	return []store.TestCase{single}, true
}

// extractFenced returns the body of the first markdown code block, if any.
func extractFenced(raw string) string {
	match := fencedBlockPattern.FindStringSubmatch(raw)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// extractArray returns the widest bracketed substring, covering responses
// like "Here are the questions: [...] Let me know if...".
func extractArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// cleanJSON fixes the two malformations models produce most often:
// line comments and trailing commas before a closing brace or bracket.
func cleanJSON(data string) string {
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	cleaned := strings.Join(lines, "\n")
	return trailingCommaPattern.ReplaceAllString(cleaned, "$1")
}

// stripLineComment removes a trailing // comment unless the slashes sit
// inside a JSON string literal.
func stripLineComment(line string) string {
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '/':
			if !inString && i+1 < len(line) && line[i+1] == '/' {
				return strings.TrimRight(line[:i], " \t")
			}
		}
	}
	return line
}

// questionLines is the last resort: any line containing a question mark is
// treated as a bare question with no suggested answers.
func questionLines(raw string) []store.Question {
	var questions []store.Question
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "?") {
			continue
		}
		questions = append(questions, store.Question{Text: line, SuggestedAnswers: []string{}})
	}
	return questions
}
