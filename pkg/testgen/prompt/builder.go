// Package prompt builds the LLM prompts for every generation step.
// The texts steer the model toward strict JSON output; the parse package
// deals with everything the model does anyway.
package prompt

import (
	"fmt"
	"strings"

	"ai-testgen-be/pkg/store"
)

// System messages paired with the prompts below.
const (
	SystemQuestions = "You are a helpful test case generation assistant. Always return valid JSON."
	SystemCases     = "You are a helpful test case generation assistant. Always return valid JSON arrays."
	SystemSummary   = "You are a concise summarization assistant. Return only the summary text, 2-3 sentences max."
	SystemTitle     = "You are a naming assistant. Return only a short title, no quotes, no labels."
)

const noContext = "No previous context available."

// L1Questions asks for the initial round of clarification questions.
func L1Questions(userPrompt string, globalSummary string) string {
	var b strings.Builder

	b.WriteString("You are a test case generation expert. A user has provided the following business description:\n\n")
	b.WriteString(userPrompt)
	b.WriteString("\n\nContext from Previous Answers:\n")
	b.WriteString(orDefault(globalSummary, noContext))
	b.WriteString("\n\n")
	b.WriteString("Generate 3-5 optional clarification questions that would help you understand:\n")
	b.WriteString("1. The software systems they're using\n")
	b.WriteString("2. Key business processes\n")
	b.WriteString("3. Critical workflows\n")
	b.WriteString("4. Integration points\n\n")
	b.WriteString("Use the context to avoid duplicate questions and build upon existing knowledge.\n")
	b.WriteString("These questions should help generate comprehensive L1 (high-level) test cases.\n\n")
	writeQuestionFormat(&b)
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString(`    {"question": "What are the main software systems you use?", "suggested_answers": ["ERP System", "CRM Platform", "Custom Web Application", "Mobile App", "Database System"]},` + "\n")
	b.WriteString(`    {"question": "What are your critical business workflows?", "suggested_answers": ["Order Processing", "Customer Onboarding", "Payment Processing", "Inventory Management", "Reporting"]}` + "\n")
	b.WriteString("]\n")

	return b.String()
}

// L1Cases asks for the high-level test cases.
func L1Cases(userPrompt string, globalSummary string, answersText string) string {
	var b strings.Builder

	b.WriteString("You are a test case generation expert. Based on the following information, generate L1 (high-level) test cases.\n\n")
	b.WriteString("Business Description:\n")
	b.WriteString(userPrompt)
	b.WriteString("\n\nContext from Previous Answers:\n")
	b.WriteString(orDefault(globalSummary, noContext))
	b.WriteString("\n\nClarification Answers:\n")
	b.WriteString(orDefault(answersText, "No additional clarifications provided."))
	b.WriteString("\n\n")
	b.WriteString("Generate 5-10 comprehensive L1 test cases. Each test case should:\n")
	b.WriteString("- Be high-level and cover major business functionality\n")
	b.WriteString("- Have a clear title/name\n")
	b.WriteString("- Include a brief description\n")
	b.WriteString("- Be independent and testable\n\n")
	b.WriteString("Return ONLY a JSON array of objects, each with:\n")
	b.WriteString("- \"id\": unique identifier (e.g., \"L1_001\")\n")
	b.WriteString("- \"title\": test case title\n")
	b.WriteString("- \"description\": brief description\n\n")
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString(`    {"id": "L1_001", "title": "User Authentication", "description": "Test user login and authentication flows"},` + "\n")
	b.WriteString(`    {"id": "L1_002", "title": "Data Processing", "description": "Test core data processing workflows"}` + "\n")
	b.WriteString("]\n")

	return b.String()
}

// L2Questions asks for clarification questions scoped to a selected L1 case.
func L2Questions(selected store.TestCase, userPrompt string, globalSummary string) string {
	var b strings.Builder

	b.WriteString("You are a test case generation expert. A user has selected the following L1 test case to explore further:\n\n")
	b.WriteString("L1 Test Case:\n")
	writeCaseHeader(&b, selected, true)
	b.WriteString("\nOriginal Business Context:\n")
	b.WriteString(userPrompt)
	b.WriteString("\n\nContext from All Previous Answers:\n")
	b.WriteString(orDefault(globalSummary, noContext))
	b.WriteString("\n\n")
	b.WriteString("Generate 3-5 optional clarification questions that would help you understand this specific L1 test case in more detail.\n")
	b.WriteString("These questions should help generate comprehensive L2 (mid-level) test cases.\n")
	b.WriteString("Use the context to avoid asking duplicate questions and to build upon existing knowledge.\n\n")
	writeQuestionFormat(&b)
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString(`    {"question": "What are the specific scenarios for this functionality?", "suggested_answers": ["Happy Path", "Error Handling", "Edge Cases", "Performance", "Security"]},` + "\n")
	b.WriteString(`    {"question": "What are the integration points?", "suggested_answers": ["API Calls", "Database Access", "External Services", "File System", "Message Queue"]}` + "\n")
	b.WriteString("]\n")

	return b.String()
}

// L2Cases asks for the mid-level test cases under a selected L1 case.
func L2Cases(selected store.TestCase, userPrompt string, globalSummary string, answersText string) string {
	var b strings.Builder

	b.WriteString("You are a test case generation expert. Generate L2 (mid-level) test cases for the selected L1 test case.\n\n")
	b.WriteString("Original Business Context:\n")
	b.WriteString(userPrompt)
	b.WriteString("\n\nSelected L1 Test Case:\n")
	writeCaseHeader(&b, selected, true)
	b.WriteString("\nContext from All Previous Answers:\n")
	b.WriteString(orDefault(globalSummary, noContext))
	b.WriteString("\n\nCurrent Clarification Answers:\n")
	b.WriteString(orDefault(answersText, "No additional clarifications provided."))
	b.WriteString("\n\n")
	b.WriteString("Generate 5-8 L2 test cases that break down the selected L1 test case into more specific scenarios.\n")
	b.WriteString("Use the context to ensure variety and avoid duplication.\n")
	b.WriteString("Each L2 test case should:\n")
	b.WriteString("- Be more specific than L1 but still cover significant functionality\n")
	b.WriteString("- Have a clear title/name\n")
	b.WriteString("- Include a brief description\n")
	b.WriteString("- Reference the parent L1 case\n\n")
	b.WriteString("Return ONLY a JSON array of objects, each with:\n")
	b.WriteString("- \"id\": unique identifier (e.g., \"L2_001\")\n")
	b.WriteString("- \"title\": test case title\n")
	b.WriteString("- \"description\": brief description\n")
	b.WriteString("- \"parent_l1_id\": the ID of the parent L1 case\n\n")
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString(`    {"id": "L2_001", "title": "Login with Valid Credentials", "description": "Test successful login", "parent_l1_id": "L1_001"},` + "\n")
	b.WriteString(`    {"id": "L2_002", "title": "Login with Invalid Credentials", "description": "Test login failure scenarios", "parent_l1_id": "L1_001"}` + "\n")
	b.WriteString("]\n")

	return b.String()
}

// L3Questions asks for clarification questions scoped to a selected L2 case.
// The parent L1 case is included so the model keeps the full lineage in view.
func L3Questions(parentL1 store.TestCase, selectedL2 store.TestCase, userPrompt string, globalSummary string) string {
	var b strings.Builder

	b.WriteString("You are a test case generation expert. A user has selected the following L2 test case to explore further:\n\n")
	b.WriteString("Parent L1 Test Case:\n")
	writeCaseHeader(&b, parentL1, false)
	b.WriteString("\nSelected L2 Test Case:\n")
	writeCaseHeader(&b, selectedL2, true)
	b.WriteString("\nOriginal Business Context:\n")
	b.WriteString(userPrompt)
	b.WriteString("\n\nContext from All Previous Answers:\n")
	b.WriteString(orDefault(globalSummary, noContext))
	b.WriteString("\n\n")
	b.WriteString("Generate 3-5 optional clarification questions that would help you understand this specific L2 test case in more detail.\n")
	b.WriteString("These questions should help generate comprehensive L3 (detailed-level) test cases.\n")
	b.WriteString("Use the context to avoid asking duplicate questions and to build upon existing knowledge.\n\n")
	writeQuestionFormat(&b)
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString(`    {"question": "What are the specific test steps?", "suggested_answers": ["Setup", "Execute", "Verify", "Cleanup", "Document"]},` + "\n")
	b.WriteString(`    {"question": "What are the expected results?", "suggested_answers": ["Success", "Failure", "Partial Success", "Timeout", "Error"]}` + "\n")
	b.WriteString("]\n")

	return b.String()
}

// L3Cases asks for the detailed, executable test cases under a selected L2 case.
func L3Cases(parentL1 store.TestCase, selectedL2 store.TestCase, userPrompt string, globalSummary string, l2AnswersText string, l3AnswersText string) string {
	var b strings.Builder

	b.WriteString("You are a test case generation expert. Generate L3 (detailed-level) test cases for the selected L2 test case.\n\n")
	b.WriteString("Original Business Context:\n")
	b.WriteString(userPrompt)
	b.WriteString("\n\nParent L1 Test Case:\n")
	writeCaseHeader(&b, parentL1, false)
	b.WriteString("\nSelected L2 Test Case:\n")
	writeCaseHeader(&b, selectedL2, true)
	b.WriteString("\nContext from All Previous Answers:\n")
	b.WriteString(orDefault(globalSummary, noContext))
	b.WriteString("\n\nCurrent L2 Clarification Answers:\n")
	b.WriteString(orDefault(l2AnswersText, "No L2 answers were provided."))
	b.WriteString("\n\nCurrent L3 Clarification Answers:\n")
	b.WriteString(orDefault(l3AnswersText, "No L3 answers were provided."))
	b.WriteString("\n\n")
	b.WriteString("Generate 5-10 detailed L3 test cases that break down the selected L2 test case into specific, executable test scenarios.\n")
	b.WriteString("Use all the context from previous answers and current answers to generate comprehensive and relevant test cases.\n")
	b.WriteString("Each L3 test case should:\n")
	b.WriteString("- Be very specific and detailed\n")
	b.WriteString("- Include test steps or scenarios\n")
	b.WriteString("- Have clear expected results\n")
	b.WriteString("- Reference the parent L2 case\n")
	b.WriteString("- Consider the context from all previous questions and answers\n\n")
	b.WriteString("Return ONLY a JSON array of objects, each with:\n")
	b.WriteString("- \"id\": unique identifier (e.g., \"L3_001\")\n")
	b.WriteString("- \"title\": test case title\n")
	b.WriteString("- \"description\": detailed description\n")
	b.WriteString("- \"test_steps\": array of test steps (optional)\n")
	b.WriteString("- \"expected_result\": expected result (optional)\n")
	b.WriteString("- \"parent_l2_id\": the ID of the parent L2 case\n\n")
	b.WriteString("Example format:\n")
	b.WriteString("[\n")
	b.WriteString("    {\n")
	b.WriteString(`        "id": "L3_001",` + "\n")
	b.WriteString(`        "title": "Valid Email Login",` + "\n")
	b.WriteString(`        "description": "Test login with valid email and password",` + "\n")
	b.WriteString(`        "test_steps": ["Navigate to login page", "Enter valid email", "Enter valid password", "Click login"],` + "\n")
	b.WriteString(`        "expected_result": "User is successfully logged in",` + "\n")
	b.WriteString(`        "parent_l2_id": "L2_001"` + "\n")
	b.WriteString("    }\n")
	b.WriteString("]\n")

	return b.String()
}

// Summary asks for the rolling 2-3 sentence digest of all answered questions.
func Summary(userPrompt string, previousSummary string, qaText string) string {
	var b strings.Builder

	b.WriteString("Summarize all answered questions into a crisp, concise summary (2-3 sentences max).\n\n")
	b.WriteString("Business Context: ")
	b.WriteString(userPrompt)
	b.WriteString("\n\nPrevious Summary: ")
	b.WriteString(orDefault(previousSummary, "None"))
	b.WriteString("\n\nAll Answered Questions:\n")
	b.WriteString(qaText)
	b.WriteString("\n\nCreate a brief summary focusing on key insights. Return ONLY the summary text, no labels.\n")

	return b.String()
}

// SessionTitle asks for a short human-readable title for a new session.
func SessionTitle(userPrompt string) string {
	var b strings.Builder

	b.WriteString("Create a short title (max 6 words) for a test case generation session about the following business description.\n")
	b.WriteString("Return ONLY the title text, no quotes, no punctuation at the end.\n\n")
	b.WriteString("Business Description:\n")
	b.WriteString(userPrompt)
	b.WriteString("\n")

	return b.String()
}

func writeQuestionFormat(b *strings.Builder) {
	b.WriteString("For each question, also provide 3-5 suggested answer options that users might commonly select.\n\n")
	b.WriteString("Return ONLY a JSON array of objects, each with:\n")
	b.WriteString("- \"question\": the question string\n")
	b.WriteString("- \"suggested_answers\": array of 3-5 suggested answer strings\n\n")
}

func writeCaseHeader(b *strings.Builder, c store.TestCase, withDescription bool) {
	fmt.Fprintf(b, "ID: %s\n", orDefault(c.ID, "N/A"))
	fmt.Fprintf(b, "Title: %s\n", orDefault(c.Title, "N/A"))
	if withDescription {
		fmt.Fprintf(b, "Description: %s\n", orDefault(c.Description, "N/A"))
	}
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
