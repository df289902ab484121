package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"ai-testgen-be/internal/config"
	"ai-testgen-be/internal/repository/specification"
	"ai-testgen-be/internal/repository/unitofwork"
	"ai-testgen-be/pkg/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

/*
╔══════════════════════════════════════════════════════════════════════════════╗
║             GENERATION SESSION INSPECTOR                                     ║
╠══════════════════════════════════════════════════════════════════════════════╣
║  Purpose: Load a gen_session row directly and unpack its state blob to show  ║
║  exactly what the engine persisted after the last stage operation. This is   ║
║  the ground truth the API serves from.                                       ║
╚══════════════════════════════════════════════════════════════════════════════╝

USAGE:
  go run cmd/inspect_session/main.go <session_id>

  Replace <session_id> with a generation session UUID.
  Session IDs can be obtained from creating a session via API.
*/

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/inspect_session/main.go <session_id>")
		fmt.Println("\nTo get a session ID:")
		fmt.Println("  1. Create session: POST /api/session/v1")
		fmt.Println("  2. Start generation: POST /api/testgen/v1/:id/start")
		fmt.Println("  3. Use the id from the response")
		os.Exit(1)
	}

	sessionIDStr := os.Args[1]
	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		fmt.Printf("❌ Invalid session ID: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("╔══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Println("║             GENERATION SESSION INSPECTOR                                     ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Printf("Target Session: %s\n\n", sessionID)

	// Load config & connect to DB
	godotenv.Load()
	db := connectDB()
	uowFactory := unitofwork.NewRepositoryFactory(db)
	ctx := context.Background()

	uow := uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.GenSessionRepository().FindOne(ctx, specification.ByID{ID: sessionID})
	if err != nil {
		fmt.Printf("❌ Failed to query gen_sessions: %v\n", err)
		os.Exit(1)
	}
	if sess == nil {
		fmt.Println("❌ No session found with that ID.")
		os.Exit(1)
	}

	fmt.Println("┌──────────────────────────────────────────────────────────────────────────────┐")
	fmt.Println("│                          SESSION ROW                                         │")
	fmt.Println("└──────────────────────────────────────────────────────────────────────────────┘")
	fmt.Printf("Title:        %s\n", sess.Title)
	fmt.Printf("SessionKey:   %s\n", sess.SessionKey)
	fmt.Printf("UserId:       %s\n", sess.UserId)
	fmt.Printf("Status:       %s\n", sess.Status)
	fmt.Printf("CurrentLevel: %s\n", sess.CurrentLevel)
	fmt.Printf("CreatedAt:    %s\n", sess.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Prompt:       %s\n", truncateOneLine(sess.BusinessPrompt))

	var st store.GenerationState
	if err := json.Unmarshal(sess.State, &st); err != nil {
		fmt.Printf("\n🔴 STATE BLOB IS NOT VALID JSON: %v\n", err)
		fmt.Println("   The API cannot resume this session. Raw blob follows:")
		fmt.Println(string(sess.State))
		os.Exit(1)
	}
	st.Normalize()

	fmt.Println("\n┌──────────────────────────────────────────────────────────────────────────────┐")
	fmt.Println("│                          ENGINE STATE                                        │")
	fmt.Println("└──────────────────────────────────────────────────────────────────────────────┘")
	printLevel("L1", st.L1Questions, st.L1Answers, st.L1Cases, st.SelectedL1Index)
	printLevel("L2", st.L2Questions, st.L2Answers, st.L2Cases, st.SelectedL2Index)
	printLevel("L3", st.L3Questions, st.L3Answers, st.L3Cases, nil)
	fmt.Printf("\nAnswered history entries: %d\n", len(st.AnsweredHistory))
	if st.Tree != nil {
		fmt.Printf("Final tree: %d L1 branches\n", len(st.Tree.L1Cases))
	} else {
		fmt.Println("Final tree: not built yet")
	}

	if sess.StreamDraft != "" {
		fmt.Println("\n┌──────────────────────────────────────────────────────────────────────────────┐")
		fmt.Println("│                     LEFTOVER STREAM DRAFT                                    │")
		fmt.Println("│     (Partial LLM output from an interrupted generation)                      │")
		fmt.Println("└──────────────────────────────────────────────────────────────────────────────┘")
		draft := sess.StreamDraft
		if len(draft) > 1000 {
			draft = draft[:1000] + "... [TRUNCATED]"
		}
		fmt.Println(draft)
	}

	// Final diagnosis
	fmt.Println("\n╔══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                           DIAGNOSIS                                          ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════════════════╝")

	if sess.Status != st.Status || sess.CurrentLevel != st.CurrentLevel {
		fmt.Println("🔴 ROW/BLOB DIVERGENCE DETECTED")
		fmt.Println("")
		fmt.Printf("   Row columns:  status=%s level=%s\n", sess.Status, sess.CurrentLevel)
		fmt.Printf("   State blob:   status=%s level=%s\n", st.Status, st.CurrentLevel)
		fmt.Println("")
		fmt.Println("   UpdateState is supposed to write both in the same statement, so a")
		fmt.Println("   divergence means something wrote the row outside the service path.")
	} else {
		fmt.Printf("🟢 Row and state blob agree: status=%s level=%s\n", sess.Status, sess.CurrentLevel)
	}
}

func printLevel(label string, questions []store.Question, answers map[string]string, cases []store.TestCase, selected *int) {
	fmt.Printf("\n%s: %d questions, %d answers, %d cases", label, len(questions), len(answers), len(cases))
	if selected != nil {
		fmt.Printf(", selected index %d", *selected)
	}
	fmt.Println()
	for i, q := range questions {
		ans, ok := answers[q.Text]
		if !ok {
			ans = "(unanswered)"
		}
		fmt.Printf("  Q%d: %s\n      A: %s\n", i+1, truncateOneLine(q.Text), truncateOneLine(ans))
	}
	for i, c := range cases {
		fmt.Printf("  [%d] %s | %s\n", i, c.ID, truncateOneLine(c.Title))
	}
}

func connectDB() *gorm.DB {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.Database.Connection), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	return db
}

func truncateOneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
