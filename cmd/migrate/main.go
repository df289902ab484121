package main

import (
	"log"
	"os"

	"ai-testgen-be/internal/model"
	"ai-testgen-be/pkg/database"

	"github.com/joho/godotenv"
)

// Schema migration runner. GORM AutoMigrate owns the tables; raw SQL
// covers what it cannot express (extensions, the search view, the
// updated_at trigger function).
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting schema migration...")

	// Extensions first; AutoMigrate needs pgcrypto for gen_random_uuid
	// defaults and vector for the embedding column.
	log.Println("Step 1: Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// Role and status are plain varchar columns; the valid values live
	// in the entity constants, not in a database enum.
	models := []interface{}{
		&model.User{},
		&model.PasswordResetToken{},
		&model.UserRefreshToken{},
		&model.GenSession{},
		&model.PromptEmbedding{},
		&model.NotificationType{},
		&model.Notification{},
		&model.UserNotificationPreference{},
	}

	log.Printf("Step 2: AutoMigrate for %d tables...", len(models))

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Views and functions...")

	postMigrationSQL := []string{
		`CREATE OR REPLACE FUNCTION set_current_timestamp_updated_at() RETURNS trigger LANGUAGE plpgsql AS $$
		DECLARE _new_value TIMESTAMP WITH TIME ZONE;
		BEGIN
		  _new_value := now();
		  IF NEW.updated_at IS DISTINCT FROM _new_value THEN NEW.updated_at = _new_value; END IF;
		  RETURN NEW;
		END; $$;`,

		// Feeds the similar-session lookup: one row per indexed chunk,
		// already joined to the owning session.
		`CREATE OR REPLACE VIEW searchable_session_prompts AS
		 SELECT gs.id AS session_id, gs.title, gs.business_prompt, pe.document, pe.embedding_value AS embedding, gs.user_id
		 FROM gen_sessions gs JOIN prompt_embeddings pe ON gs.id = pe.session_id
		 WHERE gs.deleted_at IS NULL AND pe.deleted_at IS NULL;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed.")
}
