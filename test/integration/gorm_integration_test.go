package integration

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/model"
	"ai-testgen-be/internal/repository/specification"
	"ai-testgen-be/internal/repository/unitofwork"
	"ai-testgen-be/pkg/database"
	"ai-testgen-be/pkg/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.UserRepository())
	assert.NotNil(t, uow.GenSessionRepository())
	assert.NotNil(t, uow.PromptEmbeddingRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Verify Data Access (implies columns exist)
	t.Run("Check User Repository", func(t *testing.T) {
		count, err := uow.UserRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("User count: %d", count)
	})

	t.Run("Check Prompt Embedding Repository", func(t *testing.T) {
		// Count implies the table and the vector column exist
		count, err := uow.PromptEmbeddingRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("PromptEmbedding count: %d", count)
	})

	t.Run("Check Transactional Session Write", func(t *testing.T) {
		ctx := context.Background()

		// Sessions require a valid owner, create one first.
		userId := uuid.New()
		user := &entity.User{
			Id:       userId,
			Email:    "test-integration-" + uuid.New().String() + "@example.com",
			FullName: "Integration Test User",
			Role:     entity.UserRoleUser,
			Status:   entity.UserStatusActive,
		}
		err := uow.UserRepository().Create(ctx, user)
		assert.NoError(t, err)

		// Cleanup everything this subtest writes, including soft-deleted rows
		defer func() {
			assert.NoError(t, uow.PromptEmbeddingRepository().DeleteAllByUserIdUnscoped(ctx, userId))
			assert.NoError(t, uow.GenSessionRepository().DeleteAllByUserIdUnscoped(ctx, userId))
			assert.NoError(t, uow.UserRepository().DeleteUnscoped(ctx, userId))
		}()

		state := store.NewGenerationState("", "An online store where customers order products")
		blob, err := json.Marshal(state)
		assert.NoError(t, err)

		// Transaction Test
		err = uow.Begin(ctx)
		assert.NoError(t, err)
		defer uow.Rollback()

		sessionId := uuid.New()
		session := &entity.GenSession{
			Id:             sessionId,
			UserId:         userId,
			SessionKey:     state.SessionID,
			Title:          "Integration Session",
			BusinessPrompt: state.UserPrompt,
			State:          blob,
			Status:         state.Status,
			CurrentLevel:   state.CurrentLevel,
		}
		err = uow.GenSessionRepository().Create(ctx, session)
		assert.NoError(t, err)

		// Simulate a partial stream, then the finished operation
		err = uow.GenSessionRepository().UpdateStreamDraft(ctx, sessionId, "partial LLM output")
		assert.NoError(t, err)
		err = uow.GenSessionRepository().UpdateState(ctx, sessionId, datatypes.JSON(blob), store.StatusWaitL1Selection, store.LevelL1)
		assert.NoError(t, err)

		err = uow.Commit()
		assert.NoError(t, err)

		// Reload and verify UpdateState swapped status and cleared the draft
		got, err := uow.GenSessionRepository().FindOne(ctx, specification.BySessionKey{Key: state.SessionID})
		assert.NoError(t, err)
		if assert.NotNil(t, got) {
			assert.Equal(t, store.StatusWaitL1Selection, got.Status)
			assert.Equal(t, "", got.StreamDraft)
		}

		t.Log("Successfully created GenSession and swapped state in Transaction")
	})

	t.Run("Check Refresh Token Round Trip", func(t *testing.T) {
		ctx := context.Background()

		userId := uuid.New()
		user := &entity.User{
			Id:       userId,
			Email:    "test-integration-" + uuid.New().String() + "@example.com",
			FullName: "Integration Refresh User",
			Role:     entity.UserRoleUser,
			Status:   entity.UserStatusActive,
		}
		err := uow.UserRepository().Create(ctx, user)
		assert.NoError(t, err)

		// Token rows have no FK cascade, remove them before the user
		defer func() {
			assert.NoError(t, gormDB.Where("user_id = ?", userId).Delete(&model.UserRefreshToken{}).Error)
			assert.NoError(t, uow.UserRepository().DeleteUnscoped(ctx, userId))
		}()

		tokenHash := "itest-" + uuid.New().String()
		err = uow.UserRepository().CreateRefreshToken(ctx, &entity.UserRefreshToken{
			Id:        uuid.New(),
			UserId:    userId,
			TokenHash: tokenHash,
			ExpiresAt: time.Now().Add(time.Hour),
		})
		assert.NoError(t, err)

		stored, err := uow.UserRepository().FindRefreshToken(ctx, tokenHash)
		assert.NoError(t, err)
		if assert.NotNil(t, stored) {
			assert.Equal(t, userId, stored.UserId)
			assert.False(t, stored.Revoked)
		}

		err = uow.UserRepository().RevokeRefreshToken(ctx, tokenHash)
		assert.NoError(t, err)

		// The row survives revocation so the exchange can tell revoked from unknown
		revoked, err := uow.UserRepository().FindRefreshToken(ctx, tokenHash)
		assert.NoError(t, err)
		if assert.NotNil(t, revoked) {
			assert.True(t, revoked.Revoked)
		}

		missing, err := uow.UserRepository().FindRefreshToken(ctx, "no-such-hash")
		assert.NoError(t, err)
		assert.Nil(t, missing)

		t.Log("Refresh token survives revocation and reads back revoked")
	})
}
