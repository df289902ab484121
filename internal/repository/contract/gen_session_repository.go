package contract

import (
	"context"

	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GenSessionRepository interface {
	Create(ctx context.Context, session *entity.GenSession) error
	Update(ctx context.Context, session *entity.GenSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error // Hard delete all
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// UpdateState swaps the persisted state blob in one statement and clears
	// any stream draft left over from a previous partial generation.
	UpdateState(ctx context.Context, id uuid.UUID, state datatypes.JSON, status string, currentLevel string) error
	// UpdateStreamDraft persists a mid-stream partial so a crashed stream can
	// be inspected. Cleared again by UpdateState.
	UpdateStreamDraft(ctx context.Context, id uuid.UUID, draft string) error
}
