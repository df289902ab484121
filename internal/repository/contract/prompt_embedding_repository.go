package contract

import (
	"context"

	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PromptEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.PromptEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.PromptEmbedding) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error
	DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error // Hard delete embeddings
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PromptEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilarSessions ranks the user's other sessions by the best cosine
	// similarity among their prompt chunks.
	SearchSimilarSessions(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, excludeSessionId uuid.UUID) ([]*entity.SimilarSession, error)
}
