package implementation

import (
	"context"

	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/mapper"
	"ai-testgen-be/internal/model"
	"ai-testgen-be/internal/repository/contract"
	"ai-testgen-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type PromptEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PromptEmbeddingMapper
}

func NewPromptEmbeddingRepository(db *gorm.DB) contract.PromptEmbeddingRepository {
	return &PromptEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewPromptEmbeddingMapper(),
	}
}

func (r *PromptEmbeddingRepositoryImpl) Create(ctx context.Context, embedding *entity.PromptEmbedding) error {
	m := r.mapper.ToModel(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *PromptEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.PromptEmbedding) error {
	models := r.mapper.ToModels(embeddings)

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	// Update IDs back to entities
	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *PromptEmbeddingRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.PromptEmbedding{}, id).Error
}

func (r *PromptEmbeddingRepositoryImpl) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.PromptEmbedding{}).Error
}

func (r *PromptEmbeddingRepositoryImpl) DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error {
	// Subquery to find session IDs for the user
	subQuery := r.db.Table("gen_sessions").Select("id").Where("user_id = ?", userId)
	return r.db.WithContext(ctx).Unscoped().Where("session_id IN (?)", subQuery).Delete(&model.PromptEmbedding{}).Error
}

func (r *PromptEmbeddingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PromptEmbedding, error) {
	var models []*model.PromptEmbedding
	query := applySpecs(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *PromptEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecs(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.PromptEmbedding{}).Count(&count).Error
	return count, err
}

// SearchSimilarSessions aggregates chunk similarity per session so one session
// appears once no matter how many of its chunks match.
// Cosine distance in pgvector is: 1 - cosine_similarity
func (r *PromptEmbeddingRepositoryImpl) SearchSimilarSessions(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, excludeSessionId uuid.UUID) ([]*entity.SimilarSession, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		SessionId  uuid.UUID
		Title      string
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("prompt_embeddings").
		Select("gen_sessions.id as session_id, gen_sessions.title as title, MAX(1 - (embedding_value <=> ?)) as similarity", queryVector).
		Joins("JOIN gen_sessions ON gen_sessions.id = prompt_embeddings.session_id").
		Where("gen_sessions.user_id = ?", userId).
		Where("gen_sessions.id <> ?", excludeSessionId).
		Where("prompt_embeddings.deleted_at IS NULL").
		Where("gen_sessions.deleted_at IS NULL").
		Group("gen_sessions.id, gen_sessions.title").
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	sessions := make([]*entity.SimilarSession, len(results))
	for i, res := range results {
		sessions[i] = &entity.SimilarSession{
			SessionId:  res.SessionId,
			Title:      res.Title,
			Similarity: res.Similarity,
		}
	}
	return sessions, nil
}
