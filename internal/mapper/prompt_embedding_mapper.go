package mapper

import (
	"time"

	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type PromptEmbeddingMapper struct{}

func NewPromptEmbeddingMapper() *PromptEmbeddingMapper {
	return &PromptEmbeddingMapper{}
}

func (m *PromptEmbeddingMapper) ToEntity(e *model.PromptEmbedding) *entity.PromptEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.PromptEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		SessionId:      e.SessionId,
		ChunkIndex:     e.ChunkIndex,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *PromptEmbeddingMapper) ToModel(e *entity.PromptEmbedding) *model.PromptEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	} else if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.PromptEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		SessionId:      e.SessionId,
		ChunkIndex:     e.ChunkIndex,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *PromptEmbeddingMapper) ToEntities(embeddings []*model.PromptEmbedding) []*entity.PromptEmbedding {
	entities := make([]*entity.PromptEmbedding, len(embeddings))
	for i, e := range embeddings {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *PromptEmbeddingMapper) ToModels(embeddings []*entity.PromptEmbedding) []*model.PromptEmbedding {
	models := make([]*model.PromptEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToModel(e)
	}
	return models
}
