package mapper

import (
	"encoding/json"
	"time"

	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.GenSession) *entity.GenSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.GenSession{
		Id:             s.Id,
		UserId:         s.UserId,
		SessionKey:     s.SessionKey,
		Title:          s.Title,
		BusinessPrompt: s.BusinessPrompt,
		State:          json.RawMessage(s.State),
		Status:         s.Status,
		CurrentLevel:   s.CurrentLevel,
		StreamDraft:    s.StreamDraft,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      s.DeletedAt.Valid,
	}
}

func (m *SessionMapper) ToModel(s *entity.GenSession) *model.GenSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.GenSession{
		Id:             s.Id,
		UserId:         s.UserId,
		SessionKey:     s.SessionKey,
		Title:          s.Title,
		BusinessPrompt: s.BusinessPrompt,
		State:          datatypes.JSON(s.State),
		Status:         s.Status,
		CurrentLevel:   s.CurrentLevel,
		StreamDraft:    s.StreamDraft,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *SessionMapper) ToEntities(sessions []*model.GenSession) []*entity.GenSession {
	entities := make([]*entity.GenSession, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
