package implementation

import (
	"context"
	"errors"

	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/mapper"
	"ai-testgen-be/internal/model"
	"ai-testgen-be/internal/repository/contract"
	"ai-testgen-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GenSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewGenSessionRepository(db *gorm.DB) contract.GenSessionRepository {
	return &GenSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *GenSessionRepositoryImpl) Create(ctx context.Context, session *entity.GenSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *GenSessionRepositoryImpl) Update(ctx context.Context, session *entity.GenSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *GenSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.GenSession{}, id).Error
}

func (r *GenSessionRepositoryImpl) DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Where("user_id = ?", userId).Delete(&model.GenSession{}).Error
}

func (r *GenSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenSession, error) {
	var m model.GenSession
	query := applySpecs(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *GenSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenSession, error) {
	var models []*model.GenSession
	query := applySpecs(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *GenSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecs(r.db.WithContext(ctx).Model(&model.GenSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GenSessionRepositoryImpl) UpdateState(ctx context.Context, id uuid.UUID, state datatypes.JSON, status string, currentLevel string) error {
	result := r.db.WithContext(ctx).Model(&model.GenSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":         state,
			"status":        status,
			"current_level": currentLevel,
			"stream_draft":  "",
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("session not found")
	}
	return nil
}

func (r *GenSessionRepositoryImpl) UpdateStreamDraft(ctx context.Context, id uuid.UUID, draft string) error {
	return r.db.WithContext(ctx).Model(&model.GenSession{}).
		Where("id = ?", id).
		Update("stream_draft", draft).Error
}
