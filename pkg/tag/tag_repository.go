package tag

import (
	"context"
	"errors"

	"foodgram/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	TagRepository interface {
		GetTags(ctx context.Context) ([]*entities.Tag, error)
		GetTagByID(ctx context.Context, id string) (*entities.Tag, error)
		GetTagsByIDs(ctx context.Context, ids []uuid.UUID) ([]entities.Tag, error)
		CreateTag(ctx context.Context, tag *entities.Tag) error
	}

	tagRepository struct {
		db *gorm.DB
	}
)

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) GetTags(ctx context.Context) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	if err := r.db.WithContext(ctx).Order("name asc").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) GetTagByID(ctx context.Context, id string) (*entities.Tag, error) {
	var tag entities.Tag
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) GetTagsByIDs(ctx context.Context, ids []uuid.UUID) ([]entities.Tag, error) {
	var tags []entities.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) CreateTag(ctx context.Context, tag *entities.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}
