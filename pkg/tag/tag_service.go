package tag

import (
	"context"
	"errors"

	"foodgram/domain"
	"foodgram/entities"

	"gorm.io/gorm"
)

type (
	TagService interface {
		GetTags(ctx context.Context) ([]domain.TagResponse, error)
		GetTag(ctx context.Context, id string) (*domain.TagResponse, error)
	}

	tagService struct {
		tagRepository TagRepository
	}
)

func NewTagService(tagRepository TagRepository) TagService {
	return &tagService{tagRepository: tagRepository}
}

func (s *tagService) GetTags(ctx context.Context) ([]domain.TagResponse, error) {
	tags, err := s.tagRepository.GetTags(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.TagResponse, 0, len(tags))
	for _, t := range tags {
		result = append(result, TagResponse(t))
	}
	return result, nil
}

func (s *tagService) GetTag(ctx context.Context, id string) (*domain.TagResponse, error) {
	tag, err := s.tagRepository.GetTagByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTagNotFound
		}
		return nil, err
	}

	res := TagResponse(tag)
	return &res, nil
}

// TagResponse maps a tag entity to its API representation.
func TagResponse(t *entities.Tag) domain.TagResponse {
	return domain.TagResponse{
		ID:    t.ID.String(),
		Name:  t.Name,
		Color: t.Color,
		Slug:  t.Slug,
	}
}
