package ingredient

import (
	"context"
	"errors"

	"foodgram/domain"
	"foodgram/entities"

	"gorm.io/gorm"
)

type (
	IngredientService interface {
		GetIngredients(ctx context.Context, name string) ([]domain.IngredientResponse, error)
		GetIngredient(ctx context.Context, id string) (*domain.IngredientResponse, error)
	}

	ingredientService struct {
		ingredientRepository IngredientRepository
	}
)

func NewIngredientService(ingredientRepository IngredientRepository) IngredientService {
	return &ingredientService{ingredientRepository: ingredientRepository}
}

func (s *ingredientService) GetIngredients(ctx context.Context, name string) ([]domain.IngredientResponse, error) {
	ingredients, err := s.ingredientRepository.GetIngredients(ctx, name)
	if err != nil {
		return nil, err
	}

	result := make([]domain.IngredientResponse, 0, len(ingredients))
	for _, i := range ingredients {
		result = append(result, IngredientResponse(i))
	}
	return result, nil
}

func (s *ingredientService) GetIngredient(ctx context.Context, id string) (*domain.IngredientResponse, error) {
	ing, err := s.ingredientRepository.GetIngredientByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrIngredientNotFound
		}
		return nil, err
	}

	res := IngredientResponse(ing)
	return &res, nil
}

// IngredientResponse maps an ingredient entity to its API representation.
func IngredientResponse(i *entities.Ingredient) domain.IngredientResponse {
	return domain.IngredientResponse{
		ID:              i.ID.String(),
		Name:            i.Name,
		MeasurementUnit: i.MeasurementUnit,
	}
}
