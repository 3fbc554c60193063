package ingredient

import (
	"context"
	"errors"

	"foodgram/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	IngredientRepository interface {
		GetIngredients(ctx context.Context, name string) ([]*entities.Ingredient, error)
		GetIngredientByID(ctx context.Context, id string) (*entities.Ingredient, error)
		GetIngredientsByIDs(ctx context.Context, ids []uuid.UUID) ([]entities.Ingredient, error)
		CreateIngredient(ctx context.Context, ingredient *entities.Ingredient) error
	}

	ingredientRepository struct {
		db *gorm.DB
	}
)

func NewIngredientRepository(db *gorm.DB) IngredientRepository {
	return &ingredientRepository{db: db}
}

func (r *ingredientRepository) GetIngredients(ctx context.Context, name string) ([]*entities.Ingredient, error) {
	var ingredients []*entities.Ingredient

	query := r.db.WithContext(ctx)
	if name != "" {
		// prefix match only, case-insensitive
		query = query.Where("name ILIKE ?", name+"%")
	}

	if err := query.Order("name asc").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *ingredientRepository) GetIngredientByID(ctx context.Context, id string) (*entities.Ingredient, error) {
	var ingredient entities.Ingredient
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, err
	}
	return &ingredient, nil
}

func (r *ingredientRepository) GetIngredientsByIDs(ctx context.Context, ids []uuid.UUID) ([]entities.Ingredient, error) {
	var ingredients []entities.Ingredient
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *ingredientRepository) CreateIngredient(ctx context.Context, ingredient *entities.Ingredient) error {
	return r.db.WithContext(ctx).Create(ingredient).Error
}
