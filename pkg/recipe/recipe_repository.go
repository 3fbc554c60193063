package recipe

import (
	"context"
	"errors"

	"foodgram/domain"
	"foodgram/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe) error
		GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error)
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe) error
		ReplaceTags(ctx context.Context, recipe *entities.Recipe, tags []entities.Tag) error
		DeleteRecipe(ctx context.Context, id string) error
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID string, page, limit int) ([]*entities.Recipe, int64, error)
		GetRecipesByAuthor(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error)
		CountRecipesByAuthor(ctx context.Context, authorID string) (int64, error)

		CreateRecipeIngredient(ctx context.Context, row *entities.IngredientRecipe) error
		GetRecipeIngredients(ctx context.Context, recipeID string) ([]*entities.IngredientRecipe, error)
		UpdateRecipeIngredientAmount(ctx context.Context, recipeID, ingredientID string, amount int) (int64, error)

		AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error
		RemoveFavorite(ctx context.Context, userID, recipeID string) error
		IsFavorited(ctx context.Context, userID, recipeID string) (bool, error)

		AddToCart(ctx context.Context, userID, recipeID uuid.UUID) error
		RemoveFromCart(ctx context.Context, userID, recipeID string) error
		IsInCart(ctx context.Context, userID, recipeID string) (bool, error)
		GetCartIngredients(ctx context.Context, userID string) ([]*entities.IngredientRecipe, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe) error {
	return r.db.WithContext(ctx).Create(recipe).Error
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Where("id = ?", id).
		First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe) error {
	return r.db.WithContext(ctx).Omit("Tags").Save(recipe).Error
}

func (r *recipeRepository) ReplaceTags(ctx context.Context, recipe *entities.Recipe, tags []entities.Tag) error {
	return r.db.WithContext(ctx).Model(recipe).Association("Tags").Replace(tags)
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Recipe{}).Error
}

func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID string, page, limit int) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64
	offset := (page - 1) * limit

	build := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&entities.Recipe{})

		if filter.Author != "" {
			query = query.Where("recipes.author_id = ?", filter.Author)
		}
		if len(filter.TagSlugs) > 0 {
			// any-match across the supplied slugs
			query = query.
				Joins("JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", filter.TagSlugs)
		}
		if filter.IsFavorited && userID != "" {
			query = query.
				Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
				Where("favorites.user_id = ?", userID)
		}
		if filter.IsInShoppingCart && userID != "" {
			query = query.
				Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipes.id").
				Where("shopping_carts.user_id = ?", userID)
		}
		return query
	}

	if err := build().Distinct("recipes.id").Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := build().
		Distinct("recipes.*").
		Preload("Author").
		Preload("Tags").
		Offset(offset).
		Limit(limit).
		Order("pub_date desc").
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

func (r *recipeRepository) GetRecipesByAuthor(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error) {
	var recipes []*entities.Recipe

	query := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("pub_date desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *recipeRepository) CountRecipesByAuthor(ctx context.Context, authorID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Recipe{}).
		Where("author_id = ?", authorID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *recipeRepository) CreateRecipeIngredient(ctx context.Context, row *entities.IngredientRecipe) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *recipeRepository) GetRecipeIngredients(ctx context.Context, recipeID string) ([]*entities.IngredientRecipe, error) {
	var rows []*entities.IngredientRecipe
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("recipe_id = ?", recipeID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateRecipeIngredientAmount updates one join row addressed by its own
// (recipe, ingredient) pair and reports how many rows matched.
func (r *recipeRepository) UpdateRecipeIngredientAmount(ctx context.Context, recipeID, ingredientID string, amount int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.IngredientRecipe{}).
		Where("recipe_id = ? AND ingredient_id = ?", recipeID, ingredientID).
		Update("amount", amount)
	return result.RowsAffected, result.Error
}

func (r *recipeRepository) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	favorite := entities.Favorite{
		ID:       uuid.New(),
		UserID:   userID,
		RecipeID: recipeID,
	}
	return r.db.WithContext(ctx).Create(&favorite).Error
}

func (r *recipeRepository) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.Favorite{}).Error
}

func (r *recipeRepository) IsFavorited(ctx context.Context, userID, recipeID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Favorite{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	cart := entities.ShoppingCart{
		ID:       uuid.New(),
		UserID:   userID,
		RecipeID: recipeID,
	}
	return r.db.WithContext(ctx).Create(&cart).Error
}

func (r *recipeRepository) RemoveFromCart(ctx context.Context, userID, recipeID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.ShoppingCart{}).Error
}

func (r *recipeRepository) IsInCart(ctx context.Context, userID, recipeID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.ShoppingCart{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCartIngredients returns every ingredient join row of every recipe in
// the requester's shopping cart, one row per (recipe, ingredient).
// Summation happens in the service so the grouping stays unit-testable.
func (r *recipeRepository) GetCartIngredients(ctx context.Context, userID string) ([]*entities.IngredientRecipe, error) {
	var rows []*entities.IngredientRecipe
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = ingredient_recipes.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
