package recipe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/ingredient"
	"foodgram/pkg/tag"
	"foodgram/pkg/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeService interface {
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID string, page, limit int) (*domain.RecipesResponse, error)
		GetRecipeDetail(ctx context.Context, recipeID, userID string) (*domain.RecipeResponse, error)
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (*domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, userID string) (*domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID, userID string) error

		Favorite(ctx context.Context, recipeID, userID string) (*domain.RecipePreview, error)
		Unfavorite(ctx context.Context, recipeID, userID string) error
		AddToShoppingCart(ctx context.Context, recipeID, userID string) (*domain.RecipePreview, error)
		RemoveFromShoppingCart(ctx context.Context, recipeID, userID string) error
		GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error)
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		userRepository       user.UserRepository
		tagRepository        tag.TagRepository
		ingredientRepository ingredient.IngredientRepository
		s3                   storage.AwsS3
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	userRepository user.UserRepository,
	tagRepository tag.TagRepository,
	ingredientRepository ingredient.IngredientRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		userRepository:       userRepository,
		tagRepository:        tagRepository,
		ingredientRepository: ingredientRepository,
		s3:                   s3,
	}
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID string, page, limit int) (*domain.RecipesResponse, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, userID, page, limit)
	if err != nil {
		return nil, err
	}

	result := make([]domain.RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		res, err := s.buildRecipeResponse(ctx, r, userID)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}

	return &domain.RecipesResponse{
		Recipes: result,
		Pagination: domain.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      count,
			TotalPages: (count + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, recipeID, userID string) (*domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}
	return s.buildRecipeResponse(ctx, recipe, userID)
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (*domain.RecipeResponse, error) {
	authorID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	tags, err := s.resolveTags(ctx, req.Tags)
	if err != nil {
		return nil, err
	}

	ingredients, err := s.resolveIngredients(ctx, req.Ingredients)
	if err != nil {
		return nil, err
	}

	imageURL := ""
	if req.Image != "" {
		imageURL, err = s.uploadImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
	}

	recipe := entities.Recipe{
		ID:          uuid.New(),
		AuthorID:    authorID,
		Name:        req.Name,
		Image:       imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Tags:        tags,
	}

	if err := s.recipeRepository.CreateRecipe(ctx, &recipe); err != nil {
		return nil, err
	}

	for _, ing := range req.Ingredients {
		row := entities.IngredientRecipe{
			ID:           uuid.New(),
			RecipeID:     recipe.ID,
			IngredientID: ingredients[ing.ID].ID,
			Amount:       ing.Amount,
		}
		if err := s.recipeRepository.CreateRecipeIngredient(ctx, &row); err != nil {
			return nil, err
		}
	}

	created, err := s.recipeRepository.GetRecipeByID(ctx, recipe.ID.String())
	if err != nil {
		return nil, err
	}
	return s.buildRecipeResponse(ctx, created, userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, userID string) (*domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}

	if recipe.AuthorID.String() != userID {
		return nil, domain.ErrNotRecipeAuthor
	}

	if req.Name != nil {
		recipe.Name = *req.Name
	}
	if req.Text != nil {
		recipe.Text = *req.Text
	}
	if req.CookingTime != nil {
		recipe.CookingTime = *req.CookingTime
	}
	if req.Image != nil && *req.Image != "" {
		imageURL, err := s.uploadImage(ctx, *req.Image)
		if err != nil {
			return nil, err
		}
		recipe.Image = imageURL
	}

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe); err != nil {
		return nil, err
	}

	if req.Tags != nil {
		tags, err := s.resolveTags(ctx, *req.Tags)
		if err != nil {
			return nil, err
		}
		if err := s.recipeRepository.ReplaceTags(ctx, recipe, tags); err != nil {
			return nil, err
		}
	}

	if req.Ingredients != nil {
		ingredients, err := s.resolveIngredients(ctx, *req.Ingredients)
		if err != nil {
			return nil, err
		}
		// Each join row is addressed by its own (recipe, ingredient) pair;
		// pairs without an existing row get a fresh one.
		for _, ing := range *req.Ingredients {
			affected, err := s.recipeRepository.UpdateRecipeIngredientAmount(
				ctx, recipeID, ing.ID, ing.Amount,
			)
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				row := entities.IngredientRecipe{
					ID:           uuid.New(),
					RecipeID:     recipe.ID,
					IngredientID: ingredients[ing.ID].ID,
					Amount:       ing.Amount,
				}
				if err := s.recipeRepository.CreateRecipeIngredient(ctx, &row); err != nil {
					return nil, err
				}
			}
		}
	}

	updated, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	return s.buildRecipeResponse(ctx, updated, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID, userID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID.String() != userID {
		return domain.ErrNotRecipeAuthor
	}

	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) Favorite(ctx context.Context, recipeID, userID string) (*domain.RecipePreview, error) {
	recipe, userUUID, err := s.lookupJoinTarget(ctx, recipeID, userID)
	if err != nil {
		return nil, err
	}

	favorited, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if favorited {
		return nil, domain.ErrAlreadyFavorited
	}

	if err := s.recipeRepository.AddFavorite(ctx, userUUID, recipe.ID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrAlreadyFavorited
		}
		return nil, err
	}

	preview := RecipePreview(recipe)
	return &preview, nil
}

func (s *recipeService) Unfavorite(ctx context.Context, recipeID, userID string) error {
	if _, _, err := s.lookupJoinTarget(ctx, recipeID, userID); err != nil {
		return err
	}

	favorited, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if !favorited {
		return domain.ErrNotFavorited
	}

	return s.recipeRepository.RemoveFavorite(ctx, userID, recipeID)
}

func (s *recipeService) AddToShoppingCart(ctx context.Context, recipeID, userID string) (*domain.RecipePreview, error) {
	recipe, userUUID, err := s.lookupJoinTarget(ctx, recipeID, userID)
	if err != nil {
		return nil, err
	}

	inCart, err := s.recipeRepository.IsInCart(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if inCart {
		return nil, domain.ErrAlreadyInCart
	}

	if err := s.recipeRepository.AddToCart(ctx, userUUID, recipe.ID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrAlreadyInCart
		}
		return nil, err
	}

	preview := RecipePreview(recipe)
	return &preview, nil
}

func (s *recipeService) RemoveFromShoppingCart(ctx context.Context, recipeID, userID string) error {
	if _, _, err := s.lookupJoinTarget(ctx, recipeID, userID); err != nil {
		return err
	}

	inCart, err := s.recipeRepository.IsInCart(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if !inCart {
		return domain.ErrNotInCart
	}

	return s.recipeRepository.RemoveFromCart(ctx, userID, recipeID)
}

func (s *recipeService) GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	rows, err := s.recipeRepository.GetCartIngredients(ctx, userID)
	if err != nil {
		return nil, err
	}
	return aggregateCartRows(rows), nil
}

// aggregateCartRows sums amounts per (ingredient name, measurement unit)
// and returns the groups sorted by name.
func aggregateCartRows(rows []*entities.IngredientRecipe) []domain.ShoppingListItem {
	type key struct {
		name string
		unit string
	}

	sums := make(map[key]int)
	for _, row := range rows {
		if row.Ingredient == nil {
			continue
		}
		k := key{name: row.Ingredient.Name, unit: row.Ingredient.MeasurementUnit}
		sums[k] += row.Amount
	}

	items := make([]domain.ShoppingListItem, 0, len(sums))
	for k, amount := range sums {
		items = append(items, domain.ShoppingListItem{
			Name:            k.name,
			MeasurementUnit: k.unit,
			Amount:          amount,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].MeasurementUnit < items[j].MeasurementUnit
	})
	return items
}

// FormatShoppingList renders the aggregated list as the downloadable
// plain-text attachment body.
func FormatShoppingList(items []domain.ShoppingListItem) string {
	var b strings.Builder
	b.WriteString("Shopping list:\n")
	for _, item := range items {
		b.WriteString(fmt.Sprintf("\n%s - %d %s", item.Name, item.Amount, item.MeasurementUnit))
	}
	return b.String()
}

func (s *recipeService) lookupJoinTarget(ctx context.Context, recipeID, userID string) (*entities.Recipe, uuid.UUID, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, uuid.Nil, domain.ErrParseUUID
	}

	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, uuid.Nil, domain.ErrRecipeNotFound
		}
		return nil, uuid.Nil, err
	}
	return recipe, userUUID, nil
}

func (s *recipeService) resolveTags(ctx context.Context, ids []string) ([]entities.Tag, error) {
	tagIDs := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, domain.ErrParseUUID
		}
		tagIDs = append(tagIDs, parsed)
	}

	tags, err := s.tagRepository.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(tagIDs) {
		return nil, domain.ErrTagNotFound
	}
	return tags, nil
}

func (s *recipeService) resolveIngredients(ctx context.Context, reqs []domain.RecipeIngredientRequest) (map[string]entities.Ingredient, error) {
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, req := range reqs {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			return nil, domain.ErrParseUUID
		}
		ids = append(ids, parsed)
	}

	ingredients, err := s.ingredientRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(ingredients) != len(ids) {
		return nil, domain.ErrIngredientNotFound
	}

	byID := make(map[string]entities.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		byID[ing.ID.String()] = ing
	}
	return byID, nil
}

func (s *recipeService) uploadImage(ctx context.Context, payload string) (string, error) {
	data, contentType, err := utils.DecodeBase64Image(payload)
	if err != nil {
		return "", domain.ErrInvalidRecipeImage
	}
	return s.s3.UploadImage(ctx, "recipes_cover", data, contentType)
}

func (s *recipeService) buildRecipeResponse(ctx context.Context, r *entities.Recipe, userID string) (*domain.RecipeResponse, error) {
	rows, err := s.recipeRepository.GetRecipeIngredients(ctx, r.ID.String())
	if err != nil {
		return nil, err
	}

	ingredients := make([]domain.RecipeIngredientResponse, 0, len(rows))
	for _, row := range rows {
		if row.Ingredient == nil {
			continue
		}
		ingredients = append(ingredients, domain.RecipeIngredientResponse{
			ID:              row.Ingredient.ID.String(),
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		})
	}

	tags := make([]domain.TagResponse, 0, len(r.Tags))
	for i := range r.Tags {
		tags = append(tags, tag.TagResponse(&r.Tags[i]))
	}

	author := domain.UserResponse{ID: r.AuthorID.String()}
	if r.Author != nil {
		isSubscribed := false
		if userID != "" && userID != r.AuthorID.String() {
			isSubscribed, err = s.userRepository.IsSubscribed(ctx, userID, r.AuthorID.String())
			if err != nil {
				return nil, err
			}
		}
		author = user.UserResponse(r.Author, isSubscribed)
	}

	isFavorited := false
	isInCart := false
	if userID != "" {
		isFavorited, err = s.recipeRepository.IsFavorited(ctx, userID, r.ID.String())
		if err != nil {
			return nil, err
		}
		isInCart, err = s.recipeRepository.IsInCart(ctx, userID, r.ID.String())
		if err != nil {
			return nil, err
		}
	}

	return &domain.RecipeResponse{
		ID:               r.ID.String(),
		Tags:             tags,
		Author:           author,
		Ingredients:      ingredients,
		IsFavorited:      isFavorited,
		IsInShoppingCart: isInCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}, nil
}

// RecipePreview maps a recipe entity to its short representation.
func RecipePreview(r *entities.Recipe) domain.RecipePreview {
	return domain.RecipePreview{
		ID:          r.ID.String(),
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}
