package domain

import (
	"errors"
)

var (
	MessageSuccessGetRecipes      = "success get recipes"
	MessageSuccessGetRecipeDetail = "success get recipe detail"
	MessageSuccessCreateRecipe    = "recipe created successfully"
	MessageSuccessUpdateRecipe    = "recipe updated successfully"
	MessageSuccessDeleteRecipe    = "recipe deleted successfully"
	MessageSuccessFavorite        = "recipe added to favorites"
	MessageSuccessUnfavorite      = "recipe removed from favorites"
	MessageSuccessAddToCart       = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart  = "recipe removed from shopping cart"

	MessageFailedGetRecipes      = "failed to get recipes"
	MessageFailedGetRecipeDetail = "failed to get recipe detail"
	MessageFailedCreateRecipe    = "failed to create recipe"
	MessageFailedUpdateRecipe    = "failed to update recipe"
	MessageFailedDeleteRecipe    = "failed to delete recipe"
	MessageFailedFavorite        = "failed to update favorites"
	MessageFailedShoppingCart    = "failed to update shopping cart"
	MessageFailedDownloadCart    = "failed to download shopping list"

	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrNotRecipeAuthor    = errors.New("only the author can modify this recipe")
	ErrAlreadyFavorited   = errors.New("recipe is already in favorites")
	ErrNotFavorited       = errors.New("recipe is not in favorites")
	ErrAlreadyInCart      = errors.New("recipe is already in the shopping cart")
	ErrNotInCart          = errors.New("recipe is not in the shopping cart")
	ErrInvalidRecipeImage = errors.New("invalid recipe image payload")
)

type (
	RecipeIngredientRequest struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount" validate:"required,gt=0"`
	}

	CreateRecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=200"`
		Image       string                    `json:"image"` // base64 payload, optional
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required,gt=0"`
		Tags        []string                  `json:"tags" validate:"required,min=1,dive,uuid"`
		Ingredients []RecipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	}

	// UpdateRecipeRequest carries pointers so that absent fields are left
	// untouched. Supplied tags replace the whole tag set; supplied
	// ingredients update each join row by its own (recipe, ingredient) pair.
	UpdateRecipeRequest struct {
		Name        *string                    `json:"name" validate:"omitempty,max=200"`
		Image       *string                    `json:"image"`
		Text        *string                    `json:"text"`
		CookingTime *int                       `json:"cooking_time" validate:"omitempty,gt=0"`
		Tags        *[]string                  `json:"tags" validate:"omitempty,min=1,dive,uuid"`
		Ingredients *[]RecipeIngredientRequest `json:"ingredients" validate:"omitempty,min=1,dive"`
	}

	RecipeIngredientResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               string                     `json:"id"`
		Tags             []TagResponse              `json:"tags"`
		Author           UserResponse               `json:"author"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
		Name             string                     `json:"name"`
		Image            string                     `json:"image"`
		Text             string                     `json:"text"`
		CookingTime      int                        `json:"cooking_time"`
	}

	RecipePreview struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipesResponse struct {
		Recipes    []RecipeResponse `json:"recipes"`
		Pagination Pagination       `json:"pagination"`
	}

	// RecipeFilter mirrors the recipe list query parameters. The favorited
	// and cart restrictions only apply for an authenticated requester.
	RecipeFilter struct {
		Author           string
		TagSlugs         []string
		IsFavorited      bool
		IsInShoppingCart bool
	}

	ShoppingListItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}
)
