package handlers

import (
	"errors"

	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/pkg/recipe"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	RecipeHandler interface {
		GetRecipes(c *fiber.Ctx) error
		GetRecipeDetail(c *fiber.Ctx) error
		CreateRecipe(c *fiber.Ctx) error
		UpdateRecipe(c *fiber.Ctx) error
		DeleteRecipe(c *fiber.Ctx) error
		Favorite(c *fiber.Ctx) error
		Unfavorite(c *fiber.Ctx) error
		AddToShoppingCart(c *fiber.Ctx) error
		RemoveFromShoppingCart(c *fiber.Ctx) error
		DownloadShoppingCart(c *fiber.Ctx) error
	}

	recipeHandler struct {
		recipeService recipe.RecipeService
		validator     *validator.Validate
	}
)

func NewRecipeHandler(recipeService recipe.RecipeService, validator *validator.Validate) RecipeHandler {
	return &recipeHandler{
		recipeService: recipeService,
		validator:     validator,
	}
}

func (h *recipeHandler) GetRecipes(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	page, limit := pagination(c)

	filter := domain.RecipeFilter{
		Author:           c.Query("author", ""),
		IsFavorited:      c.Query("is_favorited") == "1",
		IsInShoppingCart: c.Query("is_in_shopping_cart") == "1",
	}
	if tags, ok := c.Queries()["tags"]; ok && tags != "" {
		filter.TagSlugs = append(filter.TagSlugs, tags)
	}
	// repeatable ?tags=a&tags=b form
	if args := c.Context().QueryArgs().PeekMulti("tags"); len(args) > 1 {
		filter.TagSlugs = filter.TagSlugs[:0]
		for _, arg := range args {
			filter.TagSlugs = append(filter.TagSlugs, string(arg))
		}
	}

	res, err := h.recipeService.GetRecipes(c.Context(), filter, userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetRecipes, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipes)
}

func (h *recipeHandler) GetRecipeDetail(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	res, err := h.recipeService.GetRecipeDetail(c.Context(), c.Params("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetRecipeDetail, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetRecipeDetail, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipeDetail)
}

func (h *recipeHandler) CreateRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.CreateRecipeRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateRecipe, err)
	}

	res, err := h.recipeService.CreateRecipe(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateRecipe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateRecipe)
}

func (h *recipeHandler) UpdateRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.UpdateRecipeRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateRecipe, err)
	}

	res, err := h.recipeService.UpdateRecipe(c.Context(), c.Params("id"), *req, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecipeNotFound):
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedUpdateRecipe, err)
		case errors.Is(err, domain.ErrNotRecipeAuthor):
			return presenters.ErrorResponse(c, fiber.StatusForbidden, domain.MessageFailedUpdateRecipe, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateRecipe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateRecipe)
}

func (h *recipeHandler) DeleteRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.recipeService.DeleteRecipe(c.Context(), c.Params("id"), userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrRecipeNotFound):
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedDeleteRecipe, err)
		case errors.Is(err, domain.ErrNotRecipeAuthor):
			return presenters.ErrorResponse(c, fiber.StatusForbidden, domain.MessageFailedDeleteRecipe, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedDeleteRecipe, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessDeleteRecipe)
}

func (h *recipeHandler) Favorite(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.recipeService.Favorite(c.Context(), c.Params("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedFavorite, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedFavorite, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessFavorite)
}

func (h *recipeHandler) Unfavorite(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.recipeService.Unfavorite(c.Context(), c.Params("id"), userID); err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) || errors.Is(err, domain.ErrNotFavorited) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedFavorite, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedFavorite, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessUnfavorite)
}

func (h *recipeHandler) AddToShoppingCart(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.recipeService.AddToShoppingCart(c.Context(), c.Params("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedShoppingCart, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedShoppingCart, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessAddToCart)
}

func (h *recipeHandler) RemoveFromShoppingCart(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.recipeService.RemoveFromShoppingCart(c.Context(), c.Params("id"), userID); err != nil {
		if errors.Is(err, domain.ErrRecipeNotFound) || errors.Is(err, domain.ErrNotInCart) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedShoppingCart, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedShoppingCart, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessRemoveFromCart)
}

func (h *recipeHandler) DownloadShoppingCart(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	items, err := h.recipeService.GetShoppingList(c.Context(), userID)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedDownloadCart, err)
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename=shop_list.txt`)
	return c.SendString(recipe.FormatShoppingList(items))
}
