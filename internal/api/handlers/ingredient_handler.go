package handlers

import (
	"errors"

	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/pkg/ingredient"

	"github.com/gofiber/fiber/v2"
)

type (
	IngredientHandler interface {
		GetIngredients(c *fiber.Ctx) error
		GetIngredient(c *fiber.Ctx) error
	}

	ingredientHandler struct {
		ingredientService ingredient.IngredientService
	}
)

func NewIngredientHandler(ingredientService ingredient.IngredientService) IngredientHandler {
	return &ingredientHandler{ingredientService: ingredientService}
}

func (h *ingredientHandler) GetIngredients(c *fiber.Ctx) error {
	res, err := h.ingredientService.GetIngredients(c.Context(), c.Query("name", ""))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetIngredients, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetIngredients)
}

func (h *ingredientHandler) GetIngredient(c *fiber.Ctx) error {
	res, err := h.ingredientService.GetIngredient(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrIngredientNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetIngredient, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetIngredient, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetIngredient)
}
