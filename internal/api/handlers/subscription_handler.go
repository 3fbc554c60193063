package handlers

import (
	"errors"
	"strconv"

	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/pkg/subscription"

	"github.com/gofiber/fiber/v2"
)

type (
	SubscriptionHandler interface {
		Subscribe(c *fiber.Ctx) error
		Unsubscribe(c *fiber.Ctx) error
		GetSubscriptions(c *fiber.Ctx) error
	}

	subscriptionHandler struct {
		subscriptionService subscription.SubscriptionService
	}
)

func NewSubscriptionHandler(subscriptionService subscription.SubscriptionService) SubscriptionHandler {
	return &subscriptionHandler{subscriptionService: subscriptionService}
}

func (h *subscriptionHandler) Subscribe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	authorID := c.Params("id")

	res, err := h.subscriptionService.Subscribe(c.Context(), userID, authorID, recipesLimit(c))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedSubscribe, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSubscribe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessSubscribe)
}

func (h *subscriptionHandler) Unsubscribe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	authorID := c.Params("id")

	if err := h.subscriptionService.Unsubscribe(c.Context(), userID, authorID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotSubscribed) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedUnsubscribe, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUnsubscribe, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessUnsubscribe)
}

func (h *subscriptionHandler) GetSubscriptions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	page, limit := pagination(c)

	res, err := h.subscriptionService.GetSubscriptions(c.Context(), userID, page, limit, recipesLimit(c))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetSubscriptions, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetSubscriptions)
}

func recipesLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("recipes_limit", "0"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
