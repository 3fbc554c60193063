package handlers

import (
	"errors"

	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/pkg/tag"

	"github.com/gofiber/fiber/v2"
)

type (
	TagHandler interface {
		GetTags(c *fiber.Ctx) error
		GetTag(c *fiber.Ctx) error
	}

	tagHandler struct {
		tagService tag.TagService
	}
)

func NewTagHandler(tagService tag.TagService) TagHandler {
	return &tagHandler{tagService: tagService}
}

func (h *tagHandler) GetTags(c *fiber.Ctx) error {
	res, err := h.tagService.GetTags(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetTags, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetTags)
}

func (h *tagHandler) GetTag(c *fiber.Ctx) error {
	res, err := h.tagService.GetTag(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrTagNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetTag, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetTag, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetTag)
}
