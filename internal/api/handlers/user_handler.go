package handlers

import (
	"errors"
	"strconv"

	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/pkg/user"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	UserHandler interface {
		Register(c *fiber.Ctx) error
		Login(c *fiber.Ctx) error
		Logout(c *fiber.Ctx) error
		Me(c *fiber.Ctx) error
		GetUser(c *fiber.Ctx) error
		GetUsers(c *fiber.Ctx) error
		SetPassword(c *fiber.Ctx) error
		ForgotPassword(c *fiber.Ctx) error
		ResetPassword(c *fiber.Ctx) error
	}

	userHandler struct {
		userService user.UserService
		validator   *validator.Validate
	}
)

func NewUserHandler(userService user.UserService, validator *validator.Validate) UserHandler {
	return &userHandler{
		userService: userService,
		validator:   validator,
	}
}

func (h *userHandler) Register(c *fiber.Ctx) error {
	req := new(domain.RegisterRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRegister, err)
	}

	res, err := h.userService.Register(c.Context(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRegister, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessRegister)
}

func (h *userHandler) Login(c *fiber.Ctx) error {
	req := new(domain.LoginRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedLogin, err)
	}

	res, err := h.userService.Login(c.Context(), *req)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialsInvalid) {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedLogin, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedLogin, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessLogin)
}

func (h *userHandler) Logout(c *fiber.Ctx) error {
	// tokens are stateless; the client simply discards its copy
	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessLogout)
}

func (h *userHandler) Me(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.userService.Me(c.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetUser, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetUser, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetMe)
}

func (h *userHandler) GetUser(c *fiber.Ctx) error {
	requesterID, _ := c.Locals("user_id").(string)
	targetID := c.Params("id")

	res, err := h.userService.GetUser(c.Context(), requesterID, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetUser, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetUser, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetUser)
}

func (h *userHandler) GetUsers(c *fiber.Ctx) error {
	requesterID, _ := c.Locals("user_id").(string)
	page, limit := pagination(c)

	res, err := h.userService.GetUsers(c.Context(), requesterID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetUsers, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetUsers)
}

func (h *userHandler) SetPassword(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.SetPasswordRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSetPassword, err)
	}

	if err := h.userService.SetPassword(c.Context(), userID, *req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSetPassword, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessSetPassword)
}

func (h *userHandler) ForgotPassword(c *fiber.Ctx) error {
	req := new(domain.ForgotPasswordRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedForgotPassword, err)
	}

	if err := h.userService.ForgotPassword(c.Context(), *req); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedForgotPassword, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedForgotPassword, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessForgotPassword)
}

func (h *userHandler) ResetPassword(c *fiber.Ctx) error {
	req := new(domain.ResetPasswordRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedResetPassword, err)
	}

	if err := h.userService.ResetPassword(c.Context(), *req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedResetPassword, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessResetPassword)
}

func pagination(c *fiber.Ctx) (int, int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	return page, limit
}
