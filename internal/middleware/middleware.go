package middleware

import (
	"strings"

	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type (
	Middleware interface {
		CORSMiddleware() fiber.Handler
		AuthMiddleware(jwtService jwt.JWTService) fiber.Handler
		OptionalAuthMiddleware(jwtService jwt.JWTService) fiber.Handler
	}

	middleware struct{}
)

func NewMiddleware() Middleware {
	return &middleware{}
}

func (m *middleware) CORSMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	})
}

// AuthMiddleware rejects requests without a valid bearer token.
func (m *middleware) AuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return presenters.ErrorResponse(
				c, fiber.StatusUnauthorized, domain.MessageFailedGetToken, domain.ErrTokenNotFound,
			)
		}

		userID, err := jwtService.GetUserIDByToken(token)
		if err != nil {
			return presenters.ErrorResponse(
				c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, err,
			)
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// OptionalAuthMiddleware resolves the requester identity when a valid token
// is present and otherwise continues as anonymous with an empty user_id.
func (m *middleware) OptionalAuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", "")

		if token := bearerToken(c); token != "" {
			if userID, err := jwtService.GetUserIDByToken(token); err == nil {
				c.Locals("user_id", userID)
			}
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
}
