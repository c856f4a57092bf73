package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taiga-shiokawa/miyakobook/src/lib"
	"github.com/taiga-shiokawa/miyakobook/src/store"
)

// ProtectRoute checks for a valid JWT (Authorization header or session
// cookie), loads the user and attaches it to the request context as
// "user". Everything behind it can assume an authenticated caller.
func ProtectRoute(users *store.UserStore, jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFromRequest(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - No token provided"))
		}

		userID, err := lib.UserIDFromToken(token, jwtSecret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - Invalid token"))
		}

		user, err := users.FindByID(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - User not found"))
		}

		c.Locals("user", *user)
		return c.Next()
	}
}

func tokenFromRequest(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Cookies(lib.AuthCookieName)
}
